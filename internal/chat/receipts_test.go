package chat

import (
	"context"
	"errors"
	"testing"

	"tugasin/server/internal/apperr"
	"tugasin/server/internal/models"
	"tugasin/server/internal/websocket"
)

func seedMessage(t *testing.T, svc *Service, sender, conversationID, content string) *models.MessageWithSender {
	t.Helper()
	msg, err := svc.SendMessage(context.Background(), sender, SendMessageInput{
		ConversationID: conversationID,
		Content:        content,
	})
	if err != nil {
		t.Fatalf("seed message: %v", err)
	}
	return msg
}

func TestMarkMessageRead(t *testing.T) {
	svc, st, bus := newTestService(map[string][]string{"c1": {"alice", "bob"}}, nil)
	msg := seedMessage(t, svc, "alice", "c1", "hi")
	bus.events = nil

	if err := svc.MarkMessageRead(context.Background(), "bob", "c1", msg.ID); err != nil {
		t.Fatalf("MarkMessageRead: %v", err)
	}
	if st.messages[msg.ID].Status != models.StatusRead {
		t.Errorf("status: got %q, want read", st.messages[msg.ID].Status)
	}

	updates := bus.byType(websocket.EventMessageStatusUpdate)
	if len(updates) == 0 {
		t.Fatal("expected a status update broadcast")
	}
	if p := updates[0].msg.Payload.(websocket.MessageStatusPayload); p.Status != models.StatusRead {
		t.Errorf("payload status: got %q", p.Status)
	}

	// Second read is a no-op with no further broadcast
	bus.events = nil
	if err := svc.MarkMessageRead(context.Background(), "bob", "c1", msg.ID); err != nil {
		t.Fatalf("second MarkMessageRead: %v", err)
	}
	if len(bus.byType(websocket.EventMessageStatusUpdate)) != 0 {
		t.Error("already-read message must not re-broadcast")
	}
}

func TestMarkMessageReadGuards(t *testing.T) {
	svc, st, _ := newTestService(map[string][]string{"c1": {"alice", "bob"}}, nil)
	st.addUser("mallory", "Mallory")
	msg := seedMessage(t, svc, "alice", "c1", "hi")

	if err := svc.MarkMessageRead(context.Background(), "alice", "c1", msg.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("sender reading own message: expected ErrForbidden, got %v", err)
	}
	if err := svc.MarkMessageRead(context.Background(), "mallory", "c1", msg.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("non-member: expected ErrForbidden, got %v", err)
	}
	if err := svc.MarkMessageRead(context.Background(), "bob", "c2", msg.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("wrong conversation: expected ErrNotFound, got %v", err)
	}
	if st.messages[msg.ID].Status == models.StatusRead {
		t.Error("guarded calls must not advance status")
	}
}

func TestMarkConversationReadSummaryFirst(t *testing.T) {
	svc, st, bus := newTestService(map[string][]string{"c1": {"alice", "bob"}}, nil)
	m1 := seedMessage(t, svc, "alice", "c1", "one")
	m2 := seedMessage(t, svc, "alice", "c1", "two")
	mine := seedMessage(t, svc, "bob", "c1", "mine")
	bus.events = nil

	if err := svc.MarkConversationRead(context.Background(), "bob", "c1"); err != nil {
		t.Fatalf("MarkConversationRead: %v", err)
	}

	for _, id := range []string{m1.ID, m2.ID} {
		if st.messages[id].Status != models.StatusRead {
			t.Errorf("message %s: got %q, want read", id, st.messages[id].Status)
		}
	}
	if st.messages[mine.ID].Status == models.StatusRead {
		t.Error("reader's own message must not be marked read")
	}

	// The summary event precedes the per-message updates
	if len(bus.events) == 0 || bus.events[0].msg.Type != websocket.EventConversationMessagesRead {
		t.Fatalf("first event should be the summary, got %+v", bus.events[0].msg.Type)
	}
	// 2 affected messages, each fanned to the conv topic + 2 personal topics
	if got := bus.byType(websocket.EventMessageStatusUpdate); len(got) != 6 {
		t.Errorf("per-message updates: got %d publishes, want 6", len(got))
	}

	// Nothing left to read: no events at all
	bus.events = nil
	if err := svc.MarkConversationRead(context.Background(), "bob", "c1"); err != nil {
		t.Fatalf("second MarkConversationRead: %v", err)
	}
	if len(bus.events) != 0 {
		t.Errorf("no events expected when nothing changed, got %d", len(bus.events))
	}
}

func TestReactionIdempotence(t *testing.T) {
	svc, st, bus := newTestService(map[string][]string{"c1": {"alice", "bob"}}, nil)
	msg := seedMessage(t, svc, "alice", "c1", "react to this")
	bus.events = nil

	for i := 0; i < 2; i++ {
		if err := svc.AddReaction(context.Background(), "bob", "c1", msg.ID, "👍"); err != nil {
			t.Fatalf("AddReaction #%d: %v", i+1, err)
		}
	}

	if len(st.reactions) != 1 {
		t.Errorf("stored reactions: got %d, want 1", len(st.reactions))
	}
	added := bus.byType(websocket.EventMessageReactionAdded)
	if len(added) != 1 {
		t.Fatalf("reaction broadcasts: got %d, want 1", len(added))
	}
	// Reactions stay conversation-local
	if added[0].topic != websocket.ConversationTopic("c1") {
		t.Errorf("reaction topic: got %q", added[0].topic)
	}

	bus.events = nil
	if err := svc.RemoveReaction(context.Background(), "bob", "c1", msg.ID, "👍"); err != nil {
		t.Fatalf("RemoveReaction: %v", err)
	}
	if len(st.reactions) != 0 {
		t.Errorf("reaction should be removed, got %d rows", len(st.reactions))
	}
	// Removing again is a no-op, not an error
	if err := svc.RemoveReaction(context.Background(), "bob", "c1", msg.ID, "👍"); err != nil {
		t.Fatalf("idempotent RemoveReaction: %v", err)
	}
}

func TestReactionRequiresMembership(t *testing.T) {
	svc, st, _ := newTestService(map[string][]string{"c1": {"alice", "bob"}}, nil)
	st.addUser("mallory", "Mallory")
	msg := seedMessage(t, svc, "alice", "c1", "hands off")

	if err := svc.AddReaction(context.Background(), "mallory", "c1", msg.ID, "👀"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestEditAndDeleteMessage(t *testing.T) {
	svc, st, bus := newTestService(map[string][]string{"c1": {"alice", "bob"}}, nil)
	msg := seedMessage(t, svc, "alice", "c1", "draft")
	bus.events = nil

	edited, err := svc.EditMessage(context.Background(), "alice", msg.ID, "final")
	if err != nil {
		t.Fatalf("EditMessage: %v", err)
	}
	if edited.Content != "final" || edited.EditedAt == nil {
		t.Errorf("unexpected edited message: %+v", edited)
	}
	if len(bus.byType(websocket.EventMessageUpdated)) == 0 {
		t.Error("expected message_updated broadcast")
	}

	// Only the sender may edit or delete
	if _, err := svc.EditMessage(context.Background(), "bob", msg.ID, "hijack"); err == nil {
		t.Error("non-sender edit should fail")
	}

	if err := svc.DeleteMessage(context.Background(), "alice", msg.ID, true); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if st.messages[msg.ID].DeletedAt == nil || !st.messages[msg.ID].DeletedForAll {
		t.Error("message should be soft-deleted for all")
	}
	deleted := bus.byType(websocket.EventMessageDeleted)
	if len(deleted) == 0 {
		t.Fatal("expected message_deleted broadcast")
	}
	if p := deleted[0].msg.Payload.(websocket.MessageDeletedPayload); !p.ForAll {
		t.Errorf("payload: %+v", p)
	}
}
