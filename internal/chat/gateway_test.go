package chat

import (
	"encoding/json"
	"testing"
	"time"

	"tugasin/server/internal/websocket"

	"go.uber.org/zap"
)

func newTestGateway(members map[string][]string, online map[string]bool) (*Gateway, *fakeStore, *websocket.Hub) {
	st := newFakeStore()
	for conv, uids := range members {
		st.members[conv] = uids
		for _, uid := range uids {
			st.addUser(uid, "User "+uid)
		}
	}
	hub := websocket.NewHub(zap.NewNop())
	svc := NewService(st, hub, &fakePresence{online: online}, zap.NewNop())
	return NewGateway(svc, hub, zap.NewNop()), st, hub
}

func recvEvent(t *testing.T, c *websocket.Client) websocket.WSMessage {
	t.Helper()
	select {
	case data := <-c.Send:
		var msg websocket.WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return websocket.WSMessage{}
	}
}

func TestJoinConversationVerifiesMembership(t *testing.T) {
	g, _, hub := newTestGateway(map[string][]string{"c1": {"alice", "bob"}}, nil)
	alice := websocket.NewClient("alice", "Alice", nil, hub, g, zap.NewNop())
	mallory := websocket.NewClient("mallory", "Mallory", nil, hub, g, zap.NewNop())

	g.HandleEvent(mallory, websocket.IncomingMessage{
		Type:    websocket.EventJoinConversation,
		Payload: map[string]interface{}{"conversationId": "c1"},
	})
	got := recvEvent(t, mallory)
	if got.Type != websocket.EventError {
		t.Fatalf("non-member join: got %q, want error event", got.Type)
	}
	if payload := got.Payload.(map[string]interface{}); payload["code"] != "forbidden" {
		t.Errorf("error code: got %v", payload["code"])
	}

	g.HandleEvent(alice, websocket.IncomingMessage{
		Type:    websocket.EventJoinConversation,
		Payload: map[string]interface{}{"conversationId": "c1"},
	})
	if len(alice.Send) != 0 {
		t.Fatal("successful join should be silent")
	}

	// Joined: conversation-topic publishes now reach alice
	hub.Publish(websocket.ConversationTopic("c1"), websocket.WSMessage{Type: websocket.EventNewMessage})
	if got := recvEvent(t, alice); got.Type != websocket.EventNewMessage {
		t.Errorf("after join: got %q, want new_message", got.Type)
	}
	if len(mallory.Send) != 0 {
		t.Error("mallory never joined and should receive nothing")
	}

	// Leaving unbinds without error
	g.HandleEvent(alice, websocket.IncomingMessage{
		Type:    websocket.EventLeaveConversation,
		Payload: map[string]interface{}{"conversationId": "c1"},
	})
	hub.Publish(websocket.ConversationTopic("c1"), websocket.WSMessage{Type: websocket.EventNewMessage})
	if len(alice.Send) != 0 {
		t.Error("left conversation should receive nothing")
	}
}

func TestSendMessageEvent(t *testing.T) {
	g, st, hub := newTestGateway(map[string][]string{"c1": {"alice", "bob"}}, nil)
	alice := websocket.NewClient("alice", "Alice", nil, hub, g, zap.NewNop())

	g.HandleEvent(alice, websocket.IncomingMessage{
		Type: websocket.EventSendMessage,
		Payload: map[string]interface{}{
			"conversationId": "c1",
			"content":        "over websocket",
		},
	})

	if len(st.messages) != 1 {
		t.Fatalf("messages persisted: got %d, want 1", len(st.messages))
	}
	if len(alice.Send) != 0 {
		t.Error("successful send should not emit an error event")
	}

	// Validation failures come back as an error event, connection stays up
	g.HandleEvent(alice, websocket.IncomingMessage{
		Type:    websocket.EventSendMessage,
		Payload: map[string]interface{}{"conversationId": "c1", "content": ""},
	})
	got := recvEvent(t, alice)
	if got.Type != websocket.EventError {
		t.Fatalf("got %q, want error event", got.Type)
	}
	if payload := got.Payload.(map[string]interface{}); payload["code"] != "invalid_request" {
		t.Errorf("error code: got %v", payload["code"])
	}
}

func TestTypingRelay(t *testing.T) {
	g, _, hub := newTestGateway(map[string][]string{"c1": {"alice", "bob"}}, nil)
	alice := websocket.NewClient("alice", "Alice", nil, hub, g, zap.NewNop())
	bob := websocket.NewClient("bob", "Bob", nil, hub, g, zap.NewNop())
	hub.Subscribe(bob, websocket.ConversationTopic("c1"))

	g.HandleEvent(alice, websocket.IncomingMessage{
		Type:    websocket.EventTyping,
		Payload: map[string]interface{}{"conversationId": "c1", "isTyping": true},
	})

	got := recvEvent(t, bob)
	if got.Type != websocket.EventTyping {
		t.Fatalf("got %q, want typing", got.Type)
	}
	payload := got.Payload.(map[string]interface{})
	if payload["userId"] != "alice" || payload["userName"] != "Alice" || payload["isTyping"] != true {
		t.Errorf("unexpected typing payload: %v", payload)
	}
}

func TestCheckUserOnlineRepliesToRequesterOnly(t *testing.T) {
	g, _, hub := newTestGateway(
		map[string][]string{"c1": {"alice", "bob"}},
		map[string]bool{"bob": true},
	)
	alice := websocket.NewClient("alice", "Alice", nil, hub, g, zap.NewNop())

	g.HandleEvent(alice, websocket.IncomingMessage{
		Type:    websocket.EventCheckUserOnline,
		Payload: map[string]interface{}{"userId": "bob"},
	})

	got := recvEvent(t, alice)
	if got.Type != websocket.EventUserOnlineStatus {
		t.Fatalf("got %q, want user_online_status", got.Type)
	}
	payload := got.Payload.(map[string]interface{})
	if payload["userId"] != "bob" || payload["isOnline"] != true {
		t.Errorf("unexpected presence payload: %v", payload)
	}

	g.HandleEvent(alice, websocket.IncomingMessage{
		Type:    websocket.EventCheckUserOnline,
		Payload: map[string]interface{}{"userId": "carol"},
	})
	got = recvEvent(t, alice)
	payload = got.Payload.(map[string]interface{})
	if payload["isOnline"] != false {
		t.Errorf("carol should read as offline, got %v", payload)
	}
}
