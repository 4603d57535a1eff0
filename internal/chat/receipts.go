package chat

import (
	"context"
	"fmt"
	"time"

	"tugasin/server/internal/apperr"
	"tugasin/server/internal/models"
	"tugasin/server/internal/websocket"
)

// MarkMessageRead handles the single-message read receipt: only a member
// other than the sender may read, and the status never moves backward.
func (s *Service) MarkMessageRead(ctx context.Context, readerID, conversationID, messageID string) error {
	msg, err := s.store.MessageByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.ConversationID != conversationID {
		return fmt.Errorf("message does not belong to conversation: %w", apperr.ErrNotFound)
	}
	if msg.SenderID == readerID {
		return fmt.Errorf("cannot read own message: %w", apperr.ErrForbidden)
	}

	member, err := s.store.IsMember(ctx, conversationID, readerID)
	if err != nil {
		return err
	}
	if !member {
		return fmt.Errorf("not a member of this conversation: %w", apperr.ErrForbidden)
	}

	updated, err := s.store.MarkRead(ctx, messageID)
	if err != nil {
		return err
	}
	if updated {
		s.broadcastStatus(ctx, conversationID, messageID, models.StatusRead, nil)
	}
	return nil
}

// MarkConversationRead marks every unread message not sent by the reader
// in one pass. The summary event goes out first so clients can
// short-circuit without waiting for the per-message updates.
func (s *Service) MarkConversationRead(ctx context.Context, readerID, conversationID string) error {
	member, err := s.store.IsMember(ctx, conversationID, readerID)
	if err != nil {
		return err
	}
	if !member {
		return fmt.Errorf("not a member of this conversation: %w", apperr.ErrForbidden)
	}

	ids, err := s.store.MarkConversationRead(ctx, conversationID, readerID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	members, err := s.store.MemberIDs(ctx, conversationID)
	if err != nil {
		return err
	}

	s.fanout(conversationID, members, websocket.WSMessage{
		Type: websocket.EventConversationMessagesRead,
		Payload: websocket.ConversationReadPayload{
			ConversationID: conversationID,
			Status:         models.StatusRead,
		},
		Timestamp: time.Now(),
	})

	for _, id := range ids {
		s.broadcastStatus(ctx, conversationID, id, models.StatusRead, members)
	}
	return nil
}

// AddReaction adds a reaction idempotently and re-broadcasts to the
// conversation topic only; reactions never reach personal topics.
func (s *Service) AddReaction(ctx context.Context, userID, conversationID, messageID, reaction string) error {
	if reaction == "" {
		return fmt.Errorf("reaction is required: %w", apperr.ErrValidation)
	}

	member, err := s.store.IsMember(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !member {
		return fmt.Errorf("not a member of this conversation: %w", apperr.ErrForbidden)
	}

	inserted, err := s.store.AddReaction(ctx, messageID, userID, reaction)
	if err != nil {
		return err
	}
	if !inserted {
		// Duplicate; state unchanged, nothing to announce
		return nil
	}

	s.bus.Publish(websocket.ConversationTopic(conversationID), websocket.WSMessage{
		Type: websocket.EventMessageReactionAdded,
		Payload: websocket.ReactionPayload{
			MessageID:      messageID,
			ConversationID: conversationID,
			UserID:         userID,
			Reaction:       reaction,
		},
		Timestamp: time.Now(),
	})
	return nil
}

// RemoveReaction removes a reaction idempotently and re-broadcasts
func (s *Service) RemoveReaction(ctx context.Context, userID, conversationID, messageID, reaction string) error {
	member, err := s.store.IsMember(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !member {
		return fmt.Errorf("not a member of this conversation: %w", apperr.ErrForbidden)
	}

	if err := s.store.RemoveReaction(ctx, messageID, userID, reaction); err != nil {
		return err
	}

	s.bus.Publish(websocket.ConversationTopic(conversationID), websocket.WSMessage{
		Type: websocket.EventMessageReactionRemoved,
		Payload: websocket.ReactionPayload{
			MessageID:      messageID,
			ConversationID: conversationID,
			UserID:         userID,
			Reaction:       reaction,
		},
		Timestamp: time.Now(),
	})
	return nil
}

// EditMessage updates message content (sender only) and announces it
func (s *Service) EditMessage(ctx context.Context, senderID, messageID, content string) (*models.Message, error) {
	if content == "" {
		return nil, fmt.Errorf("content is required: %w", apperr.ErrValidation)
	}

	msg, err := s.store.EditMessage(ctx, messageID, senderID, content)
	if err != nil {
		return nil, err
	}

	members, err := s.store.MemberIDs(ctx, msg.ConversationID)
	if err != nil {
		return nil, err
	}
	s.fanout(msg.ConversationID, members, websocket.WSMessage{
		Type:      websocket.EventMessageUpdated,
		Payload:   msg,
		Timestamp: time.Now(),
	})
	return msg, nil
}

// DeleteMessage soft-deletes a message (sender only) and announces it
func (s *Service) DeleteMessage(ctx context.Context, senderID, messageID string, forAll bool) error {
	msg, err := s.store.DeleteMessage(ctx, messageID, senderID, forAll)
	if err != nil {
		return err
	}

	members, err := s.store.MemberIDs(ctx, msg.ConversationID)
	if err != nil {
		return err
	}
	s.fanout(msg.ConversationID, members, websocket.WSMessage{
		Type: websocket.EventMessageDeleted,
		Payload: websocket.MessageDeletedPayload{
			MessageID:      msg.ID,
			ConversationID: msg.ConversationID,
			ForAll:         forAll,
		},
		Timestamp: time.Now(),
	})
	return nil
}
