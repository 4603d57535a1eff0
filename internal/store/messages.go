package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tugasin/server/internal/apperr"
	"tugasin/server/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InsertMessage persists a message with status 'sent', filling in the
// generated id and timestamp.
func (s *Store) InsertMessage(ctx context.Context, m *models.Message) error {
	m.ID = uuid.NewString()
	m.Status = models.StatusSent
	m.CreatedAt = time.Now()

	_, err := s.db.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, content, type, media_url, media_name,
			reply_to_message_id, status, created_at, deleted_for_all)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false)
	`, m.ID, m.ConversationID, m.SenderID, m.Content, m.Type, m.MediaURL, m.MediaName,
		m.ReplyToMessageID, m.Status, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// MessageByID returns a message by id
func (s *Store) MessageByID(ctx context.Context, id string) (*models.Message, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, conversation_id, sender_id, content, type, media_url, media_name,
			reply_to_message_id, status, created_at, edited_at, deleted_at, deleted_for_all
		FROM messages WHERE id = $1
	`, id)

	var m models.Message
	err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.Type, &m.MediaURL, &m.MediaName,
		&m.ReplyToMessageID, &m.Status, &m.CreatedAt, &m.EditedAt, &m.DeletedAt, &m.DeletedForAll)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("message: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query message: %w", err)
	}
	return &m, nil
}

// Messages returns paginated history for a conversation, newest first
func (s *Store) Messages(ctx context.Context, conversationID string, limit, offset int) ([]models.MessageWithSender, int, error) {
	var total int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages WHERE conversation_id = $1
	`, conversationID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT m.id, m.conversation_id, m.sender_id, m.content, m.type, m.media_url, m.media_name,
			m.reply_to_message_id, m.status, m.created_at, m.edited_at, m.deleted_at, m.deleted_for_all,
			u.name, u.avatar
		FROM messages m
		INNER JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = $1
		ORDER BY m.created_at DESC
		LIMIT $2 OFFSET $3
	`, conversationID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := []models.MessageWithSender{}
	for rows.Next() {
		var mw models.MessageWithSender
		err := rows.Scan(&mw.ID, &mw.ConversationID, &mw.SenderID, &mw.Content, &mw.Type, &mw.MediaURL, &mw.MediaName,
			&mw.ReplyToMessageID, &mw.Status, &mw.CreatedAt, &mw.EditedAt, &mw.DeletedAt, &mw.DeletedForAll,
			&mw.SenderName, &mw.SenderAvatar)
		if err != nil {
			return nil, 0, err
		}
		messages = append(messages, mw)
	}

	return messages, total, rows.Err()
}

// MarkDelivered advances a message from 'sent' to 'delivered'. The guard
// in the WHERE clause keeps the status monotonic under concurrent updates.
func (s *Store) MarkDelivered(ctx context.Context, messageID string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE messages SET status = 'delivered' WHERE id = $1 AND status = 'sent'
	`, messageID)
	if err != nil {
		return false, fmt.Errorf("mark delivered: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkRead advances a message to 'read' unless it already is
func (s *Store) MarkRead(ctx context.Context, messageID string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE messages SET status = 'read' WHERE id = $1 AND status IN ('sent', 'delivered')
	`, messageID)
	if err != nil {
		return false, fmt.Errorf("mark read: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkConversationRead marks every message in the conversation not sent by
// the reader and not already read, in one pass, returning the affected ids.
func (s *Store) MarkConversationRead(ctx context.Context, conversationID, readerID string) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		UPDATE messages SET status = 'read'
		WHERE conversation_id = $1 AND sender_id != $2 AND status IN ('sent', 'delivered')
		RETURNING id
	`, conversationID, readerID)
	if err != nil {
		return nil, fmt.Errorf("mark conversation read: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// EditMessage updates content and stamps edited_at; only the sender may edit
func (s *Store) EditMessage(ctx context.Context, messageID, senderID, content string) (*models.Message, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE messages SET content = $1, edited_at = $2
		WHERE id = $3 AND sender_id = $4 AND deleted_at IS NULL
	`, content, time.Now(), messageID, senderID)
	if err != nil {
		return nil, fmt.Errorf("edit message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("message not editable: %w", apperr.ErrNotFound)
	}
	return s.MessageByID(ctx, messageID)
}

// DeleteMessage soft-deletes a message; only the sender may delete
func (s *Store) DeleteMessage(ctx context.Context, messageID, senderID string, forAll bool) (*models.Message, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE messages SET deleted_at = $1, deleted_for_all = $2
		WHERE id = $3 AND sender_id = $4 AND deleted_at IS NULL
	`, time.Now(), forAll, messageID, senderID)
	if err != nil {
		return nil, fmt.Errorf("delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("message not deletable: %w", apperr.ErrNotFound)
	}
	return s.MessageByID(ctx, messageID)
}

// AddReaction stores one reaction per (message, user, emoji); the unique
// constraint swallows duplicates. Returns whether a row was inserted.
func (s *Store) AddReaction(ctx context.Context, messageID, userID, reaction string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO message_reactions (message_id, user_id, reaction, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (message_id, user_id, reaction) DO NOTHING
	`, messageID, userID, reaction, time.Now())
	if err != nil {
		return false, fmt.Errorf("add reaction: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RemoveReaction removes a reaction; removing an absent one is a no-op
func (s *Store) RemoveReaction(ctx context.Context, messageID, userID, reaction string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM message_reactions WHERE message_id = $1 AND user_id = $2 AND reaction = $3
	`, messageID, userID, reaction)
	if err != nil {
		return fmt.Errorf("remove reaction: %w", err)
	}
	return nil
}
