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

// IsMember reports whether the user is a current member of the
// conversation. Membership is the sole authorization boundary for reading
// and writing a conversation's messages.
func (s *Store) IsMember(ctx context.Context, conversationID, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM conversation_members WHERE conversation_id = $1 AND user_id = $2)
	`, conversationID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return exists, nil
}

// MemberIDs returns the user ids of all current members
func (s *Store) MemberIDs(ctx context.Context, conversationID string) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id FROM conversation_members WHERE conversation_id = $1
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
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

// AddMember adds a user to a conversation, idempotent on repeat joins
func (s *Store) AddMember(ctx context.Context, conversationID, userID, role string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO conversation_members (conversation_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (conversation_id, user_id) DO NOTHING
	`, conversationID, userID, role, time.Now())
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// RemoveMember removes a user from a conversation
func (s *Store) RemoveMember(ctx context.Context, conversationID, userID string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM conversation_members WHERE conversation_id = $1 AND user_id = $2
	`, conversationID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

// TouchConversation bumps updated_at for ordering in conversation lists
func (s *Store) TouchConversation(ctx context.Context, conversationID string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE conversations SET updated_at = $1 WHERE id = $2
	`, time.Now(), conversationID)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

// EnsureDirectConversation returns the 1:1 conversation between two users,
// creating it if absent. The second return value reports whether it was
// created. Exactly one non-group conversation exists per user pair.
func (s *Store) EnsureDirectConversation(ctx context.Context, userID, otherID string) (*models.Conversation, bool, error) {
	conv, err := s.directConversation(ctx, userID, otherID)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, err
	}

	created := false
	err = s.withTx(ctx, func(tx *Store) error {
		// Re-check inside the tx so two racing creates collapse to one
		existing, err := tx.directConversation(ctx, userID, otherID)
		if err == nil {
			conv = existing
			return nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}

		now := time.Now()
		c := &models.Conversation{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
		if _, err := tx.db.Exec(ctx, `
			INSERT INTO conversations (id, is_group, is_task_group, created_at, updated_at)
			VALUES ($1, false, false, $2, $2)
		`, c.ID, now); err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}

		for _, uid := range []string{userID, otherID} {
			if err := tx.AddMember(ctx, c.ID, uid, models.RoleMember); err != nil {
				return err
			}
		}

		conv = c
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return conv, created, nil
}

func (s *Store) directConversation(ctx context.Context, userID, otherID string) (*models.Conversation, error) {
	row := s.db.QueryRow(ctx, `
		SELECT c.id, c.is_group, c.is_task_group, c.task_id, c.name, c.group_photo, c.created_at, c.updated_at
		FROM conversations c
		INNER JOIN conversation_members a ON a.conversation_id = c.id AND a.user_id = $1
		INNER JOIN conversation_members b ON b.conversation_id = c.id AND b.user_id = $2
		WHERE c.is_group = false
		LIMIT 1
	`, userID, otherID)

	var c models.Conversation
	err := row.Scan(&c.ID, &c.IsGroup, &c.IsTaskGroup, &c.TaskID, &c.Name, &c.GroupPhoto, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("conversation: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	return &c, nil
}

// Conversations returns the user's conversations ordered by recency, with
// the last message attached for the overview list.
func (s *Store) Conversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT c.id, c.is_group, c.is_task_group, c.task_id, c.name, c.group_photo, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM messages m
			 WHERE m.conversation_id = c.id AND m.sender_id != $1 AND m.status != 'read' AND m.deleted_at IS NULL)
		FROM conversations c
		INNER JOIN conversation_members cm ON cm.conversation_id = c.id
		WHERE cm.user_id = $1
		ORDER BY c.updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	summaries := []models.ConversationSummary{}
	for rows.Next() {
		var cs models.ConversationSummary
		err := rows.Scan(&cs.ID, &cs.IsGroup, &cs.IsTaskGroup, &cs.TaskID, &cs.Name, &cs.GroupPhoto,
			&cs.CreatedAt, &cs.UpdatedAt, &cs.UnreadCount)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range summaries {
		last, err := s.lastMessage(ctx, summaries[i].ID)
		if err != nil {
			return nil, err
		}
		summaries[i].LastMessage = last
	}

	return summaries, nil
}

func (s *Store) lastMessage(ctx context.Context, conversationID string) (*models.MessageWithSender, error) {
	row := s.db.QueryRow(ctx, `
		SELECT m.id, m.conversation_id, m.sender_id, m.content, m.type, m.media_url, m.media_name,
			m.reply_to_message_id, m.status, m.created_at, m.edited_at, m.deleted_at, m.deleted_for_all,
			u.name, u.avatar
		FROM messages m
		INNER JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = $1
		ORDER BY m.created_at DESC
		LIMIT 1
	`, conversationID)

	var mw models.MessageWithSender
	err := row.Scan(&mw.ID, &mw.ConversationID, &mw.SenderID, &mw.Content, &mw.Type, &mw.MediaURL, &mw.MediaName,
		&mw.ReplyToMessageID, &mw.Status, &mw.CreatedAt, &mw.EditedAt, &mw.DeletedAt, &mw.DeletedForAll,
		&mw.SenderName, &mw.SenderAvatar)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last message: %w", err)
	}
	return &mw, nil
}
