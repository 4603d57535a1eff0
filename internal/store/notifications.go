package store

import (
	"context"
	"fmt"
	"time"

	"tugasin/server/internal/models"

	"github.com/google/uuid"
)

// InsertNotification persists a durable notification for an offline member
func (s *Store) InsertNotification(ctx context.Context, n *models.Notification) error {
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now()

	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, title, body, conversation_id, message_id, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8)
	`, n.ID, n.UserID, n.Type, n.Title, n.Body, n.ConversationID, n.MessageID, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// Notifications returns the user's notifications, newest first
func (s *Store) Notifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	query := `
		SELECT id, user_id, type, title, body, conversation_id, message_id, is_read, created_at
		FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += ` AND is_read = false`
	}
	query += ` ORDER BY created_at DESC LIMIT 100`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.ConversationID, &n.MessageID, &n.IsRead, &n.CreatedAt)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationsRead marks all of the user's notifications as read
func (s *Store) MarkNotificationsRead(ctx context.Context, userID string) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications SET is_read = true WHERE user_id = $1 AND is_read = false
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}
