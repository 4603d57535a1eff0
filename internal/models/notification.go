package models

import "time"

// Notification types
const (
	NotifNewMessage = "new_message"
	NotifTask       = "task"
)

// Notification is the durable fallback for members who are offline at
// delivery time; it does not replace the live channel.
type Notification struct {
	ID             string    `json:"id" db:"id"`
	UserID         string    `json:"userId" db:"user_id"`
	Type           string    `json:"type" db:"type"`
	Title          string    `json:"title" db:"title"`
	Body           string    `json:"body" db:"body"`
	ConversationID *string   `json:"conversationId,omitempty" db:"conversation_id"`
	MessageID      *string   `json:"messageId,omitempty" db:"message_id"`
	IsRead         bool      `json:"isRead" db:"is_read"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}
