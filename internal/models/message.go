package models

import "time"

// Message statuses. The scalar status is sender-facing and monotonically
// non-decreasing: sent -> delivered -> read, never backward.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// Message types
const (
	TypeText     = "text"
	TypeImage    = "image"
	TypeVideo    = "video"
	TypeDocument = "document"
	TypeLocation = "location"
	TypeSystem   = "system"
)

// Message represents a chat message inside a conversation
type Message struct {
	ID               string     `json:"id" db:"id"`
	ConversationID   string     `json:"conversationId" db:"conversation_id"`
	SenderID         string     `json:"senderId" db:"sender_id"`
	Content          string     `json:"content" db:"content"`
	Type             string     `json:"type" db:"type"`
	MediaURL         *string    `json:"mediaUrl,omitempty" db:"media_url"`
	MediaName        *string    `json:"mediaName,omitempty" db:"media_name"`
	ReplyToMessageID *string    `json:"replyToMessageId,omitempty" db:"reply_to_message_id"`
	Status           string     `json:"status" db:"status"`
	CreatedAt        time.Time  `json:"createdAt" db:"created_at"`
	EditedAt         *time.Time `json:"editedAt,omitempty" db:"edited_at"`
	DeletedAt        *time.Time `json:"deletedAt,omitempty" db:"deleted_at"`
	DeletedForAll    bool       `json:"deletedForAll" db:"deleted_for_all"`
}

// ReplyPreview is the denormalized excerpt of the message being replied to
type ReplyPreview struct {
	ID         string `json:"id"`
	SenderName string `json:"senderName"`
	Content    string `json:"content"`
	Type       string `json:"type"`
}

// MessageWithSender is the full message object fanned out to clients
type MessageWithSender struct {
	Message
	SenderName   string        `json:"senderName"`
	SenderAvatar *string       `json:"senderAvatar,omitempty"`
	ReplyTo      *ReplyPreview `json:"replyTo,omitempty"`
}

// MessageReaction is one emoji by one user on one message; the triple is
// unique so adding the same reaction twice stores a single row.
type MessageReaction struct {
	MessageID string    `json:"messageId" db:"message_id"`
	UserID    string    `json:"userId" db:"user_id"`
	Reaction  string    `json:"reaction" db:"reaction"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
