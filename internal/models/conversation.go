package models

import "time"

// Member roles within a conversation
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Conversation represents a chat between users. Exactly one non-group
// conversation exists per pair of users; a task group conversation exists
// at most once per task.
type Conversation struct {
	ID          string    `json:"id" db:"id"`
	IsGroup     bool      `json:"isGroup" db:"is_group"`
	IsTaskGroup bool      `json:"isTaskGroup" db:"is_task_group"`
	TaskID      *string   `json:"taskId,omitempty" db:"task_id"`
	Name        *string   `json:"name,omitempty" db:"name"`
	GroupPhoto  *string   `json:"groupPhoto,omitempty" db:"group_photo"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// ConversationMember represents a user's membership in a conversation.
// Membership is the sole authorization boundary for reading, writing and
// receiving a conversation's broadcasts.
type ConversationMember struct {
	ConversationID string    `json:"conversationId" db:"conversation_id"`
	UserID         string    `json:"userId" db:"user_id"`
	Role           string    `json:"role" db:"role"` // 'admin', 'member'
	IsPinned       bool      `json:"isPinned" db:"is_pinned"`
	JoinedAt       time.Time `json:"joinedAt" db:"joined_at"`
}

// ConversationSummary is a conversation as rendered in the overview list
type ConversationSummary struct {
	Conversation
	Members     []UserResponse     `json:"members,omitempty"`
	LastMessage *MessageWithSender `json:"lastMessage,omitempty"`
	UnreadCount int                `json:"unreadCount"`
}
