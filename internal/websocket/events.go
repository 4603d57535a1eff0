package websocket

import "time"

// EventType represents different WebSocket event types
type EventType string

const (
	// Client -> server events
	EventJoinConversation  EventType = "join_conversation"
	EventLeaveConversation EventType = "leave_conversation"
	EventSendMessage       EventType = "send_message"
	EventTyping            EventType = "typing"
	EventMessageRead       EventType = "message_read"
	EventMessageReaction   EventType = "message_reaction"
	EventRemoveReaction    EventType = "remove_reaction"
	EventCheckUserOnline   EventType = "check_user_online"

	// Server -> client events
	EventNewMessage               EventType = "new_message"
	EventMessageStatusUpdate      EventType = "message_status_update"
	EventConversationMessagesRead EventType = "conversation_messages_read"
	EventMessageReactionAdded     EventType = "message_reaction_added"
	EventMessageReactionRemoved   EventType = "message_reaction_removed"
	EventMessageUpdated           EventType = "message_updated"
	EventMessageDeleted           EventType = "message_deleted"
	EventUserOnline               EventType = "user_online"
	EventUserOffline              EventType = "user_offline"
	EventUserOnlineStatus         EventType = "user_online_status"
	EventTaskUpdated              EventType = "task_updated"
	EventError                    EventType = "error"
)

// WSMessage represents a WebSocket message structure
type WSMessage struct {
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// IncomingMessage represents messages received from clients
type IncomingMessage struct {
	Type    EventType              `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

// PresencePayload represents user presence payload
type PresencePayload struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

// TypingPayload represents typing indicator payload
type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	UserName       string `json:"userName,omitempty"`
	IsTyping       bool   `json:"isTyping"`
}

// MessageStatusPayload represents message status update payload
type MessageStatusPayload struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	Status         string `json:"status"` // sent, delivered, read
}

// ConversationReadPayload summarizes a conversation-wide read
type ConversationReadPayload struct {
	ConversationID string `json:"conversationId"`
	Status         string `json:"status"`
}

// ReactionPayload represents reaction add/remove payload
type ReactionPayload struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	Reaction       string `json:"reaction"`
}

// MessageDeletedPayload announces a message deletion
type MessageDeletedPayload struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	ForAll         bool   `json:"forAll"`
}

// TaskUpdatePayload announces a task status transition to assignees
type TaskUpdatePayload struct {
	TaskID string `json:"taskId"`
	Status string `json:"status"`
}

// ErrorPayload represents error event payload
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Topic helpers. A topic is a named broadcast group: every connected client
// is bound to its user's personal topic, and to conversation topics it has
// explicitly joined.
func UserTopic(userID string) string {
	return "user:" + userID
}

func ConversationTopic(conversationID string) string {
	return "conversation:" + conversationID
}
