package chat

import (
	"context"

	"tugasin/server/internal/models"
	"tugasin/server/internal/websocket"
)

// Store is the slice of the persistence gateway the chat core needs.
// *store.Store satisfies it; tests inject an in-memory fake.
type Store interface {
	IsMember(ctx context.Context, conversationID, userID string) (bool, error)
	MemberIDs(ctx context.Context, conversationID string) ([]string, error)
	InsertMessage(ctx context.Context, m *models.Message) error
	MessageByID(ctx context.Context, id string) (*models.Message, error)
	UserByID(ctx context.Context, id string) (*models.User, error)
	TouchConversation(ctx context.Context, conversationID string) error
	MarkDelivered(ctx context.Context, messageID string) (bool, error)
	MarkRead(ctx context.Context, messageID string) (bool, error)
	MarkConversationRead(ctx context.Context, conversationID, readerID string) ([]string, error)
	AddReaction(ctx context.Context, messageID, userID, reaction string) (bool, error)
	RemoveReaction(ctx context.Context, messageID, userID, reaction string) error
	InsertNotification(ctx context.Context, n *models.Notification) error
	EditMessage(ctx context.Context, messageID, senderID, content string) (*models.Message, error)
	DeleteMessage(ctx context.Context, messageID, senderID string, forAll bool) (*models.Message, error)
}

// Bus is the injected message-bus abstraction over the live-channel
// registry. *websocket.Hub satisfies it.
type Bus interface {
	Publish(topic string, msg websocket.WSMessage)
}

// Presence answers "is this user online" with a caller-bounded wait.
// A timeout or error is always treated as offline, never online.
type Presence interface {
	Online(ctx context.Context, userID string) (bool, error)
}
