package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tugasin/server/internal/apperr"
	"tugasin/server/internal/models"
	"tugasin/server/internal/websocket"

	"github.com/google/uuid"
)

// fakeStore is an in-memory Store for pipeline and receipt tests
type fakeStore struct {
	mu            sync.Mutex
	members       map[string][]string // conversationID -> user ids
	users         map[string]*models.User
	messages      map[string]*models.Message
	order         []string // insertion order of message ids
	reactions     map[string]bool
	notifications []models.Notification
	touched       []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		members:   make(map[string][]string),
		users:     make(map[string]*models.User),
		messages:  make(map[string]*models.Message),
		reactions: make(map[string]bool),
	}
}

func (f *fakeStore) addUser(id, name string) {
	f.users[id] = &models.User{ID: id, Name: name, Email: id + "@example.com"}
}

func (f *fakeStore) IsMember(_ context.Context, conversationID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, uid := range f.members[conversationID] {
		if uid == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) MemberIDs(_ context.Context, conversationID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.members[conversationID]...), nil
}

func (f *fakeStore) InsertMessage(_ context.Context, m *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = uuid.NewString()
	m.Status = models.StatusSent
	m.CreatedAt = time.Now()
	stored := *m
	f.messages[m.ID] = &stored
	f.order = append(f.order, m.ID)
	return nil
}

func (f *fakeStore) MessageByID(_ context.Context, id string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[id]
	if !ok {
		return nil, fmt.Errorf("message: %w", apperr.ErrNotFound)
	}
	copied := *m
	return &copied, nil
}

func (f *fakeStore) UserByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user: %w", apperr.ErrNotFound)
	}
	return u, nil
}

func (f *fakeStore) TouchConversation(_ context.Context, conversationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, conversationID)
	return nil
}

func (f *fakeStore) MarkDelivered(_ context.Context, messageID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[messageID]
	if !ok || m.Status != models.StatusSent {
		return false, nil
	}
	m.Status = models.StatusDelivered
	return true, nil
}

func (f *fakeStore) MarkRead(_ context.Context, messageID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[messageID]
	if !ok || m.Status == models.StatusRead {
		return false, nil
	}
	m.Status = models.StatusRead
	return true, nil
}

func (f *fakeStore) MarkConversationRead(_ context.Context, conversationID, readerID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, id := range f.order {
		m := f.messages[id]
		if m.ConversationID == conversationID && m.SenderID != readerID && m.Status != models.StatusRead {
			m.Status = models.StatusRead
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeStore) AddReaction(_ context.Context, messageID, userID, reaction string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := messageID + "|" + userID + "|" + reaction
	if f.reactions[key] {
		return false, nil
	}
	f.reactions[key] = true
	return true, nil
}

func (f *fakeStore) RemoveReaction(_ context.Context, messageID, userID, reaction string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.reactions, messageID+"|"+userID+"|"+reaction)
	return nil
}

func (f *fakeStore) InsertNotification(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now()
	f.notifications = append(f.notifications, *n)
	return nil
}

func (f *fakeStore) EditMessage(_ context.Context, messageID, senderID, content string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[messageID]
	if !ok || m.SenderID != senderID || m.DeletedAt != nil {
		return nil, fmt.Errorf("message not editable: %w", apperr.ErrNotFound)
	}
	now := time.Now()
	m.Content = content
	m.EditedAt = &now
	copied := *m
	return &copied, nil
}

func (f *fakeStore) DeleteMessage(_ context.Context, messageID, senderID string, forAll bool) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[messageID]
	if !ok || m.SenderID != senderID || m.DeletedAt != nil {
		return nil, fmt.Errorf("message not deletable: %w", apperr.ErrNotFound)
	}
	now := time.Now()
	m.DeletedAt = &now
	m.DeletedForAll = forAll
	copied := *m
	return &copied, nil
}

// published is one recorded bus publish
type published struct {
	topic string
	msg   websocket.WSMessage
}

type fakeBus struct {
	mu     sync.Mutex
	events []published
}

func (b *fakeBus) Publish(topic string, msg websocket.WSMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, published{topic: topic, msg: msg})
}

func (b *fakeBus) byType(t websocket.EventType) []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []published
	for _, e := range b.events {
		if e.msg.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fakePresence struct {
	online map[string]bool
	err    error
}

func (p *fakePresence) Online(_ context.Context, userID string) (bool, error) {
	if p.err != nil {
		return false, p.err
	}
	return p.online[userID], nil
}
