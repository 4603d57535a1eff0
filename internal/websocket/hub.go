package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"tugasin/server/internal/metrics"

	"go.uber.org/zap"
)

// presenceQuery is a request/response presence check handled by the run
// loop, so callers get an answer consistent with registration order.
type presenceQuery struct {
	userID string
	reply  chan bool
}

// Hub maintains the set of active clients and the topic registry. It is
// constructed once per process and injected into every component that
// publishes events; presence is always derived from the live topic
// membership, never from a stored flag.
type Hub struct {
	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	presence chan presenceQuery

	mu     sync.RWMutex
	topics map[string]map[*Client]struct{}

	log *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		presence:   make(chan presenceQuery),
		topics:     make(map[string]map[*Client]struct{}),
		log:        log,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)
		case client := <-h.Unregister:
			h.unregisterClient(client)
		case q := <-h.presence:
			q.reply <- h.subscriberCount(UserTopic(q.userID)) > 0
		}
	}
}

// registerClient binds a client to its personal topic and announces the
// user going online to everyone else. Multiple connections per user are
// allowed; presence means "at least one live connection".
func (h *Hub) registerClient(client *Client) {
	wasOnline := h.subscriberCount(UserTopic(client.UserID)) > 0

	h.Subscribe(client, UserTopic(client.UserID))
	metrics.WSConnections.Inc()

	if !wasOnline {
		h.broadcastPresence(client, true)
	}

	h.log.Info("client connected", zap.String("userId", client.UserID))
}

// unregisterClient removes a client from every topic it is bound to
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	removed := false
	for topic, subs := range h.topics {
		if _, ok := subs[client]; ok {
			delete(subs, client)
			removed = true
			if len(subs) == 0 {
				delete(h.topics, topic)
			}
		}
	}
	h.mu.Unlock()

	if !removed {
		return
	}

	close(client.Send)
	metrics.WSConnections.Dec()

	if h.subscriberCount(UserTopic(client.UserID)) == 0 {
		h.broadcastPresence(client, false)
	}

	h.log.Info("client disconnected", zap.String("userId", client.UserID))
}

// broadcastPresence sends the user's online/offline status to all other
// connections. This is a push-invalidation hint only; Online is the
// authoritative presence signal.
func (h *Hub) broadcastPresence(client *Client, isOnline bool) {
	eventType := EventUserOnline
	if !isOnline {
		eventType = EventUserOffline
	}

	data, err := json.Marshal(WSMessage{
		Type:      eventType,
		Payload:   PresencePayload{UserID: client.UserID, IsOnline: isOnline},
		Timestamp: time.Now(),
	})
	if err != nil {
		h.log.Error("marshal presence", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[*Client]struct{})
	for _, subs := range h.topics {
		for c := range subs {
			if c == client || c.UserID == client.UserID {
				continue
			}
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			c.send(data)
		}
	}
}

// Subscribe binds a client to a topic
func (h *Hub) Subscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Client]struct{})
		h.topics[topic] = subs
	}
	subs[client] = struct{}{}
}

// Unsubscribe unbinds a client from a topic
func (h *Hub) Unsubscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.topics[topic]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Publish fans a message out to every client bound to the topic. Delivery
// is best effort: a client with a full send buffer just misses the event
// and reconciles via history fetch on reconnect.
func (h *Hub) Publish(topic string, message WSMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.Error("marshal message", zap.Error(err), zap.String("topic", topic))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.topics[topic] {
		c.send(data)
	}
}

// Online reports whether at least one live connection is bound to the
// user's personal topic. The check goes through the run loop; the caller
// bounds the wait with its context and should treat an error as offline.
func (h *Hub) Online(ctx context.Context, userID string) (bool, error) {
	q := presenceQuery{userID: userID, reply: make(chan bool, 1)}

	select {
	case h.presence <- q:
	case <-ctx.Done():
		return false, ctx.Err()
	}

	select {
	case online := <-q.reply:
		return online, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (h *Hub) subscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.topics[topic])
}

// OnlineUsers returns a list of currently online user IDs
func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]struct{})
	userIDs := make([]string, 0)
	for _, subs := range h.topics {
		for c := range subs {
			if _, ok := seen[c.UserID]; !ok {
				seen[c.UserID] = struct{}{}
				userIDs = append(userIDs, c.UserID)
			}
		}
	}

	return userIDs
}

// OnlineCount returns the number of currently online users
func (h *Hub) OnlineCount() int {
	return len(h.OnlineUsers())
}
