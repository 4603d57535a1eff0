package websocket

import (
	"encoding/json"
	"time"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

const (
	readWait   = 60 * time.Second
	writeWait  = 10 * time.Second
	pingPeriod = 54 * time.Second
)

// EventRouter handles domain events arriving on a connection. The gateway
// in the chat package implements it; the websocket package stays pure
// transport.
type EventRouter interface {
	HandleEvent(c *Client, msg IncomingMessage)
}

// Client represents a WebSocket client connection
type Client struct {
	UserID   string
	UserName string
	Conn     *websocket.Conn
	Hub      *Hub
	Router   EventRouter
	Send     chan []byte

	log *zap.Logger
}

// NewClient creates a new WebSocket client
func NewClient(userID, userName string, conn *websocket.Conn, hub *Hub, router EventRouter, log *zap.Logger) *Client {
	return &Client{
		UserID:   userID,
		UserName: userName,
		Conn:     conn,
		Hub:      hub,
		Router:   router,
		Send:     make(chan []byte, 256),
		log:      log,
	}
}

// ReadPump handles incoming messages from the client
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadDeadline(time.Now().Add(readWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(readWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read", zap.Error(err))
			}
			break
		}

		var incoming IncomingMessage
		if err := json.Unmarshal(message, &incoming); err != nil {
			c.log.Warn("parse incoming message", zap.Error(err))
			continue
		}

		c.Router.HandleEvent(c, incoming)
	}
}

// WritePump handles outgoing messages to the client
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendEvent marshals and queues an event for this connection only
func (c *Client) SendEvent(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("marshal event", zap.Error(err))
		return
	}
	c.send(data)
}

// send queues pre-marshaled bytes without blocking; a slow consumer
// simply misses the event.
func (c *Client) send(data []byte) {
	select {
	case c.Send <- data:
	default:
	}
}
