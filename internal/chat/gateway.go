package chat

import (
	"context"
	"errors"
	"time"

	"tugasin/server/internal/apperr"
	"tugasin/server/internal/websocket"

	"go.uber.org/zap"
)

// handlerWait bounds a single real-time handler end to end
const handlerWait = 10 * time.Second

// Gateway routes incoming websocket events to the chat service. It also
// owns dynamic conversation-topic binding: a connection may join a
// conversation topic only after its membership is re-verified.
type Gateway struct {
	svc *Service
	hub *websocket.Hub
	log *zap.Logger
}

// NewGateway creates the event gateway
func NewGateway(svc *Service, hub *websocket.Hub, log *zap.Logger) *Gateway {
	return &Gateway{svc: svc, hub: hub, log: log}
}

// HandleEvent dispatches one client event. Internal errors surface as an
// error event to the acting connection only; the connection never drops
// because a handler failed.
func (g *Gateway) HandleEvent(c *websocket.Client, msg websocket.IncomingMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerWait)
	defer cancel()

	var err error
	switch msg.Type {
	case websocket.EventJoinConversation:
		err = g.joinConversation(ctx, c, str(msg.Payload, "conversationId"))
	case websocket.EventLeaveConversation:
		// Pure, non-persisted unbind
		g.hub.Unsubscribe(c, websocket.ConversationTopic(str(msg.Payload, "conversationId")))
	case websocket.EventSendMessage:
		_, err = g.svc.SendMessage(ctx, c.UserID, SendMessageInput{
			ConversationID:   str(msg.Payload, "conversationId"),
			Content:          str(msg.Payload, "content"),
			Type:             str(msg.Payload, "messageType"),
			MediaURL:         optStr(msg.Payload, "mediaUrl"),
			MediaName:        optStr(msg.Payload, "mediaName"),
			ReplyToMessageID: optStr(msg.Payload, "replyToMessageId"),
		})
	case websocket.EventTyping:
		g.relayTyping(c, msg.Payload)
	case websocket.EventMessageRead:
		conversationID := str(msg.Payload, "conversationId")
		if messageID := str(msg.Payload, "messageId"); messageID != "" {
			err = g.svc.MarkMessageRead(ctx, c.UserID, conversationID, messageID)
		} else {
			err = g.svc.MarkConversationRead(ctx, c.UserID, conversationID)
		}
	case websocket.EventMessageReaction:
		err = g.svc.AddReaction(ctx, c.UserID, str(msg.Payload, "conversationId"),
			str(msg.Payload, "messageId"), str(msg.Payload, "reaction"))
	case websocket.EventRemoveReaction:
		err = g.svc.RemoveReaction(ctx, c.UserID, str(msg.Payload, "conversationId"),
			str(msg.Payload, "messageId"), str(msg.Payload, "reaction"))
	case websocket.EventCheckUserOnline:
		g.checkOnline(ctx, c, str(msg.Payload, "userId"))
	default:
		g.log.Debug("unknown event type", zap.String("type", string(msg.Type)))
	}

	if err != nil {
		g.sendError(c, err)
	}
}

// joinConversation binds the connection to the conversation topic only
// after re-verifying membership against the store.
func (g *Gateway) joinConversation(ctx context.Context, c *websocket.Client, conversationID string) error {
	if conversationID == "" {
		return apperr.ErrValidation
	}

	member, err := g.svc.store.IsMember(ctx, conversationID, c.UserID)
	if err != nil {
		return err
	}
	if !member {
		return apperr.ErrForbidden
	}

	g.hub.Subscribe(c, websocket.ConversationTopic(conversationID))
	return nil
}

// relayTyping forwards a typing indicator to the conversation topic.
// Ephemeral: nothing is persisted.
func (g *Gateway) relayTyping(c *websocket.Client, payload map[string]interface{}) {
	conversationID := str(payload, "conversationId")
	if conversationID == "" {
		return
	}

	isTyping, _ := payload["isTyping"].(bool)
	g.hub.Publish(websocket.ConversationTopic(conversationID), websocket.WSMessage{
		Type: websocket.EventTyping,
		Payload: websocket.TypingPayload{
			ConversationID: conversationID,
			UserID:         c.UserID,
			UserName:       c.UserName,
			IsTyping:       isTyping,
		},
		Timestamp: time.Now(),
	})
}

// checkOnline answers a presence query to the requesting connection only.
// The broadcast user_online/user_offline events are hints; this
// request/response with a bounded wait is the authoritative signal.
func (g *Gateway) checkOnline(ctx context.Context, c *websocket.Client, userID string) {
	checkCtx, cancel := context.WithTimeout(ctx, presenceWait)
	defer cancel()

	online, err := g.svc.presence.Online(checkCtx, userID)
	if err != nil {
		online = false
	}

	c.SendEvent(websocket.WSMessage{
		Type:      websocket.EventUserOnlineStatus,
		Payload:   websocket.PresencePayload{UserID: userID, IsOnline: online},
		Timestamp: time.Now(),
	})
}

func (g *Gateway) sendError(c *websocket.Client, err error) {
	code := "internal_error"
	message := "something went wrong"
	switch {
	case errors.Is(err, apperr.ErrForbidden):
		code, message = "forbidden", err.Error()
	case errors.Is(err, apperr.ErrNotFound):
		code, message = "not_found", err.Error()
	case errors.Is(err, apperr.ErrValidation):
		code, message = "invalid_request", err.Error()
	case errors.Is(err, apperr.ErrConflict):
		code, message = "conflict", err.Error()
	default:
		g.log.Error("websocket handler", zap.Error(err))
	}

	c.SendEvent(websocket.WSMessage{
		Type:      websocket.EventError,
		Payload:   websocket.ErrorPayload{Code: code, Message: message},
		Timestamp: time.Now(),
	})
}

func str(payload map[string]interface{}, key string) string {
	v, _ := payload[key].(string)
	return v
}

func optStr(payload map[string]interface{}, key string) *string {
	if v, ok := payload[key].(string); ok && v != "" {
		return &v
	}
	return nil
}
