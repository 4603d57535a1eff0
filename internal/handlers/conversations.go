package handlers

import (
	"fmt"
	"strconv"

	"tugasin/server/internal/apperr"
	"tugasin/server/internal/chat"
	"tugasin/server/internal/middleware"
	"tugasin/server/internal/store"

	"github.com/gofiber/fiber/v2"
)

// ConversationHandler serves the conversation surface and the REST path
// into the message pipeline.
type ConversationHandler struct {
	store *store.Store
	svc   *chat.Service
}

// NewConversationHandler creates the conversation handler
func NewConversationHandler(s *store.Store, svc *chat.Service) *ConversationHandler {
	return &ConversationHandler{store: s, svc: svc}
}

// CreateDirectRequest represents create direct conversation request body
type CreateDirectRequest struct {
	UserID string `json:"userId"`
}

// CreateDirect returns the 1:1 conversation with another user, creating
// it if needed. Idempotent: at most one direct conversation per pair.
func (h *ConversationHandler) CreateDirect(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req CreateDirectRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "userId is required",
		})
	}
	if req.UserID == userID {
		return respondError(c, fmt.Errorf("cannot start a conversation with yourself: %w", apperr.ErrValidation))
	}

	if _, err := h.store.UserByID(c.Context(), req.UserID); err != nil {
		return respondError(c, err)
	}

	conv, created, err := h.store.EnsureDirectConversation(c.Context(), userID, req.UserID)
	if err != nil {
		return respondError(c, err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    conv,
	})
}

// List returns the user's conversations ordered by recency
func (h *ConversationHandler) List(c *fiber.Ctx) error {
	summaries, err := h.store.Conversations(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    summaries,
	})
}

// Messages returns paginated message history for a conversation the
// requester is a member of.
func (h *ConversationHandler) Messages(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	conversationID := c.Params("conversationId")

	member, err := h.store.IsMember(c.Context(), conversationID, userID)
	if err != nil {
		return respondError(c, err)
	}
	if !member {
		return respondError(c, fmt.Errorf("not a member of this conversation: %w", apperr.ErrForbidden))
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	messages, total, err := h.store.Messages(c.Context(), conversationID, limit, (page-1)*limit)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"messages": messages,
			"pagination": fiber.Map{
				"page":  page,
				"limit": limit,
				"total": total,
			},
		},
	})
}

// SendMessageRequest represents send message request body
type SendMessageRequest struct {
	Content          string  `json:"content"`
	MessageType      string  `json:"messageType"`
	MediaURL         *string `json:"mediaUrl,omitempty"`
	MediaName        *string `json:"mediaName,omitempty"`
	ReplyToMessageID *string `json:"replyToMessageId,omitempty"`
}

// SendMessage runs the message pipeline from the REST side; the websocket
// send_message event goes through the exact same path.
func (h *ConversationHandler) SendMessage(c *fiber.Ctx) error {
	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	msg, err := h.svc.SendMessage(c.Context(), middleware.GetUserID(c), chat.SendMessageInput{
		ConversationID:   c.Params("conversationId"),
		Content:          req.Content,
		Type:             req.MessageType,
		MediaURL:         req.MediaURL,
		MediaName:        req.MediaName,
		ReplyToMessageID: req.ReplyToMessageID,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    msg,
	})
}
