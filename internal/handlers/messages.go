package handlers

import (
	"tugasin/server/internal/chat"
	"tugasin/server/internal/middleware"
	"tugasin/server/internal/store"

	"github.com/gofiber/fiber/v2"
)

// MessageHandler serves edit/delete on individual messages and the
// notification inbox.
type MessageHandler struct {
	store *store.Store
	svc   *chat.Service
}

// NewMessageHandler creates the message handler
func NewMessageHandler(s *store.Store, svc *chat.Service) *MessageHandler {
	return &MessageHandler{store: s, svc: svc}
}

// EditRequest represents edit message request body
type EditRequest struct {
	Content string `json:"content"`
}

// Edit updates a message's content; sender only
func (h *MessageHandler) Edit(c *fiber.Ctx) error {
	var req EditRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	msg, err := h.svc.EditMessage(c.Context(), middleware.GetUserID(c), c.Params("messageId"), req.Content)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    msg,
	})
}

// Delete soft-deletes a message; sender only. ?forAll=true hides it for
// every member instead of just the sender.
func (h *MessageHandler) Delete(c *fiber.Ctx) error {
	forAll := c.Query("forAll") == "true"

	err := h.svc.DeleteMessage(c.Context(), middleware.GetUserID(c), c.Params("messageId"), forAll)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Message deleted",
	})
}

// Notifications returns the user's notification inbox
func (h *MessageHandler) Notifications(c *fiber.Ctx) error {
	unreadOnly := c.Query("unread") == "true"

	notifications, err := h.store.Notifications(c.Context(), middleware.GetUserID(c), unreadOnly)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    notifications,
	})
}

// MarkNotificationsRead marks all notifications as read
func (h *MessageHandler) MarkNotificationsRead(c *fiber.Ctx) error {
	count, err := h.store.MarkNotificationsRead(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"updatedCount": count,
		},
	})
}
