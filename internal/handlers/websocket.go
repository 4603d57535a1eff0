package handlers

import (
	ws "tugasin/server/internal/websocket"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// WSHandler is the connection gateway: it upgrades authenticated
// requests, binds each connection to the hub and hands events to the
// injected router.
type WSHandler struct {
	hub    *ws.Hub
	router ws.EventRouter
	log    *zap.Logger
}

// NewWSHandler creates the websocket handler
func NewWSHandler(hub *ws.Hub, router ws.EventRouter, log *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, router: router, log: log}
}

// Upgrade checks if the request should be upgraded to WebSocket
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}

	return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
		"success": false,
		"error":   "WebSocket upgrade required",
	})
}

// Serve handles one WebSocket connection for its whole lifetime
func (h *WSHandler) Serve(c *websocket.Conn) {
	// Set by the auth middleware before the upgrade
	userID := c.Locals("userID").(string)
	userName, _ := c.Locals("userName").(string)

	client := ws.NewClient(userID, userName, c, h.hub, h.router, h.log)

	h.hub.Register <- client

	go client.WritePump()
	client.ReadPump() // blocks until the connection closes
}

// Stats returns live connection statistics, for debugging
func (h *WSHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"onlineUsers": h.hub.OnlineCount(),
			"userIds":     h.hub.OnlineUsers(),
		},
	})
}
