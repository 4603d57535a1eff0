package routes

import (
	"tugasin/server/internal/handlers"
	"tugasin/server/internal/metrics"
	"tugasin/server/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Handlers bundles everything SetupRoutes wires up
type Handlers struct {
	Auth          *handlers.AuthHandler
	Conversations *handlers.ConversationHandler
	Messages      *handlers.MessageHandler
	Tasks         *handlers.TaskHandler
	WS            *handlers.WSHandler
}

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, h Handlers) {
	// API v1 group
	api := app.Group("/api/v1")

	// Health check (public)
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Tugasin API is running",
		})
	})

	// Auth routes (public)
	auth := api.Group("/auth")
	auth.Post("/register", middleware.StrictRateLimiter(), h.Auth.Register)
	auth.Post("/login", middleware.StrictRateLimiter(), h.Auth.Login)
	auth.Get("/me", middleware.AuthMiddleware, h.Auth.Me)

	// Conversation routes (protected, per-user rate limit)
	conversations := api.Group("/conversations", middleware.AuthMiddleware, middleware.ModerateRateLimiter())
	conversations.Post("/direct", h.Conversations.CreateDirect)
	conversations.Get("/", h.Conversations.List)
	conversations.Get("/:conversationId/messages", h.Conversations.Messages)
	conversations.Post("/:conversationId/messages", h.Conversations.SendMessage)

	// Message routes (protected)
	messages := api.Group("/messages", middleware.AuthMiddleware, middleware.ModerateRateLimiter())
	messages.Patch("/:messageId", h.Messages.Edit)
	messages.Delete("/:messageId", h.Messages.Delete)

	// Notification routes (protected)
	notifications := api.Group("/notifications", middleware.AuthMiddleware, middleware.ModerateRateLimiter())
	notifications.Get("/", h.Messages.Notifications)
	notifications.Put("/read", h.Messages.MarkNotificationsRead)

	// Task workflow routes (protected)
	tasks := api.Group("/tasks", middleware.AuthMiddleware, middleware.ModerateRateLimiter())
	tasks.Post("/", h.Tasks.Create)
	tasks.Get("/", h.Tasks.List)
	tasks.Get("/:taskId", h.Tasks.Get)
	tasks.Post("/:taskId/accept", h.Tasks.Accept)
	tasks.Post("/:taskId/reject", h.Tasks.Reject)
	tasks.Patch("/:taskId/status", h.Tasks.UpdateStatus)

	// WebSocket route (protected)
	api.Get("/ws", middleware.AuthMiddleware, h.WS.Upgrade, websocket.New(h.WS.Serve))

	// WebSocket stats (protected, for debugging)
	api.Get("/ws/stats", middleware.AuthMiddleware, h.WS.Stats)

	// Prometheus metrics
	app.Get("/metrics", metrics.Handler())
}
