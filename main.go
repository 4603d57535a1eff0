package main

import (
	"context"
	"log"
	"os"

	"tugasin/server/internal/chat"
	"tugasin/server/internal/database"
	"tugasin/server/internal/handlers"
	"tugasin/server/internal/routes"
	"tugasin/server/internal/store"
	"tugasin/server/internal/taskflow"
	ws "tugasin/server/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	zlog, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	// Connect to database
	pool, err := database.Connect(context.Background())
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()
	zlog.Info("database connected")

	st := store.New(pool)

	// One hub per process, injected everywhere events are published
	hub := ws.NewHub(zlog)
	go hub.Run()

	chatSvc := chat.NewService(st, hub, hub, zlog)
	gateway := chat.NewGateway(chatSvc, hub, zlog)
	taskSvc := taskflow.NewService(st, hub, zlog)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName: "Tugasin API v1.0",
	})

	// Middleware
	app.Use(logger.New())
	allowOrigins := os.Getenv("ALLOW_ORIGINS")
	if allowOrigins == "" {
		allowOrigins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowCredentials: true,
	}))

	// Setup routes
	routes.SetupRoutes(app, routes.Handlers{
		Auth:          handlers.NewAuthHandler(st),
		Conversations: handlers.NewConversationHandler(st, chatSvc),
		Messages:      handlers.NewMessageHandler(st, chatSvc),
		Tasks:         handlers.NewTaskHandler(taskSvc),
		WS:            handlers.NewWSHandler(hub, gateway, zlog),
	})

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	zlog.Info("server starting", zap.String("port", port))
	if err := app.Listen(":" + port); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}
