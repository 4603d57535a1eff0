package handlers

import (
	"tugasin/server/internal/middleware"
	"tugasin/server/internal/store"
	"tugasin/server/internal/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler is the thin auth collaborator: it issues the bearer
// credential the gateway and REST middleware resolve to a user identity.
type AuthHandler struct {
	store *store.Store
}

// NewAuthHandler creates the auth handler
func NewAuthHandler(s *store.Store) *AuthHandler {
	return &AuthHandler{store: s}
}

// RegisterRequest represents register request body
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginRequest represents login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new user account
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	if req.Email == "" || req.Name == "" || len(req.Password) < 8 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Email, name and a password of at least 8 characters are required",
		})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return respondError(c, err)
	}

	user, err := h.store.CreateUser(c.Context(), req.Email, req.Name, string(hash))
	if err != nil {
		return respondError(c, err)
	}

	token, err := utils.GenerateToken(user.ID, user.Email, user.Name)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"user":  user.ToResponse(),
			"token": token,
		},
	})
}

// Login verifies credentials and issues a token
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	user, err := h.store.UserByEmail(c.Context(), req.Email)
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid email or password",
		})
	}

	token, err := utils.GenerateToken(user.ID, user.Email, user.Name)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"user":  user.ToResponse(),
			"token": token,
		},
	})
}

// Me returns the authenticated user
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := h.store.UserByID(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    user.ToResponse(),
	})
}
