package middleware

import (
	"strings"

	"tugasin/server/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware resolves the bearer credential (Authorization header,
// falling back to the token cookie) to a user identity, or rejects with
// 401 without creating any state.
func AuthMiddleware(c *fiber.Ctx) error {
	tokenString := ""
	if auth := c.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		tokenString = strings.TrimPrefix(auth, "Bearer ")
	} else {
		tokenString = c.Cookies("token")
	}

	if tokenString == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Unauthorized - No token provided",
		})
	}

	claims, err := utils.ValidateToken(tokenString)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Unauthorized - Invalid token",
		})
	}

	c.Locals("userID", claims.UserID)
	c.Locals("email", claims.Email)
	c.Locals("userName", claims.Name)

	return c.Next()
}

// GetUserID gets user ID from context
func GetUserID(c *fiber.Ctx) string {
	userID, ok := c.Locals("userID").(string)
	if !ok {
		return ""
	}
	return userID
}

// GetUserName gets user display name from context
func GetUserName(c *fiber.Ctx) string {
	name, ok := c.Locals("userName").(string)
	if !ok {
		return ""
	}
	return name
}
