package handlers

import (
	"tugasin/server/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

// respondError maps a service error to a structured JSON error using the
// shared taxonomy. Internal details never leak past the short message.
func respondError(c *fiber.Ctx, err error) error {
	code := apperr.StatusCode(err)
	message := err.Error()
	if code == fiber.StatusInternalServerError {
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}
