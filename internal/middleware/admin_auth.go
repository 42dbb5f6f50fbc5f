package middleware

import (
	"crypto/subtle"

	"verifymc/internal/domain"

	"github.com/gofiber/fiber/v2"
)

// AdminAuth guards admin routes with a shared token from configuration,
// compared in constant time. Session management is deliberately out of scope.
func AdminAuth(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return domain.NewUnauthorizedError("Admin access is not configured")
		}
		provided := c.Get("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			return domain.NewUnauthorizedError("Invalid admin token")
		}
		return c.Next()
	}
}
