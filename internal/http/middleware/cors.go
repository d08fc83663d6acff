package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CORS answers preflight requests and reflects allowed origins. Credentials
// are allowed so the admin session cookie travels with API calls; an empty
// list allows no cross-origin callers.
func CORS(allowedOrigins []string) fiber.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		if _, ok := allowed[origin]; ok && origin != "" {
			c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
			c.Set(fiber.HeaderAccessControlAllowCredentials, "true")
			c.Set(fiber.HeaderAccessControlAllowMethods, "GET, POST, PUT, DELETE, OPTIONS")
			c.Set(fiber.HeaderAccessControlAllowHeaders, "Origin, Content-Type, Accept")
			c.Set(fiber.HeaderAccessControlMaxAge, "86400")
			c.Vary(fiber.HeaderOrigin)
		}

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Next()
	}
}
