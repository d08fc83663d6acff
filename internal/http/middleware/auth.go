package middleware

import (
	"github.com/gofiber/fiber/v2"
	httpUtil "github.com/sifan077/QRHub/internal/http/util"
)

const (
	// SessionCookie carries the signed admin session token.
	SessionCookie = "qrhub_session"
	// SessionSubject is the only identity a session can hold.
	SessionSubject = "admin"
)

// HasSession reports whether the request carries a valid admin session.
func HasSession(c *fiber.Ctx, signer *httpUtil.SessionSigner) bool {
	token := c.Cookies(SessionCookie)
	if token == "" {
		return false
	}
	return signer.Verify(SessionSubject, token) == nil
}

// RequireSession rejects API calls without a valid admin session.
func RequireSession(signer *httpUtil.SessionSigner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !HasSession(c, signer) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}
		return c.Next()
	}
}
