package handler

import (
	"crypto/subtle"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/QRHub/internal/http/middleware"
	httpUtil "github.com/sifan077/QRHub/internal/http/util"
	"github.com/sifan077/QRHub/internal/http/validation"
	"go.uber.org/zap"
)

// AuthDeps groups dependencies required by the admin auth handlers.
type AuthDeps struct {
	Logger        *zap.Logger
	Sessions      *httpUtil.SessionSigner
	AdminPassword string
	SecureCookie  bool
	Validator     *validatorv10.Validate
}

// AuthHandler implements admin login, logout and session checks.
type AuthHandler struct {
	logger        *zap.Logger
	sessions      *httpUtil.SessionSigner
	adminPassword string
	secureCookie  bool
	validate      *validatorv10.Validate
}

// NewAuthHandler creates an auth handler with the provided dependencies.
func NewAuthHandler(deps AuthDeps) *AuthHandler {
	h := &AuthHandler{
		logger:        deps.Logger,
		sessions:      deps.Sessions,
		adminPassword: deps.AdminPassword,
		secureCookie:  deps.SecureCookie,
		validate:      deps.Validator,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.validate == nil {
		h.validate = validation.New()
	}
	return h
}

// Register wires auth routes onto the provided router.
func (h *AuthHandler) Register(router fiber.Router) {
	auth := router.Group("/api/auth")
	{
		auth.Post("/login", h.Login)
		auth.Post("/logout", h.Logout)
		auth.Get("/check", h.Check)
	}
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req validation.LoginRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return nil
	}

	if !h.passwordMatches(req.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "wrong password",
		})
	}

	token, err := h.sessions.Issue(middleware.SessionSubject)
	if err != nil {
		h.logger.Error("failed to issue session", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to start session",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.sessions.TTL()),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"success": true})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.ClearCookie(middleware.SessionCookie)
	return c.JSON(fiber.Map{"success": true})
}

// Check handles GET /api/auth/check
func (h *AuthHandler) Check(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"authenticated": middleware.HasSession(c, h.sessions),
	})
}

func (h *AuthHandler) passwordMatches(password string) bool {
	if h.adminPassword == "" {
		h.logger.Warn("admin password is not configured; login disabled")
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(h.adminPassword)) == 1
}
