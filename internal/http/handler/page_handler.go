package handler

import (
	"context"
	"html/template"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/QRHub/internal/app/expiry"
	"github.com/sifan077/QRHub/internal/app/service"
	"github.com/sifan077/QRHub/internal/http/view"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// PageDeps groups dependencies required by public page handlers.
type PageDeps struct {
	Logger   *zap.Logger
	Mappings service.MappingService
	Database Pinger
	Service  string
	Now      func() time.Time
}

// PageHandler serves presentation pages and the health endpoint.
type PageHandler struct {
	logger   *zap.Logger
	mappings service.MappingService
	database Pinger
	service  string
	now      func() time.Time
}

// NewPageHandler creates a page handler with the provided dependencies.
func NewPageHandler(deps PageDeps) *PageHandler {
	h := &PageHandler{
		logger:   deps.Logger,
		mappings: deps.Mappings,
		database: deps.Database,
		service:  deps.Service,
		now:      deps.Now,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.service == "" {
		h.service = "QRHub"
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// Register wires public page routes onto the provided router.
func (h *PageHandler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
	router.Get("/p/:id", h.Presentation)
}

// Health reports liveness and, when configured, database reachability.
func (h *PageHandler) Health(c *fiber.Ctx) error {
	status := fiber.StatusOK
	body := fiber.Map{
		"service": h.service,
		"status":  "ok",
		"time":    h.now().UTC().Format(time.RFC3339),
	}

	if h.database != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()
		if err := h.database.Ping(ctx); err != nil {
			h.logger.Warn("database health check failed", zap.Error(err))
			status = fiber.StatusServiceUnavailable
			body["status"] = "degraded"
			body["database"] = "unreachable"
		} else {
			body["database"] = "ok"
		}
	}

	return c.Status(status).JSON(body)
}

// Presentation handles GET /p/:id. Plain mappings redirect to their target.
func (h *PageHandler) Presentation(c *fiber.Ctx) error {
	id := c.Params("id")

	resolved, err := h.mappings.ResolveMapping(c.UserContext(), id, h.now())
	if err != nil {
		status, message := statusFor(err)
		if status == fiber.StatusInternalServerError {
			h.logger.Error("failed to render presentation page", zap.String("id", id), zap.Error(err))
			message = "server error"
		}
		return c.Status(status).SendString(message)
	}

	if resolved.Kind != service.ResolvePresentation {
		return c.Redirect(resolved.Target, fiber.StatusFound)
	}

	data := presentationPageData(resolved.Mapping)
	if boolField(resolved.Mapping.PresentationData, "generate_qr") {
		uri, err := view.QRDataURI(resolved.Mapping.URL, 0)
		if err != nil {
			h.logger.Error("failed to encode qr code", zap.String("id", id), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).SendString("server error")
		}
		data.QRDataURI = template.URL(uri)
	}

	html, err := view.RenderPresentationPage(data)
	if err != nil {
		h.logger.Error("failed to render presentation page", zap.String("id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).SendString("server error")
	}

	return c.Type("html", "utf-8").SendString(html)
}

// presentationPageData reads the page fields from the payloads. The image is
// qrcode_url when set, otherwise the target itself, which for a presentation
// mapping is the code image.
func presentationPageData(m *service.MappingView) view.PresentationPageData {
	image := stringField(m.PresentationData, "qrcode_url")
	if image == "" {
		image = m.URL
	}
	return view.PresentationPageData{
		ID:          m.ID,
		Title:       stringField(m.PresentationData, "title"),
		Description: stringField(m.PresentationData, "description"),
		Note:        stringField(m.PresentationData, "note"),
		ImageURL:    image,
		Theme:       stringField(m.CustomData, "theme"),
		TargetURL:   m.URL,
		ExpiresAt:   expiry.Format(m.ExpiresAt),
	}
}

// stringField reads key from a payload that is a JSON object. Payloads of
// any other shape carry no page fields.
func stringField(payload any, key string) string {
	obj, _ := payload.(map[string]any)
	s, _ := obj[key].(string)
	return s
}

func boolField(payload any, key string) bool {
	obj, _ := payload.(map[string]any)
	b, _ := obj[key].(bool)
	return b
}
