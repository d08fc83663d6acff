package handler

import (
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/QRHub/internal/app/service"
	"github.com/sifan077/QRHub/internal/http/validation"
	"go.uber.org/zap"
)

const (
	defaultPage        = 1
	defaultLimit       = 10
	defaultMaxPageSize = 100
)

// APIDeps groups dependencies required by API handlers.
type APIDeps struct {
	Logger    *zap.Logger
	Mappings  service.MappingService
	Validator *validatorv10.Validate
	// MaxPageSize caps the limit query parameter of the list endpoint.
	MaxPageSize int
	Now         func() time.Time
}

// APIHandler implements the mapping management API.
type APIHandler struct {
	logger      *zap.Logger
	mappings    service.MappingService
	validate    *validatorv10.Validate
	maxPageSize int
	now         func() time.Time
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	h := &APIHandler{
		logger:      deps.Logger,
		mappings:    deps.Mappings,
		validate:    deps.Validator,
		maxPageSize: deps.MaxPageSize,
		now:         deps.Now,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.validate == nil {
		h.validate = validation.New()
	}
	if h.maxPageSize <= 0 {
		h.maxPageSize = defaultMaxPageSize
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// Register wires mapping routes onto router. Resolution by id is public;
// every other route sits behind auth.
func (h *APIHandler) Register(router fiber.Router, auth fiber.Handler) {
	mappings := router.Group("/api/mappings")
	{
		mappings.Get("/", auth, h.ListMappings)
		mappings.Post("/", auth, h.CreateMapping)
		mappings.Get("/presentation/all", auth, h.ListPresentationMappings)
		mappings.Get("/:id", h.ResolveMapping)
		mappings.Put("/:id", auth, h.UpdateMapping)
		mappings.Delete("/:id", auth, h.DeleteMapping)
	}
}

// ListMappings handles GET /api/mappings
func (h *APIHandler) ListMappings(c *fiber.Ctx) error {
	page := c.QueryInt("page", defaultPage)
	limit := c.QueryInt("limit", defaultLimit)
	if limit > h.maxPageSize {
		limit = h.maxPageSize
	}

	result, err := h.mappings.ListMappings(c.UserContext(), page, limit)
	if err != nil {
		return writeError(c, h.logger, err, "failed to list mappings")
	}
	return c.JSON(result)
}

// CreateMapping handles POST /api/mappings
func (h *APIHandler) CreateMapping(c *fiber.Ctx) error {
	var req validation.CreateMappingRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return nil
	}

	mapping, err := h.mappings.CreateMapping(c.UserContext(), service.CreateMappingInput{
		URL:              req.URL,
		ExpiryDays:       req.ExpiryDays,
		IsPresentation:   req.IsPresentation,
		PresentationData: req.PresentationData,
		CustomData:       req.CustomData,
		CustomID:         req.CustomID,
	})
	if err != nil {
		return writeError(c, h.logger, err, "failed to create mapping")
	}

	h.logger.Info("mapping created", zap.String("id", mapping.ID))
	return c.Status(fiber.StatusCreated).JSON(mapping)
}

// ResolveMapping handles GET /api/mappings/:id
func (h *APIHandler) ResolveMapping(c *fiber.Ctx) error {
	id := c.Params("id")

	resolved, err := h.mappings.ResolveMapping(c.UserContext(), id, h.now())
	if err != nil {
		return writeError(c, h.logger, err, "failed to get mapping", zap.String("id", id))
	}

	if resolved.Kind == service.ResolvePresentation {
		return c.JSON(resolved.Mapping)
	}
	return c.Redirect(resolved.Target, fiber.StatusFound)
}

// UpdateMapping handles PUT /api/mappings/:id
func (h *APIHandler) UpdateMapping(c *fiber.Ctx) error {
	id := c.Params("id")

	var req validation.UpdateMappingRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return nil
	}

	mapping, err := h.mappings.UpdateMapping(c.UserContext(), id, service.UpdateMappingInput{
		URL:              req.URL,
		ExpiryDays:       req.ExpiryDays,
		IsPresentation:   req.IsPresentation,
		PresentationData: req.PresentationData,
		CustomData:       req.CustomData,
	})
	if err != nil {
		return writeError(c, h.logger, err, "failed to update mapping", zap.String("id", id))
	}
	return c.JSON(mapping)
}

// DeleteMapping handles DELETE /api/mappings/:id
func (h *APIHandler) DeleteMapping(c *fiber.Ctx) error {
	id := c.Params("id")

	deleted, err := h.mappings.DeleteMapping(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.logger, err, "failed to delete mapping", zap.String("id", id))
	}
	if !deleted {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to delete mapping",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

// ListPresentationMappings handles GET /api/mappings/presentation/all
func (h *APIHandler) ListPresentationMappings(c *fiber.Ctx) error {
	views, err := h.mappings.ListCategoryMappings(c.UserContext())
	if err != nil {
		return writeError(c, h.logger, err, "failed to list presentation mappings")
	}
	return c.JSON(views)
}
