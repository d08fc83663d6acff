package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/QRHub/internal/app/repository"
	"github.com/sifan077/QRHub/internal/app/service"
	"go.uber.org/zap"
)

// statusFor maps a lifecycle error to its HTTP status and public message.
// Anything unrecognised is a server fault.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidTarget):
		return fiber.StatusBadRequest, "invalid url"
	case errors.Is(err, service.ErrInvalidPayload):
		return fiber.StatusBadRequest, "invalid payload"
	case errors.Is(err, repository.ErrMappingExists):
		return fiber.StatusConflict, "id already exists"
	case errors.Is(err, repository.ErrMappingNotFound):
		return fiber.StatusNotFound, "mapping not found"
	case errors.Is(err, service.ErrMappingExpired):
		return fiber.StatusGone, "mapping expired"
	default:
		return fiber.StatusInternalServerError, ""
	}
}

// writeError answers with the mapped status. Server faults are logged in full
// and reported with the generic fallback message only.
func writeError(c *fiber.Ctx, logger *zap.Logger, err error, fallback string, fields ...zap.Field) error {
	status, message := statusFor(err)
	if status == fiber.StatusInternalServerError {
		logger.Error(fallback, append(fields, zap.Error(err))...)
		message = fallback
	}
	return c.Status(status).JSON(fiber.Map{"error": message})
}
