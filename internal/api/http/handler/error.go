package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/linkauth/server/internal/model"
)

// handleError maps service errors to HTTP responses. Anything outside the
// known taxonomy becomes a generic internal error; detail stays in the logs.
func (h *Auth) handleError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, model.ErrInvalidEmail):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": model.ErrInvalidEmail.Error(),
		})
	case errors.Is(err, model.ErrAlreadyVerified):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": model.ErrAlreadyVerified.Error(),
		})
	case errors.Is(err, model.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": model.ErrNotFound.Error(),
		})
	case errors.Is(err, model.ErrTokenInvalid):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": model.ErrTokenInvalid.Error(),
		})
	case errors.Is(err, model.ErrUnauthenticated):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": model.ErrUnauthenticated.Error(),
		})
	default:
		h.logger.Error("Auth handler: internal error",
			"path", c.Path(),
			"error", err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
}
