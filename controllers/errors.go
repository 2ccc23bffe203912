package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"recruitreach/services"
	"recruitreach/utils"
)

// serviceError maps a service error onto the standard error envelope.
func serviceError(c *fiber.Ctx, message string, err error) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, message, err)
	case errors.Is(err, services.ErrNotFound):
		return utils.ErrorResponse(c, fiber.StatusNotFound, message, err)
	case errors.Is(err, services.ErrDelivery), errors.Is(err, services.ErrModelResponse):
		return utils.ErrorResponse(c, fiber.StatusBadGateway, message, err)
	default:
		utils.LogError("http_request", err, map[string]interface{}{
			"method": c.Method(),
			"path":   c.Path(),
		})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, message, err)
	}
}
