package handlers

import (
	"errors"
	"log"
	"strconv"

	"blog-challenge-system/services"

	"github.com/gofiber/fiber/v2"
)

var errorStatuses = []struct {
	err    error
	status int
}{
	{services.ErrNotFound, fiber.StatusNotFound},
	{services.ErrAlreadyParticipated, fiber.StatusConflict},
	{services.ErrAlreadyDecided, fiber.StatusConflict},
	{services.ErrConflict, fiber.StatusConflict},
	{services.ErrNoParticipants, fiber.StatusBadRequest},
	{services.ErrParticipantNotFound, fiber.StatusBadRequest},
	{services.ErrManualSelection, fiber.StatusBadRequest},
	{services.ErrInvalidInput, fiber.StatusBadRequest},
	{services.ErrForbidden, fiber.StatusForbidden},
	{services.ErrInvalidCredentials, fiber.StatusUnauthorized},
}

// statusFor maps a service error to its HTTP status; unknown errors are 500.
func statusFor(err error) int {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return fiber.StatusInternalServerError
}

func respondError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Printf("❌ [API] %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// queryLimit parses ?limit=, leaving bounds to the service; 0 means default.
func queryLimit(c *fiber.Ctx) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return 0
	}
	return n
}
