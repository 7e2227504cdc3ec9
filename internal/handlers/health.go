package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// Pinger checks a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports healthy when the store answers.
func Health(store Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if store != nil {
			if err := store.Ping(c.UserContext()); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
		}
		return c.JSON(fiber.Map{"status": "healthy"})
	}
}
