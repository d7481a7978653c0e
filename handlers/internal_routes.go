package handlers

import (
	"blog-challenge-system/middleware"
	"blog-challenge-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupInternalRoutes exposes the scheduler jobs to an external cron.
func SetupInternalRoutes(app *fiber.App, scheduler *services.ChallengeScheduler, serviceToken string) {
	internal := app.Group("/internal/challenges", middleware.ServiceTokenMiddleware(serviceToken))

	internal.Post("/daily", func(c *fiber.Ctx) error {
		challenge, err := scheduler.RunDailyNow(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(challenge)
	})

	internal.Post("/close-out", func(c *fiber.Ctx) error {
		report, err := scheduler.RunCloseOutNow(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(report)
	})
}
