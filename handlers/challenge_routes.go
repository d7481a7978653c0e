package handlers

import (
	"fmt"

	"blog-challenge-system/middleware"
	"blog-challenge-system/models"
	"blog-challenge-system/services"

	"github.com/gofiber/fiber/v2"
)

type participateRequest struct {
	BlogID string `json:"blogId"`
}

func SetupChallengeRoutes(app *fiber.App, challengeService *services.ChallengeService, blogService *services.BlogService, authService *services.AuthService) {
	challenges := app.Group("/api/challenges")

	// Static paths go before /:id.
	challenges.Get("/today", func(c *fiber.Ctx) error {
		challenge, err := challengeService.EnsureTodaysChallenge(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(challenge)
	})

	challenges.Get("/leaderboard", func(c *fiber.Ctx) error {
		tf, err := services.ParseTimeframe(c.Query("timeframe"))
		if err != nil {
			return respondError(c, err)
		}
		entries, err := challengeService.GetLeaderboard(c.UserContext(), tf, queryLimit(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"timeframe": tf, "leaderboard": entries})
	})

	challenges.Get("/winners", func(c *fiber.Ctx) error {
		tf, err := services.ParseTimeframe(c.Query("timeframe"))
		if err != nil {
			return respondError(c, err)
		}
		winners, err := challengeService.GetChallengeWinners(c.UserContext(), tf, queryLimit(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"timeframe": tf, "winners": winners})
	})

	challenges.Get("/", func(c *fiber.Ctx) error {
		status := models.ChallengeStatus(c.Query("status"))
		switch status {
		case "", models.ChallengeStatusActive, models.ChallengeStatusEnded, models.ChallengeStatusWinnerSelected:
		default:
			return badRequest(c, "unknown status")
		}
		list, err := challengeService.ListChallenges(c.UserContext(), status, queryLimit(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	})

	challenges.Get("/:id", func(c *fiber.Ctx) error {
		challenge, err := challengeService.GetChallenge(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(challenge)
	})

	challenges.Get("/:id/stats", func(c *fiber.Ctx) error {
		challenge, err := challengeService.GetChallenge(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(challenge.Summary())
	})

	challenges.Post("/:id/participate", middleware.AuthMiddleware(authService), func(c *fiber.Ctx) error {
		var req participateRequest
		if err := c.BodyParser(&req); err != nil || req.BlogID == "" {
			return badRequest(c, "blogId is required")
		}
		userID := middleware.UserID(c)

		blog, err := blogService.GetBlog(c.UserContext(), req.BlogID)
		if err != nil {
			return respondError(c, err)
		}
		if blog.AuthorID != userID {
			return respondError(c, fmt.Errorf("only the author can submit a blog: %w", services.ErrForbidden))
		}

		challenge, err := challengeService.AddParticipation(c.UserContext(), c.Params("id"), userID, blog.ID)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(challenge)
	})
}
