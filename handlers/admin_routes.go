package handlers

import (
	"time"

	"blog-challenge-system/middleware"
	"blog-challenge-system/models"
	"blog-challenge-system/services"

	"github.com/gofiber/fiber/v2"
)

type createChallengeRequest struct {
	Topic       string   `json:"topic"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Difficulty  string   `json:"difficulty"`
	Tags        []string `json:"tags"`
	Date        string   `json:"date"` // YYYY-MM-DD or RFC 3339; today when empty
}

type generateRequest struct {
	Category string `json:"category"`
}

type winnerRequest struct {
	Method string `json:"method"`
}

type manualWinnerRequest struct {
	UserID string `json:"userId"`
	BlogID string `json:"blogId"`
}

type activeRequest struct {
	IsActive *bool `json:"isActive"`
}

func parseChallengeDate(raw string, loc *time.Location) (*time.Time, bool) {
	if raw == "" {
		return nil, true
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, loc); err == nil {
		return &t, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, true
	}
	return nil, false
}

func SetupAdminRoutes(app *fiber.App, challengeService *services.ChallengeService, generator *services.ChallengeGenerator, adminService *services.AdminService, authService *services.AuthService) {
	admin := app.Group("/api/admin", middleware.AuthMiddleware(authService), middleware.RequireAdmin())

	admin.Get("/stats", func(c *fiber.Ctx) error {
		stats, err := adminService.DashboardStats(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(stats)
	})

	admin.Get("/users", func(c *fiber.Ctx) error {
		users, err := adminService.UserStats(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(users)
	})

	admin.Get("/ai-status", func(c *fiber.Ctx) error {
		return c.JSON(generator.CheckAIStatus(c.UserContext()))
	})

	challenges := admin.Group("/challenges")

	challenges.Get("/stats", func(c *fiber.Ctx) error {
		stats, err := challengeService.GetChallengeStats(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(stats)
	})

	challenges.Post("/", func(c *fiber.Ctx) error {
		var req createChallengeRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		date, ok := parseChallengeDate(req.Date, challengeService.Location())
		if !ok {
			return badRequest(c, "date must be YYYY-MM-DD or RFC 3339")
		}
		challenge, err := challengeService.CreateChallenge(c.UserContext(), services.ChallengeInput{
			Topic:       req.Topic,
			Category:    req.Category,
			Description: req.Description,
			Difficulty:  req.Difficulty,
			Tags:        req.Tags,
			Date:        date,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(challenge)
	})

	challenges.Post("/generate", func(c *fiber.Ctx) error {
		var req generateRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return badRequest(c, "invalid request body")
			}
		}
		category, err := services.NormalizeCategory(req.Category)
		if err != nil {
			return respondError(c, err)
		}
		challenge, err := challengeService.EnsureTodaysChallengeFor(c.UserContext(), category)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(challenge)
	})

	challenges.Post("/end-yesterday", func(c *fiber.Ctx) error {
		results, err := challengeService.EndYesterdaysChallenges(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"results": results})
	})

	challenges.Post("/auto-select", func(c *fiber.Ctx) error {
		results, err := challengeService.AutoSelectWinners(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"results": results})
	})

	challenges.Post("/:id/end", func(c *fiber.Ctx) error {
		challenge, err := challengeService.EndChallenge(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(challenge)
	})

	challenges.Post("/:id/winner", func(c *fiber.Ctx) error {
		var req winnerRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return badRequest(c, "invalid request body")
			}
		}
		challenge, err := challengeService.SelectWinner(c.UserContext(), c.Params("id"), models.SelectionMethod(req.Method))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(challenge)
	})

	challenges.Post("/:id/winner/manual", func(c *fiber.Ctx) error {
		var req manualWinnerRequest
		if err := c.BodyParser(&req); err != nil || req.UserID == "" || req.BlogID == "" {
			return badRequest(c, "userId and blogId are required")
		}
		challenge, err := challengeService.SelectWinnerManually(c.UserContext(), c.Params("id"), req.UserID, req.BlogID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(challenge)
	})

	challenges.Patch("/:id/active", func(c *fiber.Ctx) error {
		var req activeRequest
		if err := c.BodyParser(&req); err != nil || req.IsActive == nil {
			return badRequest(c, "isActive is required")
		}
		challenge, err := challengeService.SetActive(c.UserContext(), c.Params("id"), *req.IsActive)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(challenge)
	})
}
