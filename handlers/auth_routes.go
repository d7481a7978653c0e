package handlers

import (
	"blog-challenge-system/middleware"
	"blog-challenge-system/services"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func SetupAuthRoutes(app *fiber.App, authService *services.AuthService, blogService *services.BlogService) {
	auth := app.Group("/api/auth")

	auth.Post("/register", func(c *fiber.Ctx) error {
		var req registerRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		user, err := authService.Register(c.UserContext(), req.Name, req.Email, req.Password)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "user registered",
			"user":    user.Summary(),
		})
	})

	auth.Post("/login", func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		token, user, err := authService.Login(c.UserContext(), req.Email, req.Password)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"message": "login successful",
			"token":   token,
			"user": fiber.Map{
				"_id":     user.ID,
				"name":    user.Username,
				"email":   user.Email,
				"isAdmin": user.IsAdmin,
			},
		})
	})

	auth.Post("/verify", middleware.AuthMiddleware(authService), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "user is verified"})
	})

	app.Get("/api/users/:id/profile", func(c *fiber.Ctx) error {
		profile, err := authService.GetProfile(c.UserContext(), c.Params("id"), blogService)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(profile)
	})
}
