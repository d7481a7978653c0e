package handlers

import (
	"log"

	"blog-challenge-system/middleware"
	"blog-challenge-system/services"
	"blog-challenge-system/utils"

	"github.com/gofiber/fiber/v2"
)

type commentRequest struct {
	Text string `json:"text"`
}

func SetupBlogRoutes(app *fiber.App, blogService *services.BlogService, challengeService *services.ChallengeService, authService *services.AuthService, images utils.ImageStore) {
	requireUser := middleware.AuthMiddleware(authService)
	blogs := app.Group("/api/auth/blogs")

	blogs.Get("/", func(c *fiber.Ctx) error {
		list, err := blogService.ListBlogs(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	})

	blogs.Post("/images", requireUser, func(c *fiber.Ctx) error {
		fh, err := c.FormFile("image")
		if err != nil {
			return badRequest(c, "image file is required")
		}
		key, err := utils.ImageKey("blogs", fh)
		if err != nil {
			return badRequest(c, err.Error())
		}
		url, err := images.Save(c.UserContext(), fh, key)
		if err != nil {
			log.Printf("❌ [Blog] Image upload failed: %v", err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "image upload failed"})
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url})
	})

	blogs.Post("/", requireUser, func(c *fiber.Ctx) error {
		var in services.BlogInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		userID := middleware.UserID(c)
		blog, err := blogService.CreateBlog(c.UserContext(), userID, in)
		if err != nil {
			return respondError(c, err)
		}

		resp := fiber.Map{"blog": blog}
		if in.ChallengeID != "" {
			// The blog stays created even if the submission is refused.
			if _, err := challengeService.AddParticipation(c.UserContext(), in.ChallengeID, userID, blog.ID); err != nil {
				resp["challenge"] = fiber.Map{"challengeId": in.ChallengeID, "joined": false, "error": err.Error()}
			} else {
				resp["challenge"] = fiber.Map{"challengeId": in.ChallengeID, "joined": true}
			}
		}
		return c.Status(fiber.StatusCreated).JSON(resp)
	})

	blogs.Get("/:id", func(c *fiber.Ctx) error {
		blog, err := blogService.GetBlog(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(blog)
	})

	blogs.Put("/:id", requireUser, func(c *fiber.Ctx) error {
		var in services.BlogInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		blog, err := blogService.UpdateBlog(c.UserContext(), c.Params("id"), middleware.UserID(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(blog)
	})

	blogs.Delete("/:id", requireUser, func(c *fiber.Ctx) error {
		if err := blogService.DeleteBlog(c.UserContext(), c.Params("id"), middleware.UserID(c)); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "blog deleted"})
	})

	blogs.Post("/:id/like", requireUser, func(c *fiber.Ctx) error {
		blog, err := blogService.ToggleLike(c.UserContext(), c.Params("id"), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(blog)
	})

	blogs.Get("/:id/comments", func(c *fiber.Ctx) error {
		comments, err := blogService.ListComments(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(comments)
	})

	blogs.Post("/:id/comments", requireUser, func(c *fiber.Ctx) error {
		var req commentRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		comment, err := blogService.AddComment(c.UserContext(), c.Params("id"), middleware.UserID(c), req.Text)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(comment)
	})
}
