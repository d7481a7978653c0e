package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"blog-challenge-system/handlers"
	"blog-challenge-system/models"
	"blog-challenge-system/services"
	"blog-challenge-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable not set")
	}

	tzName := utils.GetEnv("CHALLENGE_TIMEZONE", "America/New_York")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		log.Fatalf("invalid CHALLENGE_TIMEZONE %q: %v", tzName, err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}
	if err := models.Migrate(db); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var images utils.ImageStore
	if r2cfg, ok := utils.R2ConfigFromEnv(); ok {
		store, err := utils.NewR2Store(ctx, r2cfg)
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		images = store
		log.Println("✅ Image uploads go to R2")
	} else {
		store, err := utils.NewLocalStore("uploads", "/uploads")
		if err != nil {
			log.Fatal("failed to ensure upload dir:", err)
		}
		images = store
		log.Println("⚠️  R2 not configured, image uploads are stored locally")
	}

	clock := clockwork.NewRealClock()

	var ai services.TextGenerator
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		ai = services.NewGeminiClient(key, utils.GetEnv("GEMINI_MODEL", services.DefaultGeminiModel), utils.GetEnv("GEMINI_BASE_URL", ""), nil)
	} else {
		log.Println("⚠️  GEMINI_API_KEY not set, daily challenges come from the fallback table")
	}
	generator := services.NewChallengeGenerator(ai, utils.GetEnvDuration("GEMINI_TIMEOUT", 8*time.Second), clock)

	authService := services.NewAuthService(db, jwtSecret, utils.GetEnvDuration("JWT_EXPIRATION", time.Hour), clock)
	blogService := services.NewBlogService(db)
	challengeService := services.NewChallengeService(db, generator, blogService, clock, loc)
	adminService := services.NewAdminService(db, clock)

	scheduler, err := services.NewChallengeScheduler(challengeService, clock)
	if err != nil {
		log.Fatal("failed to create scheduler:", err)
	}
	if utils.GetEnvBool("SCHEDULER_ENABLED", true) {
		scheduler.Start()
		if _, err := scheduler.RunDailyNow(ctx); err != nil {
			log.Printf("⚠️  Startup challenge check failed: %v", err)
		}
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
	})
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))

	allowedOrigins := utils.SplitList(utils.GetEnv("ALLOWED_ORIGINS", "http://localhost:3000"))
	allowedOriginsString := strings.Join(allowedOrigins, ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Service-Token",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "time": clock.Now()})
	})

	handlers.SetupAuthRoutes(app, authService, blogService)
	handlers.SetupBlogRoutes(app, blogService, challengeService, authService, images)
	handlers.SetupChallengeRoutes(app, challengeService, blogService, authService)
	handlers.SetupAdminRoutes(app, challengeService, generator, adminService, authService)
	handlers.SetupInternalRoutes(app, scheduler, os.Getenv("SERVICE_TOKEN"))

	app.Static("/uploads", "./uploads")

	port := utils.GetEnv("PORT", "5000")
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Printf("✅ Challenge day boundary: %s", loc)
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := scheduler.Shutdown(); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
