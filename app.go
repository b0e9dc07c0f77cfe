package main

import (
	"context"
	"time"

	"debugdiary/internal/config"
	"debugdiary/internal/handlers"
	"debugdiary/internal/middleware"
	"debugdiary/internal/repositories"
	"debugdiary/internal/services"
	"debugdiary/internal/telemetry"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

const bodyLimit = 10 * 1024 * 1024

// NewApp builds the Fiber application with every route registered.
func NewApp(cfg *config.Config, store *repositories.Store, authService *services.AuthService, bugService *services.BugService, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "debugdiary",
		BodyLimit:             bodyLimit,
		ErrorHandler:          handlers.ErrorHandler(log),
		DisableStartupMessage: true,
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(logger.New()) // Request logger
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.ClientURL,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(telemetry.Middleware())

	// --- API Routes ---
	api := app.Group("/api")
	api.Get("/health", healthCheck(store))

	handlers.NewAuthHandler(authService, log).RegisterRoutes(api)

	api.Use("/bugs", middleware.AuthRequired(authService, log))
	handlers.NewBugHandler(bugService, log).RegisterRoutes(api)

	return app
}

func healthCheck(store *repositories.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		status, code := "healthy", fiber.StatusOK
		if err := store.Ping(ctx); err != nil {
			status, code = "unhealthy", fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}
