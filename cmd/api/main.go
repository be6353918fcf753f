// @title Quiz Export API
// @version 1.0
// @description Converts quiz worksheets into one xlsx workbook per language.
// @host localhost:8000
// @BasePath /api
// @schemes http https
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"quiz-export/internal/app"
	"quiz-export/internal/config"
	"quiz-export/internal/handler"
	"quiz-export/internal/logger"
	"quiz-export/internal/middleware"

	_ "quiz-export/cmd/api/docs"

	"github.com/gofiber/swagger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// requestLogger is a middleware that logs HTTP requests
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		path := c.Path()
		method := c.Method()

		// Process request
		err := c.Next()

		// Log request details
		duration := time.Since(start)
		status := c.Response().StatusCode()

		logger.Get().Info("HTTP Request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("ip", c.IP()),
			zap.String("user_agent", c.Get("User-Agent")),
		)

		return err
	}
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.Logger); err != nil {
		panic(err)
	}
	appLogger := logger.Get()
	defer logger.Sync()

	exportService, err := app.NewExportService(context.Background(), cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize export service", zap.Error(err))
	}
	appLogger.Info("ExportService initialized",
		zap.Int("batch_size", cfg.Pipeline.BatchSize),
		zap.Int("max_concurrency", cfg.Pipeline.MaxConcurrency),
		zap.Int("max_attempts", cfg.Pipeline.MaxAttempts),
	)

	// Initialize handlers
	exportHandler := handler.NewExportHandler(exportService)
	validationMiddleware := middleware.NewValidationMiddleware()

	// Create Fiber app
	fiberApp := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  20 * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
		ErrorHandler: middleware.ErrorHandler(),
	})

	fiberApp.Use(recover.New())
	fiberApp.Use(requestLogger())
	fiberApp.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept",
		ExposeHeaders: "Content-Disposition,X-Run-ID,X-Items-Exported,X-Items-Dropped,X-Rows-Skipped",
		MaxAge:        300,
	}))

	// Swagger handler
	fiberApp.Get("/swagger/*", swagger.HandlerDefault)

	fiberApp.Get("/", exportHandler.Health)

	// API group
	apiGroup := fiberApp.Group("/api")
	apiGroup.Post("/exports", validationMiddleware.ValidateExportRequest(), exportHandler.CreateExport)

	// Start server
	go func() {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", cfg.Logger.Env))
		if err := fiberApp.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := fiberApp.ShutdownWithContext(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	appLogger.Info("Server exited gracefully")
}
