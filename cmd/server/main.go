package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/nikitakofman/chinea-dataservice/internal/cache"
	"github.com/nikitakofman/chinea-dataservice/internal/config"
	"github.com/nikitakofman/chinea-dataservice/internal/database"
	"github.com/nikitakofman/chinea-dataservice/internal/handlers"
	"github.com/nikitakofman/chinea-dataservice/internal/middleware"
	"github.com/nikitakofman/chinea-dataservice/internal/services"
	"github.com/nikitakofman/chinea-dataservice/internal/storage"
	"github.com/nikitakofman/chinea-dataservice/internal/types"
	"github.com/nikitakofman/chinea-dataservice/internal/utils"

	_ "github.com/nikitakofman/chinea-dataservice/docs/api" // Swagger docs
)

// @title Chinea Data Service API
// @version 1.0.0
// @description Go Fiber data service for the chineav2 inventory application
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/nikitakofman/chinea-dataservice

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Object storage for attachments
	store, err := storage.NewS3Storage(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to configure object storage: %v", err)
	}

	// Revalidation cache is optional; without redis, revalidation is a no-op
	var revalidator cache.Revalidator = cache.NoopRevalidator{}
	if cfg.RedisAddr != "" {
		redisRevalidator := cache.NewRedisRevalidator(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer redisRevalidator.Close()
		revalidator = redisRevalidator
	}

	// Wire the service layer
	session := services.ContextSession{}
	access := services.NewAccessControlService(db, session)
	validation := services.NewValidationService(db)
	entity := services.NewEntityService(db, access, validation, revalidator)
	files := services.NewFileService(db, access, store)

	// The Authorizer client needs a reachable auth service; keep retrying in
	// the background when it is not up yet
	if err := services.InitAuthorizer(cfg, "http", "localhost:"+cfg.Port); err != nil {
		log.Printf("Authorizer not yet reachable, retrying in background: %v", err)
		go func() {
			for !services.IsAuthorizerInitialized() {
				time.Sleep(5 * time.Second)
				if err := services.InitAuthorizer(cfg, "http", "localhost:"+cfg.Port); err != nil {
					log.Printf("Authorizer still not reachable: %v", err)
				}
			}
		}()
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: false,
		BodyLimit:             (cfg.MaxDocumentSizeMB + 1) * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("chinea_dataservice")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		result := services.HealthCheck(c.UserContext(), cfg, db, revalidator)
		status := fiber.StatusOK
		if result.Status != "healthy" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(result)
	})

	// API routes under /api
	api := app.Group("/api")

	// Version middleware
	api.Use(middleware.VersionMiddleware())

	// Create handlers
	entityHandler := &handlers.EntityDataHandler{Entity: entity, Access: access}
	fileHandler := &handlers.FileDataHandler{
		Files:             files,
		MaxImageSizeMB:    cfg.MaxImageSizeMB,
		MaxDocumentSizeMB: cfg.MaxDocumentSizeMB,
	}

	// Entity routes (all require user authentication)
	data := api.Group("/data", middleware.AuthUser())
	data.Get("/:entityType", entityHandler.ListEntities)
	data.Get("/:entityType/:id", entityHandler.GetEntity)
	data.Post("/:entityType", entityHandler.CreateEntity)
	data.Put("/:entityType/:id", entityHandler.UpdateEntity)
	data.Delete("/:entityType/:id", entityHandler.DeleteEntity)
	data.Post("/:entityType/ownership", entityHandler.CheckOwnership)

	// Attachment routes (all require user authentication)
	fileRoutes := api.Group("/files", middleware.AuthUser())
	fileRoutes.Get("/:fileType<regex(image|document)>/:fileId/url", fileHandler.GetFileURL)
	fileRoutes.Post("/:entityType/:id/images", fileHandler.UploadImages)
	fileRoutes.Get("/:entityType/:id/images", fileHandler.GetImages)
	fileRoutes.Patch("/images/:imageId", fileHandler.UpdateImage)
	fileRoutes.Delete("/images/:imageId", fileHandler.DeleteImage)
	fileRoutes.Post("/:entityType/:id/documents", fileHandler.UploadDocument)
	fileRoutes.Get("/:entityType/:id/documents", fileHandler.GetDocuments)
	fileRoutes.Patch("/documents/:documentId", fileHandler.UpdateDocument)
	fileRoutes.Delete("/documents/:documentId", fileHandler.DeleteDocument)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	port := cfg.Port
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	if e, ok := err.(*types.CustomError); ok {
		code = e.Code
		message = e.Message
		errorType = e.Type
	}

	return c.Status(code).JSON(utils.ErrorResponseStruct{
		Success:   false,
		Error:     message,
		ErrorType: errorType,
	})
}
