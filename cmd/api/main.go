package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bitflow/ledger-backend/internal/config"
	"github.com/bitflow/ledger-backend/internal/handler"
	"github.com/bitflow/ledger-backend/internal/middleware"
	"github.com/bitflow/ledger-backend/internal/parser"
	"github.com/bitflow/ledger-backend/internal/repository/postgres"
	"github.com/bitflow/ledger-backend/internal/repository/storage"
	"github.com/bitflow/ledger-backend/internal/service"
	"github.com/bitflow/ledger-backend/internal/websocket"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Connect to database
	pool, err := postgres.NewPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()
	log.Info().Msg("Connected to database")

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(pool)
	transactionRepo := postgres.NewTransactionRepository(pool)
	categoryRepo := postgres.NewCategoryRepository(pool)
	ruleRepo := postgres.NewLearningRuleRepository(pool)
	importLogRepo := postgres.NewImportLogRepository(pool)

	// Object storage is optional; without it imports skip archival and
	// receipts are rejected.
	var store storage.ObjectStore
	if cfg.S3.AccessKeyID != "" || cfg.S3.Endpoint != "" {
		s3Store, err := storage.NewS3ObjectStore(context.Background(), cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize object storage")
		}
		store = s3Store
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("Object storage enabled")
	} else {
		log.Warn().Msg("Object storage not configured, receipts and statement archival disabled")
	}

	// WebSocket hub for real-time events
	hub := websocket.NewHub()

	// Initialize services
	reconciler := service.NewBalanceService(accountRepo, transactionRepo)
	learner := service.NewCategoryLearner(ruleRepo, categoryRepo, cfg.Learner)
	detector := service.NewDuplicateDetector(transactionRepo)

	accountService := service.NewAccountService(accountRepo, reconciler)
	accountService.SetEventPublisher(hub)

	transactionService := service.NewTransactionService(transactionRepo, accountRepo, categoryRepo, reconciler, learner)
	transactionService.SetEventPublisher(hub)

	categoryService := service.NewCategoryService(categoryRepo, transactionRepo, ruleRepo)

	importService := service.NewImportService(accountRepo, transactionRepo, categoryRepo, importLogRepo, parser.NewRegistry(), detector, learner, reconciler)
	importService.SetEventPublisher(hub)
	if store != nil {
		importService.SetObjectStore(store)
	}

	subscriptionService := service.NewSubscriptionService(transactionRepo)
	attachmentService := service.NewAttachmentService(store, transactionRepo)

	// Initialize handlers
	accountHandler := handler.NewAccountHandler(accountService, reconciler)
	transactionHandler := handler.NewTransactionHandler(transactionService)
	receiptHandler := handler.NewReceiptHandler(attachmentService)
	categoryHandler := handler.NewCategoryHandler(categoryService)
	importHandler := handler.NewImportHandler(importService)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionService)
	wsHandler := handler.NewWebSocketHandler(hub, cfg.CORSOrigins)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Rate limiting per client IP
	rateLimiter := middleware.NewRateLimiter()
	defer rateLimiter.Stop()
	e.Use(middleware.RateLimitMiddleware(rateLimiter))

	// Static bearer token auth; disabled when API_TOKEN is unset
	if cfg.APIToken == "" {
		log.Warn().Msg("API_TOKEN not set, authentication disabled")
	}
	e.Use(middleware.TokenAuth(cfg.APIToken))

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Register API routes
	handler.RegisterRoutes(e, accountHandler, transactionHandler, receiptHandler, categoryHandler, importHandler, subscriptionHandler, wsHandler)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
