package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"bizmatch/deal-engine-backend/internal/config"
	"bizmatch/deal-engine-backend/internal/deals"
	"bizmatch/deal-engine-backend/internal/diligence"
	"bizmatch/deal-engine-backend/internal/earnout"
	"bizmatch/deal-engine-backend/internal/negotiation"
	"bizmatch/deal-engine-backend/internal/notifications"
	"bizmatch/deal-engine-backend/internal/party"
	"bizmatch/deal-engine-backend/internal/signing"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := newLogger(cfg.Logging.Level)
	defer logger.Sync()

	// Connect to database
	dbURL := cfg.Database.GetDatabaseURL()
	logger.Info("Connecting to database",
		zap.String("host", cfg.Database.Host),
		zap.String("dbname", cfg.Database.DBName))
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Notifications
	hub := notifications.NewHub(logger)
	notifier := notifications.NewService(hub, logger)

	// Deal Lifecycle Module
	dealsRepo := deals.NewPostgresRepository(db)
	dealsService := deals.NewService(dealsRepo, notifier, logger)
	dealsHandler := deals.NewHandler(dealsService, logger)

	// Negotiation Module
	negotiationRepo := negotiation.NewPostgresRepository(db)
	negotiationService := negotiation.NewService(negotiationRepo, dealsService, logger)
	negotiationHandler := negotiation.NewHandler(negotiationService, logger)

	// Earnout Module
	earnoutRepo := earnout.NewPostgresRepository(db)
	earnoutService := earnout.NewService(earnoutRepo, dealsService, logger)
	earnoutHandler := earnout.NewHandler(earnoutService, logger)

	// Due Diligence Module
	diligenceRepo := diligence.NewPostgresRepository(db)
	diligenceService := diligence.NewService(diligenceRepo, dealsService, logger)
	diligenceHandler := diligence.NewHandler(diligenceService, logger)

	// Signing: outbound envelope dispatch plus the provider's callback webhook
	signingProvider := signing.NewHTTPProvider(cfg.Signing, logger)
	signingRequests := signing.NewRequestHandler(negotiationService, dealsService, signingProvider, cfg.Signing, logger)
	signingWebhook := signing.NewWebhookHandler(negotiationService, dealsService, cfg.Signing.WebhookSecret, logger)

	// Setup Router
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Register Routes
	api := router.Group("/api/v1")
	api.Use(party.Middleware(cfg.Security.JWTSecret))
	{
		dealsHandler.RegisterRoutes(api)
		negotiationHandler.RegisterRoutes(api)
		earnoutHandler.RegisterRoutes(api)
		diligenceHandler.RegisterRoutes(api)
		signingRequests.RegisterRoutes(api)
		hub.RegisterRoutes(api)
	}

	// Provider callbacks authenticate with an HMAC, not a JWT.
	signingWebhook.RegisterRoutes(router.Group(""))

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	logger.Info("Deal engine started", zap.String("addr", srv.Addr))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

func newLogger(level string) *zap.Logger {
	var logger *zap.Logger
	var err error
	if level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}
