package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/croffers/journey-backend/internal/config"
	"github.com/croffers/journey-backend/internal/database"
	"github.com/croffers/journey-backend/internal/handlers"
	"github.com/croffers/journey-backend/internal/middleware"
	"github.com/croffers/journey-backend/internal/services"
	"github.com/croffers/journey-backend/pkg/jwt"
	"github.com/croffers/journey-backend/pkg/validator"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting journey backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logLevel)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Database
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		migrateCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err := db.Migrate(migrateCtx, logger)
		cancel()
		if err != nil {
			logger.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Repositories
	journeyRepo := database.NewJourneyRepository(db.DB)
	segmentRepo := database.NewSegmentRepository(db.DB)
	bookingRepo := database.NewBookingRepository(db.DB)
	catalogRepo := database.NewCatalogRepository(db.DB)
	notificationRepo := database.NewSupplierNotificationRepository(db.DB)

	// Background work shares one lifetime with the process
	appCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// Supplier notifications
	var notifier services.Notifier
	if cfg.Notification.RabbitMQURL != "" {
		queueNotifier := services.NewQueueNotifier(cfg.Notification.RabbitMQURL, cfg.Notification.Queue, logger)
		defer queueNotifier.Close()
		notifier = queueNotifier

		consumer := services.NewNotificationConsumer(cfg.Notification.RabbitMQURL, cfg.Notification.Queue, notificationRepo, logger)
		go consumer.Run(appCtx)
		logger.WithField("queue", cfg.Notification.Queue).Info("Supplier notifications go through RabbitMQ")
	} else {
		notifier = services.NewLogNotifier(logger)
		logger.Warn("RABBITMQ_URL not set, supplier notifications are only logged")
	}

	// Services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	catalogService := services.NewCatalogService(catalogRepo, logger)
	bookingService := services.NewBookingService(bookingRepo, catalogRepo, cfg.Journey.CommissionRate, logger)
	journeyService := services.NewJourneyService(
		journeyRepo,
		segmentRepo,
		bookingService,
		catalogService,
		notifier,
		cfg.Journey.BookingConcurrency,
		services.JourneyServiceConfig{
			MaxActivePlans:  cfg.Journey.MaxActivePlans,
			DefaultCurrency: cfg.Journey.DefaultCurrency,
		},
		logger,
	)
	bookingService.OnCancelled(journeyService.HandleBookingCancelled)

	// Scheduled sweeps
	var sweepLock services.SweepLock
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(appCtx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.WithError(err).Warn("Redis unreachable, sweeps run without a lock")
		} else {
			hostname, _ := os.Hostname()
			sweepLock = services.NewRedisSweepLock(redisClient, fmt.Sprintf("%s-%d", hostname, os.Getpid()))
		}
	}

	cronService := services.NewCronService(journeyService, sweepLock, services.CronSchedules{
		Reconcile: cfg.Cron.ReconcileSchedule,
		Archive:   cfg.Cron.ArchiveSchedule,
	}, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	// Handlers
	v := validator.New()
	journeyHandler := handlers.NewJourneyHandler(journeyService, v, logger)
	supplierHandler := handlers.NewSupplierBookingHandler(bookingService, v, logger)
	adminCronHandler := handlers.NewAdminCronHandler(cronService, logger)
	healthHandler := handlers.NewHealthHandler(db, version)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthHandler.Health)

	limiter := middleware.NewMemoryLimiter(int64(cfg.RateLimit.Requests), time.Duration(cfg.RateLimit.WindowSeconds)*time.Second)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimit(limiter))
	v1.Use(middleware.AuthMiddleware(jwtService))
	{
		journeyHandler.RegisterRoutes(v1)

		supplier := v1.Group("")
		supplier.Use(middleware.RequireRole(jwt.RoleSupplier))
		supplierHandler.RegisterRoutes(supplier)

		admin := v1.Group("")
		admin.Use(middleware.RequireRole(jwt.RoleAdmin))
		adminCronHandler.RegisterRoutes(admin)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	logger.Info("Stopping cron service...")
	cronService.Stop()
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}
