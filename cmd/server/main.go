package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/seinetours/booking-backend/internal/config"
	"github.com/seinetours/booking-backend/internal/database"
	"github.com/seinetours/booking-backend/internal/handlers"
	"github.com/seinetours/booking-backend/internal/middleware"
	"github.com/seinetours/booking-backend/internal/queue"
	"github.com/seinetours/booking-backend/internal/services"
	"github.com/seinetours/booking-backend/pkg/jwt"
	"github.com/seinetours/booking-backend/pkg/mailer"
	"github.com/seinetours/booking-backend/pkg/payment"
	"github.com/seinetours/booking-backend/pkg/tickets"
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

	logger.Info("Starting Seine Tours booking backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
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

	if cfg.IsProduction() {
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

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), time.Minute)
	if err := database.Migrate(migrateCtx, db.DB); err != nil {
		logger.Fatalf("Failed to apply schema: %v", err)
	}
	cancelMigrate()
	logger.Info("Database connection established")

	packageRepo := database.NewPackageRepository(db.DB)
	bookingRepo := database.NewBookingRepository(db.DB)
	auditRepo := database.NewPaymentAuditRepository(db.DB)
	adminRepo := database.NewAdminUserRepository(db.DB)
	sessionRepo := database.NewAdminRefreshTokenRepository(db.DB)

	rdb := connectRedis(cfg.Redis, logger)
	if rdb != nil {
		defer rdb.Close()
	}

	// Services
	logger.Info("Initializing services...")
	jwtService, err := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	if err != nil {
		logger.Fatalf("Failed to initialize JWT service: %v", err)
	}

	location, err := time.LoadLocation(cfg.Booking.TimeZone)
	if err != nil {
		logger.Fatalf("Failed to load booking time zone: %v", err)
	}

	catalogCache := services.NewCatalogCache(rdb, cfg.Redis.CacheTTL, logger)
	catalogService := services.NewCatalogService(packageRepo, catalogCache, !cfg.IsProduction(), logger)
	bookingService := services.NewBookingService(bookingRepo, packageRepo, auditRepo, catalogCache, services.BookingServiceConfig{
		RefPrefix: cfg.Booking.RefPrefix,
		HoldTTL:   cfg.Booking.HoldTTL,
		Currency:  cfg.Payment.Currency,
		Location:  location,
	}, logger)

	var publisher services.JobPublisher
	if cfg.Queue.FulfillmentMode == "queue" {
		publisher = queue.NewPublisher(cfg.Queue.URL, cfg.Queue.QueueName, logger)
		logger.WithField("queue", cfg.Queue.QueueName).Info("Ticket fulfillment via RabbitMQ")
	} else {
		logger.Info("Ticket fulfillment inline")
	}

	fulfillmentService := services.NewFulfillmentService(
		bookingRepo,
		tickets.NewRenderer(cfg.Email.FromName),
		newMailer(cfg.Email, logger),
		publisher,
		cfg.Booking.MaxFulfillmentAttempts,
		logger,
	)

	if cfg.Payment.SecretKey == "" {
		logger.Warn("⚠️  STRIPE_SECRET_KEY not set - payment intents will fail")
	}
	gateway := payment.NewStripeGateway(cfg.Payment.SecretKey, cfg.Payment.WebhookSecret, nil)
	paymentService := services.NewPaymentService(bookingRepo, auditRepo, gateway, fulfillmentService, catalogCache, services.PaymentServiceConfig{
		Currency:       cfg.Payment.Currency,
		PublishableKey: cfg.Payment.PublishableKey,
	}, logger)

	rateLimitService := services.NewRateLimitService(rdb, services.RateLimitConfig{
		MaxLoginFailures: cfg.RateLimit.LoginAttempts,
		LoginWindow:      time.Duration(cfg.RateLimit.LoginWindowMinutes) * time.Minute,
	}, logger)
	adminAuthService := services.NewAdminAuthService(adminRepo, sessionRepo, jwtService, rateLimitService, cfg.Security.BcryptCost, logger)

	// Background work
	cronService := services.NewCronService(bookingService, fulfillmentService, adminAuthService, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	var workers sync.WaitGroup
	if publisher != nil {
		consumer := queue.NewConsumer(cfg.Queue.URL, cfg.Queue.QueueName, func(ctx context.Context, job queue.FulfillmentJob) error {
			return fulfillmentService.Fulfill(ctx, job.BookingRef)
		}, logger)
		workers.Add(1)
		go func() {
			defer workers.Done()
			consumer.Run(workerCtx)
		}()
	}

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(middleware.RequestLogger(logger))
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: !containsWildcard(cfg.CORS.AllowedOrigins),
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthCheckHandler(db, rdb))

	api := &handlers.Router{
		Catalog:   handlers.NewCatalogHandler(catalogService, logger),
		Bookings:  handlers.NewBookingHandler(bookingService, logger),
		Payments:  handlers.NewPaymentHandler(paymentService, fulfillmentService, logger),
		AdminAuth: handlers.NewAdminAuthHandler(adminAuthService, logger),
	}
	api.Register(router, jwtService, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // inline fulfillment renders and mails in-request
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	cronService.Stop()
	stopWorkers()
	workers.Wait()

	logger.Info("Server exited successfully")
}

// connectRedis returns nil when Redis is not configured or unreachable; the
// login limiter and catalog cache then run disabled.
func connectRedis(cfg config.RedisConfig, logger *logrus.Logger) *redis.Client {
	if cfg.Addr == "" {
		logger.Warn("⚠️  REDIS_ADDR not set - login rate limiting and catalog cache disabled")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("⚠️  Redis unreachable - login rate limiting and catalog cache disabled")
		rdb.Close()
		return nil
	}

	logger.WithField("addr", cfg.Addr).Info("Redis connection established")
	return rdb
}

func newMailer(cfg config.EmailConfig, logger *logrus.Logger) mailer.Mailer {
	if cfg.Mode == "smtp" {
		logger.WithField("host", cfg.Host).Info("📧 Email mode: SMTP")
		return mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Username: cfg.Username,
			Password: cfg.Password,
			From:     cfg.From,
			FromName: cfg.FromName,
		})
	}
	logger.Info("📧 Email mode: log (emails are not sent)")
	return mailer.NewLogMailer(logger)
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
			})
			return
		}

		cacheStatus := "disabled"
		if rdb != nil {
			cacheStatus = "healthy"
			if err := rdb.Ping(ctx).Err(); err != nil {
				cacheStatus = "degraded"
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"cache":     cacheStatus,
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
