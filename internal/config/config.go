package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// Payment processor configuration
	Payment PaymentConfig

	// Outgoing email configuration
	Email EmailConfig

	// Redis configuration (login rate limiting, catalog cache)
	Redis RedisConfig

	// RabbitMQ configuration (ticket fulfillment queue)
	Queue QueueConfig

	// Booking lifecycle configuration
	Booking BookingConfig

	// Rate limiting configuration
	RateLimit RateLimitConfig

	// CORS configuration
	CORS CORSConfig

	// Security configuration
	Security SecurityConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret             string
	RefreshSecret      string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// PaymentConfig holds Stripe configuration
type PaymentConfig struct {
	SecretKey      string // SECRET - never expose to client
	PublishableKey string
	WebhookSecret  string
	Currency       string
}

// EmailConfig holds SMTP configuration
type EmailConfig struct {
	Mode     string // "smtp" sends mail, "log" only logs it
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// RedisConfig holds redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// QueueConfig holds RabbitMQ settings
type QueueConfig struct {
	URL             string
	FulfillmentMode string // "inline" or "queue"
	QueueName       string
}

// BookingConfig holds booking lifecycle settings
type BookingConfig struct {
	RefPrefix              string
	HoldTTL                time.Duration
	MaxFulfillmentAttempts int
	TimeZone               string // calendar used to validate travel dates
}

// RateLimitConfig holds admin login throttling configuration
type RateLimitConfig struct {
	LoginAttempts      int
	LoginWindowMinutes int
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	BcryptCost       int
	EnableRequestLog bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", ""),
			RefreshSecret:      getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenExpiry:  time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 86400)) * time.Second,
			RefreshTokenExpiry: time.Duration(getEnvAsInt("JWT_REFRESH_TOKEN_EXPIRY", 604800)) * time.Second,
		},
		Payment: PaymentConfig{
			SecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
			PublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
			WebhookSecret:  getEnv("STRIPE_WEBHOOK_SECRET", ""),
			Currency:       strings.ToLower(getEnv("PAYMENT_CURRENCY", "eur")),
		},
		Email: EmailConfig{
			Mode:     getEnv("EMAIL_MODE", "log"),
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("EMAIL_FROM", "tickets@seinetours.fr"),
			FromName: getEnv("EMAIL_FROM_NAME", "Seine Tours"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			CacheTTL: time.Duration(getEnvAsInt("CATALOG_CACHE_TTL_SECONDS", 60)) * time.Second,
		},
		Queue: QueueConfig{
			URL:             getEnv("RABBITMQ_URL", ""),
			FulfillmentMode: getEnv("FULFILLMENT_MODE", "inline"),
			QueueName:       getEnv("FULFILLMENT_QUEUE", "tickets.fulfillment"),
		},
		Booking: BookingConfig{
			RefPrefix:              getEnv("BOOKING_REF_PREFIX", "PV"),
			HoldTTL:                time.Duration(getEnvAsInt("BOOKING_HOLD_TTL_MINUTES", 30)) * time.Minute,
			MaxFulfillmentAttempts: getEnvAsInt("FULFILLMENT_MAX_ATTEMPTS", 5),
			TimeZone:               getEnv("BOOKING_TIMEZONE", "Europe/Paris"),
		},
		RateLimit: RateLimitConfig{
			LoginAttempts:      getEnvAsInt("ADMIN_LOGIN_MAX_ATTEMPTS", 5),
			LoginWindowMinutes: getEnvAsInt("ADMIN_LOGIN_WINDOW_MINUTES", 15),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization", "Stripe-Signature"}),
		},
		Security: SecurityConfig{
			BcryptCost:       getEnvAsInt("BCRYPT_COST", 12),
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// No fallback signing secrets: tokens signed with a well-known key are forgeable.
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.JWT.RefreshSecret == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required")
	}

	switch c.Email.Mode {
	case "log":
	case "smtp":
		if c.Email.Host == "" {
			return fmt.Errorf("SMTP_HOST is required when EMAIL_MODE=smtp")
		}
	default:
		return fmt.Errorf("invalid EMAIL_MODE: %s (must be 'smtp' or 'log')", c.Email.Mode)
	}

	switch c.Queue.FulfillmentMode {
	case "inline":
	case "queue":
		if c.Queue.URL == "" {
			return fmt.Errorf("RABBITMQ_URL is required when FULFILLMENT_MODE=queue")
		}
	default:
		return fmt.Errorf("invalid FULFILLMENT_MODE: %s (must be 'inline' or 'queue')", c.Queue.FulfillmentMode)
	}

	if c.Booking.HoldTTL <= 0 {
		return fmt.Errorf("BOOKING_HOLD_TTL_MINUTES must be positive")
	}

	if _, err := time.LoadLocation(c.Booking.TimeZone); err != nil {
		return fmt.Errorf("invalid BOOKING_TIMEZONE %q: %w", c.Booking.TimeZone, err)
	}

	// Production requires real credentials for money and mail
	if c.IsProduction() {
		if c.Payment.SecretKey == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY is required in production")
		}
		if c.Payment.WebhookSecret == "" {
			return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required in production")
		}
		if c.Email.Mode != "smtp" {
			return fmt.Errorf("EMAIL_MODE must be 'smtp' in production")
		}
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
