package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/seinetours?sslmode=disable")
	t.Setenv("JWT_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
	t.Setenv("ENVIRONMENT", "development")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWT.AccessTokenExpiry)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTokenExpiry)
	assert.Equal(t, "eur", cfg.Payment.Currency)
	assert.Equal(t, "log", cfg.Email.Mode)
	assert.Equal(t, "inline", cfg.Queue.FulfillmentMode)
	assert.Equal(t, 30*time.Minute, cfg.Booking.HoldTTL)
	assert.Equal(t, "PV", cfg.Booking.RefPrefix)
	assert.Equal(t, "Europe/Paris", cfg.Booking.TimeZone)
	assert.Equal(t, 5, cfg.RateLimit.LoginAttempts)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PAYMENT_CURRENCY", "EUR")
	t.Setenv("BOOKING_HOLD_TTL_MINUTES", "10")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://seinetours.fr, https://admin.seinetours.fr")
	t.Setenv("SMTP_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "eur", cfg.Payment.Currency)
	assert.Equal(t, 10*time.Minute, cfg.Booking.HoldTTL)
	assert.Equal(t, []string{"https://seinetours.fr", "https://admin.seinetours.fr"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 587, cfg.Email.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing jwt secret", map[string]string{"JWT_SECRET": ""}, "JWT_SECRET"},
		{"missing refresh secret", map[string]string{"JWT_REFRESH_SECRET": ""}, "JWT_REFRESH_SECRET"},
		{"missing database", map[string]string{"DATABASE_URL": ""}, "DATABASE_URL"},
		{"smtp without host", map[string]string{"EMAIL_MODE": "smtp"}, "SMTP_HOST"},
		{"unknown email mode", map[string]string{"EMAIL_MODE": "pigeon"}, "EMAIL_MODE"},
		{"queue without broker", map[string]string{"FULFILLMENT_MODE": "queue"}, "RABBITMQ_URL"},
		{"bad time zone", map[string]string{"BOOKING_TIMEZONE": "Mars/Olympus"}, "BOOKING_TIMEZONE"},
		{"production without stripe", map[string]string{"ENVIRONMENT": "production"}, "STRIPE_SECRET_KEY"},
		{"production with log mailer", map[string]string{
			"ENVIRONMENT":           "production",
			"STRIPE_SECRET_KEY":     "sk_live_x",
			"STRIPE_WEBHOOK_SECRET": "whsec_x",
		}, "EMAIL_MODE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
