package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/seinetours/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// RateLimitConfig holds login throttling configuration
type RateLimitConfig struct {
	MaxLoginFailures int           // Max failed logins per IP + email
	LoginWindow      time.Duration // Fixed window for the counter
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxLoginFailures: 5,                // 5 failures
		LoginWindow:      15 * time.Minute, // per 15 minutes
	}
}

// RateLimitError represents a rate limit exceeded error
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// Is makes errors.Is(err, models.ErrTooManyAttempts) match
func (e *RateLimitError) Is(target error) bool {
	return target == models.ErrTooManyAttempts
}

// RateLimitService throttles admin login attempts with Redis counters.
// With no Redis client every check passes.
type RateLimitService struct {
	rdb    *redis.Client
	config RateLimitConfig
	logger *logrus.Logger
}

// NewRateLimitService creates a new rate limit service; rdb may be nil
func NewRateLimitService(rdb *redis.Client, config RateLimitConfig, logger *logrus.Logger) *RateLimitService {
	if config.MaxLoginFailures <= 0 || config.LoginWindow <= 0 {
		config = DefaultRateLimitConfig()
	}
	return &RateLimitService{rdb: rdb, config: config, logger: logger}
}

func loginKey(ip, email string) string {
	return fmt.Sprintf("ratelimit:login:%s:%s", ip, strings.ToLower(email))
}

// CheckLogin returns a *RateLimitError when the IP + email pair is locked out
func (s *RateLimitService) CheckLogin(ctx context.Context, ip, email string) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	key := loginKey(ip, email)
	failures, err := s.rdb.Get(ctx, key).Int()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		s.logger.WithError(err).Warn("Login rate limiter unavailable, allowing attempt")
		return nil
	}
	if failures < s.config.MaxLoginFailures {
		return nil
	}

	ttl, err := s.rdb.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = s.config.LoginWindow
	}
	return &RateLimitError{
		Message:    fmt.Sprintf("Too many login attempts. Please try again in %d minutes", int(ttl.Minutes())+1),
		RetryAfter: ttl,
	}
}

// RecordFailure counts a failed login; the window starts at the first failure
func (s *RateLimitService) RecordFailure(ctx context.Context, ip, email string) {
	if s == nil || s.rdb == nil {
		return
	}

	key := loginKey(ip, email)
	count, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		s.logger.WithError(err).Warn("Failed to record login failure")
		return
	}
	if count == 1 {
		if err := s.rdb.Expire(ctx, key, s.config.LoginWindow).Err(); err != nil {
			s.logger.WithError(err).Warn("Failed to set login failure window")
		}
	}
}

// Reset clears the counter after a successful login
func (s *RateLimitService) Reset(ctx context.Context, ip, email string) {
	if s == nil || s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, loginKey(ip, email)).Err(); err != nil {
		s.logger.WithError(err).Debug("Failed to reset login counter")
	}
}
