package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/seinetours/booking-backend/internal/models"
	"github.com/seinetours/booking-backend/pkg/jwt"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// RoleAdmin is the role carried by operator tokens
const RoleAdmin = "admin"

// AdminAuthService handles admin authentication business logic
type AdminAuthService struct {
	adminRepo   AdminStore
	sessions    SessionStore
	jwtService  *jwt.Service
	rateLimiter *RateLimitService
	bcryptCost  int
	logger      *logrus.Logger
}

// NewAdminAuthService creates a new admin auth service
func NewAdminAuthService(
	adminRepo AdminStore,
	sessions SessionStore,
	jwtService *jwt.Service,
	rateLimiter *RateLimitService,
	bcryptCost int,
	logger *logrus.Logger,
) *AdminAuthService {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AdminAuthService{
		adminRepo:   adminRepo,
		sessions:    sessions,
		jwtService:  jwtService,
		rateLimiter: rateLimiter,
		bcryptCost:  bcryptCost,
		logger:      logger,
	}
}

// Register creates an admin account. The first account can be created
// without authentication; after that the caller must be an admin.
func (s *AdminAuthService) Register(ctx context.Context, req *models.AdminRegisterRequest, createdBy *uuid.UUID) (*models.AdminUser, error) {
	// Cheap early exit; CreateFirst is the authoritative check
	if createdBy == nil {
		count, err := s.adminRepo.Count(ctx)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, models.ErrRegistrationClosed
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.AdminUser{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hashedPassword),
		FullName:     strings.TrimSpace(req.FullName),
		IsActive:     true,
		CreatedBy:    createdBy,
	}
	create := s.adminRepo.Create
	if createdBy == nil {
		create = s.adminRepo.CreateFirst
	}
	if err := create(ctx, admin); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"admin_id":  admin.ID,
		"bootstrap": createdBy == nil,
	}).Info("Admin account created")
	return admin, nil
}

// Login authenticates an admin user and returns tokens
func (s *AdminAuthService) Login(ctx context.Context, req *models.AdminLoginRequest, client models.ClientInfo) (*models.AdminLoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if err := s.rateLimiter.CheckLogin(ctx, client.IPAddress, email); err != nil {
		return nil, err
	}

	admin, err := s.adminRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrAdminNotFound) {
			s.rateLimiter.RecordFailure(ctx, client.IPAddress, email)
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		s.rateLimiter.RecordFailure(ctx, client.IPAddress, email)
		s.logger.WithFields(logrus.Fields{
			"admin_id": admin.ID,
			"ip":       client.IPAddress,
		}).Warn("Admin login failed: wrong password")
		return nil, models.ErrInvalidCredentials
	}

	if !admin.IsActive {
		return nil, models.ErrAccountInactive
	}

	s.rateLimiter.Reset(ctx, client.IPAddress, email)

	resp, err := s.issueTokens(ctx, admin, client)
	if err != nil {
		return nil, err
	}

	if err := s.adminRepo.UpdateLastLogin(ctx, admin.ID); err != nil {
		// Log error but don't fail the login
		s.logger.WithError(err).WithField("admin_id", admin.ID).Warn("Failed to update last login")
	}

	s.logger.WithFields(logrus.Fields{
		"admin_id":    admin.ID,
		"ip":          client.IPAddress,
		"device_type": client.DeviceType,
	}).Info("Admin logged in")
	return resp, nil
}

func (s *AdminAuthService) issueTokens(ctx context.Context, admin *models.AdminUser, client models.ClientInfo) (*models.AdminLoginResponse, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(admin.ID, admin.Email, []string{RoleAdmin})
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwtService.GenerateRefreshToken(admin.ID, admin.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	expiresAt := time.Now().Add(s.jwtService.RefreshTokenExpiry())
	if err := s.sessions.Store(ctx, admin.ID, refreshToken, client, expiresAt); err != nil {
		return nil, err
	}

	return &models.AdminLoginResponse{
		Token:        accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtService.AccessTokenExpiry().Seconds()),
		Admin:        admin,
	}, nil
}

// Refresh issues a new access token for a live session
func (s *AdminAuthService) Refresh(ctx context.Context, refreshToken string) (*models.AdminLoginResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, models.ErrInvalidRefreshToken
	}

	session, err := s.sessions.Get(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if session == nil || session.Revoked || time.Now().After(session.ExpiresAt) || session.AdminUserID != claims.AdminID {
		return nil, models.ErrInvalidRefreshToken
	}

	admin, err := s.adminRepo.GetByID(ctx, claims.AdminID)
	if err != nil {
		if errors.Is(err, models.ErrAdminNotFound) {
			return nil, models.ErrInvalidRefreshToken
		}
		return nil, err
	}
	if !admin.IsActive {
		return nil, models.ErrAccountInactive
	}

	accessToken, err := s.jwtService.GenerateAccessToken(admin.ID, admin.Email, []string{RoleAdmin})
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	if err := s.sessions.Touch(ctx, refreshToken); err != nil {
		s.logger.WithError(err).WithField("admin_id", admin.ID).Warn("Failed to update session last use")
	}

	return &models.AdminLoginResponse{
		Token:        accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtService.AccessTokenExpiry().Seconds()),
		Admin:        admin,
	}, nil
}

// Logout revokes the refresh token
func (s *AdminAuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.sessions.Revoke(ctx, refreshToken)
}

// Profile returns the authenticated admin
func (s *AdminAuthService) Profile(ctx context.Context, adminID uuid.UUID) (*models.AdminUser, error) {
	return s.adminRepo.GetByID(ctx, adminID)
}

// CleanupSessions deletes expired and old revoked refresh tokens
func (s *AdminAuthService) CleanupSessions(ctx context.Context) (int64, error) {
	return s.sessions.CleanupExpired(ctx, 30*24*time.Hour)
}
