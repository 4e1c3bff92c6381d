package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/seinetours/booking-backend/internal/models"
)

// AdminRefreshTokenRepository stores admin sessions as hashed refresh tokens
type AdminRefreshTokenRepository struct {
	db *sqlx.DB
}

// NewAdminRefreshTokenRepository creates a new admin refresh token repository
func NewAdminRefreshTokenRepository(db *sqlx.DB) *AdminRefreshTokenRepository {
	return &AdminRefreshTokenRepository{db: db}
}

// hashToken creates a SHA-256 hash of the token for storage
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Store persists a refresh token for an admin user
func (r *AdminRefreshTokenRepository) Store(
	ctx context.Context,
	adminUserID uuid.UUID,
	token string,
	client models.ClientInfo,
	expiresAt time.Time,
) error {
	query := `
		INSERT INTO admin_refresh_tokens (
			admin_user_id, token_hash, device_type, ip_address, user_agent, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		adminUserID,
		hashToken(token),
		nullable(client.DeviceType),
		nullable(client.IPAddress),
		nullable(client.UserAgent),
		expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store admin refresh token: %w", err)
	}
	return nil
}

// Get retrieves a session by its token; nil when unknown
func (r *AdminRefreshTokenRepository) Get(ctx context.Context, token string) (*models.AdminSession, error) {
	var session models.AdminSession

	query := `
		SELECT id, admin_user_id, token_hash, device_type, ip_address, user_agent,
		       created_at, expires_at, last_used_at, revoked, revoked_at
		FROM admin_refresh_tokens
		WHERE token_hash = $1
	`

	err := r.db.GetContext(ctx, &session, query, hashToken(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get admin refresh token: %w", err)
	}
	return &session, nil
}

// Revoke revokes a specific refresh token
func (r *AdminRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE admin_refresh_tokens
		SET revoked = TRUE, revoked_at = NOW()
		WHERE token_hash = $1 AND revoked = FALSE`, hashToken(token))
	if err != nil {
		return fmt.Errorf("failed to revoke admin token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrInvalidRefreshToken
	}
	return nil
}

// Touch updates the last_used_at timestamp
func (r *AdminRefreshTokenRepository) Touch(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE admin_refresh_tokens
		SET last_used_at = NOW()
		WHERE token_hash = $1`, hashToken(token))
	if err != nil {
		return fmt.Errorf("failed to update admin token last used timestamp: %w", err)
	}
	return nil
}

// CleanupExpired removes expired and long-revoked tokens
func (r *AdminRefreshTokenRepository) CleanupExpired(ctx context.Context, revokedOlderThan time.Duration) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM admin_refresh_tokens
		WHERE expires_at < NOW() OR (revoked AND revoked_at < $1)`,
		time.Now().Add(-revokedOlderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup admin tokens: %w", err)
	}
	return result.RowsAffected()
}
