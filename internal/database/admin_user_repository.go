package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/seinetours/booking-backend/internal/models"
)

const adminColumns = `id, email, password_hash, full_name, is_active, last_login_at,
	created_at, updated_at, created_by`

// AdminUserRepository handles admin user database operations
type AdminUserRepository struct {
	db *sqlx.DB
}

// NewAdminUserRepository creates a new admin user repository
func NewAdminUserRepository(db *sqlx.DB) *AdminUserRepository {
	return &AdminUserRepository{db: db}
}

// GetByEmail retrieves an admin user by email
func (r *AdminUserRepository) GetByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var admin models.AdminUser
	err := r.db.GetContext(ctx, &admin, `SELECT `+adminColumns+` FROM admin_users WHERE LOWER(email) = LOWER($1)`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrAdminNotFound
		}
		return nil, fmt.Errorf("failed to get admin user: %w", err)
	}
	return &admin, nil
}

// GetByID retrieves an admin user by ID
func (r *AdminUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AdminUser, error) {
	var admin models.AdminUser
	err := r.db.GetContext(ctx, &admin, `SELECT `+adminColumns+` FROM admin_users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrAdminNotFound
		}
		return nil, fmt.Errorf("failed to get admin user: %w", err)
	}
	return &admin, nil
}

// Count returns the number of admin accounts
func (r *AdminUserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM admin_users`); err != nil {
		return 0, fmt.Errorf("failed to count admin users: %w", err)
	}
	return count, nil
}

// Create creates a new admin user
func (r *AdminUserRepository) Create(ctx context.Context, admin *models.AdminUser) error {
	if admin.ID == uuid.Nil {
		admin.ID = uuid.New()
	}

	query := `
		INSERT INTO admin_users (id, email, password_hash, full_name, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		admin.ID,
		admin.Email,
		admin.PasswordHash,
		admin.FullName,
		admin.IsActive,
		admin.CreatedBy,
	).Scan(&admin.CreatedAt, &admin.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return models.ErrEmailTaken
		}
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	return nil
}

// bootstrapLockKey serializes first-admin registration across connections
const bootstrapLockKey = 7301

// CreateFirst inserts admin only while admin_users is empty. Concurrent
// callers are serialized by a transaction-scoped advisory lock, so exactly one
// of them succeeds; the others get ErrRegistrationClosed.
func (r *AdminUserRepository) CreateFirst(ctx context.Context, admin *models.AdminUser) error {
	if admin.ID == uuid.Nil {
		admin.ID = uuid.New()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, bootstrapLockKey); err != nil {
		return fmt.Errorf("failed to lock admin bootstrap: %w", err)
	}

	query := `
		INSERT INTO admin_users (id, email, password_hash, full_name, is_active, created_by, created_at, updated_at)
		SELECT $1, $2, $3, $4, $5, NULL, NOW(), NOW()
		WHERE NOT EXISTS (SELECT 1 FROM admin_users)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRowxContext(ctx, query,
		admin.ID,
		admin.Email,
		admin.PasswordHash,
		admin.FullName,
		admin.IsActive,
	).Scan(&admin.CreatedAt, &admin.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrRegistrationClosed
		}
		return fmt.Errorf("failed to create first admin user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit admin bootstrap: %w", err)
	}
	return nil
}

// UpdateLastLogin updates the last login timestamp
func (r *AdminUserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE admin_users
		SET last_login_at = NOW(), updated_at = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}
