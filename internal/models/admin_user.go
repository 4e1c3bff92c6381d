package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// AdminUser represents an operator account
type AdminUser struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"` // Never expose password hash in JSON
	FullName     string     `json:"fullName" db:"full_name"`
	IsActive     bool       `json:"isActive" db:"is_active"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
	CreatedBy    *uuid.UUID `json:"createdBy,omitempty" db:"created_by"`
}

// AdminSession is a persisted refresh token; revoking it ends the session
type AdminSession struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	AdminUserID uuid.UUID      `json:"adminUserId" db:"admin_user_id"`
	TokenHash   string         `json:"-" db:"token_hash"` // Never expose
	DeviceType  sql.NullString `json:"-" db:"device_type"`
	IPAddress   sql.NullString `json:"-" db:"ip_address"`
	UserAgent   sql.NullString `json:"-" db:"user_agent"`
	CreatedAt   time.Time      `json:"createdAt" db:"created_at"`
	ExpiresAt   time.Time      `json:"expiresAt" db:"expires_at"`
	LastUsedAt  sql.NullTime   `json:"-" db:"last_used_at"`
	Revoked     bool           `json:"revoked" db:"revoked"`
	RevokedAt   sql.NullTime   `json:"-" db:"revoked_at"`
}

// ClientInfo describes where a login came from
type ClientInfo struct {
	IPAddress  string
	UserAgent  string
	DeviceType string
}

// AdminLoginRequest represents the login request payload
type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// AdminRegisterRequest creates an operator account
type AdminRegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"fullName"`
}

// AdminLoginResponse represents the login response
type AdminLoginResponse struct {
	Token        string     `json:"token"`
	RefreshToken string     `json:"refreshToken"`
	ExpiresIn    int64      `json:"expiresIn"`
	Admin        *AdminUser `json:"admin"`
}

// AdminRefreshRequest represents the token refresh / logout request
type AdminRefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}
