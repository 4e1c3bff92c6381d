package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/seinetours/booking-backend/internal/config"
)

// DB is the part of the connection used outside the repositories
type DB interface {
	PingContext(ctx context.Context) error
	Close() error
}

// PostgresDB wraps the sqlx connection pool
type PostgresDB struct {
	*sqlx.DB
}

// NewConnection creates a new database connection
func NewConnection(cfg config.DatabaseConfig) (*PostgresDB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	connectionURL := poolerSafeURL(cfg.URL)

	db, err := sqlx.Connect("postgres", connectionURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxLifetime / 2)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{DB: db}, nil
}

// poolerSafeURL enables lib/pq's binary_parameters for transaction poolers
// (pgbouncer, Supavisor). Without it lib/pq prepares unnamed statements that a
// pooler may route to a different backend than the one that executes them.
func poolerSafeURL(dsn string) string {
	if !strings.Contains(dsn, "pooler") || strings.Contains(dsn, "binary_parameters") {
		return dsn
	}
	if !strings.Contains(dsn, "://") {
		return dsn + " binary_parameters=yes"
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + "binary_parameters=yes"
}
