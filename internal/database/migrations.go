package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is applied in order at startup; every statement is idempotent.
var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,

	`CREATE TABLE IF NOT EXISTS packages (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		title JSONB NOT NULL DEFAULT '{}',
		subtitle JSONB NOT NULL DEFAULT '{}',
		description JSONB NOT NULL DEFAULT '{}',
		location TEXT NOT NULL DEFAULT '',
		price NUMERIC(10,2) NOT NULL CHECK (price >= 0),
		child_price NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (child_price >= 0),
		full_price NUMERIC(10,2),
		rating NUMERIC(3,2) NOT NULL DEFAULT 0,
		review_count INTEGER NOT NULL DEFAULT 0,
		image_url TEXT NOT NULL DEFAULT '',
		gallery TEXT[] NOT NULL DEFAULT '{}',
		available_slots INTEGER NOT NULL DEFAULT 0 CHECK (available_slots >= 0),
		itinerary JSONB NOT NULL DEFAULT '[]',
		included JSONB NOT NULL DEFAULT '{}',
		variations JSONB NOT NULL DEFAULT '[]',
		is_featured BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_packages_featured ON packages (is_featured) WHERE is_featured`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		booking_ref TEXT NOT NULL UNIQUE,
		package_id UUID REFERENCES packages(id) ON DELETE SET NULL,
		customer_name TEXT NOT NULL,
		customer_email TEXT NOT NULL,
		customer_phone TEXT NOT NULL,
		travel_date DATE NOT NULL,
		adults INTEGER NOT NULL CHECK (adults >= 1),
		children INTEGER NOT NULL DEFAULT 0 CHECK (children >= 0),
		number_of_passengers INTEGER NOT NULL,
		total_amount NUMERIC(10,2) NOT NULL,
		currency TEXT NOT NULL DEFAULT 'eur',
		locale TEXT NOT NULL DEFAULT 'en',
		payment_status TEXT NOT NULL DEFAULT 'pending'
			CHECK (payment_status IN ('pending', 'completed', 'failed')),
		travel_status TEXT NOT NULL DEFAULT 'pending'
			CHECK (travel_status IN ('pending', 'completed')),
		payment_intent_id TEXT,
		transaction_id TEXT,
		slots_held BOOLEAN NOT NULL DEFAULT FALSE,
		hold_expires_at TIMESTAMPTZ,
		fulfillment_status TEXT NOT NULL DEFAULT 'pending'
			CHECK (fulfillment_status IN ('pending', 'sent', 'failed')),
		fulfillment_attempts INTEGER NOT NULL DEFAULT 0,
		fulfillment_error TEXT,
		tickets_sent_at TIMESTAMPTZ,
		travel_completed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (number_of_passengers = adults + children)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_created_at ON bookings (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_holds ON bookings (hold_expires_at) WHERE slots_held`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_payment_intent ON bookings (payment_intent_id) WHERE payment_intent_id IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS payment_audits (
		id UUID PRIMARY KEY,
		booking_ref TEXT NOT NULL,
		payment_intent_id TEXT,
		event_type TEXT NOT NULL,
		event_source TEXT NOT NULL,
		expected_amount NUMERIC(10,2),
		received_amount NUMERIC(10,2),
		amounts_match BOOLEAN,
		processor_status TEXT,
		error_message TEXT,
		payload JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_audits_booking ON payment_audits (booking_ref, created_at)`,

	`CREATE TABLE IF NOT EXISTS admin_users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_login_at TIMESTAMPTZ,
		created_by UUID REFERENCES admin_users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS admin_refresh_tokens (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		admin_user_id UUID NOT NULL REFERENCES admin_users(id) ON DELETE CASCADE,
		token_hash TEXT NOT NULL UNIQUE,
		device_type TEXT,
		ip_address TEXT,
		user_agent TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMPTZ NOT NULL,
		last_used_at TIMESTAMPTZ,
		revoked BOOLEAN NOT NULL DEFAULT FALSE,
		revoked_at TIMESTAMPTZ
	)`,
}

// Migrate creates the tables the service needs if they do not exist yet
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i+1, err)
		}
	}
	return nil
}
