package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/seinetours/booking-backend/internal/models"
)

// PaymentAuditRepository appends payment events
type PaymentAuditRepository struct {
	db *sqlx.DB
}

// NewPaymentAuditRepository creates a new PaymentAuditRepository
func NewPaymentAuditRepository(db *sqlx.DB) *PaymentAuditRepository {
	return &PaymentAuditRepository{db: db}
}

// Record inserts an audit entry
func (r *PaymentAuditRepository) Record(ctx context.Context, audit *models.PaymentAudit) error {
	query := `
		INSERT INTO payment_audits (
			id, booking_ref, payment_intent_id, event_type, event_source,
			expected_amount, received_amount, amounts_match, processor_status,
			error_message, payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		audit.ID, audit.BookingRef, audit.PaymentIntentID, audit.EventType, audit.EventSource,
		audit.ExpectedAmount, audit.ReceivedAmount, audit.AmountsMatch, audit.ProcessorStatus,
		audit.ErrorMessage, audit.Payload, audit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record payment audit: %w", err)
	}
	return nil
}

// ListByBooking returns the audit trail of a booking, oldest first
func (r *PaymentAuditRepository) ListByBooking(ctx context.Context, ref string) ([]*models.PaymentAudit, error) {
	audits := []*models.PaymentAudit{}
	err := r.db.SelectContext(ctx, &audits, `
		SELECT id, booking_ref, payment_intent_id, event_type, event_source,
		       expected_amount, received_amount, amounts_match, processor_status,
		       error_message, payload, created_at
		FROM payment_audits
		WHERE booking_ref = $1
		ORDER BY created_at`, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment audits: %w", err)
	}
	return audits, nil
}
