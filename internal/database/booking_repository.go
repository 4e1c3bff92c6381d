package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/seinetours/booking-backend/internal/models"
)

const bookingColumns = `id, booking_ref, package_id, customer_name, customer_email, customer_phone,
	travel_date, adults, children, number_of_passengers, total_amount, currency, locale,
	payment_status, travel_status, payment_intent_id, transaction_id, slots_held, hold_expires_at,
	fulfillment_status, fulfillment_attempts, fulfillment_error, tickets_sent_at,
	travel_completed_at, created_at, updated_at`

// maxRefAttempts bounds booking reference regeneration on collision
const maxRefAttempts = 3

// BookingRepository handles booking database operations
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// ============================================================================
// CREATION WITH SLOT HOLD
// ============================================================================

// CreateWithHold takes the booking's passenger count off the package's
// available slots and inserts the booking in the same transaction. The
// decrement is conditional, so concurrent requests for the last slots cannot
// both succeed. nextRef is called again when a generated reference collides.
func (r *BookingRepository) CreateWithHold(ctx context.Context, booking *models.Booking, nextRef func() string) error {
	if booking.PackageID == nil {
		return models.ErrPackageNotFound
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := takeSlots(ctx, tx, *booking.PackageID, booking.NumberOfPassengers); err != nil {
		return err
	}

	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}

	query := `
		INSERT INTO bookings (
			id, booking_ref, package_id, customer_name, customer_email, customer_phone,
			travel_date, adults, children, number_of_passengers, total_amount, currency, locale,
			payment_status, travel_status, slots_held, hold_expires_at, fulfillment_status,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NOW(), NOW()
		)
		ON CONFLICT (booking_ref) DO NOTHING
		RETURNING created_at, updated_at`

	for attempt := 1; ; attempt++ {
		err := tx.QueryRowxContext(ctx, query,
			booking.ID, booking.BookingRef, booking.PackageID, booking.CustomerName,
			booking.CustomerEmail, booking.CustomerPhone, booking.TravelDate, booking.Adults,
			booking.Children, booking.NumberOfPassengers, booking.TotalAmount, booking.Currency,
			booking.Locale, booking.PaymentStatus, booking.TravelStatus, booking.SlotsHeld,
			booking.HoldExpiresAt, booking.FulfillmentStatus,
		).Scan(&booking.CreatedAt, &booking.UpdatedAt)
		if err == nil {
			break
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to insert booking: %w", err)
		}
		// Reference already taken
		if attempt >= maxRefAttempts || nextRef == nil {
			return fmt.Errorf("failed to allocate unique booking reference after %d attempts", attempt)
		}
		booking.BookingRef = nextRef()
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}
	return nil
}

// takeSlots decrements available slots only if enough remain
func takeSlots(ctx context.Context, tx *sqlx.Tx, packageID uuid.UUID, count int) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE packages
		SET available_slots = available_slots - $1, updated_at = NOW()
		WHERE id = $2 AND available_slots >= $1`,
		count, packageID)
	if err != nil {
		return fmt.Errorf("failed to hold slots: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 1 {
		return nil
	}

	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM packages WHERE id = $1)`, packageID); err != nil {
		return fmt.Errorf("failed to check package: %w", err)
	}
	if !exists {
		return models.ErrPackageNotFound
	}
	return models.ErrInsufficientAvailability
}

// returnSlots gives held slots back to the package
func returnSlots(ctx context.Context, tx *sqlx.Tx, packageID *uuid.UUID, count int) error {
	if packageID == nil {
		// Package was deleted; nothing to give back
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE packages
		SET available_slots = available_slots + $1, updated_at = NOW()
		WHERE id = $2`,
		count, *packageID)
	if err != nil {
		return fmt.Errorf("failed to release slots: %w", err)
	}
	return nil
}

// ============================================================================
// READS
// ============================================================================

// GetByRef retrieves a booking by its public reference with its package populated
func (r *BookingRepository) GetByRef(ctx context.Context, ref string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.GetContext(ctx, &booking, `SELECT `+bookingColumns+` FROM bookings WHERE booking_ref = $1`, ref)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	if err := r.attachPackages(ctx, []*models.Booking{&booking}); err != nil {
		return nil, err
	}
	return &booking, nil
}

// List returns all bookings, newest first, with packages populated
func (r *BookingRepository) List(ctx context.Context) ([]*models.Booking, error) {
	bookings := []*models.Booking{}
	err := r.db.SelectContext(ctx, &bookings, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	if err := r.attachPackages(ctx, bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *BookingRepository) attachPackages(ctx context.Context, bookings []*models.Booking) error {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, b := range bookings {
		if b.PackageID != nil && !seen[*b.PackageID] {
			seen[*b.PackageID] = true
			ids = append(ids, *b.PackageID)
		}
	}

	packages, err := getPackagesByIDs(ctx, r.db, ids)
	if err != nil {
		return err
	}
	for _, b := range bookings {
		if b.PackageID != nil {
			b.Package = packages[*b.PackageID]
		}
	}
	return nil
}

// ListExpiredHolds returns references of unpaid bookings whose hold has lapsed
func (r *BookingRepository) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]string, error) {
	var refs []string
	err := r.db.SelectContext(ctx, &refs, `
		SELECT booking_ref FROM bookings
		WHERE payment_status = 'pending' AND slots_held AND hold_expires_at < $1
		ORDER BY hold_expires_at
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired holds: %w", err)
	}
	return refs, nil
}

// ListPendingFulfillments returns paid bookings whose tickets still need sending:
// failed deliveries under the attempt cap, and deliveries stuck pending since before staleBefore.
func (r *BookingRepository) ListPendingFulfillments(ctx context.Context, maxAttempts int, staleBefore time.Time, limit int) ([]string, error) {
	var refs []string
	err := r.db.SelectContext(ctx, &refs, `
		SELECT booking_ref FROM bookings
		WHERE payment_status = 'completed'
		  AND fulfillment_attempts < $1
		  AND (fulfillment_status = 'failed'
		       OR (fulfillment_status = 'pending' AND updated_at < $2))
		ORDER BY updated_at
		LIMIT $3`, maxAttempts, staleBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending fulfillments: %w", err)
	}
	return refs, nil
}

// ============================================================================
// PAYMENT TRANSITIONS
// ============================================================================

// SetPaymentIntent records the processor intent created for an unpaid booking
func (r *BookingRepository) SetPaymentIntent(ctx context.Context, ref, intentID string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET payment_intent_id = $2, updated_at = NOW()
		WHERE booking_ref = $1 AND payment_status = 'pending'`,
		ref, intentID)
	if err != nil {
		return fmt.Errorf("failed to store payment intent: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrBookingNotPending
	}
	return nil
}

type paymentLock struct {
	PaymentStatus      models.PaymentStatus `db:"payment_status"`
	SlotsHeld          bool                 `db:"slots_held"`
	NumberOfPassengers int                  `db:"number_of_passengers"`
	PackageID          *uuid.UUID           `db:"package_id"`
	TransactionID      *string              `db:"transaction_id"`
}

func lockForPayment(ctx context.Context, tx *sqlx.Tx, ref string) (*paymentLock, error) {
	var lock paymentLock
	err := tx.GetContext(ctx, &lock, `
		SELECT payment_status, slots_held, number_of_passengers, package_id, transaction_id
		FROM bookings WHERE booking_ref = $1
		FOR UPDATE`, ref)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to lock booking: %w", err)
	}
	return &lock, nil
}

// MarkPaid moves a booking to completed and attaches the transaction id.
// It returns false without writing when the booking is already completed.
// A booking that had failed (hold released) re-acquires its slots first.
func (r *BookingRepository) MarkPaid(ctx context.Context, ref, transactionID string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	lock, err := lockForPayment(ctx, tx, ref)
	if err != nil {
		return false, err
	}

	switch lock.PaymentStatus {
	case models.PaymentStatusCompleted:
		if lock.TransactionID != nil && *lock.TransactionID != transactionID {
			return false, models.ErrPaymentAlreadyConfirmed
		}
		return false, nil
	case models.PaymentStatusFailed:
		if lock.PackageID == nil {
			return false, models.ErrPackageNotFound
		}
		if err := takeSlots(ctx, tx, *lock.PackageID, lock.NumberOfPassengers); err != nil {
			return false, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE bookings
		SET payment_status = 'completed', transaction_id = $2,
		    slots_held = FALSE, hold_expires_at = NULL, updated_at = NOW()
		WHERE booking_ref = $1`,
		ref, transactionID)
	if err != nil {
		return false, fmt.Errorf("failed to mark booking paid: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit payment: %w", err)
	}
	return true, nil
}

// MarkFailedAndRelease fails an unpaid booking and returns its held slots.
// It returns false when the booking is no longer pending.
func (r *BookingRepository) MarkFailedAndRelease(ctx context.Context, ref string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	lock, err := lockForPayment(ctx, tx, ref)
	if err != nil {
		return false, err
	}
	if lock.PaymentStatus != models.PaymentStatusPending {
		return false, nil
	}

	if lock.SlotsHeld {
		if err := returnSlots(ctx, tx, lock.PackageID, lock.NumberOfPassengers); err != nil {
			return false, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE bookings
		SET payment_status = 'failed', slots_held = FALSE, hold_expires_at = NULL, updated_at = NOW()
		WHERE booking_ref = $1`, ref)
	if err != nil {
		return false, fmt.Errorf("failed to mark booking failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit release: %w", err)
	}
	return true, nil
}

// ============================================================================
// TRAVEL & FULFILLMENT
// ============================================================================

// CompleteTravel marks the trip taken. Without confirmPayment it only applies
// to paid bookings; with it, an unpaid pending booking is also marked paid.
// It returns false when no row changed.
func (r *BookingRepository) CompleteTravel(ctx context.Context, ref string, confirmPayment bool) (bool, error) {
	query := `
		UPDATE bookings
		SET travel_status = 'completed', travel_completed_at = NOW(), updated_at = NOW()
		WHERE booking_ref = $1 AND travel_status = 'pending' AND payment_status = 'completed'`
	if confirmPayment {
		query = `
		UPDATE bookings
		SET travel_status = 'completed', travel_completed_at = NOW(),
		    payment_status = 'completed', slots_held = FALSE, hold_expires_at = NULL,
		    updated_at = NOW()
		WHERE booking_ref = $1 AND travel_status = 'pending' AND payment_status IN ('pending', 'completed')`
	}

	result, err := r.db.ExecContext(ctx, query, ref)
	if err != nil {
		return false, fmt.Errorf("failed to complete travel: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// MarkFulfillmentSent records a successful ticket delivery
func (r *BookingRepository) MarkFulfillmentSent(ctx context.Context, ref string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET fulfillment_status = 'sent', fulfillment_attempts = fulfillment_attempts + 1,
		    fulfillment_error = NULL, tickets_sent_at = NOW(), updated_at = NOW()
		WHERE booking_ref = $1`, ref)
	if err != nil {
		return fmt.Errorf("failed to mark fulfillment sent: %w", err)
	}
	return nil
}

// MarkFulfillmentFailed records a failed delivery attempt
func (r *BookingRepository) MarkFulfillmentFailed(ctx context.Context, ref string, cause string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET fulfillment_status = 'failed', fulfillment_attempts = fulfillment_attempts + 1,
		    fulfillment_error = $2, updated_at = NOW()
		WHERE booking_ref = $1`, ref, cause)
	if err != nil {
		return fmt.Errorf("failed to mark fulfillment failed: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint violation
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
