package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/seinetours/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// PackageStore is the catalog persistence used by the services
type PackageStore interface {
	List(ctx context.Context, filter models.PackageFilter) ([]*models.Package, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Package, error)
	Create(ctx context.Context, pkg *models.Package) error
	Update(ctx context.Context, pkg *models.Package, setSlots bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	ReplaceAll(ctx context.Context, packages []*models.Package) error
}

// BookingStore is the booking persistence used by the services
type BookingStore interface {
	CreateWithHold(ctx context.Context, booking *models.Booking, nextRef func() string) error
	GetByRef(ctx context.Context, ref string) (*models.Booking, error)
	List(ctx context.Context) ([]*models.Booking, error)
	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]string, error)
	ListPendingFulfillments(ctx context.Context, maxAttempts int, staleBefore time.Time, limit int) ([]string, error)
	SetPaymentIntent(ctx context.Context, ref, intentID string) error
	MarkPaid(ctx context.Context, ref, transactionID string) (bool, error)
	MarkFailedAndRelease(ctx context.Context, ref string) (bool, error)
	CompleteTravel(ctx context.Context, ref string, confirmPayment bool) (bool, error)
	MarkFulfillmentSent(ctx context.Context, ref string) error
	MarkFulfillmentFailed(ctx context.Context, ref string, cause string) error
}

// AuditStore records payment events
type AuditStore interface {
	Record(ctx context.Context, audit *models.PaymentAudit) error
}

// AdminStore is the admin account persistence
type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.AdminUser, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, admin *models.AdminUser) error
	CreateFirst(ctx context.Context, admin *models.AdminUser) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
}

// SessionStore persists admin refresh tokens
type SessionStore interface {
	Store(ctx context.Context, adminUserID uuid.UUID, token string, client models.ClientInfo, expiresAt time.Time) error
	Get(ctx context.Context, token string) (*models.AdminSession, error)
	Revoke(ctx context.Context, token string) error
	Touch(ctx context.Context, token string) error
	CleanupExpired(ctx context.Context, revokedOlderThan time.Duration) (int64, error)
}

// recordAudit stores an audit entry; failures are logged and never block the caller
func recordAudit(ctx context.Context, store AuditStore, logger *logrus.Logger, audit *models.PaymentAudit) {
	if store == nil {
		return
	}
	if err := store.Record(ctx, audit); err != nil {
		logger.WithError(err).WithField("booking_id", audit.BookingRef).Warn("Failed to record payment audit")
	}
}
