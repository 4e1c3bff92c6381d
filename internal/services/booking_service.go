package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/seinetours/booking-backend/internal/models"
	"github.com/seinetours/booking-backend/pkg/validator"
	"github.com/sirupsen/logrus"
)

const expiredHoldBatch = 100

// BookingServiceConfig holds booking lifecycle settings
type BookingServiceConfig struct {
	RefPrefix string
	HoldTTL   time.Duration
	Currency  string
	Location  *time.Location // calendar used for travel dates
}

// BookingService handles checkout, lookup, boarding and hold expiry
type BookingService struct {
	bookings BookingStore
	packages PackageStore
	audits   AuditStore
	cache    *CatalogCache
	phones   *validator.PhoneValidator
	refs     *RefGenerator
	config   BookingServiceConfig
	logger   *logrus.Logger
	now      func() time.Time
}

// NewBookingService creates a new BookingService
func NewBookingService(
	bookings BookingStore,
	packages PackageStore,
	audits AuditStore,
	cache *CatalogCache,
	config BookingServiceConfig,
	logger *logrus.Logger,
) *BookingService {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.Currency == "" {
		config.Currency = "eur"
	}
	return &BookingService{
		bookings: bookings,
		packages: packages,
		audits:   audits,
		cache:    cache,
		phones:   validator.NewPhoneValidator(),
		refs:     NewRefGenerator(config.RefPrefix),
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// ============================================================================
// CREATE
// ============================================================================

// CreateBooking validates a checkout request, re-prices it server side and
// places a slot hold together with the booking row.
func (s *BookingService) CreateBooking(ctx context.Context, req *models.CreateBookingRequest) (*models.Booking, error) {
	packageID, err := ParseID(req.TicketID)
	if err != nil {
		return nil, err
	}

	booking, err := s.validateRequest(req)
	if err != nil {
		return nil, err
	}
	booking.PackageID = &packageID

	pkg, err := s.packages.GetByID(ctx, packageID)
	if err != nil {
		return nil, err
	}

	total := pkg.QuoteTotal(booking.Adults, booking.Children)
	if math.Abs(req.TotalAmount-total) > 0.005 {
		s.logger.WithFields(logrus.Fields{
			"package_id": packageID,
			"submitted":  req.TotalAmount,
			"expected":   total,
		}).Warn("Booking rejected: total amount mismatch")
		return nil, fmt.Errorf("%w: expected %.2f", models.ErrAmountMismatch, total)
	}
	if booking.NumberOfPassengers > pkg.AvailableSlots {
		return nil, models.ErrInsufficientAvailability
	}

	holdUntil := s.now().Add(s.config.HoldTTL)
	booking.TotalAmount = total
	booking.Currency = s.config.Currency
	booking.PaymentStatus = models.PaymentStatusPending
	booking.TravelStatus = models.TravelStatusPending
	booking.FulfillmentStatus = models.FulfillmentPending
	booking.SlotsHeld = true
	booking.HoldExpiresAt = &holdUntil
	booking.BookingRef = s.refs.Next()

	if err := s.bookings.CreateWithHold(ctx, booking, s.refs.Next); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)

	pkg.AvailableSlots -= booking.NumberOfPassengers
	booking.Package = pkg

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.BookingRef,
		"package_id": packageID,
		"passengers": booking.NumberOfPassengers,
		"total":      booking.TotalAmount,
	}).Info("Booking created")
	return booking, nil
}

func (s *BookingService) validateRequest(req *models.CreateBookingRequest) (*models.Booking, error) {
	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		return nil, models.NewValidationError("customerName", "is required")
	}

	email, err := validator.ValidateEmail(req.CustomerEmail)
	if err != nil {
		return nil, models.NewValidationError("customerEmail", "%s", err.Error())
	}

	phone, err := s.phones.Validate(req.CustomerPhone)
	if err != nil {
		return nil, models.NewValidationError("customerPhone", "%s", err.Error())
	}

	travelDate, err := validator.ParseTravelDate(req.TravelDate, s.now(), s.config.Location)
	if err != nil {
		return nil, models.NewValidationError("travelDate", "%s", err.Error())
	}

	if req.Adults < 1 {
		return nil, models.NewValidationError("adults", "at least one adult is required")
	}
	if req.Children < 0 {
		return nil, models.NewValidationError("children", "must not be negative")
	}
	if req.NumberOfPassengers != req.Adults+req.Children {
		return nil, models.NewValidationError("numberOfPassengers", "must equal adults + children")
	}

	return &models.Booking{
		CustomerName:       name,
		CustomerEmail:      email,
		CustomerPhone:      phone,
		TravelDate:         travelDate,
		Adults:             req.Adults,
		Children:           req.Children,
		NumberOfPassengers: req.NumberOfPassengers,
		Locale:             normalizeLocale(req.Locale),
	}, nil
}

func normalizeLocale(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		locale = locale[:i]
	}
	if len(locale) != 2 {
		return "en"
	}
	return locale
}

// ============================================================================
// READ
// ============================================================================

// GetBooking returns a booking with its package
func (s *BookingService) GetBooking(ctx context.Context, ref string) (*models.Booking, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, models.ErrBookingNotFound
	}
	return s.bookings.GetByRef(ctx, ref)
}

// ListBookings returns all bookings, newest first
func (s *BookingService) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	return s.bookings.List(ctx)
}

// ============================================================================
// BOARDING
// ============================================================================

const travelAlreadyCompleted = "Trip already marked as completed"

// MarkTravelCompleted records that the passenger boarded. confirmPayment lets
// staff take an outstanding payment at boarding.
func (s *BookingService) MarkTravelCompleted(ctx context.Context, ref string, confirmPayment bool) (*models.TravelUpdateResult, error) {
	booking, err := s.GetBooking(ctx, ref)
	if err != nil {
		return nil, err
	}

	if booking.TravelStatus == models.TravelStatusCompleted {
		return &models.TravelUpdateResult{Message: travelAlreadyCompleted, Booking: booking}, nil
	}
	if !booking.IsPaid() && (!confirmPayment || booking.PaymentStatus == models.PaymentStatusFailed) {
		return nil, models.ErrPaymentNotCompleted
	}

	changed, err := s.bookings.CompleteTravel(ctx, booking.BookingRef, confirmPayment)
	if err != nil {
		return nil, err
	}

	booking, err = s.bookings.GetByRef(ctx, booking.BookingRef)
	if err != nil {
		return nil, err
	}
	if !changed {
		// Lost a race with another scan
		if booking.TravelStatus == models.TravelStatusCompleted {
			return &models.TravelUpdateResult{Message: travelAlreadyCompleted, Booking: booking}, nil
		}
		return nil, models.ErrPaymentNotCompleted
	}

	if confirmPayment {
		audit := models.NewPaymentAudit(booking.BookingRef, models.PaymentEventTravelPaymentConfirmed, models.PaymentSourceAdmin)
		audit.SetAmounts(booking.TotalAmount, booking.TotalAmount)
		s.recordAudit(ctx, audit)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":      booking.BookingRef,
		"confirm_payment": confirmPayment,
	}).Info("Travel marked as completed")
	return &models.TravelUpdateResult{Message: "Trip marked as completed", Changed: true, Booking: booking}, nil
}

// ============================================================================
// HOLD EXPIRY
// ============================================================================

// ReleaseExpiredHolds fails unpaid bookings whose hold lapsed and returns their slots
func (s *BookingService) ReleaseExpiredHolds(ctx context.Context) (int, error) {
	refs, err := s.bookings.ListExpiredHolds(ctx, s.now(), expiredHoldBatch)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, ref := range refs {
		ok, err := s.bookings.MarkFailedAndRelease(ctx, ref)
		if err != nil {
			if errors.Is(err, models.ErrBookingNotFound) {
				continue
			}
			s.logger.WithError(err).WithField("booking_id", ref).Error("Failed to release expired hold")
			continue
		}
		if !ok {
			continue
		}
		released++
		s.recordAudit(ctx, models.NewPaymentAudit(ref, models.PaymentEventHoldReleased, models.PaymentSourceSystem))
	}

	if released > 0 {
		s.cache.Invalidate(ctx)
		s.logger.WithField("count", released).Info("Released expired booking holds")
	}
	return released, nil
}

func (s *BookingService) recordAudit(ctx context.Context, audit *models.PaymentAudit) {
	recordAudit(ctx, s.audits, s.logger, audit)
}
