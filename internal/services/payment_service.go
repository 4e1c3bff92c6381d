package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/seinetours/booking-backend/internal/models"
	"github.com/seinetours/booking-backend/pkg/payment"
	"github.com/sirupsen/logrus"
)

// FulfillmentDispatcher starts ticket delivery for a paid booking
type FulfillmentDispatcher interface {
	Dispatch(ctx context.Context, bookingRef, reason string) models.FulfillmentStatus
}

// PaymentServiceConfig holds processor settings exposed to clients
type PaymentServiceConfig struct {
	Currency       string
	PublishableKey string
}

// PaymentService orchestrates intent creation, payment finalization and
// webhook reconciliation
type PaymentService struct {
	bookings    BookingStore
	audits      AuditStore
	gateway     payment.Gateway
	fulfillment FulfillmentDispatcher
	cache       *CatalogCache
	config      PaymentServiceConfig
	logger      *logrus.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	bookings BookingStore,
	audits AuditStore,
	gateway payment.Gateway,
	fulfillment FulfillmentDispatcher,
	cache *CatalogCache,
	config PaymentServiceConfig,
	logger *logrus.Logger,
) *PaymentService {
	if config.Currency == "" {
		config.Currency = "eur"
	}
	return &PaymentService{
		bookings:    bookings,
		audits:      audits,
		gateway:     gateway,
		fulfillment: fulfillment,
		cache:       cache,
		config:      config,
		logger:      logger,
	}
}

func providerError(err error) error {
	return fmt.Errorf("%w: %v", models.ErrPaymentProvider, err)
}

// ============================================================================
// CREATE INTENT
// ============================================================================

// CreatePaymentIntent authorizes the booking total with the processor. An
// intent already attached to the booking is returned instead of a new one.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, req *models.CreatePaymentIntentRequest) (*models.PaymentIntentResponse, error) {
	booking, err := s.bookings.GetByRef(ctx, strings.TrimSpace(req.BookingID))
	if err != nil {
		return nil, err
	}
	if booking.PaymentStatus != models.PaymentStatusPending {
		return nil, models.ErrBookingNotPending
	}
	if payment.ToMinorUnits(req.Amount) != payment.ToMinorUnits(booking.TotalAmount) {
		return nil, fmt.Errorf("%w: expected %.2f", models.ErrAmountMismatch, booking.TotalAmount)
	}

	log := s.logger.WithField("booking_id", booking.BookingRef)
	idempotencyKey := "booking-" + booking.BookingRef

	if booking.PaymentIntentID != nil {
		intent, err := s.gateway.GetIntent(ctx, *booking.PaymentIntentID)
		if err != nil {
			return nil, providerError(err)
		}
		if intent.Status != payment.StatusCanceled {
			audit := models.NewPaymentAudit(booking.BookingRef, models.PaymentEventIntentReused, models.PaymentSourceClient).
				SetIntent(intent.ID).
				SetProcessorStatus(intent.Status)
			s.recordAudit(ctx, audit)
			return s.intentResponse(intent), nil
		}
		// The previous intent is dead; a fresh key avoids replaying it
		idempotencyKey += "-" + intent.ID
	}

	intent, err := s.gateway.CreateIntent(ctx, payment.CreateIntentParams{
		Amount:         payment.ToMinorUnits(booking.TotalAmount),
		Currency:       s.config.Currency,
		BookingRef:     booking.BookingRef,
		ReceiptEmail:   booking.CustomerEmail,
		Description:    "Booking " + booking.BookingRef,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		log.WithError(err).Error("Payment intent creation failed")
		return nil, providerError(err)
	}

	if err := s.bookings.SetPaymentIntent(ctx, booking.BookingRef, intent.ID); err != nil {
		return nil, err
	}

	audit := models.NewPaymentAudit(booking.BookingRef, models.PaymentEventIntentCreated, models.PaymentSourceClient).
		SetIntent(intent.ID).
		SetProcessorStatus(intent.Status)
	audit.SetAmounts(booking.TotalAmount, payment.FromMinorUnits(intent.Amount))
	s.recordAudit(ctx, audit)

	log.WithFields(logrus.Fields{
		"payment_intent_id": intent.ID,
		"amount":            intent.Amount,
	}).Info("Payment intent created")
	return s.intentResponse(intent), nil
}

func (s *PaymentService) intentResponse(intent *payment.Intent) *models.PaymentIntentResponse {
	return &models.PaymentIntentResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		PublishableKey:  s.config.PublishableKey,
	}
}

// ============================================================================
// FINALIZE
// ============================================================================

// ConfirmPayment finalizes a booking after the client completed payment.
// Repeating it with the same transaction is a no-op.
func (s *PaymentService) ConfirmPayment(ctx context.Context, req *models.ConfirmPaymentRequest) (*models.ConfirmPaymentResult, error) {
	booking, err := s.bookings.GetByRef(ctx, strings.TrimSpace(req.BookingID))
	if err != nil {
		return nil, err
	}

	txnID := strings.TrimSpace(req.TxnID())
	if txnID == "" && booking.PaymentIntentID != nil {
		txnID = *booking.PaymentIntentID
	}
	if txnID == "" {
		return nil, models.NewValidationError("transactionId", "is required")
	}

	return s.finalize(ctx, booking, txnID, nil, models.PaymentSourceClient)
}

// finalize verifies the intent with the processor and marks the booking paid.
// intent may be supplied by a verified webhook; otherwise it is retrieved.
func (s *PaymentService) finalize(
	ctx context.Context,
	booking *models.Booking,
	txnID string,
	intent *payment.Intent,
	source models.PaymentEventSource,
) (*models.ConfirmPaymentResult, error) {
	log := s.logger.WithFields(logrus.Fields{
		"booking_id":        booking.BookingRef,
		"payment_intent_id": txnID,
		"source":            source,
	})

	if booking.IsPaid() {
		return s.alreadyConfirmed(ctx, booking, txnID, source)
	}

	if intent == nil {
		var err error
		if intent, err = s.gateway.GetIntent(ctx, txnID); err != nil {
			log.WithError(err).Error("Payment intent lookup failed")
			return nil, providerError(err)
		}
	}

	if err := s.verifyIntent(ctx, booking, intent, source); err != nil {
		return nil, err
	}

	switch intent.Status {
	case payment.StatusSucceeded:
	case payment.StatusCanceled:
		if err := s.failBooking(ctx, booking.BookingRef, intent, source); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", models.ErrPaymentNotSucceeded, intent.Status)
	case payment.StatusRequiresPaymentMethod:
		s.recordDecline(ctx, booking.BookingRef, intent, source)
		return nil, fmt.Errorf("%w: %s", models.ErrPaymentNotSucceeded, intent.Status)
	default:
		return nil, fmt.Errorf("%w: %s", models.ErrPaymentNotSucceeded, intent.Status)
	}

	wasFailed := booking.PaymentStatus == models.PaymentStatusFailed
	changed, err := s.bookings.MarkPaid(ctx, booking.BookingRef, intent.ID)
	if err != nil {
		if errors.Is(err, models.ErrInsufficientAvailability) || errors.Is(err, models.ErrPackageNotFound) {
			// Paid after the hold was released and the slots are gone
			audit := models.NewPaymentAudit(booking.BookingRef, models.PaymentEventReconciliationMismatch, source).
				SetIntent(intent.ID).
				SetProcessorStatus(intent.Status).
				SetError(fmt.Errorf("payment captured but slots unavailable, refund required: %w", err))
			s.recordAudit(ctx, audit)
			log.WithError(err).Error("Payment captured for a booking that can no longer be honoured")
		}
		return nil, err
	}
	if !changed {
		current, err := s.bookings.GetByRef(ctx, booking.BookingRef)
		if err != nil {
			return nil, err
		}
		return s.alreadyConfirmed(ctx, current, intent.ID, source)
	}
	if wasFailed {
		s.cache.Invalidate(ctx)
	}

	audit := models.NewPaymentAudit(booking.BookingRef, models.PaymentEventSuccess, source).
		SetIntent(intent.ID).
		SetProcessorStatus(intent.Status)
	audit.SetAmounts(booking.TotalAmount, payment.FromMinorUnits(intent.Amount))
	s.recordAudit(ctx, audit)
	log.Info("Booking payment confirmed")

	status := s.fulfillment.Dispatch(ctx, booking.BookingRef, string(source))

	updated, err := s.bookings.GetByRef(ctx, booking.BookingRef)
	if err != nil {
		return nil, err
	}
	return &models.ConfirmPaymentResult{
		Booking:           updated,
		FulfillmentStatus: status,
		Message:           "Payment confirmed",
	}, nil
}

func (s *PaymentService) alreadyConfirmed(
	ctx context.Context,
	booking *models.Booking,
	txnID string,
	source models.PaymentEventSource,
) (*models.ConfirmPaymentResult, error) {
	if booking.TransactionID != nil && *booking.TransactionID != txnID {
		return nil, models.ErrPaymentAlreadyConfirmed
	}

	audit := models.NewPaymentAudit(booking.BookingRef, models.PaymentEventDuplicateConfirm, source).SetIntent(txnID)
	s.recordAudit(ctx, audit)

	return &models.ConfirmPaymentResult{
		Booking:           booking,
		AlreadyConfirmed:  true,
		FulfillmentStatus: booking.FulfillmentStatus,
		Message:           "Payment already confirmed",
	}, nil
}

func (s *PaymentService) verifyIntent(ctx context.Context, booking *models.Booking, intent *payment.Intent, source models.PaymentEventSource) error {
	var problem error
	switch {
	case intent.BookingRef() != booking.BookingRef:
		problem = fmt.Errorf("%w: intent belongs to booking %q", models.ErrPaymentVerification, intent.BookingRef())
	case intent.Amount != payment.ToMinorUnits(booking.TotalAmount):
		problem = fmt.Errorf("%w: amount %d does not match booking total", models.ErrPaymentVerification, intent.Amount)
	case !strings.EqualFold(intent.Currency, s.config.Currency):
		problem = fmt.Errorf("%w: currency %s", models.ErrPaymentVerification, intent.Currency)
	}
	if problem == nil {
		return nil
	}

	audit := models.NewPaymentAudit(booking.BookingRef, models.PaymentEventReconciliationMismatch, source).
		SetIntent(intent.ID).
		SetProcessorStatus(intent.Status).
		SetError(problem)
	audit.SetAmounts(booking.TotalAmount, payment.FromMinorUnits(intent.Amount))
	s.recordAudit(ctx, audit)

	s.logger.WithError(problem).WithField("booking_id", booking.BookingRef).Warn("Payment verification failed")
	return problem
}

func (s *PaymentService) failBooking(ctx context.Context, ref string, intent *payment.Intent, source models.PaymentEventSource) error {
	released, err := s.bookings.MarkFailedAndRelease(ctx, ref)
	if err != nil {
		return err
	}

	audit := models.NewPaymentAudit(ref, models.PaymentEventFailed, source).
		SetIntent(intent.ID).
		SetProcessorStatus(intent.Status)
	s.recordAudit(ctx, audit)

	if released {
		s.cache.Invalidate(ctx)
		s.logger.WithFields(logrus.Fields{
			"booking_id":        ref,
			"payment_intent_id": intent.ID,
			"status":            intent.Status,
		}).Info("Payment failed, booking hold released")
	}
	return nil
}

// recordDecline audits a declined attempt. The intent stays usable for another
// card, so the booking and its hold are kept until the hold expires.
func (s *PaymentService) recordDecline(ctx context.Context, ref string, intent *payment.Intent, source models.PaymentEventSource) {
	audit := models.NewPaymentAudit(ref, models.PaymentEventDeclined, source).
		SetIntent(intent.ID).
		SetProcessorStatus(intent.Status)
	s.recordAudit(ctx, audit)

	s.logger.WithFields(logrus.Fields{
		"booking_id":        ref,
		"payment_intent_id": intent.ID,
		"status":            intent.Status,
	}).Info("Payment declined, booking hold kept for retry")
}

// ============================================================================
// WEBHOOK
// ============================================================================

// HandleWebhook verifies and applies a processor notification. Events for
// unknown bookings are acknowledged and ignored.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			s.logger.WithError(err).Warn("Rejected webhook with invalid signature")
			return models.ErrInvalidWebhookSignature
		}
		return err
	}

	if event.Intent == nil || event.Intent.BookingRef() == "" {
		s.logger.WithFields(logrus.Fields{"event_id": event.ID, "type": event.Type}).Debug("Ignoring webhook event")
		return nil
	}

	ref := event.Intent.BookingRef()
	log := s.logger.WithFields(logrus.Fields{
		"booking_id":        ref,
		"payment_intent_id": event.Intent.ID,
		"event_type":        event.Type,
	})

	audit := models.NewPaymentAudit(ref, models.PaymentEventWebhookReceived, models.PaymentSourceWebhook).
		SetIntent(event.Intent.ID).
		SetProcessorStatus(event.Intent.Status).
		SetPayload(map[string]interface{}{"event_id": event.ID, "type": event.Type})
	s.recordAudit(ctx, audit)

	booking, err := s.bookings.GetByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, models.ErrBookingNotFound) {
			log.Warn("Webhook for unknown booking")
			return nil
		}
		return err
	}

	switch event.Type {
	case payment.EventIntentSucceeded:
		_, err := s.finalize(ctx, booking, event.Intent.ID, event.Intent, models.PaymentSourceWebhook)
		if err != nil && (errors.Is(err, models.ErrPaymentAlreadyConfirmed) || errors.Is(err, models.ErrPaymentVerification) ||
			errors.Is(err, models.ErrInsufficientAvailability) || errors.Is(err, models.ErrPackageNotFound)) {
			// Retrying will not change the outcome; it is audited for manual follow-up
			log.WithError(err).Error("Webhook payment could not be applied")
			return nil
		}
		return err
	case payment.EventIntentFailed:
		if booking.PaymentStatus == models.PaymentStatusPending {
			s.recordDecline(ctx, ref, event.Intent, models.PaymentSourceWebhook)
		}
		return nil
	case payment.EventIntentCanceled:
		if booking.PaymentStatus != models.PaymentStatusPending {
			return nil
		}
		return s.failBooking(ctx, ref, event.Intent, models.PaymentSourceWebhook)
	default:
		log.Debug("Unhandled webhook event type")
		return nil
	}
}

func (s *PaymentService) recordAudit(ctx context.Context, audit *models.PaymentAudit) {
	recordAudit(ctx, s.audits, s.logger, audit)
}
