package services

import (
	"context"
	"errors"
	"testing"

	"github.com/seinetours/booking-backend/internal/models"
	"github.com/seinetours/booking-backend/pkg/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePaymentIntent(t *testing.T) {
	h := newHarness(t)
	pkg := h.seinePackage(10)
	ctx := context.Background()
	b, err := h.bookingSvc.CreateBooking(ctx, bookingRequest(pkg, 2, 1, 42))
	require.NoError(t, err)

	resp, err := h.paymentSvc.CreatePaymentIntent(ctx, &models.CreatePaymentIntentRequest{Amount: 42, BookingID: b.BookingRef})

	require.NoError(t, err)
	assert.Equal(t, "pi_"+b.BookingRef+"_secret", resp.ClientSecret)
	assert.Equal(t, "pk_test", resp.PublishableKey)
	require.Len(t, h.gateway.created, 1)
	assert.Equal(t, int64(4200), h.gateway.created[0].Amount)
	assert.Equal(t, "booking-"+b.BookingRef, h.gateway.created[0].IdempotencyKey)
	assert.Equal(t, "pi_"+b.BookingRef, *h.store.booking(b.BookingRef).PaymentIntentID)

	t.Run("retry reuses the intent", func(t *testing.T) {
		again, err := h.paymentSvc.CreatePaymentIntent(ctx, &models.CreatePaymentIntentRequest{Amount: 42, BookingID: b.BookingRef})
		require.NoError(t, err)
		assert.Equal(t, resp.PaymentIntentID, again.PaymentIntentID)
		assert.Len(t, h.gateway.created, 1)
		assert.Equal(t, 1, h.audits.count(models.PaymentEventIntentReused))
	})

	t.Run("amount must match booking", func(t *testing.T) {
		_, err := h.paymentSvc.CreatePaymentIntent(ctx, &models.CreatePaymentIntentRequest{Amount: 1, BookingID: b.BookingRef})
		assert.ErrorIs(t, err, models.ErrAmountMismatch)
	})

	t.Run("unknown booking", func(t *testing.T) {
		_, err := h.paymentSvc.CreatePaymentIntent(ctx, &models.CreatePaymentIntentRequest{Amount: 42, BookingID: "PVNOPE"})
		assert.ErrorIs(t, err, models.ErrBookingNotFound)
	})
}

func TestCreatePaymentIntent_ProviderFailure(t *testing.T) {
	h := newHarness(t)
	pkg := h.seinePackage(10)
	b, err := h.bookingSvc.CreateBooking(context.Background(), bookingRequest(pkg, 1, 0, 17))
	require.NoError(t, err)
	h.gateway.createErr = errors.New("api down")

	_, err = h.paymentSvc.CreatePaymentIntent(context.Background(), &models.CreatePaymentIntentRequest{Amount: 17, BookingID: b.BookingRef})

	assert.ErrorIs(t, err, models.ErrPaymentProvider)
	assert.Nil(t, h.store.booking(b.BookingRef).PaymentIntentID)
}

func TestConfirmPayment_SendsTicketsOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.paidBooking(t, 2, 1)
	slotsAfterHold := h.store.slots(*b.PackageID)
	req := &models.ConfirmPaymentRequest{BookingID: b.BookingRef, TransactionID: "pi_" + b.BookingRef}

	res, err := h.paymentSvc.ConfirmPayment(ctx, req)
	require.NoError(t, err)
	assert.False(t, res.AlreadyConfirmed)
	assert.Equal(t, models.FulfillmentSent, res.FulfillmentStatus)
	assert.Equal(t, models.PaymentStatusCompleted, res.Booking.PaymentStatus)
	assert.False(t, res.Booking.SlotsHeld)
	assert.Equal(t, 1, h.mailer.count())
	assert.Len(t, h.mailer.sent[0].Attachments, 3)

	dup, err := h.paymentSvc.ConfirmPayment(ctx, req)
	require.NoError(t, err)
	assert.True(t, dup.AlreadyConfirmed)
	assert.Equal(t, 1, h.mailer.count())
	assert.Equal(t, slotsAfterHold, h.store.slots(*b.PackageID))
	assert.Equal(t, 1, h.audits.count(models.PaymentEventSuccess))
	assert.Equal(t, 1, h.audits.count(models.PaymentEventDuplicateConfirm))
}

func TestConfirmPayment_DifferentTransactionConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.paidBooking(t, 1, 0)

	_, err := h.paymentSvc.ConfirmPayment(ctx, &models.ConfirmPaymentRequest{BookingID: b.BookingRef, PaymentIntentID: "pi_" + b.BookingRef})
	require.NoError(t, err)

	_, err = h.paymentSvc.ConfirmPayment(ctx, &models.ConfirmPaymentRequest{BookingID: b.BookingRef, TransactionID: "pi_other"})
	assert.ErrorIs(t, err, models.ErrPaymentAlreadyConfirmed)
}

func TestConfirmPayment_FallsBackToStoredIntent(t *testing.T) {
	h := newHarness(t)
	b := h.paidBooking(t, 1, 0)

	res, err := h.paymentSvc.ConfirmPayment(context.Background(), &models.ConfirmPaymentRequest{BookingID: b.BookingRef})

	require.NoError(t, err)
	assert.Equal(t, "pi_"+b.BookingRef, *res.Booking.TransactionID)
}

func TestConfirmPayment_NotSucceeded(t *testing.T) {
	ctx := context.Background()

	t.Run("processing leaves the booking pending", func(t *testing.T) {
		h := newHarness(t)
		b := h.paidBooking(t, 1, 0)
		h.gateway.intents["pi_"+b.BookingRef].Status = payment.StatusProcessing

		_, err := h.paymentSvc.ConfirmPayment(ctx, &models.ConfirmPaymentRequest{BookingID: b.BookingRef, TransactionID: "pi_" + b.BookingRef})

		assert.ErrorIs(t, err, models.ErrPaymentNotSucceeded)
		assert.Equal(t, models.PaymentStatusPending, h.store.booking(b.BookingRef).PaymentStatus)
		assert.Zero(t, h.mailer.count())
	})

	t.Run("canceled releases the hold", func(t *testing.T) {
		h := newHarness(t)
		b := h.paidBooking(t, 2, 0)
		h.gateway.intents["pi_"+b.BookingRef].Status = payment.StatusCanceled

		_, err := h.paymentSvc.ConfirmPayment(ctx, &models.ConfirmPaymentRequest{BookingID: b.BookingRef, TransactionID: "pi_" + b.BookingRef})

		assert.ErrorIs(t, err, models.ErrPaymentNotSucceeded)
		assert.Equal(t, models.PaymentStatusFailed, h.store.booking(b.BookingRef).PaymentStatus)
		assert.Equal(t, 20, h.store.slots(*b.PackageID))
		assert.Equal(t, 1, h.audits.count(models.PaymentEventFailed))
	})
}

func TestConfirmPayment_VerificationMismatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.paidBooking(t, 1, 0)
	h.gateway.put(&payment.Intent{
		ID:       "pi_foreign",
		Status:   payment.StatusSucceeded,
		Amount:   1700,
		Currency: "eur",
		Metadata: map[string]string{payment.MetadataBookingID: "PVOTHER"},
	})
	h.gateway.intents["pi_"+b.BookingRef].Amount = 100

	_, err := h.paymentSvc.ConfirmPayment(ctx, &models.ConfirmPaymentRequest{BookingID: b.BookingRef, TransactionID: "pi_foreign"})
	assert.ErrorIs(t, err, models.ErrPaymentVerification)

	_, err = h.paymentSvc.ConfirmPayment(ctx, &models.ConfirmPaymentRequest{BookingID: b.BookingRef, TransactionID: "pi_" + b.BookingRef})
	assert.ErrorIs(t, err, models.ErrPaymentVerification)

	assert.Equal(t, models.PaymentStatusPending, h.store.booking(b.BookingRef).PaymentStatus)
	assert.Equal(t, 2, h.audits.count(models.PaymentEventReconciliationMismatch))
}

func TestConfirmPayment_AfterHoldExpiry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.paidBooking(t, 2, 0)
	released, err := h.bookings.MarkFailedAndRelease(ctx, b.BookingRef)
	require.NoError(t, err)
	require.True(t, released)
	assert.Equal(t, 20, h.store.slots(*b.PackageID))

	res, err := h.paymentSvc.ConfirmPayment(ctx, &models.ConfirmPaymentRequest{BookingID: b.BookingRef, TransactionID: "pi_" + b.BookingRef})

	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, res.Booking.PaymentStatus)
	assert.Equal(t, 18, h.store.slots(*b.PackageID))
}

func TestConfirmPayment_AfterHoldExpirySoldOut(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.paidBooking(t, 2, 0)
	_, err := h.bookings.MarkFailedAndRelease(ctx, b.BookingRef)
	require.NoError(t, err)
	h.store.packages[*b.PackageID].AvailableSlots = 1

	_, err = h.paymentSvc.ConfirmPayment(ctx, &models.ConfirmPaymentRequest{BookingID: b.BookingRef, TransactionID: "pi_" + b.BookingRef})

	assert.ErrorIs(t, err, models.ErrInsufficientAvailability)
	assert.Equal(t, 1, h.audits.count(models.PaymentEventReconciliationMismatch))
	assert.Zero(t, h.mailer.count())
}

func TestHandleWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid signature", func(t *testing.T) {
		h := newHarness(t)
		err := h.paymentSvc.HandleWebhook(ctx, []byte(`{}`), "forged")
		assert.ErrorIs(t, err, models.ErrInvalidWebhookSignature)
	})

	t.Run("succeeded finalizes once", func(t *testing.T) {
		h := newHarness(t)
		b := h.paidBooking(t, 1, 1)
		intent, _ := h.gateway.GetIntent(ctx, "pi_"+b.BookingRef)
		h.gateway.event = &payment.Event{ID: "evt_1", Type: payment.EventIntentSucceeded, Intent: intent}

		require.NoError(t, h.paymentSvc.HandleWebhook(ctx, []byte(`{}`), "valid"))
		require.NoError(t, h.paymentSvc.HandleWebhook(ctx, []byte(`{}`), "valid"))

		assert.Equal(t, models.PaymentStatusCompleted, h.store.booking(b.BookingRef).PaymentStatus)
		assert.Equal(t, 1, h.mailer.count())
		assert.Len(t, h.mailer.sent[0].Attachments, 2)
		assert.Equal(t, 2, h.audits.count(models.PaymentEventWebhookReceived))
	})

	t.Run("payment failed keeps the hold", func(t *testing.T) {
		h := newHarness(t)
		b := h.paidBooking(t, 3, 0)
		intent, _ := h.gateway.GetIntent(ctx, "pi_"+b.BookingRef)
		intent.Status = payment.StatusRequiresPaymentMethod
		h.gateway.event = &payment.Event{ID: "evt_2", Type: payment.EventIntentFailed, Intent: intent}

		require.NoError(t, h.paymentSvc.HandleWebhook(ctx, []byte(`{}`), "valid"))

		stored := h.store.booking(b.BookingRef)
		assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
		assert.True(t, stored.SlotsHeld)
		assert.Equal(t, 17, h.store.slots(*b.PackageID))
		assert.Equal(t, 1, h.audits.count(models.PaymentEventDeclined))
		assert.Zero(t, h.audits.count(models.PaymentEventFailed))
	})

	t.Run("canceled releases slots", func(t *testing.T) {
		h := newHarness(t)
		b := h.paidBooking(t, 3, 0)
		intent, _ := h.gateway.GetIntent(ctx, "pi_"+b.BookingRef)
		intent.Status = payment.StatusCanceled
		h.gateway.event = &payment.Event{ID: "evt_5", Type: payment.EventIntentCanceled, Intent: intent}

		require.NoError(t, h.paymentSvc.HandleWebhook(ctx, []byte(`{}`), "valid"))

		assert.Equal(t, models.PaymentStatusFailed, h.store.booking(b.BookingRef).PaymentStatus)
		assert.Equal(t, 20, h.store.slots(*b.PackageID))
	})

	t.Run("unknown booking is acknowledged", func(t *testing.T) {
		h := newHarness(t)
		h.gateway.event = &payment.Event{
			ID:     "evt_3",
			Type:   payment.EventIntentSucceeded,
			Intent: &payment.Intent{ID: "pi_x", Metadata: map[string]string{payment.MetadataBookingID: "PVGONE"}},
		}
		assert.NoError(t, h.paymentSvc.HandleWebhook(ctx, []byte(`{}`), "valid"))
	})

	t.Run("events without booking metadata are ignored", func(t *testing.T) {
		h := newHarness(t)
		h.gateway.event = &payment.Event{ID: "evt_4", Type: "charge.refunded"}
		assert.NoError(t, h.paymentSvc.HandleWebhook(ctx, []byte(`{}`), "valid"))
		assert.Empty(t, h.audits.events)
	})
}

func TestConfirmPayment_DeclineThenRetrySucceeds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pkg := h.seinePackage(1)
	first, err := h.bookingSvc.CreateBooking(ctx, bookingRequest(pkg, 1, 0, 17))
	require.NoError(t, err)
	resp, err := h.paymentSvc.CreatePaymentIntent(ctx, &models.CreatePaymentIntentRequest{Amount: 17, BookingID: first.BookingRef})
	require.NoError(t, err)

	declined, _ := h.gateway.GetIntent(ctx, resp.PaymentIntentID)
	declined.Status = payment.StatusRequiresPaymentMethod
	h.gateway.event = &payment.Event{ID: "evt_decline", Type: payment.EventIntentFailed, Intent: declined}
	require.NoError(t, h.paymentSvc.HandleWebhook(ctx, []byte(`{}`), "valid"))

	h.gateway.intents[resp.PaymentIntentID].Status = payment.StatusRequiresPaymentMethod
	_, err = h.paymentSvc.ConfirmPayment(ctx, &models.ConfirmPaymentRequest{BookingID: first.BookingRef, TransactionID: resp.PaymentIntentID})
	assert.ErrorIs(t, err, models.ErrPaymentNotSucceeded)

	// The slot is still held, so nobody else can take it
	_, err = h.bookingSvc.CreateBooking(ctx, bookingRequest(pkg, 1, 0, 17))
	assert.ErrorIs(t, err, models.ErrInsufficientAvailability)

	again, err := h.paymentSvc.CreatePaymentIntent(ctx, &models.CreatePaymentIntentRequest{Amount: 17, BookingID: first.BookingRef})
	require.NoError(t, err)
	assert.Equal(t, resp.PaymentIntentID, again.PaymentIntentID)

	h.gateway.intents[resp.PaymentIntentID].Status = payment.StatusSucceeded
	res, err := h.paymentSvc.ConfirmPayment(ctx, &models.ConfirmPaymentRequest{BookingID: first.BookingRef, TransactionID: resp.PaymentIntentID})

	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, res.Booking.PaymentStatus)
	assert.Equal(t, 0, h.store.slots(pkg.ID))
	assert.Equal(t, 1, h.mailer.count())
	assert.Equal(t, 2, h.audits.count(models.PaymentEventDeclined))
}
