package services

import (
	"context"
	"testing"
	"time"

	"github.com/seinetours/booking-backend/internal/models"
	"github.com/seinetours/booking-backend/pkg/tickets"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

type harness struct {
	store       *memStore
	packages    fakePackageStore
	bookings    fakeBookingStore
	audits      *fakeAudits
	gateway     *fakeGateway
	mailer      *fakeMailer
	bookingSvc  *BookingService
	paymentSvc  *PaymentService
	fulfillment *FulfillmentService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:   newMemStore(),
		audits:  &fakeAudits{},
		gateway: newFakeGateway(),
		mailer:  &fakeMailer{},
	}
	h.packages = fakePackageStore{h.store}
	h.bookings = fakeBookingStore{memStore: h.store}

	logger := testLogger()
	h.bookingSvc = NewBookingService(h.bookings, h.packages, h.audits, nil, BookingServiceConfig{
		RefPrefix: "PV",
		HoldTTL:   30 * time.Minute,
		Currency:  "eur",
	}, logger)
	h.bookingSvc.now = func() time.Time { return fixedNow }

	h.fulfillment = NewFulfillmentService(h.bookings, tickets.NewRenderer("Seine Tours"), h.mailer, nil, 5, logger)
	h.paymentSvc = NewPaymentService(h.bookings, h.audits, h.gateway, h.fulfillment, nil, PaymentServiceConfig{
		Currency:       "eur",
		PublishableKey: "pk_test",
	}, logger)
	return h
}

func (h *harness) seinePackage(slots int) *models.Package {
	return h.store.addPackage(&models.Package{
		Title:          models.LocalizedText{"en": "Seine River Cruise", "fr": "Croisière sur la Seine"},
		Location:       "Paris",
		Price:          17,
		ChildPrice:     8,
		AvailableSlots: slots,
	})
}

func bookingRequest(pkg *models.Package, adults, children int, total float64) *models.CreateBookingRequest {
	return &models.CreateBookingRequest{
		TicketID:           pkg.ID.String(),
		CustomerName:       "Jeanne Martin",
		CustomerEmail:      "jeanne@example.com",
		CustomerPhone:      "06 12 34 56 78",
		TravelDate:         "14-07-2026",
		NumberOfPassengers: adults + children,
		TotalAmount:        total,
		Adults:             adults,
		Children:           children,
		Locale:             "fr-FR",
	}
}

// paidBooking creates a booking and a succeeded intent for it
func (h *harness) paidBooking(t *testing.T, adults, children int) *models.Booking {
	t.Helper()
	pkg := h.seinePackage(20)
	total := pkg.QuoteTotal(adults, children)
	b, err := h.bookingSvc.CreateBooking(context.Background(), bookingRequest(pkg, adults, children, total))
	require.NoError(t, err)

	resp, err := h.paymentSvc.CreatePaymentIntent(context.Background(), &models.CreatePaymentIntentRequest{
		Amount:    total,
		BookingID: b.BookingRef,
	})
	require.NoError(t, err)
	h.gateway.intents[resp.PaymentIntentID].Status = "succeeded"
	return b
}
