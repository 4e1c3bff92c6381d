package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// BOOKING STATUSES
// ============================================================================

// PaymentStatus represents the monetary state of a booking
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// TravelStatus represents whether the trip was taken
type TravelStatus string

const (
	TravelStatusPending   TravelStatus = "pending"
	TravelStatusCompleted TravelStatus = "completed"
)

// FulfillmentStatus tracks e-ticket delivery
type FulfillmentStatus string

const (
	FulfillmentPending FulfillmentStatus = "pending"
	FulfillmentSent    FulfillmentStatus = "sent"
	FulfillmentFailed  FulfillmentStatus = "failed"
)

// TravelDateLayout is the day-month-year format accepted from clients
const TravelDateLayout = "02-01-2006"

// ============================================================================
// BOOKING
// ============================================================================

// Booking is one customer's purchase of passenger slots on a package
type Booking struct {
	ID                 uuid.UUID     `json:"id" db:"id"`
	BookingRef         string        `json:"bookingId" db:"booking_ref"`
	PackageID          *uuid.UUID    `json:"ticketId,omitempty" db:"package_id"`
	CustomerName       string        `json:"customerName" db:"customer_name"`
	CustomerEmail      string        `json:"customerEmail" db:"customer_email"`
	CustomerPhone      string        `json:"customerPhone" db:"customer_phone"`
	TravelDate         time.Time     `json:"travelDate" db:"travel_date"`
	Adults             int           `json:"adults" db:"adults"`
	Children           int           `json:"children" db:"children"`
	NumberOfPassengers int           `json:"numberOfPassengers" db:"number_of_passengers"`
	TotalAmount        float64       `json:"totalAmount" db:"total_amount"`
	Currency           string        `json:"currency" db:"currency"`
	Locale             string        `json:"locale" db:"locale"`
	PaymentStatus      PaymentStatus `json:"paymentStatus" db:"payment_status"`
	TravelStatus       TravelStatus  `json:"travelStatus" db:"travel_status"`

	// Payment processor references
	PaymentIntentID *string `json:"paymentIntentId,omitempty" db:"payment_intent_id"`
	TransactionID   *string `json:"transactionId,omitempty" db:"transaction_id"`

	// Slot hold taken at creation, released if payment fails or is abandoned
	SlotsHeld     bool       `json:"slotsHeld" db:"slots_held"`
	HoldExpiresAt *time.Time `json:"holdExpiresAt,omitempty" db:"hold_expires_at"`

	// E-ticket delivery
	FulfillmentStatus   FulfillmentStatus `json:"fulfillmentStatus" db:"fulfillment_status"`
	FulfillmentAttempts int               `json:"fulfillmentAttempts" db:"fulfillment_attempts"`
	FulfillmentError    *string           `json:"fulfillmentError,omitempty" db:"fulfillment_error"`
	TicketsSentAt       *time.Time        `json:"ticketsSentAt,omitempty" db:"tickets_sent_at"`

	TravelCompletedAt *time.Time `json:"travelCompletedAt,omitempty" db:"travel_completed_at"`
	CreatedAt         time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time  `json:"updatedAt" db:"updated_at"`

	// Populated from packages, not a column
	Package *Package `json:"ticket,omitempty" db:"-"`
}

// IsPaid reports whether payment has completed
func (b *Booking) IsPaid() bool {
	return b.PaymentStatus == PaymentStatusCompleted
}

// HoldExpired reports whether an unpaid booking's slot hold has lapsed
func (b *Booking) HoldExpired(now time.Time) bool {
	return b.SlotsHeld && b.HoldExpiresAt != nil && now.After(*b.HoldExpiresAt)
}

// ============================================================================
// REQUEST / RESPONSE DTOs
// ============================================================================

// CreateBookingRequest is the checkout payload
type CreateBookingRequest struct {
	TicketID           string  `json:"ticketId" binding:"required"`
	CustomerName       string  `json:"customerName" binding:"required"`
	CustomerEmail      string  `json:"customerEmail" binding:"required"`
	CustomerPhone      string  `json:"customerPhone" binding:"required"`
	TravelDate         string  `json:"travelDate" binding:"required"`
	NumberOfPassengers int     `json:"numberOfPassengers" binding:"required"`
	TotalAmount        float64 `json:"totalAmount" binding:"gte=0"`
	Adults             int     `json:"adults" binding:"required"`
	Children           int     `json:"children"`
	Locale             string  `json:"locale"`
}

// UpdateTravelStatusRequest is the optional body of the QR-scan endpoint
type UpdateTravelStatusRequest struct {
	// ConfirmPayment records a walk-up payment taken at boarding
	ConfirmPayment bool `json:"confirmPayment"`
}

// TravelUpdateResult describes the outcome of a travel completion
type TravelUpdateResult struct {
	Message string   `json:"message"`
	Changed bool     `json:"changed"`
	Booking *Booking `json:"booking"`
}

// CreatePaymentIntentRequest requests a payment authorization
type CreatePaymentIntentRequest struct {
	Amount    float64 `json:"amount" binding:"required"`
	BookingID string  `json:"bookingId" binding:"required"`
}

// PaymentIntentResponse returns the client-usable secret
type PaymentIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
	PublishableKey  string `json:"publishableKey,omitempty"`
}

// ConfirmPaymentRequest finalizes a paid booking
type ConfirmPaymentRequest struct {
	BookingID     string `json:"bookingId" binding:"required"`
	TransactionID string `json:"transactionId"`
	// PaymentIntentID is accepted as an alias used by older clients
	PaymentIntentID string `json:"paymentIntentId"`
}

// TxnID returns whichever processor identifier the client sent
func (r *ConfirmPaymentRequest) TxnID() string {
	if r.TransactionID != "" {
		return r.TransactionID
	}
	return r.PaymentIntentID
}

// ConfirmPaymentResult is returned by the finalize operation
type ConfirmPaymentResult struct {
	Booking           *Booking          `json:"booking"`
	AlreadyConfirmed  bool              `json:"alreadyConfirmed"`
	FulfillmentStatus FulfillmentStatus `json:"fulfillmentStatus"`
	Message           string            `json:"message"`
}

// ResendEmailRequest regenerates tickets for an existing booking
type ResendEmailRequest struct {
	BookingID string `json:"bookingId" binding:"required"`
	// PassengerIndex selects one ticket (0-based, adults first); nil resends all
	PassengerIndex *int `json:"passengerIndex"`
}
