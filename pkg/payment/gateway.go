package payment

import (
	"context"
	"errors"
	"math"
)

// Intent statuses reported by the processor
const (
	StatusSucceeded             = "succeeded"
	StatusProcessing            = "processing"
	StatusRequiresPaymentMethod = "requires_payment_method"
	StatusRequiresAction        = "requires_action"
	StatusCanceled              = "canceled"
)

// Webhook event types the service reacts to
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
	EventIntentCanceled  = "payment_intent.canceled"
)

// MetadataBookingID is the intent metadata key carrying the booking reference
const MetadataBookingID = "bookingId"

// ErrInvalidSignature is returned when a webhook payload fails verification
var ErrInvalidSignature = errors.New("webhook signature verification failed")

// Intent is a processor-side payment authorization
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64 // minor units (cents)
	Currency     string
	Metadata     map[string]string
}

// BookingRef returns the booking reference recorded on the intent
func (i *Intent) BookingRef() string {
	if i.Metadata == nil {
		return ""
	}
	return i.Metadata[MetadataBookingID]
}

// CreateIntentParams describes a new payment intent
type CreateIntentParams struct {
	Amount         int64 // minor units (cents)
	Currency       string
	BookingRef     string
	ReceiptEmail   string
	Description    string
	IdempotencyKey string
}

// Event is a verified webhook notification
type Event struct {
	ID     string
	Type   string
	Intent *Intent
}

// Gateway is the payment processor used by the orchestrator
type Gateway interface {
	CreateIntent(ctx context.Context, params CreateIntentParams) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
	ParseWebhook(payload []byte, signature string) (*Event, error)
}

// ToMinorUnits converts a decimal amount to cents
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromMinorUnits converts cents to a decimal amount
func FromMinorUnits(amount int64) float64 {
	return float64(amount) / 100
}
