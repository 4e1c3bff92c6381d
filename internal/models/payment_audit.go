package models

import (
	"database/sql/driver"
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
)

// PaymentEventType represents the type of payment event
type PaymentEventType string

const (
	PaymentEventIntentCreated          PaymentEventType = "intent_created"
	PaymentEventIntentReused           PaymentEventType = "intent_reused"
	PaymentEventWebhookReceived        PaymentEventType = "webhook_received"
	PaymentEventSuccess                PaymentEventType = "payment_success"
	PaymentEventFailed                 PaymentEventType = "payment_failed"
	PaymentEventDeclined               PaymentEventType = "payment_declined"
	PaymentEventDuplicateConfirm       PaymentEventType = "duplicate_confirm"
	PaymentEventReconciliationMismatch PaymentEventType = "reconciliation_mismatch"
	PaymentEventHoldReleased           PaymentEventType = "hold_released"
	PaymentEventTravelPaymentConfirmed PaymentEventType = "payment_confirmed_at_boarding"
)

// PaymentEventSource identifies where the event originated
type PaymentEventSource string

const (
	PaymentSourceClient  PaymentEventSource = "client"
	PaymentSourceWebhook PaymentEventSource = "stripe_webhook"
	PaymentSourceSystem  PaymentEventSource = "system"
	PaymentSourceAdmin   PaymentEventSource = "admin"
)

// JSONB is a free-form JSON object column
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(src interface{}) error {
	return scanJSON(src, j, "JSONB")
}

// PaymentAudit is an append-only record of a payment event
type PaymentAudit struct {
	ID              uuid.UUID          `json:"id" db:"id"`
	BookingRef      string             `json:"bookingId" db:"booking_ref"`
	PaymentIntentID *string            `json:"paymentIntentId,omitempty" db:"payment_intent_id"`
	EventType       PaymentEventType   `json:"eventType" db:"event_type"`
	EventSource     PaymentEventSource `json:"eventSource" db:"event_source"`

	// Amount tracking, in currency units
	ExpectedAmount *float64 `json:"expectedAmount,omitempty" db:"expected_amount"`
	ReceivedAmount *float64 `json:"receivedAmount,omitempty" db:"received_amount"`
	AmountsMatch   *bool    `json:"amountsMatch,omitempty" db:"amounts_match"`

	ProcessorStatus *string   `json:"processorStatus,omitempty" db:"processor_status"`
	ErrorMessage    *string   `json:"errorMessage,omitempty" db:"error_message"`
	Payload         JSONB     `json:"payload,omitempty" db:"payload"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}

// NewPaymentAudit creates a new payment audit entry with required fields
func NewPaymentAudit(bookingRef string, eventType PaymentEventType, source PaymentEventSource) *PaymentAudit {
	return &PaymentAudit{
		ID:          uuid.New(),
		BookingRef:  bookingRef,
		EventType:   eventType,
		EventSource: source,
		CreatedAt:   time.Now(),
	}
}

// SetIntent sets the processor payment intent id
func (pa *PaymentAudit) SetIntent(intentID string) *PaymentAudit {
	if intentID != "" {
		pa.PaymentIntentID = &intentID
	}
	return pa
}

// SetAmounts records both amounts and returns whether they match to the cent
func (pa *PaymentAudit) SetAmounts(expected, received float64) bool {
	pa.ExpectedAmount = &expected
	pa.ReceivedAmount = &received
	match := math.Abs(expected-received) < 0.005
	pa.AmountsMatch = &match
	return match
}

// SetProcessorStatus sets the status reported by the processor
func (pa *PaymentAudit) SetProcessorStatus(status string) *PaymentAudit {
	pa.ProcessorStatus = &status
	return pa
}

// SetError sets error information
func (pa *PaymentAudit) SetError(err error) *PaymentAudit {
	if err != nil {
		msg := err.Error()
		pa.ErrorMessage = &msg
	}
	return pa
}

// SetPayload stores extra event details
func (pa *PaymentAudit) SetPayload(payload map[string]interface{}) *PaymentAudit {
	pa.Payload = JSONB(payload)
	return pa
}
