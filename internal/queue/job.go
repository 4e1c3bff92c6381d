// Package queue moves ticket fulfillment off the request path through RabbitMQ.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultFulfillmentQueue is the durable queue carrying fulfillment jobs
const DefaultFulfillmentQueue = "tickets.fulfillment"

// FulfillmentJob asks a worker to render and email the tickets of a paid booking
type FulfillmentJob struct {
	BookingRef string    `json:"bookingRef"`
	Reason     string    `json:"reason,omitempty"` // confirm, webhook, retry
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

func decodeJob(body []byte) (FulfillmentJob, error) {
	var job FulfillmentJob
	if err := json.Unmarshal(body, &job); err != nil {
		return job, fmt.Errorf("unmarshal: %w", err)
	}
	job.BookingRef = strings.TrimSpace(job.BookingRef)
	if job.BookingRef == "" {
		return job, errors.New("job without booking reference")
	}
	return job, nil
}
