package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher sends fulfillment jobs to RabbitMQ
type Publisher struct {
	url    string
	queue  string
	logger *logrus.Logger
}

// NewPublisher creates a new Publisher
func NewPublisher(url, queue string, logger *logrus.Logger) *Publisher {
	if queue == "" {
		queue = DefaultFulfillmentQueue
	}
	return &Publisher{url: url, queue: queue, logger: logger}
}

// PublishFulfillment enqueues a persistent job for bookingRef. A connection
// is opened per publish; confirmations are infrequent.
func (p *Publisher) PublishFulfillment(ctx context.Context, bookingRef, reason string) error {
	body, err := json.Marshal(FulfillmentJob{
		BookingRef: bookingRef,
		Reason:     reason,
		EnqueuedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal fulfillment job: %w", err)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel open failed: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declare(ch, p.queue); err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    bookingRef,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq publish failed: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"booking_id": bookingRef,
		"queue":      p.queue,
		"reason":     reason,
	}).Debug("Fulfillment job published")
	return nil
}

func declare(ch *amqp.Channel, queue string) error {
	// durable, not auto-deleted, not exclusive
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare failed: %w", err)
	}
	return nil
}
