package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Handler processes one fulfillment job
type Handler func(ctx context.Context, job FulfillmentJob) error

// Consumer runs fulfillment jobs from RabbitMQ
type Consumer struct {
	url      string
	queue    string
	prefetch int
	handle   Handler
	logger   *logrus.Logger
}

// NewConsumer creates a new Consumer
func NewConsumer(url, queue string, handle Handler, logger *logrus.Logger) *Consumer {
	if queue == "" {
		queue = DefaultFulfillmentQueue
	}
	return &Consumer{url: url, queue: queue, prefetch: 10, handle: handle, logger: logger}
}

// Run consumes until ctx is cancelled, reconnecting with exponential backoff
func (c *Consumer) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.WithError(err).WithField("retry_in", backoff.String()).Warn("Fulfillment consumer: broker dial failed")
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			c.logger.Info("Fulfillment consumer stopped")
			return
		}
		c.logger.WithError(err).Warn("Fulfillment consumer: loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		c.logger.WithError(err).Warn("Fulfillment consumer: set QoS failed")
	}
	if err := declare(ch, c.queue); err != nil {
		return err
	}

	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.logger.WithField("queue", c.queue).Info("Fulfillment consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.process(ctx, d.Body); err != nil {
				// Not requeued: the retry cron owns redelivery
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) process(ctx context.Context, body []byte) error {
	job, err := decodeJob(body)
	if err != nil {
		c.logger.WithError(err).Error("Fulfillment consumer: malformed job")
		return err
	}

	if err := c.handle(ctx, job); err != nil {
		c.logger.WithError(err).WithField("booking_id", job.BookingRef).Error("Fulfillment job failed")
		return err
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
