package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/seinetours/booking-backend/internal/models"
	"github.com/seinetours/booking-backend/pkg/mailer"
	"github.com/seinetours/booking-backend/pkg/tickets"
	"github.com/sirupsen/logrus"
)

const (
	retryBatch = 50
	// Deliveries pending longer than this are considered lost (e.g. process restart)
	stalePendingAfter = 10 * time.Minute
)

// JobPublisher enqueues fulfillment jobs for an out-of-process worker
type JobPublisher interface {
	PublishFulfillment(ctx context.Context, bookingRef, reason string) error
}

// FulfillmentService renders e-tickets and emails them to the customer
type FulfillmentService struct {
	bookings    BookingStore
	renderer    *tickets.Renderer
	mailer      mailer.Mailer
	publisher   JobPublisher
	maxAttempts int
	logger      *logrus.Logger
	now         func() time.Time
}

// NewFulfillmentService creates a new FulfillmentService. With a nil
// publisher, deliveries run in the calling goroutine.
func NewFulfillmentService(
	bookings BookingStore,
	renderer *tickets.Renderer,
	m mailer.Mailer,
	publisher JobPublisher,
	maxAttempts int,
	logger *logrus.Logger,
) *FulfillmentService {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &FulfillmentService{
		bookings:    bookings,
		renderer:    renderer,
		mailer:      m,
		publisher:   publisher,
		maxAttempts: maxAttempts,
		logger:      logger,
		now:         time.Now,
	}
}

// Dispatch queues or runs the delivery for a paid booking and reports the
// resulting fulfillment status. Failures are recorded on the booking, never returned.
func (s *FulfillmentService) Dispatch(ctx context.Context, bookingRef, reason string) models.FulfillmentStatus {
	if s.publisher != nil {
		err := s.publisher.PublishFulfillment(ctx, bookingRef, reason)
		if err == nil {
			return models.FulfillmentPending
		}
		s.logger.WithError(err).WithField("booking_id", bookingRef).Warn("Queue unavailable, fulfilling inline")
	}

	if err := s.Fulfill(ctx, bookingRef); err != nil {
		return models.FulfillmentFailed
	}
	return models.FulfillmentSent
}

// Fulfill renders one ticket per passenger and sends them in a single email.
// A booking whose tickets were already sent is left alone.
func (s *FulfillmentService) Fulfill(ctx context.Context, bookingRef string) error {
	booking, err := s.bookings.GetByRef(ctx, bookingRef)
	if err != nil {
		return err
	}
	if !booking.IsPaid() {
		return models.ErrPaymentNotCompleted
	}
	if booking.FulfillmentStatus == models.FulfillmentSent {
		return nil
	}

	log := s.logger.WithFields(logrus.Fields{
		"booking_id": booking.BookingRef,
		"attempt":    booking.FulfillmentAttempts + 1,
	})

	rendered, err := s.renderer.RenderAll(ticketData(booking))
	if err == nil {
		err = s.send(ctx, booking, rendered)
	}
	if err != nil {
		log.WithError(err).Error("Ticket delivery failed")
		if markErr := s.bookings.MarkFulfillmentFailed(ctx, booking.BookingRef, err.Error()); markErr != nil {
			log.WithError(markErr).Error("Failed to record ticket delivery failure")
		}
		return err
	}

	if err := s.bookings.MarkFulfillmentSent(ctx, booking.BookingRef); err != nil {
		// Mail is out; a retry would resend it, so only log
		log.WithError(err).Error("Failed to record ticket delivery")
	}
	log.WithField("tickets", len(rendered)).Info("Tickets sent")
	return nil
}

// RetryPending re-dispatches failed and stuck deliveries under the attempt cap
func (s *FulfillmentService) RetryPending(ctx context.Context) (int, error) {
	refs, err := s.bookings.ListPendingFulfillments(ctx, s.maxAttempts, s.now().Add(-stalePendingAfter), retryBatch)
	if err != nil {
		return 0, err
	}

	for _, ref := range refs {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		s.Dispatch(ctx, ref, "retry")
	}
	return len(refs), nil
}

// ResendTickets regenerates and emails the tickets of a paid booking. With a
// passenger index only that ticket is sent. It returns the number of tickets sent.
func (s *FulfillmentService) ResendTickets(ctx context.Context, bookingRef string, passengerIndex *int) (int, error) {
	booking, err := s.bookings.GetByRef(ctx, strings.TrimSpace(bookingRef))
	if err != nil {
		return 0, err
	}
	if !booking.IsPaid() {
		return 0, models.ErrPaymentNotCompleted
	}

	data := ticketData(booking)
	var rendered []tickets.Ticket
	if passengerIndex != nil {
		t, err := s.renderer.RenderOne(data, *passengerIndex)
		if err != nil {
			return 0, models.NewValidationError("passengerIndex", "%s", err.Error())
		}
		rendered = []tickets.Ticket{*t}
	} else {
		if rendered, err = s.renderer.RenderAll(data); err != nil {
			return 0, err
		}
	}

	if err := s.send(ctx, booking, rendered); err != nil {
		return 0, err
	}
	if err := s.bookings.MarkFulfillmentSent(ctx, booking.BookingRef); err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.BookingRef).Error("Failed to record ticket resend")
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.BookingRef,
		"tickets":    len(rendered),
	}).Info("Tickets resent")
	return len(rendered), nil
}

func (s *FulfillmentService) send(ctx context.Context, booking *models.Booking, rendered []tickets.Ticket) error {
	attachments := make([]mailer.Attachment, 0, len(rendered))
	for _, t := range rendered {
		attachments = append(attachments, mailer.Attachment{
			Name:        t.Name,
			ContentType: "application/pdf",
			Data:        t.PDF,
		})
	}

	subject, body := ticketEmail(booking)
	return s.mailer.Send(ctx, mailer.Message{
		To:          booking.CustomerEmail,
		Subject:     subject,
		HTML:        body,
		Attachments: attachments,
	})
}

func packageTitle(booking *models.Booking) string {
	if booking.Package == nil {
		return "Paris excursion"
	}
	return booking.Package.Title.Get(booking.Locale)
}

func ticketData(booking *models.Booking) tickets.Data {
	data := tickets.Data{
		BookingRef:   booking.BookingRef,
		CustomerName: booking.CustomerName,
		PackageTitle: packageTitle(booking),
		TravelDate:   booking.TravelDate,
		Adults:       booking.Adults,
		Children:     booking.Children,
		TotalAmount:  booking.TotalAmount,
		Currency:     booking.Currency,
		Locale:       booking.Locale,
	}
	if booking.Package != nil {
		data.Location = booking.Package.Location
	}
	return data
}

func ticketEmail(booking *models.Booking) (string, string) {
	title := html.EscapeString(packageTitle(booking))
	name := html.EscapeString(booking.CustomerName)
	date := booking.TravelDate.Format("02/01/2006")
	total := fmt.Sprintf("%.2f %s", booking.TotalAmount, strings.ToUpper(booking.Currency))

	if booking.Locale == "fr" {
		return fmt.Sprintf("Vos billets : %s (réservation %s)", packageTitle(booking), booking.BookingRef),
			fmt.Sprintf(`<p>Bonjour %s,</p>
<p>Merci pour votre réservation <strong>%s</strong> pour <strong>%s</strong> le %s.</p>
<p>Vous trouverez en pièce jointe un billet par passager (%d adulte(s), %d enfant(s)). Montant réglé : %s.</p>
<p>Présentez le QR code de chaque billet à l'embarquement.</p>`,
				name, booking.BookingRef, title, date, booking.Adults, booking.Children, total)
	}

	return fmt.Sprintf("Your tickets: %s (booking %s)", packageTitle(booking), booking.BookingRef),
		fmt.Sprintf(`<p>Hello %s,</p>
<p>Thank you for booking <strong>%s</strong> for <strong>%s</strong> on %s.</p>
<p>One ticket per passenger is attached (%d adult(s), %d child(ren)). Amount paid: %s.</p>
<p>Show the QR code on each ticket when boarding.</p>`,
			name, booking.BookingRef, title, date, booking.Adults, booking.Children, total)
}
