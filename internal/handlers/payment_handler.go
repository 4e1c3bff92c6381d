package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/seinetours/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// Stripe limits webhook payloads well below this
const maxWebhookBytes = 64 << 10

// PaymentAPI is the payment orchestration the handler needs
type PaymentAPI interface {
	CreatePaymentIntent(ctx context.Context, req *models.CreatePaymentIntentRequest) (*models.PaymentIntentResponse, error)
	ConfirmPayment(ctx context.Context, req *models.ConfirmPaymentRequest) (*models.ConfirmPaymentResult, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// TicketResender regenerates and emails tickets
type TicketResender interface {
	ResendTickets(ctx context.Context, bookingRef string, passengerIndex *int) (int, error)
}

// PaymentHandler serves the payment and ticket delivery endpoints
type PaymentHandler struct {
	payments PaymentAPI
	tickets  TicketResender
	logger   *logrus.Logger
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments PaymentAPI, tickets TicketResender, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, tickets: tickets, logger: logger}
}

// CreatePaymentIntent handles POST /api/create-payment-intent
func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	var req models.CreatePaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.payments.CreatePaymentIntent(c.Request.Context(), &req)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ConfirmPayment handles POST /api/confirm-payment and its legacy alias
// POST /api/confirmBooking. Repeating the call with the same transaction
// returns the stored outcome.
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	var req models.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.payments.ConfirmPayment(c.Request.Context(), &req)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Webhook handles POST /api/payment-webhook. The raw body is needed for
// signature verification.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Failed to read body", Code: "READ_ERROR"})
		return
	}

	if err := h.payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// ResendEmail handles POST /api/resend-email (admin)
func (h *PaymentHandler) ResendEmail(c *gin.Context) {
	var req models.ResendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	sent, err := h.tickets.ResendTickets(c.Request.Context(), req.BookingID, req.PassengerIndex)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Tickets sent",
		"tickets": sent,
	})
}
