package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/seinetours/booking-backend/internal/middleware"
	"github.com/seinetours/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// BookingAPI is the booking lifecycle the handler needs
type BookingAPI interface {
	CreateBooking(ctx context.Context, req *models.CreateBookingRequest) (*models.Booking, error)
	GetBooking(ctx context.Context, ref string) (*models.Booking, error)
	ListBookings(ctx context.Context) ([]*models.Booking, error)
	MarkTravelCompleted(ctx context.Context, ref string, confirmPayment bool) (*models.TravelUpdateResult, error)
}

// BookingHandler serves /api/bookings
type BookingHandler struct {
	bookings BookingAPI
	logger   *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookings BookingAPI, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{bookings: bookings, logger: logger}
}

// CreateBooking handles POST /api/bookings
// @Summary Create a booking
// @Description Validates the checkout, holds the slots and returns the pending booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param request body models.CreateBookingRequest true "Checkout"
// @Success 201 {object} map[string]models.Booking
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	booking, err := h.bookings.CreateBooking(c.Request.Context(), &req)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}

// ListBookings handles GET /api/bookings (admin)
func (h *BookingHandler) ListBookings(c *gin.Context) {
	bookings, err := h.bookings.ListBookings(c.Request.Context())
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// GetBooking handles GET /api/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.bookings.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// CompleteTravel handles PATCH /api/bookings/:id, called when an operator
// scans the QR code at boarding. The body is optional.
func (h *BookingHandler) CompleteTravel(c *gin.Context) {
	var req models.UpdateTravelStatusRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	result, err := h.bookings.MarkTravelCompleted(c.Request.Context(), c.Param("id"), req.ConfirmPayment)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	if result.Changed {
		fields := logrus.Fields{
			"booking_id":      c.Param("id"),
			"confirm_payment": req.ConfirmPayment,
		}
		if admin, ok := middleware.GetAdminContext(c); ok {
			fields["admin_id"] = admin.AdminID
		}
		h.logger.WithFields(fields).Info("Travel marked completed")
	}
	c.JSON(http.StatusOK, result)
}
