package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/seinetours/booking-backend/internal/models"
	"github.com/seinetours/booking-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// MessageResponse is returned by endpoints with nothing else to report
type MessageResponse struct {
	Message string `json:"message"`
}

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{models.ErrInvalidID, http.StatusBadRequest, "INVALID_ID"},
	{models.ErrPackageNotFound, http.StatusNotFound, "PACKAGE_NOT_FOUND"},
	{models.ErrBookingNotFound, http.StatusNotFound, "BOOKING_NOT_FOUND"},
	{models.ErrAdminNotFound, http.StatusNotFound, "ADMIN_NOT_FOUND"},

	{models.ErrInsufficientAvailability, http.StatusBadRequest, "INSUFFICIENT_AVAILABILITY"},
	{models.ErrAmountMismatch, http.StatusBadRequest, "AMOUNT_MISMATCH"},
	{models.ErrBookingNotPending, http.StatusConflict, "BOOKING_NOT_PENDING"},
	{models.ErrPaymentNotSucceeded, http.StatusBadRequest, "PAYMENT_NOT_SUCCEEDED"},
	{models.ErrPaymentAlreadyConfirmed, http.StatusConflict, "PAYMENT_ALREADY_CONFIRMED"},
	{models.ErrPaymentNotCompleted, http.StatusConflict, "PAYMENT_NOT_COMPLETED"},
	{models.ErrPaymentVerification, http.StatusBadRequest, "PAYMENT_VERIFICATION_FAILED"},
	{models.ErrInvalidWebhookSignature, http.StatusBadRequest, "INVALID_SIGNATURE"},
	{models.ErrPaymentProvider, http.StatusBadGateway, "PAYMENT_PROVIDER_ERROR"},

	{models.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{models.ErrInvalidRefreshToken, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN"},
	{models.ErrAccountInactive, http.StatusForbidden, "ACCOUNT_INACTIVE"},
	{models.ErrRegistrationClosed, http.StatusForbidden, "REGISTRATION_CLOSED"},
	{models.ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN"},
	{models.ErrTooManyAttempts, http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS"},

	{models.ErrSeedDisabled, http.StatusForbidden, "SEED_DISABLED"},
}

// RespondError writes the JSON error body for err. Unknown errors become a
// generic 500 and the cause is only logged.
func RespondError(c *gin.Context, logger *logrus.Logger, err error) {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: validationErr.Error(),
			Code:  "VALIDATION_ERROR",
			Field: validationErr.Field,
		})
		return
	}

	var rateErr *services.RateLimitError
	if errors.As(err, &rateErr) {
		seconds := int(math.Ceil(rateErr.RetryAfter.Seconds()))
		c.Header("Retry-After", strconv.Itoa(seconds))
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			message := err.Error()
			if m.status >= http.StatusInternalServerError {
				// Upstream detail stays in the log
				logger.WithError(err).WithField("path", c.Request.URL.Path).Error("Upstream failure")
				message = m.err.Error()
			}
			c.JSON(m.status, ErrorResponse{Error: message, Code: m.code})
			return
		}
	}

	logger.WithError(err).WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
	}).Error("Unhandled error")
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: "Internal server error",
		Code:  "INTERNAL_ERROR",
	})
}

// respondBindError reports a malformed request body
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: "Invalid request body: " + err.Error(),
		Code:  "INVALID_REQUEST",
	})
}
