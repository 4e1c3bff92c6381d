package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by repositories, services and handlers.
var (
	ErrInvalidID       = errors.New("invalid identifier")
	ErrPackageNotFound = errors.New("package not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrAdminNotFound   = errors.New("admin user not found")

	ErrInsufficientAvailability = errors.New("not enough availability")
	ErrAmountMismatch           = errors.New("total amount does not match package pricing")
	ErrBookingNotPending        = errors.New("booking is no longer awaiting payment")
	ErrPaymentNotSucceeded      = errors.New("payment has not succeeded")
	ErrPaymentAlreadyConfirmed  = errors.New("booking already paid with a different transaction")
	ErrPaymentNotCompleted      = errors.New("booking has no completed payment")
	ErrPaymentVerification      = errors.New("payment does not match booking")
	ErrInvalidWebhookSignature  = errors.New("invalid webhook signature")
	ErrPaymentProvider          = errors.New("payment provider unavailable")

	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountInactive     = errors.New("account is inactive")
	ErrTooManyAttempts     = errors.New("too many login attempts, try again later")
	ErrRegistrationClosed  = errors.New("admin registration requires an authenticated admin")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")

	ErrSeedDisabled = errors.New("seeding is disabled in production")
)

// ValidationError reports a rejected input field
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// NewValidationError builds a ValidationError for field
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
