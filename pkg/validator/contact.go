package validator

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

var (
	// ErrInvalidEmail indicates a malformed email address
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidDate indicates a travel date that is not a real DD-MM-YYYY calendar date
	ErrInvalidDate = errors.New("travel date must be a valid date in DD-MM-YYYY format")

	// ErrDateInPast indicates a travel date before today
	ErrDateInPast = errors.New("travel date cannot be in the past")
)

// dateLayout is the day-month-year format used by the checkout form
const dateLayout = "02-01-2006"

// ValidateEmail returns the trimmed address or ErrInvalidEmail
func ValidateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// ParseTravelDate parses a DD-MM-YYYY date. Impossible dates such as
// 31-02-2025 are rejected, as are dates before today in loc.
func ParseTravelDate(value string, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	date, err := time.ParseInLocation(dateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}

	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	if date.Before(today) {
		return time.Time{}, ErrDateInPast
	}
	return date, nil
}
