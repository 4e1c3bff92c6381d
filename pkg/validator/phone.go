package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")

	// ErrInvalidFormat indicates phone number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits and an optional leading +")

	// ErrInvalidLength indicates the number is outside the E.164 length range
	ErrInvalidLength = errors.New("phone number must have between 8 and 15 digits")

	// ErrMissingCountryCode indicates a national number that is not French
	ErrMissingCountryCode = errors.New("phone number must include a country code, e.g. +44 or +1")
)

// digitsRegex matches digits only
var digitsRegex = regexp.MustCompile(`^\d+$`)

// PhoneValidator normalizes customer phone numbers to E.164.
// National French numbers (06 12 34 56 78) are accepted without country code.
type PhoneValidator struct {
	defaultCountryCode string
}

// NewPhoneValidator creates a new phone validator instance
func NewPhoneValidator() *PhoneValidator {
	return &PhoneValidator{defaultCountryCode: "33"}
}

// Validate returns the number in E.164 form (+33612345678)
func (v *PhoneValidator) Validate(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", ErrEmptyPhone
	}

	sanitized := v.Sanitize(phone)

	international := strings.HasPrefix(sanitized, "+")
	digits := strings.TrimPrefix(sanitized, "+")
	if strings.HasPrefix(digits, "00") {
		international = true
		digits = digits[2:]
	}

	if !digitsRegex.MatchString(digits) {
		return "", ErrInvalidFormat
	}

	if !international {
		// French national format: 0 followed by 9 digits
		if len(digits) == 10 && digits[0] == '0' {
			digits = v.defaultCountryCode + digits[1:]
		} else {
			return "", ErrMissingCountryCode
		}
	}

	if len(digits) < 8 || len(digits) > 15 {
		return "", ErrInvalidLength
	}
	if digits[0] == '0' {
		return "", ErrInvalidFormat
	}

	return "+" + digits, nil
}

// Sanitize removes common separators from a phone number
func (v *PhoneValidator) Sanitize(phone string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "", "\u00a0", "").Replace(strings.TrimSpace(phone))
}

// IsValid is a convenience method that returns true if phone is valid
func (v *PhoneValidator) IsValid(phone string) bool {
	_, err := v.Validate(phone)
	return err == nil
}
