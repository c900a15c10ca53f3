package validator

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
)

var (
	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")

	// ErrInvalidFormat indicates phone number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits and an optional leading +")

	// ErrInvalidLength indicates phone number has too few or too many digits
	ErrInvalidLength = errors.New("phone number must have between 7 and 15 digits")

	// ErrEmptyEmail indicates email is empty
	ErrEmptyEmail = errors.New("email address cannot be empty")

	// ErrInvalidEmail indicates email is not a plain address
	ErrInvalidEmail = errors.New("email address is not valid")
)

// phoneRegex matches an optional leading + followed by digits
var phoneRegex = regexp.MustCompile(`^\+?\d+$`)

// ContactValidator checks the email and phone an OTP is sent to
type ContactValidator struct {
	minDigits int
	maxDigits int
}

// NewContactValidator creates a validator accepting E.164 length phone numbers
func NewContactValidator() *ContactValidator {
	return &ContactValidator{minDigits: 7, maxDigits: 15}
}

// SanitizePhone removes common separators from a phone number
func (v *ContactValidator) SanitizePhone(phone string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
	return replacer.Replace(strings.TrimSpace(phone))
}

// ValidatePhone validates a phone number.
// Accepts formats such as 0771234567, 077 123 4567, +94 77 123 4567.
// Returns the sanitized number.
func (v *ContactValidator) ValidatePhone(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", ErrEmptyPhone
	}

	sanitized := v.SanitizePhone(phone)
	if !phoneRegex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	digits := len(strings.TrimPrefix(sanitized, "+"))
	if digits < v.minDigits || digits > v.maxDigits {
		return "", ErrInvalidLength
	}

	return sanitized, nil
}

// ValidateEmail validates a bare email address (no display name)
func (v *ContactValidator) ValidateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrEmptyEmail
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return "", ErrInvalidEmail
	}

	at := strings.LastIndex(email, "@")
	if at <= 0 || !strings.Contains(email[at+1:], ".") {
		return "", ErrInvalidEmail
	}

	return email, nil
}

// Validate checks both contact fields and returns the first problem found
func (v *ContactValidator) Validate(email, phone string) error {
	if _, err := v.ValidateEmail(email); err != nil {
		return err
	}
	if _, err := v.ValidatePhone(phone); err != nil {
		return err
	}
	return nil
}

// IsValidPhone is a convenience method that returns true if phone is valid
func (v *ContactValidator) IsValidPhone(phone string) bool {
	_, err := v.ValidatePhone(phone)
	return err == nil
}
