package entity

import (
	"errors"
	"fmt"
)

var (
	// Lookup errors
	ErrNotFound       = errors.New("not found")
	ErrEventNotFound  = fmt.Errorf("event %w", ErrNotFound)
	ErrInviteNotFound = fmt.Errorf("invite %w", ErrNotFound)
	ErrUserNotFound   = fmt.Errorf("user %w", ErrNotFound)

	// RSVP errors
	ErrEventExpired = errors.New("this event has already taken place")

	// Auth errors
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")

	// General errors
	ErrValidation   = errors.New("validation failed")
	ErrInvalidInput = errors.New("invalid input")
)

// Validation codes reported to clients.
const (
	CodeInvalidResponse         = "invalid_response"
	CodeNoGuestsAllowed         = "no_guests_allowed"
	CodeGuestCountRequired      = "guest_count_required"
	CodeGuestLimitExceeded      = "guest_limit_exceeded"
	CodeGuestEmailCountMismatch = "guest_email_count_mismatch"
	CodeInvalidGuestEmail       = "invalid_guest_email"
	CodeDuplicateGuestEmail     = "duplicate_guest_email"
	CodeInvalidInput            = "invalid_input"
)

// ValidationError is a client-correctable input error.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func NewValidationError(code, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ValidationCode returns the code of a wrapped ValidationError, or "".
func ValidationCode(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}
