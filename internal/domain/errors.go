package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals a rejected discovery request (bad or missing input).
	ErrValidation = errors.New("validation failed")
	// ErrUpstream signals a failed read against the backing store.
	ErrUpstream = errors.New("upstream unavailable")
	// ErrUnauthorized signals a missing or invalid caller identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
)

// ValidationError wraps ErrValidation with the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a field-level validation error.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Upstream marks err as an upstream read failure, keeping the chain intact.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrUpstream, op, err)
}
