package model

import (
	"errors"
	"fmt"
)

// Errors shared by the linking and achievement core. Each one describes a
// state fact, so none of them are retried by the services.
var (
	ErrNotFound          = errors.New("not found")
	ErrExpired           = errors.New("access code has expired")
	ErrAlreadyConsumed   = errors.New("access code has already been used")
	ErrDuplicateLink     = errors.New("guardian is already linked to this player")
	ErrInvalidTransition = errors.New("achievement has already been reviewed")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrValidationFailed  = errors.New("validation failed")

	// Storage-level errors
	ErrCodeTaken     = errors.New("access code already exists")
	ErrUsernameTaken = errors.New("username already exists")
)

// ValidationError describes which field failed validation and why.
// It matches ErrValidationFailed with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// Is reports ErrValidationFailed as the sentinel for all validation errors
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// NewValidationError creates a ValidationError for the given field
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
