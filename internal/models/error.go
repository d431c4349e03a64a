package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Administration errors
	ErrTokenMismatch      = errors.New("csrf token mismatch")
	ErrPrivilegeViolation = errors.New("target is not below the acting user's level")
	ErrSelfDeletion       = errors.New("users cannot delete their own account")
	ErrInvalidTarget      = errors.New("invalid target user")
	ErrAccountBanned      = errors.New("account is banned")
)

// ValidationError reports field-level problems with a submitted form.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// NewValidationError returns a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}
