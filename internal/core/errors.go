package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeValidation       = "validation_error"
	ErrCodeIdentityConflict = "identity_conflict"
	ErrCodeUnauthenticated  = "unauthenticated"
	ErrCodePersistence      = "persistence_error"
	ErrCodeAlreadyBound     = "already_bound"
	ErrCodeNotConnected     = "not_connected"
	ErrCodeInternal         = "internal_error"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrIdentityConflict = errors.New("username unavailable")
	ErrUnauthenticated  = errors.New("join before sending messages")
	ErrPersistence      = errors.New("storage unavailable")
	ErrAlreadyBound     = errors.New("connection already joined")
	// ErrNotConnected is returned when binding a connection that was already torn down.
	ErrNotConnected = errors.New("connection closed")

	// errIdentityHeld means the user is bound to another live connection.
	errIdentityHeld = errors.New("identity held by a live connection")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// ToCoreError maps an error from the core into its client-facing form.
// Persistence failures carry a generic message; store details stay in the logs.
func ToCoreError(err error) *CoreError {
	var ce *CoreError
	switch {
	case errors.As(err, &ce):
		return ce
	case errors.Is(err, ErrValidation):
		return coreError(ErrCodeValidation, err.Error())
	case errors.Is(err, ErrIdentityConflict):
		return coreError(ErrCodeIdentityConflict, err.Error())
	case errors.Is(err, ErrUnauthenticated):
		return coreError(ErrCodeUnauthenticated, ErrUnauthenticated.Error())
	case errors.Is(err, ErrPersistence):
		return coreError(ErrCodePersistence, ErrPersistence.Error())
	case errors.Is(err, ErrAlreadyBound):
		return coreError(ErrCodeAlreadyBound, ErrAlreadyBound.Error())
	case errors.Is(err, ErrNotConnected):
		return coreError(ErrCodeNotConnected, ErrNotConnected.Error())
	default:
		return coreError(ErrCodeInternal, "internal error")
	}
}
