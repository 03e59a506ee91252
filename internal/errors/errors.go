package errors

import "fmt"

// ErrorCode represents a Glean error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"   // 400
	ErrNotFound         ErrorCode = "NOT_FOUND"         // 404
	ErrStoreUnavailable ErrorCode = "STORE_UNAVAILABLE" // 503
	ErrInternal         ErrorCode = "INTERNAL"          // 500
)

// GleanError represents a structured error with code, status, and details.
type GleanError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *GleanError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying driver or I/O error, if any.
func (e *GleanError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *GleanError {
	return &GleanError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing setting or record.
func NewNotFound(identifier string) *GleanError {
	return &GleanError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewStoreUnavailable creates a 503 error when the persistent store cannot
// be opened, read or written. op names the failed operation (e.g. "insert").
func NewStoreUnavailable(op string, err error) *GleanError {
	msg := op + " failed"
	if err != nil {
		msg = fmt.Sprintf("%s failed: %v", op, err)
	}
	return &GleanError{
		Code:    ErrStoreUnavailable,
		Status:  503,
		Message: msg,
		Details: map[string]any{"op": op},
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *GleanError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &GleanError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if an error is a GleanError with the given code.
func Is(err error, code ErrorCode) bool {
	if gErr, ok := err.(*GleanError); ok {
		return gErr.Code == code
	}
	return false
}
