package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrCapacityExceeded
	ErrStaleTransition
	ErrIllegalTransition
)

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// CapacityExceeded signals that a slot window is full. Booking requests
// that hit it are rejected, never retried automatically.
func CapacityExceeded(window string) *AppError {
	return &AppError{
		Code:    ErrCapacityExceeded,
		Message: fmt.Sprintf("no capacity left in window %s", window),
	}
}

// StaleTransition signals that another process already moved the
// reservation out of the expected source state. Callers skip and
// continue; it is never surfaced to users.
func StaleTransition(id string) *AppError {
	return &AppError{
		Code:    ErrStaleTransition,
		Message: fmt.Sprintf("reservation %s already transitioned by another process", id),
	}
}

// IllegalTransition signals an edge outside the reservation state chart.
func IllegalTransition(from, to string) *AppError {
	return &AppError{
		Code:    ErrIllegalTransition,
		Message: fmt.Sprintf("illegal transition %s -> %s", from, to),
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

// Is reports whether err carries the given application error code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
