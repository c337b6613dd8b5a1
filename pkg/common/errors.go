package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine-readable error reasons shared across the domain packages
const (
	ReasonBadRequest         = "bad_request"
	ReasonValidation         = "validation_error"
	ReasonNotFound           = "not_found"
	ReasonForbidden          = "forbidden"
	ReasonUnauthorized       = "unauthorized"
	ReasonConflict           = "conflict"
	ReasonInternal           = "internal_error"
	ReasonServiceUnavailable = "service_unavailable"

	ReasonInsufficientFunds = "insufficient_funds"
	ReasonAlreadyAccepted   = "already_accepted"
	ReasonRequestNotFound   = "request_not_found"
	ReasonOTPExpired        = "otp_expired"
	ReasonInvalidOTP        = "invalid_otp"
	ReasonStateConflict     = "state_conflict"
	ReasonTooManyAttempts   = "too_many_attempts"
)

// AppError is an error carrying an HTTP status, a stable reason and a
// message that is safe to show to users. Err holds the underlying cause
// and is only ever logged.
type AppError struct {
	Code    int    `json:"code"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError with the same reason, so that
// sentinel domain errors match wrapped copies.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Reason != "" && t.Reason == e.Reason
}

// WithCause returns a copy of e wrapping cause
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Err = cause
	return &cp
}

// NewDomainError creates an AppError for a domain rule violation
func NewDomainError(code int, reason, message string) *AppError {
	return &AppError{Code: code, Reason: reason, Message: message}
}

// NewBadRequestError creates a 400 error
func NewBadRequestError(message string, err error) *AppError {
	return &AppError{Code: http.StatusBadRequest, Reason: ReasonBadRequest, Message: message, Err: err}
}

// NewValidationError creates a 400 error for input outside business bounds
func NewValidationError(message string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Reason: ReasonValidation, Message: message}
}

// NewNotFoundError creates a 404 error
func NewNotFoundError(message string, err error) *AppError {
	return &AppError{Code: http.StatusNotFound, Reason: ReasonNotFound, Message: message, Err: err}
}

// NewForbiddenError creates a 403 error
func NewForbiddenError(message string) *AppError {
	return &AppError{Code: http.StatusForbidden, Reason: ReasonForbidden, Message: message}
}

// NewUnauthorizedError creates a 401 error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: http.StatusUnauthorized, Reason: ReasonUnauthorized, Message: message}
}

// NewConflictError creates a 409 error
func NewConflictError(message string) *AppError {
	return &AppError{Code: http.StatusConflict, Reason: ReasonConflict, Message: message}
}

// NewInternalError creates a 500 error wrapping err
func NewInternalError(message string, err error) *AppError {
	return &AppError{Code: http.StatusInternalServerError, Reason: ReasonInternal, Message: message, Err: err}
}

// NewInternalServerError creates a 500 error without a cause
func NewInternalServerError(message string) *AppError {
	return &AppError{Code: http.StatusInternalServerError, Reason: ReasonInternal, Message: message}
}

// NewServiceUnavailableError creates a 503 error
func NewServiceUnavailableError(message string) *AppError {
	return &AppError{Code: http.StatusServiceUnavailable, Reason: ReasonServiceUnavailable, Message: message}
}

// AsAppError extracts an AppError from err's chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
