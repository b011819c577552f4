// Package errors provides the error kinds every operation boundary translates
// into. Handlers render them with the response package.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// APIError is a classified error with an HTTP status.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Details    any    `json:"details,omitempty"`

	cause error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap exposes the underlying cause, if any.
func (e *APIError) Unwrap() error {
	return e.cause
}

// Is matches on Code so that copies made with WithMessage or WithCause still
// satisfy errors.Is against the sentinels below.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy of the error with a custom message.
func (e *APIError) WithMessage(message string) *APIError {
	return &APIError{
		Code:       e.Code,
		Message:    message,
		StatusCode: e.StatusCode,
		Details:    e.Details,
		cause:      e.cause,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *APIError) WithDetails(details any) *APIError {
	return &APIError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Details:    details,
		cause:      e.cause,
	}
}

// WithCause returns a copy of the error wrapping cause. The cause is never
// serialized.
func (e *APIError) WithCause(cause error) *APIError {
	return &APIError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Details:    e.Details,
		cause:      cause,
	}
}

var (
	// ErrValidation is returned when input violates a field constraint.
	ErrValidation = &APIError{
		Code:       "validation_error",
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
	}

	// ErrNotFound is returned when a referenced user, post or comment is absent.
	ErrNotFound = &APIError{
		Code:       "not_found",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	// ErrUnauthenticated is returned when no identity was presented or the
	// credentials did not match.
	ErrUnauthenticated = &APIError{
		Code:       "unauthenticated",
		Message:    "Please login to continue",
		StatusCode: http.StatusUnauthorized,
	}

	// ErrInvalidToken is returned when a presented token fails verification.
	ErrInvalidToken = &APIError{
		Code:       "invalid_token",
		Message:    "Session is invalid, please login again",
		StatusCode: http.StatusUnauthorized,
	}

	// ErrConflict is returned when a unique email or username is taken.
	ErrConflict = &APIError{
		Code:       "conflict",
		Message:    "Resource already exists",
		StatusCode: http.StatusConflict,
	}

	// ErrInvalidOperation is returned for requests that are well formed but
	// not allowed, such as following yourself.
	ErrInvalidOperation = &APIError{
		Code:       "invalid_operation",
		Message:    "Operation not allowed",
		StatusCode: http.StatusBadRequest,
	}

	// ErrForbidden is returned when the actor does not own the resource.
	ErrForbidden = &APIError{
		Code:       "forbidden",
		Message:    "You don't have permission to perform this action",
		StatusCode: http.StatusForbidden,
	}

	// ErrStoreUnavailable is returned when the data store fails.
	ErrStoreUnavailable = &APIError{
		Code:       "store_unavailable",
		Message:    "Data store unavailable",
		StatusCode: http.StatusInternalServerError,
	}

	// ErrInternal is returned for unexpected failures.
	ErrInternal = &APIError{
		Code:       "internal_error",
		Message:    "An internal error occurred",
		StatusCode: http.StatusInternalServerError,
	}
)

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, message string) *APIError {
	return &APIError{
		Code:       ErrValidation.Code,
		Message:    fmt.Sprintf("Validation failed: %s", message),
		StatusCode: http.StatusBadRequest,
		Details:    map[string]string{field: message},
	}
}

// NewValidationErrors creates a validation error carrying several field errors.
func NewValidationErrors(fields map[string]string) *APIError {
	return &APIError{
		Code:       ErrValidation.Code,
		Message:    "One or more fields failed validation",
		StatusCode: http.StatusBadRequest,
		Details:    fields,
	}
}

// NewNotFoundError creates a not found error naming the resource.
func NewNotFoundError(resource string) *APIError {
	return ErrNotFound.WithMessage(fmt.Sprintf("%s not found", resource))
}

// StoreUnavailable wraps a data store failure.
func StoreUnavailable(op string, cause error) *APIError {
	return ErrStoreUnavailable.WithCause(fmt.Errorf("%s: %w", op, cause))
}

// AsAPIError converts err to an APIError, falling back to ErrInternal.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}
	return ErrInternal.WithCause(err)
}
