package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for the cart engine's error taxonomy.
// Use errors.Is() to check against these.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrUpstreamError  = errors.New("upstream error")

	ErrAuthRequired = errors.New("authentication required")
	ErrEmptyCart    = errors.New("cart is empty")
	ErrConflict     = errors.New("conflict")
	ErrNetwork      = errors.New("network error")
	ErrPersistence  = errors.New("persistence error")
)

// APIError represents a structured error for API responses.
// Implements error interface and supports unwrapping.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"` // HTTP status, not serialized
	Err        error  `json:"-"` // Wrapped error, not serialized
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a 404 error for missing resources.
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: 404,
		Err:        ErrNotFound,
	}
}

// NewValidationError creates a 400 error for invalid input.
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:       "VALIDATION_ERROR",
		Message:    fmt.Sprintf("invalid %s: %s", field, reason),
		StatusCode: 400,
		Err:        ErrInvalidRequest,
	}
}

// NewUnauthorizedError creates a 401 error for rejected credentials.
func NewUnauthorizedError(reason string) *APIError {
	return &APIError{
		Code:       "UNAUTHORIZED",
		Message:    reason,
		StatusCode: 401,
		Err:        ErrUnauthorized,
	}
}

// NewAuthRequiredError creates a 401 error for operations attempted without
// a credential. Distinct from NewUnauthorizedError: nothing was rejected,
// the user simply has not signed in yet.
func NewAuthRequiredError() *APIError {
	return &APIError{
		Code:       "AUTH_REQUIRED",
		Message:    "please sign in to check out",
		StatusCode: 401,
		Err:        ErrAuthRequired,
	}
}

// NewEmptyCartError creates a 400 error for checkout of an empty cart.
func NewEmptyCartError() *APIError {
	return &APIError{
		Code:       "EMPTY_CART",
		Message:    "your cart is empty",
		StatusCode: 400,
		Err:        ErrEmptyCart,
	}
}

// NewSubmissionError creates an error for a rejected order submission.
// message is the single user-facing string; cause is the translated sentinel
// (ErrInvalidRequest, ErrConflict, ErrUpstreamError) joined with the raw error.
func NewSubmissionError(statusCode int, message string, cause error) *APIError {
	code := "ORDER_REJECTED"
	switch {
	case errors.Is(cause, ErrInvalidRequest):
		code = "VALIDATION_ERROR"
	case errors.Is(cause, ErrConflict):
		code = "CONFLICT"
	case errors.Is(cause, ErrNetwork):
		code = "NETWORK_ERROR"
	case errors.Is(cause, ErrUnauthorized):
		code = "UNAUTHORIZED"
	}
	return &APIError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        cause,
	}
}

// NewUpstreamError creates a 502 error for backend failures.
func NewUpstreamError(service string, err error) *APIError {
	return &APIError{
		Code:       "UPSTREAM_ERROR",
		Message:    fmt.Sprintf("%s request failed", service),
		StatusCode: 502,
		Err:        fmt.Errorf("%w: %v", ErrUpstreamError, err),
	}
}

// NewNetworkError creates a 503 error for transport failures reaching a backend.
func NewNetworkError(service string, err error) *APIError {
	return &APIError{
		Code:       "NETWORK_ERROR",
		Message:    fmt.Sprintf("could not reach %s, please check your connection and retry", service),
		StatusCode: 503,
		Err:        fmt.Errorf("%w: %v", ErrNetwork, err),
	}
}

// NewInternalError creates a 500 error for unexpected failures.
func NewInternalError(err error) *APIError {
	return &APIError{
		Code:       "INTERNAL_ERROR",
		Message:    "an internal error occurred",
		StatusCode: 500,
		Err:        err,
	}
}
