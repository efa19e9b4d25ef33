package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			name: "without wrapped error",
			err: &APIError{
				Code:    "TEST_ERROR",
				Message: "something went wrong",
			},
			want: "TEST_ERROR: something went wrong",
		},
		{
			name: "with wrapped error",
			err: &APIError{
				Code:    "TEST_ERROR",
				Message: "something went wrong",
				Err:     errors.New("underlying cause"),
			},
			want: "TEST_ERROR: something went wrong (underlying cause)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &APIError{
		Code:    "TEST",
		Message: "test",
		Err:     underlying,
	}

	if err.Unwrap() != underlying {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), underlying)
	}

	errNoWrap := &APIError{Code: "TEST", Message: "test"}
	if errNoWrap.Unwrap() != nil {
		t.Error("Unwrap() should return nil when no wrapped error")
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		code       string
		message    string
		statusCode int
		sentinel   error
	}{
		{"not found", NewNotFoundError("line"), "NOT_FOUND", "line not found", 404, ErrNotFound},
		{"validation", NewValidationError("quantity", "must be a number"), "VALIDATION_ERROR", "invalid quantity: must be a number", 400, ErrInvalidRequest},
		{"unauthorized", NewUnauthorizedError("token expired"), "UNAUTHORIZED", "token expired", 401, ErrUnauthorized},
		{"auth required", NewAuthRequiredError(), "AUTH_REQUIRED", "please sign in to check out", 401, ErrAuthRequired},
		{"empty cart", NewEmptyCartError(), "EMPTY_CART", "your cart is empty", 400, ErrEmptyCart},
		{"upstream", NewUpstreamError("catalog", errors.New("boom")), "UPSTREAM_ERROR", "catalog request failed", 502, ErrUpstreamError},
		{"network", NewNetworkError("orders", errors.New("dial tcp")), "NETWORK_ERROR", "could not reach orders, please check your connection and retry", 503, ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Message != tt.message {
				t.Errorf("Message = %q, want %q", tt.err.Message, tt.message)
			}
			if tt.err.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %d, want %d", tt.err.StatusCode, tt.statusCode)
			}
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v) = false, want true", tt.sentinel)
			}
		})
	}
}

func TestNewSubmissionError_Code(t *testing.T) {
	tests := []struct {
		cause error
		want  string
	}{
		{fmt.Errorf("%w: quantity", ErrInvalidRequest), "VALIDATION_ERROR"},
		{fmt.Errorf("%w: duplicate", ErrConflict), "CONFLICT"},
		{fmt.Errorf("%w: reset", ErrNetwork), "NETWORK_ERROR"},
		{ErrUnauthorized, "UNAUTHORIZED"},
		{errors.New("other"), "ORDER_REJECTED"},
	}

	for _, tt := range tests {
		err := NewSubmissionError(400, "msg", tt.cause)
		if err.Code != tt.want {
			t.Errorf("NewSubmissionError(%v).Code = %q, want %q", tt.cause, err.Code, tt.want)
		}
		if !errors.Is(err, tt.cause) {
			t.Errorf("NewSubmissionError should wrap %v", tt.cause)
		}
	}
}

func TestNewInternalError(t *testing.T) {
	underlying := errors.New("null pointer dereference")
	err := NewInternalError(underlying)

	if err.StatusCode != 500 {
		t.Errorf("StatusCode = %d, want %d", err.StatusCode, 500)
	}
	if err.Err != underlying {
		t.Error("wrapped error should be preserved")
	}
}

// TestAPIErrorImplementsError verifies errors.As finds APIError through wrapping.
func TestAPIErrorImplementsError(t *testing.T) {
	var err error = &APIError{Code: "TEST", Message: "test"}
	wrapped := fmt.Errorf("outer: %w", err)
	var apiErr *APIError
	if !errors.As(wrapped, &apiErr) {
		t.Error("errors.As should find *APIError in wrapped error")
	}
}
