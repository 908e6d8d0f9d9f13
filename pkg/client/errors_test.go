package client

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Sternrassler/upcoming-client/pkg/response"
)

func TestTransportError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *TransportError
		expected string
	}{
		{
			name:     "without cause",
			err:      &TransportError{},
			expected: "Connection failed",
		},
		{
			name:     "with cause",
			err:      &TransportError{Err: errors.New("dial tcp: connection refused")},
			expected: "Connection failed: dial tcp: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	cause := errors.New("network unreachable")
	err := fmt.Errorf("call: %w", &TransportError{Err: cause})

	if !errors.Is(err, ErrConnectionFailed) {
		t.Error("errors.Is(err, ErrConnectionFailed) = false")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false")
	}
}

func TestAPIError(t *testing.T) {
	err := &APIError{Message: "Invalid venue_id", Code: 2}

	if err.Error() != "Invalid venue_id" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, ErrAPI) {
		t.Error("errors.Is(err, ErrAPI) = false")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{name: "nil", err: nil, expected: ""},
		{name: "transport", err: &TransportError{}, expected: ErrorClassTransport},
		{name: "api", err: &APIError{Message: "x"}, expected: ErrorClassAPI},
		{name: "decode", err: &response.DecodeError{Reason: "invalid XML"}, expected: ErrorClassDecode},
		{name: "wrapped api", err: fmt.Errorf("ctx: %w", &APIError{}), expected: ErrorClassAPI},
		{name: "context", err: context.Canceled, expected: ""},
		{name: "other", err: errors.New("boom"), expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.expected {
				t.Errorf("ClassifyError(%v) = %q, want %q", tt.err, got, tt.expected)
			}
		})
	}
}
