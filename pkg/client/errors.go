package client

import (
	"errors"
	"fmt"

	"github.com/Sternrassler/upcoming-client/pkg/response"
)

// Common errors returned by the client.
var (
	// ErrConnectionFailed matches every TransportError via errors.Is.
	ErrConnectionFailed = errors.New("Connection failed")

	// ErrAPI matches every APIError via errors.Is.
	ErrAPI = errors.New("upcoming api error")
)

// ErrorClass represents a classification of call failures.
type ErrorClass string

const (
	// ErrorClassTransport represents requests that produced no response.
	ErrorClassTransport ErrorClass = "transport"

	// ErrorClassAPI represents stat="fail" envelopes.
	ErrorClassAPI ErrorClass = "api"

	// ErrorClassDecode represents bodies that are not valid envelopes.
	ErrorClassDecode ErrorClass = "decode"
)

// TransportError is returned when an HTTP request yields no response.
type TransportError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", ErrConnectionFailed.Error(), e.Err)
	}
	return ErrConnectionFailed.Error()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConnectionFailed}
	}
	return []error{ErrConnectionFailed, e.Err}
}

// APIError is returned when the API answers with stat="fail".
type APIError struct {
	Message string
	Code    int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Unwrap implements error unwrapping for errors.Is.
func (e *APIError) Unwrap() error {
	return ErrAPI
}

// ClassifyError maps an error returned by the client to its class.
// It returns "" for errors that are none of the three kinds, such as
// context cancellation or configuration errors.
func ClassifyError(err error) ErrorClass {
	var (
		transportErr *TransportError
		apiErr       *APIError
		decodeErr    *response.DecodeError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return ErrorClassAPI
	case errors.As(err, &decodeErr):
		return ErrorClassDecode
	case errors.As(err, &transportErr):
		return ErrorClassTransport
	default:
		return ""
	}
}
