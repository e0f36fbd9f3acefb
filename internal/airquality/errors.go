package airquality

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a fetch failure for machine handling.
type ErrorKind string

const (
	// KindConfig means the credential needed to call the measurement service
	// is missing or a placeholder.
	KindConfig ErrorKind = "config"

	// KindTransport covers network failures, timeouts, an open circuit
	// breaker, and non-2xx responses.
	KindTransport ErrorKind = "transport"

	// KindEmptyResult means the service answered correctly but holds no
	// measurements for the request. A legitimate outcome, not a fault.
	KindEmptyResult ErrorKind = "empty_result"

	// KindMalformedResponse means the response body could not be decoded
	// into the expected shape.
	KindMalformedResponse ErrorKind = "malformed_response"
)

// FetchError is the error type measurement sources return. Message is safe
// to show to callers: it never contains credential material.
type FetchError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError builds a FetchError of the given kind around an optional
// underlying cause.
func NewFetchError(kind ErrorKind, message string, err error) *FetchError {
	return &FetchError{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the ErrorKind from anywhere in an error chain. Errors that
// carry no FetchError report an empty kind.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
