package alertsource

import (
	stderrors "errors"
	"fmt"
)

// TransportError is a network failure or a non-2xx response from the alert
// feed. It terminates the current poll cycle at the failed branch.
type TransportError struct {
	// StatusCode is the HTTP status, or 0 for a network-level failure.
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("alert feed returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("alert feed request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError is a malformed response body from the alert feed, including a
// missing or non-list items field.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed alert feed response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return stderrors.As(err, &te)
}

// IsParse reports whether err is (or wraps) a ParseError.
func IsParse(err error) bool {
	var pe *ParseError
	return stderrors.As(err, &pe)
}
