package engine

import (
	"fmt"
	"net"

	"github.com/pkg/errors"
)

// TransientError is a failure that may succeed when retried: timeouts,
// rate limits, server errors and network trouble.
type TransientError struct {
	StatusCode int
	// Attempts is set once retries are exhausted.
	Attempts int
	Err      error
}

func (e *TransientError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("transient completion failure after %d attempts: %v", e.Attempts, e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("transient completion failure (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transient completion failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// RequestError is a request the completion service refused. Retrying the
// same request cannot succeed.
type RequestError struct {
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion request rejected (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("completion request rejected: %v", e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsRetryable classifies an engine error.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var re *RequestError
	if errors.As(err, &re) {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// ClassifyStatus wraps err according to an HTTP status code.
func ClassifyStatus(status int, err error) error {
	switch {
	case status == 408 || status == 429 || status >= 500:
		return &TransientError{StatusCode: status, Err: err}
	case status >= 400:
		return &RequestError{StatusCode: status, Err: err}
	default:
		return &TransientError{StatusCode: status, Err: err}
	}
}
