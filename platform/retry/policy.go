// Package retry executes HTTP calls with a bounded number of attempts and a
// linear backoff between them. It is part of the platform layer and knows
// nothing about marketplaces.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"
)

// Policy bounds a single Execute call. Every field must be set.
type Policy struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	TimeoutPerAttempt time.Duration
}

// DefaultPolicy returns 3 attempts, 1s base delay and a 30s attempt timeout.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:       3,
		BaseDelay:         time.Second,
		TimeoutPerAttempt: 30 * time.Second,
	}
}

// Validate rejects zero or negative fields.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry policy: max attempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay <= 0 {
		return fmt.Errorf("retry policy: base delay must be positive, got %s", p.BaseDelay)
	}
	if p.TimeoutPerAttempt <= 0 {
		return fmt.Errorf("retry policy: attempt timeout must be positive, got %s", p.TimeoutPerAttempt)
	}
	return nil
}

// Backoff is the wait after the given failed attempt: BaseDelay * attempt.
func (p Policy) Backoff(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(attempt)
}

// StatusError is an HTTP response with status >= 400.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// ExhaustedError is returned once no further attempt will be made for a
// retryable failure, either because the budget ran out or the caller's
// context ended.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// IsRetryable reports whether another attempt could succeed.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return IsRetryableStatus(statusErr.StatusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// *url.Error satisfies net.Error itself, so classify what it wraps.
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return isNetworkFailure(urlErr.Err)
	}
	return isNetworkFailure(err)
}

// isNetworkFailure is true for connection and read failures. A malformed
// request, such as an unsupported scheme, is not.
func isNetworkFailure(err error) bool {
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET):
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsRetryableStatus is true for 5xx and 429. Every other 4xx is terminal.
func IsRetryableStatus(status int) bool {
	switch {
	case status >= 500 && status <= 599:
		return true
	case status == http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}
