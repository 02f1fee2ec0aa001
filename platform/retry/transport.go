package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"marketplace_search_backend/platform/logger"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// RequestIDHeader carries the correlation id on every attempt.
const RequestIDHeader = "X-Request-ID"

// Sleeper waits for d or until ctx ends.
type Sleeper func(ctx context.Context, d time.Duration) error

// Request is one logical call. Path is resolved against the resty client's
// base URL.
type Request struct {
	Method string
	Path   string
	Body   any
	Header map[string]string
}

// Response is the last HTTP response observed for a call.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
	Attempts   int
	RequestID  string
}

// Transport runs Requests under a Policy.
type Transport struct {
	http   *resty.Client
	policy Policy
	log    *logger.Logger
	sleep  Sleeper
}

// New wraps client. Resty's built-in retry is switched off; attempts are
// counted here.
func New(client *resty.Client, policy Policy, log *logger.Logger) (*Transport, error) {
	if client == nil {
		return nil, errors.New("retry: nil http client")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}
	client.SetRetryCount(0)

	return &Transport{
		http:   client,
		policy: policy,
		log:    log,
		sleep:  sleepContext,
	}, nil
}

// SetSleeper replaces the backoff wait. Tests use it to record delays.
func (t *Transport) SetSleeper(s Sleeper) {
	if s != nil {
		t.sleep = s
	}
}

// Policy returns the policy the transport was built with.
func (t *Transport) Policy() Policy { return t.policy }

// Execute performs req until it succeeds, fails terminally, exhausts the
// attempt budget or ctx ends.
//
// A terminal status returns the response together with a *StatusError. A
// retryable failure that is not recovered returns an *ExhaustedError, along
// with the last response when one was received.
func (t *Transport) Execute(ctx context.Context, req Request) (*Response, error) {
	requestID := logger.RequestIDFrom(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	var (
		last    *Response
		lastErr error
	)

	for attempt := 1; attempt <= t.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := t.sleep(ctx, t.policy.Backoff(attempt-1)); err != nil {
				return last, &ExhaustedError{Attempts: attempt - 1, Err: errors.Join(err, lastErr)}
			}
		}

		resp, err := t.attempt(ctx, req, requestID, attempt)
		if resp != nil {
			last = resp
		}
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return last, &ExhaustedError{Attempts: attempt, Err: errors.Join(ctx.Err(), err)}
		}
		if !IsRetryable(err) {
			return last, err
		}
	}

	return last, &ExhaustedError{Attempts: t.policy.MaxAttempts, Err: lastErr}
}

func (t *Transport) attempt(ctx context.Context, req Request, requestID string, attempt int) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, t.policy.TimeoutPerAttempt)
	defer cancel()

	r := t.http.R().
		SetContext(attemptCtx).
		SetHeader(RequestIDHeader, requestID).
		SetHeader("Accept", "application/json")
	for k, v := range req.Header {
		r.SetHeader(k, v)
	}
	if req.Body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.Body)
	}

	start := time.Now()
	raw, err := r.Execute(req.Method, req.Path)
	elapsed := time.Since(start)

	if err != nil {
		outcome := "network_error"
		switch {
		case ctx.Err() != nil:
			outcome = "aborted"
		case errors.Is(err, context.DeadlineExceeded):
			outcome = "timeout"
		}
		t.log.RetryAttempt(requestID, req.Method, req.Path, attempt, t.policy.MaxAttempts, outcome, 0, elapsed, err)
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}

	resp := &Response{
		StatusCode: raw.StatusCode(),
		Body:       raw.Body(),
		Header:     raw.Header(),
		Attempts:   attempt,
		RequestID:  requestID,
	}

	if resp.StatusCode >= http.StatusBadRequest {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: resp.Body}
		outcome := "terminal_status"
		if IsRetryableStatus(resp.StatusCode) {
			outcome = "retryable_status"
		}
		t.log.RetryAttempt(requestID, req.Method, req.Path, attempt, t.policy.MaxAttempts, outcome, resp.StatusCode, elapsed, statusErr)
		return resp, statusErr
	}

	t.log.RetryAttempt(requestID, req.Method, req.Path, attempt, t.policy.MaxAttempts, "ok", resp.StatusCode, elapsed, nil)
	return resp, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
