package searchclient

import (
	"encoding/json"
	"errors"
	"net/http"

	"marketplace_search_backend/internal/marketplace/transport"
	"marketplace_search_backend/platform/apperr"
	"marketplace_search_backend/platform/retry"
)

// errorEnvelope is the part of a failed envelope the client reads.
type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// envelopeMessage returns the service's message for a failed response, or "".
func envelopeMessage(body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	if env.Message != "" {
		return env.Message
	}
	return env.Error
}

// kindForStatus maps a terminal HTTP status onto the error taxonomy.
func kindForStatus(status int) apperr.Kind {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return apperr.KindValidation
	case status == http.StatusNotFound:
		return apperr.KindNotFound
	case status == http.StatusTooManyRequests:
		return apperr.KindTooManyRequests
	case status >= http.StatusInternalServerError:
		return apperr.KindTransport
	default:
		return apperr.KindBadRequest
	}
}

// errorInfo describes a failed transport call for a SourceResult.
func errorInfo(err error, resp *retry.Response) *transport.ErrorInfo {
	info := &transport.ErrorInfo{
		Kind:    apperr.KindTransport.String(),
		Message: err.Error(),
	}
	if resp != nil {
		info.StatusCode = resp.StatusCode
		info.Attempts = resp.Attempts
		if msg := envelopeMessage(resp.Body); msg != "" {
			info.Message = msg
		}
	}

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		info.Attempts = exhausted.Attempts
		return info
	}

	var statusErr *retry.StatusError
	if errors.As(err, &statusErr) {
		info.Kind = kindForStatus(statusErr.StatusCode).String()
		info.StatusCode = statusErr.StatusCode
	}
	return info
}

// callError converts a transport failure into an *apperr.Error for
// operations that return errors rather than SourceResults.
func callError(op string, err error, resp *retry.Response) error {
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		return apperr.Transport("search service unreachable", err).WithOp(op)
	}

	var statusErr *retry.StatusError
	if errors.As(err, &statusErr) {
		msg := ""
		if resp != nil {
			msg = envelopeMessage(resp.Body)
		}
		if msg == "" {
			msg = statusErr.Error()
		}
		return apperr.Wrap(kindForStatus(statusErr.StatusCode), msg, err).WithOp(op)
	}

	return apperr.Transport("search service request failed", err).WithOp(op)
}
