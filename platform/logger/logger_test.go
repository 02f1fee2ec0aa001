package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestRetryAttemptWritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	log.RetryAttempt("req-1", "POST", "/api/search/poshmark", 2, 3, "retry", 503, 150*time.Millisecond, errors.New("status 503"))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "transport_attempt" {
		t.Fatalf("unexpected msg %v", line["msg"])
	}
	if line["attempt"] != float64(2) || line["outcome"] != "retry" || line["elapsed_ms"] != float64(150) {
		t.Fatalf("unexpected attempt fields: %v", line)
	}
	if line["level"] != "WARN" {
		t.Fatalf("expected failed attempt to log at WARN, got %v", line["level"])
	}
}

func TestWithContextAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	ctx := ContextWithRequestID(context.Background(), "abc-123")
	log.WithContext(ctx).Info("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["request_id"] != "abc-123" {
		t.Fatalf("expected request_id abc-123, got %v", line["request_id"])
	}
	if RequestIDFrom(ctx) != "abc-123" {
		t.Fatalf("expected RequestIDFrom to return stored id")
	}
}
