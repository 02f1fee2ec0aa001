package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{NotFound("missing"), http.StatusNotFound},
		{Validation("bad"), http.StatusBadRequest},
		{Transport("upstream", errors.New("boom")), http.StatusBadGateway},
		{TooManyRequests("slow down"), http.StatusTooManyRequests},
		{Unavailable("all sources failed"), http.StatusServiceUnavailable},
		{New(KindUnknown, "?"), http.StatusBadRequest},
	}
	for _, c := range cases {
		if got := c.err.HTTPStatus(); got != c.want {
			t.Fatalf("%s: expected status %d, got %d", c.err.Kind, c.want, got)
		}
	}
}

func TestGetKindFollowsWrappedChain(t *testing.T) {
	base := NotFound("item not found").WithOp("searchclient.GetItemDetail")
	wrapped := fmt.Errorf("detail lookup: %w", base)

	if !Is(wrapped, KindNotFound) {
		t.Fatalf("expected wrapped error to be KindNotFound, got %s", GetKind(wrapped))
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatalf("expected plain error to be KindUnknown")
	}
}

func TestInvalidFieldsCarriesFieldDetails(t *testing.T) {
	err := InvalidFields(FieldError{Field: "query", Reason: "is required"})

	if err.Kind != KindValidation {
		t.Fatalf("expected validation kind, got %s", err.Kind)
	}
	if err.Message != "query: is required" {
		t.Fatalf("unexpected message %q", err.Message)
	}
	fields := err.Fields()
	if len(fields) != 1 || fields[0].Field != "query" {
		t.Fatalf("expected query field detail, got %+v", fields)
	}
}
