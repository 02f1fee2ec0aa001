package validation

import (
	"reflect"
	"strings"
	"testing"

	"marketplace_search_backend/internal/marketplace/transport"
	"marketplace_search_backend/platform/apperr"
	"marketplace_search_backend/platform/validator"
)

func ptr(f float64) *float64 { return &f }

func newValidator() *Validator {
	return New(validator.New())
}

func firstField(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		t.Fatalf("expected validation error, got nil")
	}
	appErr, ok := err.(*apperr.Error)
	if !ok {
		t.Fatalf("expected *apperr.Error, got %T", err)
	}
	if appErr.Kind != apperr.KindValidation {
		t.Fatalf("expected KindValidation, got %s", appErr.Kind)
	}
	fields := appErr.Fields()
	if len(fields) == 0 {
		t.Fatalf("expected field details on %v", appErr)
	}
	return fields[0].Field
}

func TestValidateAppliesDefaultsAndTrims(t *testing.T) {
	req, err := newValidator().Validate(transport.SearchRequest{Query: "  nike sneakers  ", Location: " Austin "})
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if req.Query != "nike sneakers" || req.Location != "Austin" {
		t.Fatalf("expected trimmed fields, got %q / %q", req.Query, req.Location)
	}
	if req.Limit != 20 {
		t.Fatalf("expected default limit 20, got %d", req.Limit)
	}
	if req.SortBy != transport.SortRelevance {
		t.Fatalf("expected default sort relevance, got %q", req.SortBy)
	}
}

func TestValidateStripsMarkup(t *testing.T) {
	req, err := newValidator().Validate(transport.SearchRequest{Query: "<b>coach</b>   bag", SortBy: " date "})
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if req.Query != "coach bag" || req.SortBy != transport.SortDate {
		t.Fatalf("unexpected normalized request %+v", req)
	}

	_, err = newValidator().Validate(transport.SearchRequest{Query: "<img src=x>"})
	if got := firstField(t, err); got != "query" {
		t.Fatalf("expected query error for markup-only input, got %q", got)
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	v := newValidator()
	inputs := []transport.SearchRequest{
		{Query: " vintage levis "},
		{Query: "nike sneakers", PriceMin: ptr(20), PriceMax: ptr(100), Limit: 20},
		{Query: "coach bag", SortBy: transport.SortPriceHigh, Limit: 100, Category: " Bags "},
	}

	for _, in := range inputs {
		once, err := v.Validate(in)
		if err != nil {
			t.Fatalf("first Validate(%+v) returned error: %v", in, err)
		}
		twice, err := v.Validate(once)
		if err != nil {
			t.Fatalf("second Validate returned error: %v", err)
		}
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("expected normalized request to re-validate unchanged: %+v vs %+v", once, twice)
		}
	}
}

func TestValidateRejectsBadInput(t *testing.T) {
	cases := []struct {
		name  string
		req   transport.SearchRequest
		field string
	}{
		{"missing query", transport.SearchRequest{}, "query"},
		{"blank query", transport.SearchRequest{Query: "   "}, "query"},
		{"long query", transport.SearchRequest{Query: strings.Repeat("a", 201)}, "query"},
		{"limit too high", transport.SearchRequest{Query: "x", Limit: 101}, "limit"},
		{"negative limit", transport.SearchRequest{Query: "x", Limit: -1}, "limit"},
		{"negative price", transport.SearchRequest{Query: "x", PriceMin: ptr(-5)}, "priceMin"},
		{"inverted range", transport.SearchRequest{Query: "x", PriceMin: ptr(50), PriceMax: ptr(10)}, "priceMin"},
		{"unknown sort", transport.SearchRequest{Query: "x", SortBy: "cheapest"}, "sortBy"},
		{"long category", transport.SearchRequest{Query: "x", Category: strings.Repeat("c", 101)}, "category"},
	}

	v := newValidator()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := v.Validate(c.req)
			if got := firstField(t, err); got != c.field {
				t.Fatalf("expected failing field %q, got %q", c.field, got)
			}
		})
	}
}

func TestValidateAcceptsBoundaryValues(t *testing.T) {
	v := newValidator()
	ok := []transport.SearchRequest{
		{Query: strings.Repeat("é", 200)},
		{Query: "x", Limit: 1},
		{Query: "x", Limit: 100},
		{Query: "x", PriceMin: ptr(0), PriceMax: ptr(0)},
		{Query: "x", PriceMin: ptr(25), PriceMax: ptr(25)},
	}
	for _, req := range ok {
		if _, err := v.Validate(req); err != nil {
			t.Fatalf("expected %+v to validate, got %v", req, err)
		}
	}
}

func TestValidateDoesNotAliasInput(t *testing.T) {
	min := 10.0
	in := transport.SearchRequest{Query: "x", PriceMin: &min}

	out, err := newValidator().Validate(in)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	*out.PriceMin = 99
	if min != 10 {
		t.Fatalf("expected input price to stay 10, got %v", min)
	}
}

func TestClampLimit(t *testing.T) {
	cases := map[int]int{0: 20, -3: 1, 1: 1, 50: 50, 100: 100, 250: 100}
	for in, want := range cases {
		if got := ClampLimit(in); got != want {
			t.Fatalf("ClampLimit(%d): expected %d, got %d", in, want, got)
		}
	}
}
