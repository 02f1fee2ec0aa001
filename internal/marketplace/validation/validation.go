// Package validation normalizes and validates search requests before they are
// dispatched. It performs no I/O.
package validation

import (
	"strings"

	"marketplace_search_backend/internal/marketplace/transport"
	"marketplace_search_backend/platform/apperr"
	"marketplace_search_backend/platform/sanitize"
	"marketplace_search_backend/platform/validator"
)

const (
	minLimit = 1
	maxLimit = 100
)

// Validator checks search requests against the tag rules on transport.SearchRequest
// plus the cross-field price rule.
type Validator struct {
	val *validator.Validator
}

// New creates a request validator backed by the shared platform validator.
func New(val *validator.Validator) *Validator {
	return &Validator{val: val}
}

// Validate normalizes raw and rejects it if any rule fails. The returned
// request is safe to dispatch and validates again without change.
// Failures are *apperr.Error with KindValidation and FieldError details.
func (v *Validator) Validate(raw transport.SearchRequest) (transport.SearchRequest, error) {
	req := Normalize(raw)

	if err := v.val.Struct(req); err != nil {
		return transport.SearchRequest{}, validator.AsAppError(err).WithOp("validation.Validate")
	}

	if req.PriceMin != nil && req.PriceMax != nil && *req.PriceMin > *req.PriceMax {
		return transport.SearchRequest{}, apperr.InvalidFields(apperr.FieldError{
			Field:  "priceMin",
			Reason: "must be less than or equal to priceMax",
		}).WithOp("validation.Validate")
	}

	return req, nil
}

// Normalize strips markup and extra whitespace from text fields and applies
// defaults. It copies the price pointers so the result never aliases the input.
func Normalize(raw transport.SearchRequest) transport.SearchRequest {
	req := transport.SearchRequest{
		Query:     sanitize.Text(raw.Query),
		Category:  sanitize.Text(raw.Category),
		Location:  sanitize.Text(raw.Location),
		Condition: sanitize.Text(raw.Condition),
		PriceMin:  copyFloat(raw.PriceMin),
		PriceMax:  copyFloat(raw.PriceMax),
		SortBy:    transport.SortBy(strings.TrimSpace(string(raw.SortBy))),
		Limit:     raw.Limit,
	}
	if req.SortBy == "" {
		req.SortBy = transport.SortRelevance
	}
	if req.Limit == 0 {
		req.Limit = transport.DefaultLimit
	}
	return req
}

// ClampLimit forces n into the accepted limit range, treating 0 as absent.
func ClampLimit(n int) int {
	switch {
	case n == 0:
		return transport.DefaultLimit
	case n < minLimit:
		return minLimit
	case n > maxLimit:
		return maxLimit
	default:
		return n
	}
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
