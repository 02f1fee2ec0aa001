package searchclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"marketplace_search_backend/internal/marketplace/transport"
	"marketplace_search_backend/platform/apperr"
	"marketplace_search_backend/platform/logger"
	"marketplace_search_backend/platform/retry"
)

// GetItemDetail fetches a single listing by its marketplace URL. The source
// is picked from the URL's host and path; a URL no source claims is rejected
// without a request. A listing the service does not know is reported as
// KindNotFound, never as a transport error.
func (c *Client) GetItemDetail(ctx context.Context, rawURL string) (*transport.MarketplaceItem, error) {
	const op = "searchclient.GetItemDetail"

	rawURL = strings.TrimSpace(rawURL)
	desc, ok := c.registry.Match(rawURL)
	if !ok {
		return nil, apperr.InvalidFields(apperr.FieldError{Field: "url", Reason: "not a supported marketplace listing url"}).WithOp(op)
	}

	ctx = context.WithValue(ctx, logger.SourceIDKey, desc.ID)
	resp, err := c.transport.Execute(ctx, retry.Request{
		Method: http.MethodPost,
		Path:   "/api/item/details",
		Body:   transport.ItemDetailsRequest{URL: rawURL},
	})
	if err != nil {
		var statusErr *retry.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, apperr.NotFound("item not found").WithOp(op)
		}
		c.log.WithContext(ctx).SourceFailure(desc.ID, "item_details", err)
		return nil, callError(op, err, resp)
	}

	var env transport.Envelope[*transport.MarketplaceItem]
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "invalid response envelope", err).WithOp(op)
	}
	if !env.Success || env.Data == nil {
		return nil, apperr.NotFound("item not found").WithOp(op)
	}

	item := env.Data
	if item.Platform == "" {
		item.Platform = desc.ID
	}
	return item, nil
}
