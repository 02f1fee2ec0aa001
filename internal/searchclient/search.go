package searchclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"marketplace_search_backend/internal/marketplace/sources"
	"marketplace_search_backend/internal/marketplace/transport"
	"marketplace_search_backend/internal/searchclient/aggregate"
	"marketplace_search_backend/platform/apperr"
	"marketplace_search_backend/platform/logger"
	"marketplace_search_backend/platform/retry"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SearchSource queries one source. An unknown source or an invalid request is
// returned as an error and nothing is dispatched. Every other outcome,
// including an unreachable service, is reported in the SourceResult.
func (c *Client) SearchSource(ctx context.Context, sourceID string, req transport.SearchRequest) (transport.SourceResult, error) {
	desc, err := c.lookup(sourceID)
	if err != nil {
		return transport.SourceResult{}, err
	}

	normalized, err := c.validator.Validate(req)
	if err != nil {
		return transport.SourceResult{}, err
	}

	return c.searchSource(ctx, desc, normalized), nil
}

// SearchSources queries every distinct source concurrently and waits for all
// of them. One source failing does not cancel the others. When every source
// fails the populated result is returned together with a KindUnavailable
// error.
func (c *Client) SearchSources(ctx context.Context, sourceIDs []string, req transport.SearchRequest) (*transport.AggregatedResult, error) {
	ids := dedupe(sourceIDs)
	if len(ids) == 0 {
		return nil, apperr.InvalidFields(apperr.FieldError{Field: "sources", Reason: "at least one source is required"}).
			WithOp("searchclient.SearchSources")
	}

	descs := make([]sources.Descriptor, len(ids))
	for i, id := range ids {
		desc, err := c.lookup(id)
		if err != nil {
			return nil, err
		}
		descs[i] = desc
	}

	normalized, err := c.validator.Validate(req)
	if err != nil {
		return nil, err
	}

	results := make([]transport.SourceResult, len(descs))
	var g errgroup.Group
	for i, desc := range descs {
		i, desc := i, desc
		g.Go(func() error {
			results[i] = c.searchSource(ctx, desc, normalized)
			return nil
		})
	}
	_ = g.Wait()

	agg := aggregate.Aggregate(results)
	if aggregate.IsTotalFailure(agg) {
		return agg, apperr.Unavailable(fmt.Sprintf("all %d sources failed", len(ids))).WithOp("searchclient.SearchSources")
	}
	return agg, nil
}

// SearchAll asks the service to query every active source in one call. Known
// sources absent from the response are recorded as failed.
func (c *Client) SearchAll(ctx context.Context, req transport.SearchRequest) (*transport.AggregatedResult, error) {
	const op = "searchclient.SearchAll"

	normalized, err := c.validator.Validate(req)
	if err != nil {
		return nil, err
	}

	ctx, reqID := withRequestID(ctx)
	ids := c.registry.IDs()
	resp, err := c.transport.Execute(ctx, retry.Request{
		Method: http.MethodPost,
		Path:   "/api/search/all",
		Body:   normalized,
	})
	if err != nil {
		info := errorInfo(err, resp)
		results := make([]transport.SourceResult, len(ids))
		for i, id := range ids {
			results[i] = failedResult(id, info, reqID)
		}
		return aggregate.Aggregate(results), apperr.Unavailable("search all failed: " + info.Message).WithOp(op)
	}

	var env transport.Envelope[transport.SearchAllData]
	if err := json.Unmarshal(resp.Body, &env); err != nil || !env.Success {
		msg := "invalid response envelope"
		if env.Message != "" {
			msg = env.Message
		}
		info := &transport.ErrorInfo{Kind: apperr.KindInternal.String(), Message: msg, StatusCode: resp.StatusCode, Attempts: resp.Attempts}
		results := make([]transport.SourceResult, len(ids))
		for i, id := range ids {
			results[i] = failedResult(id, info, resp.RequestID)
		}
		return aggregate.Aggregate(results), apperr.Unavailable("search all failed: " + msg).WithOp(op)
	}

	order := append([]string(nil), ids...)
	var extra []string
	for id := range env.Data.Sources {
		if _, known := c.registry.Lookup(id); !known {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	order = append(order, extra...)

	results := make([]transport.SourceResult, 0, len(order))
	for _, id := range order {
		items, ok := env.Data.Sources[id]
		if !ok {
			results = append(results, failedResult(id, &transport.ErrorInfo{
				Kind:    apperr.KindUnavailable.String(),
				Message: "source missing from response",
			}, resp.RequestID))
			continue
		}
		result := transport.SourceResult{
			SourceID:  id,
			Status:    transport.SourceOK,
			Items:     items,
			RequestID: resp.RequestID,
		}
		if desc, known := c.registry.Lookup(id); known {
			result.SearchURL = desc.BuildSearchURL(normalized)
		}
		results = append(results, result)
	}

	agg := aggregate.Aggregate(results)
	if aggregate.IsTotalFailure(agg) {
		return agg, apperr.Unavailable("no source returned results").WithOp(op)
	}
	return agg, nil
}

func (c *Client) searchSource(ctx context.Context, desc sources.Descriptor, req transport.SearchRequest) transport.SourceResult {
	ctx, reqID := withRequestID(ctx)
	ctx = context.WithValue(ctx, logger.SourceIDKey, desc.ID)
	log := c.log.WithContext(ctx)

	resp, err := c.transport.Execute(ctx, retry.Request{
		Method: http.MethodPost,
		Path:   "/api/search/" + desc.ID,
		Body:   req,
	})
	if err != nil {
		log.SourceFailure(desc.ID, "search", err)
		result := failedResult(desc.ID, errorInfo(err, resp), reqID)
		result.SearchURL = desc.BuildSearchURL(req)
		return result
	}

	var env transport.Envelope[json.RawMessage]
	if err := json.Unmarshal(resp.Body, &env); err != nil || !env.Success {
		msg := "invalid response envelope"
		if err == nil && env.Message != "" {
			msg = env.Message
		}
		log.SourceFailure(desc.ID, "decode", errors.New(msg))
		result := failedResult(desc.ID, &transport.ErrorInfo{
			Kind:       apperr.KindInternal.String(),
			Message:    msg,
			StatusCode: resp.StatusCode,
			Attempts:   resp.Attempts,
		}, resp.RequestID)
		result.SearchURL = desc.BuildSearchURL(req)
		return result
	}

	items, skipped, err := transport.DecodeItems(env.Data)
	if err != nil {
		log.SourceFailure(desc.ID, "decode", err)
		result := failedResult(desc.ID, &transport.ErrorInfo{
			Kind:       apperr.KindInternal.String(),
			Message:    "items payload is not a list",
			StatusCode: resp.StatusCode,
			Attempts:   resp.Attempts,
		}, resp.RequestID)
		result.SearchURL = desc.BuildSearchURL(req)
		return result
	}
	if skipped > 0 {
		log.Debug("skipped undecodable items", "source_id", desc.ID, "skipped", skipped)
	}

	return transport.SourceResult{
		SourceID:  desc.ID,
		Status:    transport.SourceOK,
		Items:     items,
		SearchURL: desc.BuildSearchURL(req),
		RequestID: resp.RequestID,
	}
}

func (c *Client) lookup(sourceID string) (sources.Descriptor, error) {
	desc, ok := c.registry.Lookup(sourceID)
	if !ok {
		return sources.Descriptor{}, apperr.InvalidFields(apperr.FieldError{
			Field:  "source",
			Reason: fmt.Sprintf("unknown source %q", sourceID),
		}).WithOp("searchclient.lookup")
	}
	return desc, nil
}

func failedResult(sourceID string, info *transport.ErrorInfo, reqID string) transport.SourceResult {
	return transport.SourceResult{
		SourceID:  sourceID,
		Status:    transport.SourceFailed,
		Items:     []transport.MarketplaceItem{},
		Error:     info,
		RequestID: reqID,
	}
}

// withRequestID makes sure ctx carries a request id, so a failed call can be
// correlated with the service logs even when no response came back.
func withRequestID(ctx context.Context) (context.Context, string) {
	if id := logger.RequestIDFrom(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return logger.ContextWithRequestID(ctx, id), id
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
