package searchclient

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"marketplace_search_backend/internal/marketplace/transport"
	"marketplace_search_backend/platform/apperr"
	"marketplace_search_backend/platform/retry"
)

// CheckHealth probes GET /api/health. The returned Status is derived from the
// reported scraper states; Reported keeps what the service itself claimed.
func (c *Client) CheckHealth(ctx context.Context) (*transport.HealthReport, error) {
	const op = "searchclient.CheckHealth"

	var data transport.HealthData
	if err := c.getJSON(ctx, op, "/api/health", &data); err != nil {
		return nil, err
	}

	scrapers := data.Scrapers
	if scrapers == nil {
		scrapers = map[string]transport.ScraperState{}
	}

	return &transport.HealthReport{
		Status:   transport.DeriveHealth(scrapers),
		Reported: data.Status,
		Uptime:   time.Duration(data.Uptime * float64(time.Second)),
		Memory:   data.Memory,
		Scrapers: scrapers,
		Checked:  time.Now().UTC(),
	}, nil
}

// Platforms lists the sources the service knows and their state.
func (c *Client) Platforms(ctx context.Context) (map[string]transport.PlatformInfo, error) {
	var data map[string]transport.PlatformInfo
	if err := c.getJSON(ctx, "searchclient.Platforms", "/api/platforms", &data); err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]transport.PlatformInfo{}
	}
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	resp, err := c.transport.Execute(ctx, retry.Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return callError(op, err, resp)
	}

	env := transport.Envelope[json.RawMessage]{}
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return apperr.Wrap(apperr.KindInternal, "invalid response envelope", err).WithOp(op)
	}
	if !env.Success {
		return apperr.Transport("search service reported failure: "+env.Message, nil).WithOp(op)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperr.Wrap(apperr.KindInternal, "invalid response data", err).WithOp(op)
	}
	return nil
}
