package searchclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"marketplace_search_backend/internal/marketplace/sources"
	"marketplace_search_backend/internal/marketplace/transport"
	"marketplace_search_backend/internal/searchclient/aggregate"
	"marketplace_search_backend/platform/apperr"
	"marketplace_search_backend/platform/retry"
)

type fakeService struct {
	mu      sync.Mutex
	hits    map[string]int
	bodies  map[string]transport.SearchRequest
	handler map[string]http.HandlerFunc
	total   int32
}

func newFakeService() *fakeService {
	return &fakeService{
		hits:    map[string]int{},
		bodies:  map[string]transport.SearchRequest{},
		handler: map[string]http.HandlerFunc{},
	}
}

func (f *fakeService) on(path string, h http.HandlerFunc) { f.handler[path] = h }

func (f *fakeService) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeService) body(path string) transport.SearchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[path]
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&f.total, 1)
	f.mu.Lock()
	f.hits[r.URL.Path]++
	if r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/api/search/") {
		var req transport.SearchRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.bodies[r.URL.Path] = req
	}
	h, ok := f.handler[r.URL.Path]
	f.mu.Unlock()

	w.Header().Set("X-Request-ID", r.Header.Get("X-Request-ID"))
	if !ok {
		writeEnvelope(w, http.StatusNotFound, false, nil, "route not found")
		return
	}
	h(w, r)
}

func writeEnvelope(w http.ResponseWriter, status int, success bool, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	env := map[string]any{
		"success":   success,
		"data":      data,
		"timestamp": time.Now().UTC(),
	}
	if message != "" {
		env["message"] = message
	}
	if !success {
		env["error"] = http.StatusText(status)
	}
	_ = json.NewEncoder(w).Encode(env)
}

func itemsOK(list ...transport.MarketplaceItem) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, list, "")
	}
}

func statusOnly(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, status, false, nil, "upstream said no")
	}
}

func item(platform, title string, price float64) transport.MarketplaceItem {
	return transport.MarketplaceItem{
		ID:        platform + "-" + title,
		Title:     title,
		Price:     price,
		Currency:  "USD",
		Images:    []string{},
		URL:       "https://example.com/" + title,
		Platform:  platform,
		ScrapedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func newTestClient(t *testing.T, f *fakeService) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		BaseURL: srv.URL,
		Policy:  retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, TimeoutPerAttempt: 2 * time.Second},
	}, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	c.SetSleeper(func(ctx context.Context, d time.Duration) error { return ctx.Err() })
	return c
}

func ptr(v float64) *float64 { return &v }

func TestSearchSourceSuccess(t *testing.T) {
	f := newFakeService()
	f.on("/api/search/facebook-marketplace", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":[
			{"id":"fb-1","title":"Nike Air","price":85,"currency":"USD","images":[],"url":"https://www.facebook.com/marketplace/item/1/","platform":"facebook-marketplace","scrapedAt":"2026-01-02T03:04:05Z"},
			{"id":"fb-2","title":"","price":10},
			{"id":"fb-3","title":"Broken","price":"cheap"}
		],"timestamp":"2026-01-02T03:04:05Z"}`))
	})
	c := newTestClient(t, f)

	res, err := c.SearchSource(context.Background(), sources.FacebookMarketplace, transport.SearchRequest{
		Query: " nike sneakers ", PriceMin: ptr(20), PriceMax: ptr(100),
	})
	if err != nil {
		t.Fatalf("SearchSource returned error: %v", err)
	}
	if !res.OK() || len(res.Items) != 1 || res.Items[0].ID != "fb-1" {
		t.Fatalf("expected one decoded item, got %+v", res)
	}
	if !strings.Contains(res.SearchURL, "minPrice=20") {
		t.Fatalf("expected facebook field mapping in %s", res.SearchURL)
	}
	if res.RequestID == "" {
		t.Fatalf("expected request id on result")
	}

	sent := f.body("/api/search/facebook-marketplace")
	if sent.Query != "nike sneakers" || sent.Limit != 20 || sent.SortBy != transport.SortRelevance {
		t.Fatalf("expected normalized request on the wire, got %+v", sent)
	}
}

func TestSearchSourceRejectsBeforeDispatch(t *testing.T) {
	f := newFakeService()
	c := newTestClient(t, f)

	_, err := c.SearchSource(context.Background(), "craigslist", transport.SearchRequest{Query: "x"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for unknown source, got %v", err)
	}

	_, err = c.SearchSource(context.Background(), sources.Poshmark, transport.SearchRequest{Query: "x", Limit: 500})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for bad limit, got %v", err)
	}

	if atomic.LoadInt32(&f.total) != 0 {
		t.Fatalf("expected no requests, got %d", f.total)
	}
}

func TestSearchSourceExhaustionIsAResultNotAnError(t *testing.T) {
	f := newFakeService()
	f.on("/api/search/poshmark", statusOnly(http.StatusServiceUnavailable))
	c := newTestClient(t, f)

	res, err := c.SearchSource(context.Background(), sources.Poshmark, transport.SearchRequest{Query: "coach bag"})
	if err != nil {
		t.Fatalf("expected failure inside the result, got error %v", err)
	}
	if res.OK() || res.Error == nil {
		t.Fatalf("expected failed result, got %+v", res)
	}
	if res.Error.Kind != "transport" || res.Error.Attempts != 3 || res.Error.StatusCode != 503 {
		t.Fatalf("unexpected error info %+v", res.Error)
	}
	if f.count("/api/search/poshmark") != 3 {
		t.Fatalf("expected 3 attempts, server saw %d", f.count("/api/search/poshmark"))
	}
	if res.Items == nil || len(res.Items) != 0 {
		t.Fatalf("expected empty item list on failure")
	}
}

func TestSearchSourceTerminalStatus(t *testing.T) {
	f := newFakeService()
	f.on("/api/search/poshmark", statusOnly(http.StatusBadRequest))
	c := newTestClient(t, f)

	res, err := c.SearchSource(context.Background(), sources.Poshmark, transport.SearchRequest{Query: "coach bag"})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if res.Error == nil || res.Error.Kind != "validation" || res.Error.Attempts != 1 || res.Error.Message != "upstream said no" {
		t.Fatalf("unexpected error info %+v", res.Error)
	}
	if f.count("/api/search/poshmark") != 1 {
		t.Fatalf("expected a single attempt")
	}
}

func TestSearchSourcesIsolation(t *testing.T) {
	f := newFakeService()
	f.on("/api/search/facebook-marketplace", itemsOK(
		item("facebook-marketplace", "a", 10),
		item("facebook-marketplace", "b", 20),
		item("facebook-marketplace", "c", 30),
	))
	f.on("/api/search/poshmark", statusOnly(http.StatusInternalServerError))
	c := newTestClient(t, f)

	agg, err := c.SearchSources(context.Background(), []string{sources.FacebookMarketplace, sources.Poshmark}, transport.SearchRequest{Query: "x"})
	if err != nil {
		t.Fatalf("partial failure must not be an error: %v", err)
	}
	if agg.TotalCount != 3 || !agg.PartialFailure {
		t.Fatalf("unexpected aggregate %+v", agg)
	}
	if agg.Results[sources.Poshmark].Status != transport.SourceFailed {
		t.Fatalf("expected poshmark failed")
	}
}

func TestSearchSourcesTotalFailure(t *testing.T) {
	f := newFakeService()
	f.on("/api/search/facebook-marketplace", statusOnly(http.StatusBadGateway))
	f.on("/api/search/poshmark", statusOnly(http.StatusNotFound))
	c := newTestClient(t, f)

	agg, err := c.SearchSources(context.Background(), []string{sources.FacebookMarketplace, sources.Poshmark}, transport.SearchRequest{Query: "x"})
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if agg == nil || len(agg.Results) != 2 || agg.PartialFailure {
		t.Fatalf("expected populated aggregate with both sources failed, got %+v", agg)
	}
	if agg.Results[sources.Poshmark].Error.Kind != "not_found" {
		t.Fatalf("expected not_found kind for poshmark, got %+v", agg.Results[sources.Poshmark].Error)
	}
}

func TestSearchSourcesDeduplicatesAndValidates(t *testing.T) {
	f := newFakeService()
	f.on("/api/search/poshmark", itemsOK())
	c := newTestClient(t, f)

	agg, err := c.SearchSources(context.Background(), []string{sources.Poshmark, sources.Poshmark}, transport.SearchRequest{Query: "x"})
	if err != nil {
		t.Fatalf("SearchSources returned error: %v", err)
	}
	if f.count("/api/search/poshmark") != 1 || len(agg.Order) != 1 {
		t.Fatalf("expected one dispatch, got %d", f.count("/api/search/poshmark"))
	}
	if r := agg.Results[sources.Poshmark]; !r.OK() || len(r.Items) != 0 {
		t.Fatalf("expected ok with zero items, got %+v", r)
	}

	if _, err := c.SearchSources(context.Background(), nil, transport.SearchRequest{Query: "x"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for empty source list, got %v", err)
	}
}

func TestEndToEndPriceFilteringIsCallerSide(t *testing.T) {
	f := newFakeService()
	f.on("/api/search/facebook-marketplace", itemsOK(
		item("facebook-marketplace", "nike-a", 85),
		item("facebook-marketplace", "nike-b", 145),
	))
	f.on("/api/search/poshmark", itemsOK())
	c := newTestClient(t, f)

	agg, err := c.SearchSources(context.Background(), []string{sources.FacebookMarketplace, sources.Poshmark}, transport.SearchRequest{
		Query: "nike sneakers", PriceMin: ptr(20), PriceMax: ptr(100), Limit: 20,
	})
	if err != nil {
		t.Fatalf("SearchSources returned error: %v", err)
	}
	if len(agg.CombinedItems) != 2 {
		t.Fatalf("expected 2 combined items before filtering, got %d", len(agg.CombinedItems))
	}
	if got := aggregate.FilterByPriceRange(agg.CombinedItems, 20, 100); len(got) != 1 {
		t.Fatalf("expected 1 item after filtering, got %d", len(got))
	}
}

func TestSearchAll(t *testing.T) {
	f := newFakeService()
	f.on("/api/search/all", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, transport.SearchAllData{
			Sources: map[string][]transport.MarketplaceItem{
				sources.FacebookMarketplace: {item("facebook-marketplace", "a", 5), item("facebook-marketplace", "b", 6)},
			},
			Total: 2,
		}, "")
	})
	c := newTestClient(t, f)

	agg, err := c.SearchAll(context.Background(), transport.SearchRequest{Query: "lamp"})
	if err != nil {
		t.Fatalf("SearchAll returned error: %v", err)
	}
	if agg.TotalCount != 2 || !agg.PartialFailure {
		t.Fatalf("expected missing poshmark to be a partial failure, got %+v", agg)
	}
	if agg.Results[sources.Poshmark].Error == nil || agg.Results[sources.Poshmark].Error.Kind != "unavailable" {
		t.Fatalf("expected poshmark recorded as unavailable, got %+v", agg.Results[sources.Poshmark])
	}
}

func TestGetItemDetail(t *testing.T) {
	const found = "https://poshmark.com/listing/Coach-Bag-1"
	const missing = "https://poshmark.com/listing/Gone-2"
	const nullData = "https://www.facebook.com/marketplace/item/3/"

	f := newFakeService()
	f.on("/api/item/details", func(w http.ResponseWriter, r *http.Request) {
		var req transport.ItemDetailsRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		switch req.URL {
		case found:
			i := item("", "Coach Bag", 120)
			writeEnvelope(w, http.StatusOK, true, i, "")
		case nullData:
			writeEnvelope(w, http.StatusOK, true, nil, "")
		default:
			writeEnvelope(w, http.StatusNotFound, false, nil, "item not found")
		}
	})
	c := newTestClient(t, f)
	ctx := context.Background()

	got, err := c.GetItemDetail(ctx, found)
	if err != nil || got.Title != "Coach Bag" || got.Platform != sources.Poshmark {
		t.Fatalf("expected item from poshmark, got %+v, %v", got, err)
	}

	for _, u := range []string{missing, nullData} {
		if _, err := c.GetItemDetail(ctx, u); !apperr.Is(err, apperr.KindNotFound) {
			t.Fatalf("GetItemDetail(%s): expected not found, got %v", u, err)
		}
	}
	if f.count("/api/item/details") != 3 {
		t.Fatalf("404 must not be retried, server saw %d calls", f.count("/api/item/details"))
	}

	if _, err := c.GetItemDetail(ctx, "https://www.ebay.com/itm/123"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for unsupported url, got %v", err)
	}
	if f.count("/api/item/details") != 3 {
		t.Fatalf("unsupported url must not be dispatched")
	}
}

func TestCheckHealth(t *testing.T) {
	f := newFakeService()
	f.on("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, transport.HealthData{
			Status:   transport.HealthHealthy,
			Uptime:   12.5,
			Scrapers: map[string]transport.ScraperState{"facebook-marketplace": "active", "poshmark": "error"},
		}, "")
	})
	c := newTestClient(t, f)

	report, err := c.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth returned error: %v", err)
	}
	if report.Status != transport.HealthUnhealthy || report.Reported != transport.HealthHealthy {
		t.Fatalf("expected derived unhealthy over reported healthy, got %+v", report)
	}
	if report.Uptime != 12500*time.Millisecond {
		t.Fatalf("unexpected uptime %s", report.Uptime)
	}
}

func TestCheckHealthTransportFailure(t *testing.T) {
	f := newFakeService()
	f.on("/api/health", statusOnly(http.StatusServiceUnavailable))
	c := newTestClient(t, f)

	if _, err := c.CheckHealth(context.Background()); !apperr.Is(err, apperr.KindTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestPlatforms(t *testing.T) {
	checked := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f := newFakeService()
	f.on("/api/platforms", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, map[string]transport.PlatformInfo{
			"poshmark": {Name: "Poshmark", Status: transport.ScraperActive, LastCheck: &checked},
		}, "")
	})
	c := newTestClient(t, f)

	got, err := c.Platforms(context.Background())
	if err != nil {
		t.Fatalf("Platforms returned error: %v", err)
	}
	p := got["poshmark"]
	if p.Name != "Poshmark" || p.LastCheck == nil || !p.LastCheck.Equal(checked) {
		t.Fatalf("unexpected platform info %+v", p)
	}
}
