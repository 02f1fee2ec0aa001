// Package transport provides DTOs shared by the search client and the scraper service.
package transport

import "time"

// SortBy orders the items a single source returns.
type SortBy string

const (
	SortRelevance SortBy = "relevance"
	SortPriceLow  SortBy = "price-low"
	SortPriceHigh SortBy = "price-high"
	SortDate      SortBy = "date"
	SortDistance  SortBy = "distance"
)

// DefaultLimit is applied when a request does not specify one.
const DefaultLimit = 20

// SearchRequest is the caller-supplied search intent.
type SearchRequest struct {
	Query     string   `json:"query" validate:"required,min=1,max=200"`
	Category  string   `json:"category,omitempty" validate:"max=100"`
	Location  string   `json:"location,omitempty" validate:"max=100"`
	Condition string   `json:"condition,omitempty" validate:"max=100"`
	PriceMin  *float64 `json:"priceMin,omitempty" validate:"omitempty,gte=0"`
	PriceMax  *float64 `json:"priceMax,omitempty" validate:"omitempty,gte=0"`
	SortBy    SortBy   `json:"sortBy,omitempty" validate:"oneof=relevance price-low price-high date distance"`
	Limit     int      `json:"limit,omitempty" validate:"min=1,max=100"`
}

// MarketplaceItem is a single listing.
// Price 0 means "unparsed", not "free".
type MarketplaceItem struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Price         float64   `json:"price"`
	OriginalPrice *float64  `json:"originalPrice,omitempty"`
	Currency      string    `json:"currency"`
	Description   string    `json:"description,omitempty"`
	Images        []string  `json:"images"`
	URL           string    `json:"url"`
	Location      string    `json:"location,omitempty"`
	Seller        string    `json:"seller,omitempty"`
	Brand         string    `json:"brand,omitempty"`
	Size          string    `json:"size,omitempty"`
	Condition     string    `json:"condition,omitempty"`
	Category      string    `json:"category,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	Platform      string    `json:"platform"`
	ScrapedAt     time.Time `json:"scrapedAt"`
}

// SourceStatus is the outcome of querying one source.
type SourceStatus string

const (
	SourceOK     SourceStatus = "ok"
	SourceFailed SourceStatus = "failed"
)

// ErrorInfo describes why a source failed.
type ErrorInfo struct {
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
	Attempts   int    `json:"attempts,omitempty"`
}

// SourceResult is the outcome of querying one backend source.
type SourceResult struct {
	SourceID  string            `json:"sourceId"`
	Status    SourceStatus      `json:"status"`
	Items     []MarketplaceItem `json:"items"`
	Error     *ErrorInfo        `json:"error,omitempty"`
	SearchURL string            `json:"searchUrl,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
}

// OK reports whether the source returned successfully, possibly with zero items.
func (r SourceResult) OK() bool {
	return r.Status == SourceOK
}

// AggregatedResult is the top-level response of a multi-source search.
type AggregatedResult struct {
	Results        map[string]SourceResult `json:"results"`
	Order          []string                `json:"order"`
	CombinedItems  []MarketplaceItem       `json:"combinedItems"`
	TotalCount     int                     `json:"totalCount"`
	PartialFailure bool                    `json:"partialFailure"`
}

// Envelope wraps every response of the scraper service.
type Envelope[T any] struct {
	Success   bool      `json:"success"`
	Data      T         `json:"data"`
	Error     string    `json:"error,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"requestId,omitempty"`
}

// ItemDetailsRequest is the body of POST /api/item/details.
type ItemDetailsRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// ScraperState is the reported state of one source on the service.
type ScraperState string

const (
	ScraperActive   ScraperState = "active"
	ScraperInactive ScraperState = "inactive"
	ScraperError    ScraperState = "error"
)

// HealthStatus is the overall health derived from scraper states.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// MemoryUsage reports process memory in bytes.
type MemoryUsage struct {
	Used       uint64  `json:"used"`
	Total      uint64  `json:"total"`
	Percentage float64 `json:"percentage"`
}

// HealthData is the data of GET /api/health.
type HealthData struct {
	Status    HealthStatus            `json:"status"`
	Timestamp time.Time               `json:"timestamp"`
	Uptime    float64                 `json:"uptime"`
	Memory    MemoryUsage             `json:"memory"`
	Scrapers  map[string]ScraperState `json:"scrapers"`
}

// HealthReport is what the client returns from a health probe.
// Status is derived locally from Scrapers; Reported is what the service said.
type HealthReport struct {
	Status   HealthStatus            `json:"status"`
	Reported HealthStatus            `json:"reported"`
	Uptime   time.Duration           `json:"uptime"`
	Memory   MemoryUsage             `json:"memory"`
	Scrapers map[string]ScraperState `json:"scrapers"`
	Checked  time.Time               `json:"checked"`
}

// PlatformInfo is one entry of GET /api/platforms.
type PlatformInfo struct {
	Name      string       `json:"name"`
	Status    ScraperState `json:"status"`
	LastCheck *time.Time   `json:"lastCheck"`
}
