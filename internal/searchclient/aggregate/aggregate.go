// Package aggregate merges per-source search outcomes and provides views over
// the merged items. Nothing here mutates its input.
package aggregate

import (
	"sort"

	"marketplace_search_backend/internal/marketplace/transport"
)

// Aggregate merges results in the order given. A repeated source id keeps its
// first result.
func Aggregate(results []transport.SourceResult) *transport.AggregatedResult {
	out := &transport.AggregatedResult{
		Results:       make(map[string]transport.SourceResult, len(results)),
		Order:         make([]string, 0, len(results)),
		CombinedItems: []transport.MarketplaceItem{},
	}

	var anyOK, anyFailed bool
	for _, r := range results {
		if _, seen := out.Results[r.SourceID]; seen {
			continue
		}

		r.Items = append([]transport.MarketplaceItem(nil), r.Items...)
		if r.Items == nil {
			r.Items = []transport.MarketplaceItem{}
		}
		if r.Error != nil {
			info := *r.Error
			r.Error = &info
		}
		out.Results[r.SourceID] = r
		out.Order = append(out.Order, r.SourceID)

		if !r.OK() {
			anyFailed = true
			continue
		}
		anyOK = true
		out.CombinedItems = append(out.CombinedItems, r.Items...)
		out.TotalCount += len(r.Items)
	}

	out.PartialFailure = anyOK && anyFailed
	return out
}

// IsTotalFailure reports whether every source in res failed. An empty result
// is not a total failure.
func IsTotalFailure(res *transport.AggregatedResult) bool {
	if res == nil || len(res.Results) == 0 {
		return false
	}
	for _, r := range res.Results {
		if r.OK() {
			return false
		}
	}
	return true
}

// FilterByPlatform returns items whose platform equals platform.
func FilterByPlatform(items []transport.MarketplaceItem, platform string) []transport.MarketplaceItem {
	out := make([]transport.MarketplaceItem, 0, len(items))
	for _, item := range items {
		if item.Platform == platform {
			out = append(out, item)
		}
	}
	return out
}

// FilterByPriceRange keeps items with min <= price <= max.
func FilterByPriceRange(items []transport.MarketplaceItem, min, max float64) []transport.MarketplaceItem {
	out := make([]transport.MarketplaceItem, 0, len(items))
	for _, item := range items {
		if item.Price >= min && item.Price <= max {
			out = append(out, item)
		}
	}
	return out
}

// SortByPrice returns a sorted copy. Equal prices keep their original order.
func SortByPrice(items []transport.MarketplaceItem, ascending bool) []transport.MarketplaceItem {
	out := append([]transport.MarketplaceItem(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		if ascending {
			return out[i].Price < out[j].Price
		}
		return out[i].Price > out[j].Price
	})
	return out
}

// Categories lists distinct non-empty categories in first-seen order.
func Categories(items []transport.MarketplaceItem) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, item := range items {
		if item.Category == "" {
			continue
		}
		if _, ok := seen[item.Category]; ok {
			continue
		}
		seen[item.Category] = struct{}{}
		out = append(out, item.Category)
	}
	return out
}

// PriceStats summarizes item prices.
type PriceStats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

// Stats computes PriceStats over every item, including unparsed (0) prices.
// An empty slice gives zero stats.
func Stats(items []transport.MarketplaceItem) PriceStats {
	if len(items) == 0 {
		return PriceStats{}
	}

	prices := make([]float64, len(items))
	var sum float64
	for i, item := range items {
		prices[i] = item.Price
		sum += item.Price
	}
	sort.Float64s(prices)

	n := len(prices)
	median := prices[n/2]
	if n%2 == 0 {
		median = (prices[n/2-1] + prices[n/2]) / 2
	}

	return PriceStats{
		Count:  n,
		Min:    prices[0],
		Max:    prices[n-1],
		Mean:   sum / float64(n),
		Median: median,
	}
}
