package main

import (
	"errors"
	"strings"

	"marketplace_search_backend/internal/marketplace/transport"
	"marketplace_search_backend/internal/marketplace/validation"
	"marketplace_search_backend/internal/searchclient/aggregate"

	"github.com/spf13/cobra"
)

// requestFlags map command flags onto a SearchRequest.
type requestFlags struct {
	category  string
	location  string
	condition string
	sortBy    string
	priceMin  float64
	priceMax  float64
	limit     int
}

func (f *requestFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.category, "category", "", "category filter")
	flags.StringVar(&f.location, "location", "", "location filter")
	flags.StringVar(&f.condition, "condition", "", "condition filter")
	flags.StringVar(&f.sortBy, "sort", "", "relevance, price-low, price-high, date or distance")
	flags.Float64Var(&f.priceMin, "price-min", 0, "minimum price")
	flags.Float64Var(&f.priceMax, "price-max", 0, "maximum price")
	flags.IntVar(&f.limit, "limit", 0, "items per source, clamped to 1-100")
}

func (f *requestFlags) request(cmd *cobra.Command, args []string) transport.SearchRequest {
	req := transport.SearchRequest{
		Query:     strings.Join(args, " "),
		Category:  f.category,
		Location:  f.location,
		Condition: f.condition,
		SortBy:    transport.SortBy(f.sortBy),
		Limit:     validation.ClampLimit(f.limit),
	}
	if cmd.Flags().Changed("price-min") {
		v := f.priceMin
		req.PriceMin = &v
	}
	if cmd.Flags().Changed("price-max") {
		v := f.priceMax
		req.PriceMax = &v
	}
	return req
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	rf := &requestFlags{}

	cmd := &cobra.Command{
		Use:   "search <source> <query...>",
		Short: "Search a single marketplace source",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}

			result, err := client.SearchSource(cmd.Context(), args[0], rf.request(cmd, args[1:]))
			if err != nil {
				return err
			}
			if err := printJSON(cmd, result); err != nil {
				return err
			}
			if !result.OK() {
				return errors.New(args[0] + " failed: " + result.Error.Message)
			}
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}

// searchAllOutput is the aggregated result plus the caller-side view of its
// combined items.
type searchAllOutput struct {
	*transport.AggregatedResult
	Items      []transport.MarketplaceItem `json:"items"`
	Stats      *aggregate.PriceStats       `json:"stats,omitempty"`
	Categories []string                    `json:"categories,omitempty"`
}

func newSearchAllCmd(opts *rootOptions) *cobra.Command {
	rf := &requestFlags{}
	var (
		sourceIDs []string
		server    bool
		platform  string
		priceSort string
		stats     bool
	)

	cmd := &cobra.Command{
		Use:   "search-all <query...>",
		Short: "Search several sources and aggregate the results",
		Long: `Search several sources and aggregate the results.

By default every known source is queried concurrently from this client.
With --server the service fans out in a single call instead.
Price flags are sent with the request and applied to the combined items here,
since the service does not filter by price.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if priceSort != "" && priceSort != "asc" && priceSort != "desc" {
				return errors.New("--sort-price must be asc or desc")
			}

			client, err := opts.client(cmd)
			if err != nil {
				return err
			}

			req := rf.request(cmd, args)
			var result *transport.AggregatedResult
			var searchErr error
			switch {
			case server:
				result, searchErr = client.SearchAll(cmd.Context(), req)
			case len(sourceIDs) > 0:
				result, searchErr = client.SearchSources(cmd.Context(), sourceIDs, req)
			default:
				result, searchErr = client.SearchSources(cmd.Context(), client.Sources(), req)
			}
			if result == nil {
				return searchErr
			}

			out := searchAllOutput{AggregatedResult: result, Items: result.CombinedItems}
			if req.PriceMin != nil || req.PriceMax != nil {
				out.Items = aggregate.FilterByPriceRange(out.Items, valueOr(req.PriceMin, 0), valueOr(req.PriceMax, maxPrice))
			}
			if platform != "" {
				out.Items = aggregate.FilterByPlatform(out.Items, platform)
			}
			if priceSort != "" {
				out.Items = aggregate.SortByPrice(out.Items, priceSort == "asc")
			}
			if stats {
				s := aggregate.Stats(out.Items)
				out.Stats = &s
				out.Categories = aggregate.Categories(out.Items)
			}

			if err := printJSON(cmd, out); err != nil {
				return err
			}
			return searchErr
		},
	}

	rf.register(cmd)
	cmd.Flags().StringSliceVar(&sourceIDs, "sources", nil, "sources to query (default all)")
	cmd.Flags().BoolVar(&server, "server", false, "let the service query every active source")
	cmd.Flags().StringVar(&platform, "platform", "", "keep only items from this platform")
	cmd.Flags().StringVar(&priceSort, "sort-price", "", "sort combined items by price: asc or desc")
	cmd.Flags().BoolVar(&stats, "stats", false, "include price statistics and categories")
	cmd.MarkFlagsMutuallyExclusive("sources", "server")
	return cmd
}

const maxPrice = 1e12

func valueOr(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}
