package sources

import (
	"context"
	"time"

	registry "marketplace_search_backend/internal/marketplace/sources"
	"marketplace_search_backend/internal/marketplace/transport"
)

// Poshmark is the placeholder Poshmark scraper. Poshmark tiles carry no id we
// rely on, so ids are derived from title, price and brand.
type Poshmark struct {
	ext extractor
	now func() time.Time
}

// NewPoshmark creates the Poshmark scraper.
func NewPoshmark() *Poshmark {
	return &Poshmark{
		ext: extractor{
			platform: registry.Poshmark,
			baseURL:  "https://poshmark.com",
			sel: selectors{
				Card:          "div.card",
				Title:         "a.tile__title",
				Link:          "a.tile__covershot",
				Image:         "img.img__container",
				Price:         "span.tile__price",
				OriginalPrice: "span.tile__original-price",
				Seller:        "span.tile__creator",
				Brand:         "a.tile__brand",
				Size:          "a.tile__size",
				Condition:     "span.tile__condition",
				Category:      "span.tile__category",
				Tag:           "span.tile__tag",
				Description:   "p.tile__description",
			},
			nativeID: func(string) string { return "" },
		},
		now: time.Now,
	}
}

func (p *Poshmark) ID() string   { return registry.Poshmark }
func (p *Poshmark) Name() string { return "Poshmark" }

// SearchItems returns listings for req ordered by req.SortBy and capped at req.Limit.
func (p *Poshmark) SearchItems(ctx context.Context, req transport.SearchRequest) ([]transport.MarketplaceItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := render("poshmark_search.html", newPageData(req))
	if err != nil {
		return nil, err
	}
	return order(p.ext.extract(doc, p.now().UTC()), req.SortBy, req.Limit), nil
}

// GetItemDetails returns the listing at rawURL, or nil when there is none.
func (p *Poshmark) GetItemDetails(ctx context.Context, rawURL string) (*transport.MarketplaceItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := render("poshmark_items.html", pageData{})
	if err != nil {
		return nil, err
	}
	return findByPath(p.ext.extract(doc, p.now().UTC()), rawURL), nil
}
