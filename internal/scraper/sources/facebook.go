package sources

import (
	"context"
	"strings"
	"time"

	registry "marketplace_search_backend/internal/marketplace/sources"
	"marketplace_search_backend/internal/marketplace/transport"
)

const facebookItemPrefix = "/marketplace/item/"

// Facebook is the placeholder Facebook Marketplace scraper.
type Facebook struct {
	ext extractor
	now func() time.Time
}

// NewFacebook creates the Facebook Marketplace scraper.
func NewFacebook() *Facebook {
	return &Facebook{
		ext: extractor{
			platform: registry.FacebookMarketplace,
			baseURL:  "https://www.facebook.com/marketplace",
			sel: selectors{
				Card:        `div[data-testid="marketplace-listing"]`,
				Title:       "span.listing-title",
				Link:        "a.listing-link",
				Image:       "img.listing-image",
				Price:       "span.listing-price",
				Location:    "span.listing-location",
				Seller:      "span.listing-seller",
				Condition:   "span.listing-condition",
				Category:    "span.listing-category",
				Description: "p.listing-description",
			},
			nativeID: facebookItemID,
		},
		now: time.Now,
	}
}

func (f *Facebook) ID() string   { return registry.FacebookMarketplace }
func (f *Facebook) Name() string { return "Facebook Marketplace" }

// SearchItems returns listings for req ordered by req.SortBy and capped at req.Limit.
func (f *Facebook) SearchItems(ctx context.Context, req transport.SearchRequest) ([]transport.MarketplaceItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := render("facebook_search.html", newPageData(req))
	if err != nil {
		return nil, err
	}
	return order(f.ext.extract(doc, f.now().UTC()), req.SortBy, req.Limit), nil
}

// GetItemDetails returns the listing at rawURL, or nil when there is none.
func (f *Facebook) GetItemDetails(ctx context.Context, rawURL string) (*transport.MarketplaceItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := render("facebook_items.html", pageData{})
	if err != nil {
		return nil, err
	}
	return findByPath(f.ext.extract(doc, f.now().UTC()), rawURL), nil
}

// facebookItemID reads the numeric id from /marketplace/item/<id>/.
func facebookItemID(path string) string {
	if !strings.HasPrefix(path, facebookItemPrefix) {
		return ""
	}
	id := strings.Trim(strings.TrimPrefix(path, facebookItemPrefix), "/")
	if i := strings.IndexByte(id, '/'); i >= 0 {
		id = id[:i]
	}
	return id
}
