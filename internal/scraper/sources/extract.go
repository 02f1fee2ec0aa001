// Package sources holds the placeholder scrapers, one per marketplace. They
// render canned HTML pages for a query and extract listing cards from them;
// no marketplace is contacted.
package sources

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"marketplace_search_backend/internal/marketplace/listing"
	"marketplace_search_backend/internal/marketplace/transport"
	"marketplace_search_backend/platform/sanitize"

	"github.com/PuerkitoBio/goquery"
)

//go:embed fixtures/*.html
var fixtures embed.FS

var pages = template.Must(template.ParseFS(fixtures, "fixtures/*.html"))

// pageData is what the fixture templates can reference.
type pageData struct {
	Query     string
	Slug      string
	Category  string
	Location  string
	Condition string
}

func newPageData(req transport.SearchRequest) pageData {
	return pageData{
		Query:     req.Query,
		Slug:      strings.Join(strings.Fields(req.Query), "-"),
		Category:  req.Category,
		Location:  req.Location,
		Condition: req.Condition,
	}
}

func render(name string, data pageData) (*goquery.Document, error) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return doc, nil
}

// selectors locate listing fields inside one card. Empty selectors are skipped.
type selectors struct {
	Card          string
	Title         string
	Link          string
	Image         string
	Price         string
	OriginalPrice string
	Location      string
	Seller        string
	Brand         string
	Size          string
	Condition     string
	Category      string
	Tag           string
	Description   string
}

// card is an extracted listing plus the attributes used only for ordering.
type card struct {
	item     transport.MarketplaceItem
	path     string
	listedAt time.Time
	distance float64
}

// extractor turns a rendered page into listing cards for one platform.
type extractor struct {
	platform string
	baseURL  string
	sel      selectors
	// nativeID returns the marketplace's own id for a listing path, if any.
	nativeID func(path string) string
}

func (e extractor) extract(doc *goquery.Document, scrapedAt time.Time) []card {
	var cards []card
	doc.Find(e.sel.Card).Each(func(_ int, s *goquery.Selection) {
		c, ok := e.extractCard(s, scrapedAt)
		if ok {
			cards = append(cards, c)
		}
	})
	return cards
}

func (e extractor) extractCard(s *goquery.Selection, scrapedAt time.Time) (card, bool) {
	title := text(s, e.sel.Title)
	if title == "" {
		return card{}, false
	}

	href, _ := s.Find(e.sel.Link).First().Attr("href")
	canonical := listing.CanonicalURL(e.baseURL, href)
	if canonical == "" {
		return card{}, false
	}
	path := ""
	if u, err := url.Parse(canonical); err == nil {
		path = u.Path
	}

	priceSel := s.Find(e.sel.Price).First()
	price := listing.ParsePrice(priceSel.Text())
	currency, _ := priceSel.Attr("data-currency")

	item := transport.MarketplaceItem{
		Title:       title,
		Price:       price,
		Currency:    listing.NormalizeCurrency(currency),
		Description: text(s, e.sel.Description),
		Images:      attrs(s, e.sel.Image, "src"),
		URL:         canonical,
		Location:    text(s, e.sel.Location),
		Seller:      text(s, e.sel.Seller),
		Brand:       text(s, e.sel.Brand),
		Size:        text(s, e.sel.Size),
		Condition:   text(s, e.sel.Condition),
		Category:    text(s, e.sel.Category),
		Tags:        texts(s, e.sel.Tag),
		Platform:    e.platform,
		ScrapedAt:   scrapedAt,
	}
	if raw := text(s, e.sel.OriginalPrice); raw != "" {
		if original := listing.ParsePrice(raw); original > 0 {
			item.OriginalPrice = &original
		}
	}

	if id := e.nativeID(path); id != "" {
		item.ID = e.platform + "-" + id
	} else {
		locationOrBrand := item.Location
		if locationOrBrand == "" {
			locationOrBrand = item.Brand
		}
		item.ID = listing.DeriveID(e.platform, item.Title, item.Price, locationOrBrand)
	}

	c := card{item: item, path: path, distance: math.Inf(1)}
	if listed, ok := s.Attr("data-listed"); ok {
		c.listedAt, _ = time.Parse(time.RFC3339, listed)
	}
	if d, ok := s.Attr("data-distance"); ok {
		if v, err := strconv.ParseFloat(d, 64); err == nil {
			c.distance = v
		}
	}
	return c, true
}

// order sorts cards for sortBy and truncates to limit. Relevance keeps page order.
func order(cards []card, sortBy transport.SortBy, limit int) []transport.MarketplaceItem {
	switch sortBy {
	case transport.SortPriceLow:
		sort.SliceStable(cards, func(i, j int) bool { return cards[i].item.Price < cards[j].item.Price })
	case transport.SortPriceHigh:
		sort.SliceStable(cards, func(i, j int) bool { return cards[i].item.Price > cards[j].item.Price })
	case transport.SortDate:
		sort.SliceStable(cards, func(i, j int) bool { return cards[i].listedAt.After(cards[j].listedAt) })
	case transport.SortDistance:
		sort.SliceStable(cards, func(i, j int) bool { return cards[i].distance < cards[j].distance })
	}

	if limit > 0 && len(cards) > limit {
		cards = cards[:limit]
	}
	items := make([]transport.MarketplaceItem, len(cards))
	for i, c := range cards {
		items[i] = c.item
	}
	return items
}

// findByPath returns the card whose canonical path equals the path of rawURL.
func findByPath(cards []card, rawURL string) *transport.MarketplaceItem {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil
	}
	want := strings.TrimRight(u.Path, "/")
	for _, c := range cards {
		if strings.TrimRight(c.path, "/") == want {
			item := c.item
			return &item
		}
	}
	return nil
}

func text(s *goquery.Selection, sel string) string {
	if sel == "" {
		return ""
	}
	return sanitize.Text(s.Find(sel).First().Text())
}

func texts(s *goquery.Selection, sel string) []string {
	if sel == "" {
		return nil
	}
	var out []string
	s.Find(sel).Each(func(_ int, t *goquery.Selection) {
		if v := sanitize.Text(t.Text()); v != "" {
			out = append(out, v)
		}
	})
	return out
}

func attrs(s *goquery.Selection, sel, attr string) []string {
	out := []string{}
	if sel == "" {
		return out
	}
	s.Find(sel).Each(func(_ int, t *goquery.Selection) {
		if v, ok := t.Attr(attr); ok && strings.TrimSpace(v) != "" {
			out = append(out, strings.TrimSpace(v))
		}
	})
	return out
}
