package sources

import (
	"strings"
	"testing"

	"marketplace_search_backend/internal/marketplace/transport"
)

func TestDefaultRegistryOrder(t *testing.T) {
	ids := Default().IDs()
	if len(ids) != 2 || ids[0] != FacebookMarketplace || ids[1] != Poshmark {
		t.Fatalf("unexpected registry ids %v", ids)
	}
}

func TestBuildSearchURLMapsFieldNamesPerSource(t *testing.T) {
	min, max := 20.0, 100.0
	req := transport.SearchRequest{
		Query:    "nike sneakers",
		PriceMin: &min,
		PriceMax: &max,
		SortBy:   transport.SortPriceLow,
		Limit:    20,
	}
	reg := Default()

	fb, _ := reg.Lookup(FacebookMarketplace)
	fbURL := fb.BuildSearchURL(req)
	if !strings.Contains(fbURL, "minPrice=20") || !strings.Contains(fbURL, "maxPrice=100") {
		t.Fatalf("expected facebook camelCase price keys, got %s", fbURL)
	}
	if !strings.Contains(fbURL, "sortBy=price_ascend") {
		t.Fatalf("expected facebook sort value, got %s", fbURL)
	}

	pm, _ := reg.Lookup(Poshmark)
	pmURL := pm.BuildSearchURL(req)
	if !strings.Contains(pmURL, "min_price=20") || !strings.Contains(pmURL, "max_price=100") {
		t.Fatalf("expected poshmark snake_case price keys, got %s", pmURL)
	}
	if !strings.HasPrefix(pmURL, "https://poshmark.com/search?") {
		t.Fatalf("unexpected poshmark base %s", pmURL)
	}
}

func TestBuildSearchURLOmitsUnmappedSort(t *testing.T) {
	pm, _ := Default().Lookup(Poshmark)
	got := pm.BuildSearchURL(transport.SearchRequest{Query: "bag", SortBy: transport.SortDistance})
	if strings.Contains(got, "sort_by") {
		t.Fatalf("expected no sort_by for distance on poshmark, got %s", got)
	}
}

func TestMatchRoutesByHostAndPath(t *testing.T) {
	reg := Default()
	cases := map[string]string{
		"https://www.facebook.com/marketplace/item/123456/": FacebookMarketplace,
		"https://m.facebook.com/marketplace/item/9":         FacebookMarketplace,
		"https://poshmark.com/listing/Coach-Bag-abc123":     Poshmark,
		"https://www.poshmark.com/listing/x":                Poshmark,
	}
	for raw, want := range cases {
		d, ok := reg.Match(raw)
		if !ok || d.ID != want {
			t.Fatalf("Match(%q): expected %s, got %q (ok=%v)", raw, want, d.ID, ok)
		}
	}

	for _, raw := range []string{
		"https://www.facebook.com/groups/123",
		"https://notposhmark.com/listing/x",
		"https://poshmark.com.evil.example/listing/x",
		"not a url",
	} {
		if d, ok := reg.Match(raw); ok {
			t.Fatalf("Match(%q): expected no source, got %s", raw, d.ID)
		}
	}
}

func TestParseRejectsDuplicates(t *testing.T) {
	data := []byte("sources:\n  - id: a\n    domains: [a.com]\n  - id: a\n    domains: [b.com]\n")
	if _, err := Parse(data); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}
