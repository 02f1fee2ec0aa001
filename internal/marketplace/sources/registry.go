// Package sources describes the marketplaces the search service can query:
// their ids, the hosts their listing URLs live on, and how a SearchRequest
// maps onto each marketplace's own search URL.
package sources

import (
	_ "embed"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"marketplace_search_backend/internal/marketplace/transport"

	"golang.org/x/net/publicsuffix"
	"gopkg.in/yaml.v3"
)

const (
	FacebookMarketplace = "facebook-marketplace"
	Poshmark            = "poshmark"
)

//go:embed registry.yaml
var registryYAML []byte

// Descriptor is the static description of one source.
type Descriptor struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Domains     []string          `yaml:"domains"`
	ItemPaths   []string          `yaml:"itemPaths"`
	SearchURL   string            `yaml:"searchURL"`
	QueryParams map[string]string `yaml:"queryParams"`
	SortValues  map[string]string `yaml:"sortValues"`
}

// Registry is an immutable, ordered set of descriptors.
type Registry struct {
	descriptors []Descriptor
	byID        map[string]int
}

type registryFile struct {
	Sources []Descriptor `yaml:"sources"`
}

// Default returns the registry built from the embedded registry.yaml.
func Default() *Registry {
	reg, err := Parse(registryYAML)
	if err != nil {
		panic("sources: embedded registry is invalid: " + err.Error())
	}
	return reg
}

// Parse builds a registry from YAML.
func Parse(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}

	reg := &Registry{byID: make(map[string]int, len(file.Sources))}
	for _, d := range file.Sources {
		if d.ID == "" {
			return nil, fmt.Errorf("registry entry without id")
		}
		if _, dup := reg.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate source id %q", d.ID)
		}
		if len(d.Domains) == 0 {
			return nil, fmt.Errorf("source %q has no domains", d.ID)
		}
		reg.byID[d.ID] = len(reg.descriptors)
		reg.descriptors = append(reg.descriptors, d)
	}
	return reg, nil
}

// Lookup returns the descriptor for id.
func (r *Registry) Lookup(id string) (Descriptor, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Descriptor{}, false
	}
	return r.descriptors[i], true
}

// IDs returns source ids in registry order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.descriptors))
	for i, d := range r.descriptors {
		ids[i] = d.ID
	}
	return ids
}

// Match finds the source a listing URL belongs to, by registrable domain and
// item path prefix.
func (r *Registry) Match(rawURL string) (Descriptor, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return Descriptor{}, false
	}

	host := strings.ToLower(u.Hostname())
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return Descriptor{}, false
	}

	for _, d := range r.descriptors {
		if !containsFold(d.Domains, domain) {
			continue
		}
		for _, prefix := range d.ItemPaths {
			if strings.HasPrefix(u.Path, prefix) {
				return d, true
			}
		}
	}
	return Descriptor{}, false
}

// BuildSearchURL encodes req with this source's field names. Empty fields are
// omitted, and sortBy is only sent when the source has a value for it.
func (d Descriptor) BuildSearchURL(req transport.SearchRequest) string {
	q := url.Values{}
	set := func(field, value string) {
		key, ok := d.QueryParams[field]
		if !ok || value == "" {
			return
		}
		q.Set(key, value)
	}

	set("query", req.Query)
	set("category", req.Category)
	set("location", req.Location)
	set("condition", req.Condition)
	if req.PriceMin != nil {
		set("priceMin", strconv.FormatFloat(*req.PriceMin, 'f', -1, 64))
	}
	if req.PriceMax != nil {
		set("priceMax", strconv.FormatFloat(*req.PriceMax, 'f', -1, 64))
	}
	if sortValue, ok := d.SortValues[string(req.SortBy)]; ok {
		set("sortBy", sortValue)
	}

	if len(q) == 0 {
		return d.SearchURL
	}
	return d.SearchURL + "?" + q.Encode()
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
