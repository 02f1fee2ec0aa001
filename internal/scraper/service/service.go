// Package service provides the scraper service business logic: dispatching
// searches to scrapers, caching results and tracking per-source status.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"runtime"
	"sync"
	"time"

	"marketplace_search_backend/internal/marketplace/sources"
	"marketplace_search_backend/internal/marketplace/transport"
	"marketplace_search_backend/internal/scraper/cache"
	"marketplace_search_backend/platform/apperr"
	"marketplace_search_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

// Scraper is one marketplace variant.
type Scraper interface {
	ID() string
	Name() string
	// SearchItems returns listings already ordered and limited for req.
	SearchItems(ctx context.Context, req transport.SearchRequest) ([]transport.MarketplaceItem, error)
	// GetItemDetails returns nil, nil when the listing does not exist.
	GetItemDetails(ctx context.Context, rawURL string) (*transport.MarketplaceItem, error)
}

type sourceStatus struct {
	state     transport.ScraperState
	lastCheck *time.Time
}

// Service routes requests to scrapers.
type Service struct {
	registry *sources.Registry
	scrapers map[string]Scraper
	cache    cache.Cache
	cacheTTL time.Duration
	log      *logger.Logger
	started  time.Time
	now      func() time.Time

	mu     sync.RWMutex
	status map[string]sourceStatus
}

// Options configures a Service.
type Options struct {
	Registry *sources.Registry
	Scrapers []Scraper
	// Enabled lists the active source ids. Others report inactive.
	Enabled  []string
	Cache    cache.Cache
	CacheTTL time.Duration
}

// New creates a scraper service.
func New(opts Options, log *logger.Logger) *Service {
	registry := opts.Registry
	if registry == nil {
		registry = sources.Default()
	}
	c := opts.Cache
	if c == nil {
		c = cache.NewMemory()
	}

	enabled := make(map[string]bool, len(opts.Enabled))
	for _, id := range opts.Enabled {
		enabled[id] = true
	}

	s := &Service{
		registry: registry,
		scrapers: make(map[string]Scraper, len(opts.Scrapers)),
		cache:    c,
		cacheTTL: opts.CacheTTL,
		log:      log,
		started:  time.Now(),
		now:      time.Now,
		status:   make(map[string]sourceStatus),
	}

	for _, sc := range opts.Scrapers {
		if !enabled[sc.ID()] {
			continue
		}
		s.scrapers[sc.ID()] = sc
	}
	for _, id := range registry.IDs() {
		state := transport.ScraperInactive
		if _, ok := s.scrapers[id]; ok {
			state = transport.ScraperActive
		}
		s.status[id] = sourceStatus{state: state}
	}

	return s
}

// Search runs one source. An unknown source is KindNotFound, a known but
// disabled one KindUnavailable.
func (s *Service) Search(ctx context.Context, sourceID string, req transport.SearchRequest) ([]transport.MarketplaceItem, error) {
	sc, err := s.scraper(sourceID)
	if err != nil {
		return nil, err
	}
	return s.search(ctx, sc, req)
}

// SearchAll runs every active source concurrently. A failing source is
// marked as error and left out of the result, so callers never mistake it
// for a source with zero listings.
func (s *Service) SearchAll(ctx context.Context, req transport.SearchRequest) transport.SearchAllData {
	ids := s.activeIDs()
	lists := make([][]transport.MarketplaceItem, len(ids))

	var g errgroup.Group
	for i, id := range ids {
		i := i
		sc := s.scrapers[id]
		g.Go(func() error {
			items, err := s.search(ctx, sc, req)
			if err != nil {
				return nil
			}
			lists[i] = items
			return nil
		})
	}
	_ = g.Wait()

	data := transport.SearchAllData{Sources: make(map[string][]transport.MarketplaceItem, len(ids))}
	for i, id := range ids {
		if lists[i] == nil {
			continue
		}
		data.Sources[id] = lists[i]
		data.Total += len(lists[i])
	}
	return data
}

// ItemDetails fetches one listing. Any URL that does not resolve to a listing
// is KindNotFound.
func (s *Service) ItemDetails(ctx context.Context, rawURL string) (*transport.MarketplaceItem, error) {
	desc, ok := s.registry.Match(rawURL)
	if !ok {
		return nil, apperr.NotFound("no source handles this url")
	}
	sc, err := s.scraper(desc.ID)
	if err != nil {
		return nil, err
	}

	item, err := sc.GetItemDetails(ctx, rawURL)
	if err != nil {
		s.markError(sc.ID(), "item_details", err)
		return nil, apperr.Wrap(apperr.KindInternal, "item lookup failed", err)
	}
	s.markActive(sc.ID())
	if item == nil {
		return nil, apperr.NotFound("item not found")
	}
	return item, nil
}

// Health reports uptime, process memory and per-source state.
func (s *Service) Health() transport.HealthData {
	scrapers := s.states()
	return transport.HealthData{
		Status:    transport.DeriveHealth(scrapers),
		Timestamp: s.now().UTC(),
		Uptime:    math.Round(time.Since(s.started).Seconds()*1000) / 1000,
		Memory:    memoryUsage(),
		Scrapers:  scrapers,
	}
}

// Platforms lists every known source with its display name and state.
func (s *Service) Platforms() map[string]transport.PlatformInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]transport.PlatformInfo, len(s.status))
	for _, id := range s.registry.IDs() {
		desc, _ := s.registry.Lookup(id)
		st := s.status[id]
		out[id] = transport.PlatformInfo{
			Name:      desc.Name,
			Status:    st.state,
			LastCheck: st.lastCheck,
		}
	}
	return out
}

func (s *Service) search(ctx context.Context, sc Scraper, req transport.SearchRequest) ([]transport.MarketplaceItem, error) {
	key := cacheKey(sc.ID(), req)
	if cached, ok := s.fromCache(ctx, key); ok {
		return cached, nil
	}

	items, err := sc.SearchItems(ctx, req)
	if err != nil {
		s.markError(sc.ID(), "search", err)
		return nil, apperr.Wrap(apperr.KindInternal, "search failed for "+sc.ID(), err)
	}
	if items == nil {
		items = []transport.MarketplaceItem{}
	}
	s.markActive(sc.ID())
	s.toCache(ctx, key, items)
	return items, nil
}

func (s *Service) toCache(ctx context.Context, key string, items []transport.MarketplaceItem) {
	if s.cacheTTL <= 0 {
		return
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL); err != nil {
		s.log.Warn("search cache write failed", "error", err)
	}
}

func (s *Service) fromCache(ctx context.Context, key string) ([]transport.MarketplaceItem, bool) {
	if s.cacheTTL <= 0 {
		return nil, false
	}
	payload, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("search cache read failed", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var items []transport.MarketplaceItem
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, false
	}
	return items, true
}

func (s *Service) scraper(sourceID string) (Scraper, error) {
	if _, known := s.registry.Lookup(sourceID); !known {
		return nil, apperr.NotFound("unknown source: " + sourceID)
	}
	sc, ok := s.scrapers[sourceID]
	if !ok {
		return nil, apperr.Unavailable("source is disabled: " + sourceID)
	}
	return sc, nil
}

func (s *Service) activeIDs() []string {
	ids := make([]string, 0, len(s.scrapers))
	for _, id := range s.registry.IDs() {
		if _, ok := s.scrapers[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *Service) states() map[string]transport.ScraperState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]transport.ScraperState, len(s.status))
	for id, st := range s.status {
		out[id] = st.state
	}
	return out
}

func (s *Service) markActive(sourceID string) {
	s.setStatus(sourceID, transport.ScraperActive)
}

func (s *Service) markError(sourceID, operation string, err error) {
	s.log.SourceFailure(sourceID, operation, err)
	s.setStatus(sourceID, transport.ScraperError)
}

func (s *Service) setStatus(sourceID string, state transport.ScraperState) {
	now := s.now().UTC()
	s.mu.Lock()
	s.status[sourceID] = sourceStatus{state: state, lastCheck: &now}
	s.mu.Unlock()
}

// cacheKey hashes the normalized request so equal searches share an entry.
func cacheKey(sourceID string, req transport.SearchRequest) string {
	payload, _ := json.Marshal(req)
	sum := sha256.Sum256(payload)
	return "search:" + sourceID + ":" + hex.EncodeToString(sum[:12])
}

func memoryUsage() transport.MemoryUsage {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	usage := transport.MemoryUsage{Used: m.HeapAlloc, Total: m.Sys}
	if m.Sys > 0 {
		usage.Percentage = math.Round(float64(m.HeapAlloc)/float64(m.Sys)*10000) / 100
	}
	return usage
}
