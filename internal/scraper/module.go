// Package scraper provides the marketplace scraper service module.
// This file wires the placeholder scrapers, cache and handlers together.
package scraper

import (
	apphttp "marketplace_search_backend/internal/http"
	"marketplace_search_backend/internal/scraper/cache"
	"marketplace_search_backend/internal/scraper/handler"
	"marketplace_search_backend/internal/scraper/service"
	"marketplace_search_backend/internal/scraper/sources"
	"marketplace_search_backend/platform/config"
	"marketplace_search_backend/platform/logger"
	"marketplace_search_backend/platform/validator"
)

// ModuleConfig combines the config interfaces needed by the scraper module.
type ModuleConfig interface {
	config.ScraperConfig
	config.CacheConfig
}

// Module is the scraper bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule creates the scraper module with both placeholder marketplaces.
func NewModule(cfg ModuleConfig, c cache.Cache, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(service.Options{
		Scrapers: []service.Scraper{sources.NewFacebook(), sources.NewPoshmark()},
		Enabled:  cfg.GetEnabledSources(),
		Cache:    c,
		CacheTTL: cfg.GetCacheTTL(),
	}, log)

	log.Info("scraper module initialized", "sources", cfg.GetEnabledSources(), "cache_ttl", cfg.GetCacheTTL())

	return &Module{handler: handler.New(svc, val)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "scraper"
}

// RegisterRoutes mounts scraper routes under /api.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.API)
}

var _ apphttp.Module = (*Module)(nil)
