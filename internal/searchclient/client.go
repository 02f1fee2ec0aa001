// Package searchclient is the typed client for the marketplace search
// service. Each Client is constructed by its caller; there is no package state.
package searchclient

import (
	"errors"
	"strings"

	"marketplace_search_backend/internal/marketplace/sources"
	"marketplace_search_backend/internal/marketplace/validation"
	"marketplace_search_backend/platform/config"
	"marketplace_search_backend/platform/logger"
	"marketplace_search_backend/platform/retry"
	"marketplace_search_backend/platform/validator"

	"github.com/go-resty/resty/v2"
)

// Config configures a Client.
type Config struct {
	BaseURL  string
	Policy   retry.Policy
	Registry *sources.Registry
}

// ConfigFrom builds a Config from application settings.
func ConfigFrom(cfg config.ClientConfig) Config {
	return Config{
		BaseURL: cfg.GetScraperBaseURL(),
		Policy: retry.Policy{
			MaxAttempts:       cfg.GetClientMaxAttempts(),
			BaseDelay:         cfg.GetClientBaseDelay(),
			TimeoutPerAttempt: cfg.GetClientAttemptTimeout(),
		},
	}
}

// Client talks to one search service instance.
type Client struct {
	transport *retry.Transport
	validator *validation.Validator
	registry  *sources.Registry
	log       *logger.Logger
}

// New creates a Client with its own resty client.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	return NewWithHTTP(resty.New(), cfg, log)
}

// NewWithHTTP creates a Client on top of an existing resty client. The base
// URL from cfg is applied to it.
func NewWithHTTP(httpClient *resty.Client, cfg Config, log *logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("searchclient: base url is required")
	}
	if httpClient == nil {
		return nil, errors.New("searchclient: nil http client")
	}
	if log == nil {
		log = logger.Discard()
	}

	httpClient.SetBaseURL(baseURL)
	tr, err := retry.New(httpClient, cfg.Policy, log)
	if err != nil {
		return nil, err
	}

	registry := cfg.Registry
	if registry == nil {
		registry = sources.Default()
	}

	return &Client{
		transport: tr,
		validator: validation.New(validator.New()),
		registry:  registry,
		log:       log,
	}, nil
}

// SetSleeper replaces the backoff wait of the underlying transport.
func (c *Client) SetSleeper(s retry.Sleeper) {
	c.transport.SetSleeper(s)
}

// Sources returns the ids this client can query, in registry order.
func (c *Client) Sources() []string {
	return c.registry.IDs()
}
