package main

import (
	"encoding/json"
	"time"

	"marketplace_search_backend/internal/searchclient"
	"marketplace_search_backend/platform/config"
	"marketplace_search_backend/platform/logger"

	"github.com/spf13/cobra"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	baseURL   string
	attempts  int
	baseDelay time.Duration
	timeout   time.Duration
	verbose   bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "searchctl",
		Short: "Marketplace search client",
		Long: `searchctl queries the marketplace search service and prints JSON.

Example usage:
  searchctl search poshmark vintage jacket --sort price-low
  searchctl search-all nike sneakers --price-max 100 --stats
  searchctl detail https://poshmark.com/listing/Coach-Tabby-Shoulder-Bag-65a2aa01
  searchctl health`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.baseURL, "base-url", "", "search service URL (default SCRAPER_BASE_URL)")
	flags.IntVar(&opts.attempts, "attempts", 0, "max attempts per call (default CLIENT_MAX_ATTEMPTS)")
	flags.DurationVar(&opts.baseDelay, "base-delay", 0, "linear backoff step (default CLIENT_BASE_DELAY)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "per-attempt timeout (default CLIENT_ATTEMPT_TIMEOUT)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log every transport attempt to stderr")

	cmd.AddCommand(
		newSearchCmd(opts),
		newSearchAllCmd(opts),
		newDetailCmd(opts),
		newHealthCmd(opts),
		newPlatformsCmd(opts),
	)
	return cmd
}

// client builds a search client from the environment, overridden by flags.
func (o *rootOptions) client(cmd *cobra.Command) (*searchclient.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	clientCfg := searchclient.ConfigFrom(cfg)
	if o.baseURL != "" {
		clientCfg.BaseURL = o.baseURL
	}
	if o.attempts > 0 {
		clientCfg.Policy.MaxAttempts = o.attempts
	}
	if o.baseDelay > 0 {
		clientCfg.Policy.BaseDelay = o.baseDelay
	}
	if o.timeout > 0 {
		clientCfg.Policy.TimeoutPerAttempt = o.timeout
	}

	log := logger.Discard()
	if o.verbose {
		log = logger.NewWithWriter("development", cmd.ErrOrStderr())
	}
	return searchclient.New(clientCfg, log)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
