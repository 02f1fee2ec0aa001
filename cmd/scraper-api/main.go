package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apphttp "marketplace_search_backend/internal/http"
	"marketplace_search_backend/internal/http/router"
	"marketplace_search_backend/internal/scraper"
	"marketplace_search_backend/internal/scraper/cache"
	"marketplace_search_backend/platform/config"
	"marketplace_search_backend/platform/logger"
	"marketplace_search_backend/platform/validator"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting scraper service", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	resultCache, closeCache := initCache(ctx, cfg, log)
	if closeCache != nil {
		defer closeCache()
	}

	val := validator.New()

	// ========================================================================
	// Domain Modules
	// ========================================================================

	scraperModule := scraper.NewModule(cfg, resultCache, val, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:  cfg,
		Logger:  log,
		Modules: []apphttp.Module{scraperModule},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initCache connects to Redis when configured and falls back to the
// in-memory cache if it stays unreachable.
func initCache(ctx context.Context, cfg config.CacheConfig, log *logger.Logger) (cache.Cache, func()) {
	c, err := cache.New(cfg)
	if err != nil {
		log.Error("invalid REDIS_URL; using in-memory search cache", "error", err)
		return cache.NewMemory(), nil
	}

	redisCache, ok := c.(*cache.Redis)
	if !ok {
		log.Info("REDIS_URL not configured; using in-memory search cache")
		return c, nil
	}

	if err := withRetry(ctx, log, "redis connection", 3, time.Second, func() error {
		return redisCache.Ping(ctx)
	}); err != nil {
		log.Warn("redis unreachable; using in-memory search cache", "error", err)
		_ = redisCache.Close()
		return cache.NewMemory(), nil
	}

	log.Info("redis search cache connected")
	return redisCache, func() {
		_ = redisCache.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
