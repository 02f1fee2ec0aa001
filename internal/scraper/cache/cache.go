// Package cache stores serialized search results for a short time so repeated
// identical searches do not hit the scrapers.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"marketplace_search_backend/platform/config"

	"github.com/redis/go-redis/v9"
)

// Cache is a byte-value store with per-entry TTL.
type Cache interface {
	// Get returns the value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// New returns a Redis-backed cache when a Redis URL is configured, otherwise
// an in-memory one.
func New(cfg config.CacheConfig) (Cache, error) {
	if cfg.GetRedisURL() == "" {
		return NewMemory(), nil
	}
	return NewRedis(cfg.GetRedisURL())
}

// =============================================================================
// In-memory
// =============================================================================

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// sweepInterval is how often Set drops expired entries that were never read
// again.
const sweepInterval = time.Minute

// Memory is a process-local cache.
type Memory struct {
	mu        sync.RWMutex
	entries   map[string]memoryEntry
	now       func() time.Time
	lastSweep time.Time
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		entries:   make(map[string]memoryEntry),
		now:       time.Now,
		lastSweep: time.Now(),
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if m.now().After(entry.expiresAt) {
		m.mu.Lock()
		// A Set may have replaced the entry since the read lock was released.
		if current, ok := m.entries[key]; ok && m.now().After(current.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.Sub(m.lastSweep) >= sweepInterval {
		for k, e := range m.entries {
			if now.After(e.expiresAt) {
				delete(m.entries, k)
			}
		}
		m.lastSweep = now
	}

	m.entries[key] = memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: now.Add(ttl),
	}
	return nil
}

// =============================================================================
// Redis
// =============================================================================

const redisKeyPrefix = "marketplace:"

// Redis stores entries in Redis under a fixed key prefix.
type Redis struct {
	client *redis.Client
}

// NewRedis connects using a redis:// or rediss:// URL.
func NewRedis(redisURL string) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Redis{client: redis.NewClient(opt)}, nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return value, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, redisKeyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
