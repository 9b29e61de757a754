package cache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// counterSlack is how many keys ristretto tracks per held entry for its
// admission frequency sketch.
const counterSlack = 10

// ResponseCache is a ristretto-backed Cache that counts entries instead of
// bytes: one venue response occupies one slot regardless of payload size.
type ResponseCache struct {
	backing *ristretto.Cache
	logger  *zap.Logger
}

// Config bounds the response cache.
type Config struct {
	// MaxEntries caps how many responses are held at once.
	MaxEntries int64
	Logger     *zap.Logger
}

// New creates a response cache. Admission is frequency-based, so a venue
// fetched once under memory pressure may not be admitted.
func New(cfg *Config) (*ResponseCache, error) {
	if cfg.MaxEntries <= 0 {
		return nil, fmt.Errorf("max entries must be positive, got %d", cfg.MaxEntries)
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	backing, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.MaxEntries * counterSlack,
		MaxCost:     cfg.MaxEntries,
		BufferItems: 64, // ristretto's recommended Get buffer size
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}

	return &ResponseCache{
		backing: backing,
		logger:  cfg.Logger,
	}, nil
}

// Get returns the cached response for key.
func (c *ResponseCache) Get(key string) (interface{}, bool) {
	value, found := c.backing.Get(key)
	if found {
		CacheHitsTotal.Inc()
		c.logger.Debug("cache-hit", zap.String("key", key))
	} else {
		CacheMissesTotal.Inc()
		c.logger.Debug("cache-miss", zap.String("key", key))
	}

	return value, found
}

// Set stores a response at unit cost. Writes are buffered; a rejected write
// reports false and the previous entry, if any, stays served.
func (c *ResponseCache) Set(key string, value interface{}, ttl time.Duration) bool {
	ok := c.backing.SetWithTTL(key, value, 1, ttl)
	if !ok {
		c.logger.Debug("cache-set-rejected", zap.String("key", key))
		return false
	}

	CacheSetsTotal.Inc()
	c.logger.Debug("cache-set",
		zap.String("key", key),
		zap.Duration("ttl", ttl))

	return true
}

// Delete drops a single entry.
func (c *ResponseCache) Delete(key string) {
	c.backing.Del(key)
	CacheDeletesTotal.Inc()
}

// Clear drops every entry.
func (c *ResponseCache) Clear() {
	c.backing.Clear()
	c.logger.Info("cache-cleared")
}

// Close releases the cache's resources.
func (c *ResponseCache) Close() {
	c.backing.Close()
}

// Wait blocks until buffered writes are applied. Fetch paths never need
// this; tests asserting on a just-written entry do.
func (c *ResponseCache) Wait() {
	c.backing.Wait()
}
