package cache

import "time"

// Cache stores venue API responses between scan cycles. Adapter fetches run
// concurrently, so implementations must be safe for parallel use. A zero TTL
// pins an entry until capacity eviction; the PredictIt adapter relies on
// that for its stale outage fallback.
type Cache interface {
	// Get returns the cached response for key, if present.
	Get(key string) (interface{}, bool)

	// Set stores a response for ttl and reports whether the write was
	// accepted. A zero ttl pins the entry.
	Set(key string, value interface{}, ttl time.Duration) bool

	// Delete drops a single entry.
	Delete(key string)

	// Clear drops every entry, stale fallbacks included.
	Clear()

	// Close releases the cache's resources.
	Close()
}
