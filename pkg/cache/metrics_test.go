package cache

import "testing"

func TestMetricsRegistered(t *testing.T) {
	if CacheHitsTotal == nil {
		t.Error("CacheHitsTotal is nil")
	}
	if CacheMissesTotal == nil {
		t.Error("CacheMissesTotal is nil")
	}
	if CacheSetsTotal == nil {
		t.Error("CacheSetsTotal is nil")
	}
	if CacheDeletesTotal == nil {
		t.Error("CacheDeletesTotal is nil")
	}

	CacheHitsTotal.Inc()
	CacheMissesTotal.Inc()
	CacheSetsTotal.Inc()
	CacheDeletesTotal.Inc()
}
