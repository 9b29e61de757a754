package config

import (
	"os"
	"testing"
)

// BenchmarkConfig_Validate benchmarks configuration validation
func BenchmarkConfig_Validate(b *testing.B) {
	cfg, err := LoadFromEnv()
	if err != nil {
		b.Fatalf("load config: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cfg.Validate()
	}
}

// BenchmarkConfig_LoadFromEnv benchmarks environment variable loading
func BenchmarkConfig_LoadFromEnv(b *testing.B) {
	// Set test environment variables
	os.Setenv("SCAN_INTERVAL_SECONDS", "2")
	os.Setenv("MIN_ARBITRAGE_PROFIT_PCT", "0.1")
	os.Setenv("DEFAULT_STAKE_USD", "1000")
	os.Setenv("ENABLED_VENUES", "polymarket,kalshi,manifold")
	defer func() {
		os.Unsetenv("SCAN_INTERVAL_SECONDS")
		os.Unsetenv("MIN_ARBITRAGE_PROFIT_PCT")
		os.Unsetenv("DEFAULT_STAKE_USD")
		os.Unsetenv("ENABLED_VENUES")
	}()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = LoadFromEnv()
	}
}
