package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// KnownVenues are the adapter names ENABLED_VENUES may reference.
var KnownVenues = []string{"polymarket", "kalshi", "manifold", "predictit", "sportsbooks", "betfair"}

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Scanning
	ScanInterval   time.Duration
	AdapterTimeout time.Duration
	EnabledVenues  []string
	MatchThreshold float64

	// Detection
	MinArbProfitPct float64
	MinEVPct        float64
	DefaultStakeUSD float64

	// Venue credentials and source options
	PolymarketAPIKey     string
	ManifoldAPIKey       string
	KalshiAPIKeyID       string
	KalshiPrivateKeyPath string
	OddsAPIKey           string
	BetfairAPIKey        string
	SportsbookSports     []string
	BetfairEventTypeID   string

	// Circuit breaker
	BreakerFailureThreshold int
	BreakerCooldown         time.Duration

	// Storage
	StorageMode  string // "postgres", "console" or "none"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string

	// Telegram alerts
	TelegramBotToken string
	TelegramChatID   int64
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Scanning defaults
		ScanInterval:   getSecondsOrDefault("SCAN_INTERVAL_SECONDS", 2*time.Second),
		AdapterTimeout: getSecondsOrDefault("ADAPTER_TIMEOUT_SECONDS", 12*time.Second),
		EnabledVenues:  getListOrDefault("ENABLED_VENUES", []string{"polymarket", "kalshi", "manifold", "predictit", "sportsbooks"}),
		MatchThreshold: getFloat64OrDefault("MATCH_SIMILARITY_THRESHOLD", 0.45),

		// Detection defaults
		MinArbProfitPct: getFloat64OrDefault("MIN_ARBITRAGE_PROFIT_PCT", 0.1),
		MinEVPct:        getFloat64OrDefault("MIN_EV_PCT", 3.0),
		DefaultStakeUSD: getFloat64OrDefault("DEFAULT_STAKE_USD", 1000.0),

		// Venue credentials are optional; adapters degrade without them.
		PolymarketAPIKey:     os.Getenv("POLYMARKET_API_KEY"),
		ManifoldAPIKey:       os.Getenv("MANIFOLD_API_KEY"),
		KalshiAPIKeyID:       os.Getenv("KALSHI_API_KEY_ID"),
		KalshiPrivateKeyPath: os.Getenv("KALSHI_PRIVATE_KEY_PATH"),
		OddsAPIKey:           os.Getenv("ODDS_API_KEY"),
		BetfairAPIKey:        os.Getenv("BETFAIR_API_KEY"),
		SportsbookSports:     getListOrDefault("SPORTSBOOK_SPORTS", []string{"basketball_nba", "americanfootball_nfl", "baseball_mlb", "icehockey_nhl"}),
		BetfairEventTypeID:   getEnvOrDefault("BETFAIR_EVENT_TYPE_ID", "7"),

		// Circuit breaker defaults
		BreakerFailureThreshold: getIntOrDefault("BREAKER_FAILURE_THRESHOLD", 5),
		BreakerCooldown:         getSecondsOrDefault("BREAKER_COOLDOWN_SECONDS", 30*time.Second),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_TYPE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "postgres"),
		PostgresPass: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "oddsintel"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),

		// Telegram defaults
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   getInt64OrDefault("TELEGRAM_CHAT_ID", 0),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.ScanInterval <= 0 {
		return fmt.Errorf("SCAN_INTERVAL_SECONDS must be positive, got %v", c.ScanInterval)
	}

	if c.AdapterTimeout <= 0 {
		return fmt.Errorf("ADAPTER_TIMEOUT_SECONDS must be positive, got %v", c.AdapterTimeout)
	}

	if len(c.EnabledVenues) == 0 {
		return fmt.Errorf("ENABLED_VENUES cannot be empty")
	}
	for _, venue := range c.EnabledVenues {
		if !isKnownVenue(venue) {
			return fmt.Errorf("ENABLED_VENUES contains unknown venue %q (known: %s)",
				venue, strings.Join(KnownVenues, ", "))
		}
	}

	if c.MatchThreshold <= 0 || c.MatchThreshold > 1.0 {
		return fmt.Errorf("MATCH_SIMILARITY_THRESHOLD must be in (0, 1], got %f", c.MatchThreshold)
	}

	if c.MinArbProfitPct < 0 {
		return fmt.Errorf("MIN_ARBITRAGE_PROFIT_PCT must be non-negative, got %f", c.MinArbProfitPct)
	}

	if c.MinEVPct < 0 {
		return fmt.Errorf("MIN_EV_PCT must be non-negative, got %f", c.MinEVPct)
	}

	if c.DefaultStakeUSD <= 0 {
		return fmt.Errorf("DEFAULT_STAKE_USD must be positive, got %f", c.DefaultStakeUSD)
	}

	if c.BreakerFailureThreshold < 1 {
		return fmt.Errorf("BREAKER_FAILURE_THRESHOLD must be at least 1, got %d", c.BreakerFailureThreshold)
	}

	if c.BreakerCooldown <= 0 {
		return fmt.Errorf("BREAKER_COOLDOWN_SECONDS must be positive, got %v", c.BreakerCooldown)
	}

	if c.StorageMode != "console" && c.StorageMode != "postgres" && c.StorageMode != "none" {
		return fmt.Errorf("STORAGE_TYPE must be 'console', 'postgres' or 'none', got %q", c.StorageMode)
	}

	return nil
}

// VenueEnabled reports whether the named adapter is in ENABLED_VENUES.
func (c *Config) VenueEnabled(name string) bool {
	for _, venue := range c.EnabledVenues {
		if venue == name {
			return true
		}
	}
	return false
}

// PostgresDSN assembles the journal connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPass, c.PostgresDB, c.PostgresSSL)
}

func isKnownVenue(name string) bool {
	for _, venue := range KnownVenues {
		if venue == name {
			return true
		}
	}
	return false
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

// getSecondsOrDefault reads an integer number of seconds.
func getSecondsOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	seconds, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return time.Duration(seconds) * time.Second
}

// getListOrDefault reads a comma-separated list, trimming whitespace and
// dropping empty entries.
func getListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		list = append(list, part)
	}
	if len(list) == 0 {
		return defaultValue
	}

	return list
}
