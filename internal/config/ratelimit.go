package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// RateLimitConfig configures one token bucket. Several buckets can be
// loaded from the environment under different prefixes.
type RateLimitConfig struct {
	Enabled        bool          `split_words:"true"`
	Capacity       int           `split_words:"true"`
	RefillTokens   int           `split_words:"true"`
	RefillInterval time.Duration `split_words:"true"`
	TTL            time.Duration `split_words:"true"`
	KeyStrategy    string        `split_words:"true"`
	Prefix         string        `split_words:"true"`
	Debug          bool          `split_words:"true"`
}

// DefaultRateLimit is the general API bucket: 60 requests, one more
// every second.
func DefaultRateLimit() RateLimitConfig {
	return RateLimitConfig{
		Enabled:        true,
		Capacity:       60,
		RefillTokens:   1,
		RefillInterval: time.Second,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_user_route",
		Prefix:         "rl",
	}
}

// DefaultAuthRateLimit guards register and login: 5 attempts, one more
// every minute, keyed by client IP and route.
func DefaultAuthRateLimit() RateLimitConfig {
	return RateLimitConfig{
		Enabled:        true,
		Capacity:       5,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            30 * time.Minute,
		KeyStrategy:    "ip_route",
		Prefix:         "rl:auth",
	}
}

// LoadRateLimitConfig overrides def with the variables found under
// prefix (e.g. RATE_LIMIT_CAPACITY for prefix "RATE_LIMIT") and
// clamps the result to usable values.
func LoadRateLimitConfig(prefix string, def RateLimitConfig) (RateLimitConfig, error) {
	cfg := def
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return def, fmt.Errorf("load %s: %w", prefix, err)
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	minTTL := 5 * cfg.RefillInterval
	if cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	if cfg.KeyStrategy == "" {
		cfg.KeyStrategy = "ip_user_route"
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "rl"
	}
	return cfg, nil
}
