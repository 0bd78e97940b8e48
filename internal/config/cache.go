package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// CacheConfig configures the per-user response cache of the read
// endpoints. Entries are keyed by user and a per-user generation that
// writes bump, so a read after a write never sees a stale list.
type CacheConfig struct {
	Enabled      bool          `split_words:"true" default:"true"`
	TTL          time.Duration `split_words:"true" default:"5m"`
	Prefix       string        `split_words:"true" default:"cache"`
	MaxBodyBytes int           `split_words:"true" default:"1048576"`
}

// LoadCacheConfig decodes CACHE_* variables.
func LoadCacheConfig() (CacheConfig, error) {
	var cfg CacheConfig
	if err := envconfig.Process("CACHE", &cfg); err != nil {
		return CacheConfig{}, fmt.Errorf("load cache config: %w", err)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	return cfg, nil
}
