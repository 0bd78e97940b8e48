package config

// Redis backs the distributed rate limiter of calendar-server and,
// optionally, the shared kv store of calendarctl. If the connection
// fails at startup NewRedisClient returns nil and callers degrade by
// disabling the feature.

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
)

// RedisConfig is read from REDIS_* variables.
//   REDIS_HOST and REDIS_PORT – hostname and port of the Redis server
//   REDIS_ADDR – host:port shorthand, used when host/port are not both set
//   REDIS_PASSWORD – optional password
//   REDIS_DB – database number (default 0)
//   REDIS_TLS – enable TLS
type RedisConfig struct {
	Host     string `split_words:"true"`
	Port     string `split_words:"true"`
	Addr     string `split_words:"true" default:"localhost:6379"`
	Password string `split_words:"true"`
	DB       int    `split_words:"true"`
	TLS      bool   `split_words:"true"`
}

// Address resolves host/port against the shorthand.
func (c RedisConfig) Address() string {
	if c.Host != "" && c.Port != "" {
		return c.Host + ":" + c.Port
	}
	return c.Addr
}

// LoadRedisConfig decodes REDIS_* variables.
func LoadRedisConfig() (RedisConfig, error) {
	var cfg RedisConfig
	err := envconfig.Process("REDIS", &cfg)
	return cfg, err
}

// NewRedisClient connects and pings with a short timeout. The returned
// client is nil if the server cannot be reached.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Address(),
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
