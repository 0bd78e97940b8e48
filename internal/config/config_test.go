package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiredAndDefaults(t *testing.T) {
	t.Setenv("DB_USER", "cal")
	t.Setenv("DB_NAME", "calendar")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "calendar.changes", cfg.ChangesQueue)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL())
	assert.Equal(t, 30*24*time.Hour, cfg.RefreshTTL())
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("DB_USER", "cal")
	t.Setenv("DB_NAME", "calendar")
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRateLimitConfig_PrefixOverrides(t *testing.T) {
	t.Setenv("AUTH_RATE_LIMIT_CAPACITY", "3")
	t.Setenv("AUTH_RATE_LIMIT_REFILL_INTERVAL", "30s")

	cfg, err := LoadRateLimitConfig("AUTH_RATE_LIMIT", DefaultAuthRateLimit())
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Capacity)
	assert.Equal(t, 30*time.Second, cfg.RefillInterval)
	assert.Equal(t, "ip_route", cfg.KeyStrategy)
	assert.True(t, cfg.Enabled)
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
	t.Setenv("RL_TEST_CAPACITY", "0")
	t.Setenv("RL_TEST_TTL", "1s")
	cfg, err := LoadRateLimitConfig("RL_TEST", DefaultRateLimit())
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 5*time.Second, cfg.TTL)
}

func TestRedisConfig_Address(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: "6380", Addr: "x:1"}.Address())
	assert.Equal(t, "x:1", RedisConfig{Host: "cache", Addr: "x:1"}.Address())
}

func TestLoadClient_FirstRunCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := LoadClient(path)
	require.NoError(t, err)
	assert.Equal(t, "remote", cfg.Auth)
	assert.Equal(t, "sqlite", cfg.Store)
	assert.Equal(t, time.Sunday, cfg.StartOfWeek())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadClient_ReadsAndNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_url: http://cal.example/\nauth: bogus\nweek_start: monday\ntimezone: America/Sao_Paulo\n"), 0o600))

	cfg, err := LoadClient(path)
	require.NoError(t, err)
	assert.Equal(t, "http://cal.example", cfg.ServerURL)
	assert.Equal(t, "remote", cfg.Auth)
	assert.Equal(t, time.Monday, cfg.StartOfWeek())
	assert.Equal(t, "America/Sao_Paulo", cfg.Location().String())
}
