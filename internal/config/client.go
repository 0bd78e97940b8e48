package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ClientConfig is the calendarctl settings file. It is created with
// defaults on first run and kept at 0600 because it may hold a Redis
// password.
type ClientConfig struct {
	// ServerURL is the base URL of calendar-server.
	ServerURL string `yaml:"server_url"`

	// Timeout bounds every API call.
	Timeout time.Duration `yaml:"timeout"`

	// Auth selects the session backend:
	//   - "remote" (default): calendar-server accounts
	//   - "local": device-only simulated accounts, for demos
	Auth string `yaml:"auth"`

	// Store selects where local state lives: "sqlite" (default),
	// "redis" or "memory".
	Store string `yaml:"store"`

	// SQLitePath is the kv database file for Store "sqlite".
	SQLitePath string `yaml:"sqlite_path"`

	// RedisAddr and RedisPrefix configure Store "redis".
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password,omitempty"`
	RedisPrefix   string `yaml:"redis_prefix"`

	// Locale of month and weekday names, e.g. "pt-BR" or "en-US".
	Locale string `yaml:"locale"`

	// WeekStart is "sunday" (default) or "monday".
	WeekStart string `yaml:"week_start"`

	// Timezone used to bucket events into days. Empty means the
	// system zone.
	Timezone string `yaml:"timezone"`

	LogLevel string `yaml:"log_level"`
}

// DefaultClientConfig returns the settings written on first run.
func DefaultClientConfig() *ClientConfig {
	c := &ClientConfig{}
	c.Normalize()
	return c
}

// DefaultClientConfigPath is $XDG_CONFIG_HOME/calendarctl/config.yaml
// or the platform equivalent.
func DefaultClientConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "calendarctl", "config.yaml")
}

// Normalize fills zero values with defaults and folds unknown enum
// values back to the default.
func (c *ClientConfig) Normalize() {
	if c.ServerURL == "" {
		c.ServerURL = "http://localhost:8080"
	}
	c.ServerURL = strings.TrimRight(c.ServerURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	switch c.Auth {
	case "remote", "local":
	default:
		c.Auth = "remote"
	}
	switch c.Store {
	case "sqlite", "redis", "memory":
	default:
		c.Store = "sqlite"
	}
	if c.SQLitePath == "" {
		c.SQLitePath = filepath.Join(filepath.Dir(DefaultClientConfigPath()), "calendar.db")
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
	if c.RedisPrefix == "" {
		c.RedisPrefix = "calendar"
	}
	if c.Locale == "" {
		c.Locale = "pt-BR"
	}
	switch c.WeekStart {
	case "sunday", "monday":
	default:
		c.WeekStart = "sunday"
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

// Location resolves Timezone, falling back to time.Local.
func (c *ClientConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// StartOfWeek maps WeekStart to a weekday.
func (c *ClientConfig) StartOfWeek() time.Weekday {
	if c.WeekStart == "monday" {
		return time.Monday
	}
	return time.Sunday
}

// LoadClient reads the YAML file at path. A missing file is created
// with defaults; the defaults are returned together with any write
// error so the caller can still run.
func LoadClient(path string) (*ClientConfig, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultClientConfig()
			return cfg, SaveClient(path, cfg)
		}
		return nil, err
	}
	var cfg ClientConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}

// SaveClient writes cfg atomically (temp file + rename) with 0600
// permissions, creating the directory at 0700.
func SaveClient(path string, cfg *ClientConfig) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".calendarctl-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
