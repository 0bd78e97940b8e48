package config // package config loads server settings from the environment and client settings from YAML

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"              // optional .env file for local runs
	"github.com/kelseyhightower/envconfig"  // decodes environment variables into structs
)

// Config holds all runtime configuration values of calendar-server.
// Each field corresponds to an environment variable. Required values
// make Load fail; everything else has a default.
type Config struct {
	Env            string `envconfig:"APP_ENV" default:"dev"`                      // application environment (dev/test/prod)
	Port           string `envconfig:"APP_PORT" default:"8080"`                    // HTTP port to listen on
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`                   // zerolog level name
	DBUser         string `envconfig:"DB_USER" required:"true"`                    // database username
	DBPass         string `envconfig:"DB_PASS"`                                    // database password (optional)
	DBHost         string `envconfig:"DB_HOST" default:"127.0.0.1"`                // database host address
	DBPort         string `envconfig:"DB_PORT" default:"3306"`                     // database port number
	DBName         string `envconfig:"DB_NAME" required:"true"`                    // database name
	JWTSecret      string `envconfig:"JWT_SECRET" required:"true"`                 // secret used to sign JWTs
	AccessTTLMin   int    `envconfig:"ACCESS_TOKEN_TTL_MIN" default:"15"`          // access token time-to-live in minutes
	RefreshTTLDays int    `envconfig:"REFRESH_TOKEN_TTL_DAYS" default:"30"`        // refresh token time-to-live in days
	BcryptCost     int    `envconfig:"BCRYPT_COST" default:"10"`                   // bcrypt cost for password hashing
	RabbitURL      string `envconfig:"RABBITMQ_URL"`                               // AMQP url; empty disables change notifications
	ChangesQueue   string `envconfig:"CHANGES_QUEUE" default:"calendar.changes"`   // queue receiving change events
	ChangesLog     string `envconfig:"CHANGES_LOG" default:"logs/calendar.log"`    // consumer output file
	PurgeSchedule  string `envconfig:"TOKEN_PURGE_CRON" default:"@every 1h"`       // cron spec of the refresh token purge
}

// AccessTTL is AccessTTLMin as a duration.
func (c Config) AccessTTL() time.Duration { return time.Duration(c.AccessTTLMin) * time.Minute }

// RefreshTTL is RefreshTTLDays as a duration.
func (c Config) RefreshTTL() time.Duration { return time.Duration(c.RefreshTTLDays) * 24 * time.Hour }

// Load reads a .env file when present, then decodes the environment.
// Missing required variables are reported together in the error.
func Load() (Config, error) {
	_ = godotenv.Load() // a missing .env is fine, real env vars still apply

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if len(cfg.JWTSecret) < 16 {
		return Config{}, fmt.Errorf("load config: JWT_SECRET must be at least 16 characters")
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return Config{}, fmt.Errorf("load config: BCRYPT_COST out of range: %d", cfg.BcryptCost)
	}
	return cfg, nil
}
