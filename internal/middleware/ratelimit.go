package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/minimal-calendar/internal/config"
	"github.com/iliyamo/minimal-calendar/internal/metrics"
)

// bucketScript keeps {tokens, stamp} in a hash. Tokens come back in
// whole refill intervals; the reply is {allowed, remaining, wait_ms}.
var bucketScript = redis.NewScript(`
local cap      = tonumber(ARGV[2])
local step     = tonumber(ARGV[3])
local every_ms = tonumber(ARGV[4])
local now      = tonumber(ARGV[1])

local tokens = tonumber(redis.call('HGET', KEYS[1], 'tokens') or cap)
local stamp  = tonumber(redis.call('HGET', KEYS[1], 'stamp') or now)

if every_ms > 0 and step > 0 and now > stamp then
    local n = math.floor((now - stamp) / every_ms)
    if n > 0 then
        tokens = math.min(cap, tokens + n * step)
        stamp = stamp + n * every_ms
    end
end

local ok, wait = 0, 0
if tokens >= 1 then
    ok = 1
    tokens = tokens - 1
else
    wait = math.max(0, every_ms - (now - stamp))
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'stamp', stamp)
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[5]))
return {ok, tokens, wait}
`)

// NewTokenBucket limits requests per key with a Redis-backed token
// bucket. Blocked requests get 429 with Retry-After. When Redis is
// missing or failing the request passes.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log zerolog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	limit := strconv.Itoa(cfg.Capacity)
	ttl := int64(cfg.TTL / time.Second)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			reply, err := bucketScript.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(), cfg.Capacity, cfg.RefillTokens, cfg.RefillInterval.Milliseconds(), ttl,
			).Int64Slice()
			if err != nil || len(reply) != 3 {
				log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable, letting request through")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(reply[1], 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if reply[0] == 1 {
				return next(c)
			}

			wait := int(math.Ceil(float64(reply[2]) / 1000))
			h.Set("Retry-After", strconv.Itoa(wait))
			metrics.RateLimited.WithLabelValues(cfg.Prefix).Inc()
			if cfg.Debug {
				log.Info().Str("key", key).Int("retry_after", wait).Msg("rate limited")
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"message":     "rate limit exceeded",
				"retry_after": wait,
			})
		}
	}
}

// keyParts lists, per strategy, which request attributes go into the
// bucket key. Unknown strategies fall back to all three.
var keyParts = map[string][]string{
	"ip":         {"ip"},
	"user":       {"user"},
	"route":      {"route"},
	"ip_user":    {"ip", "user"},
	"ip_route":   {"ip", "route"},
	"user_route": {"user", "route"},
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	parts, ok := keyParts[strings.ToLower(cfg.KeyStrategy)]
	if !ok {
		parts = []string{"ip", "user", "route"}
	}

	key := []string{cfg.Prefix}
	for _, p := range parts {
		switch p {
		case "ip":
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			key = append(key, "ip", ip)
		case "user":
			key = append(key, "user", rateSubject(c))
		case "route":
			key = append(key, "route", c.Request().Method+" "+c.Path())
		}
	}
	return strings.Join(key, ":")
}
