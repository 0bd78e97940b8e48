package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/minimal-calendar/internal/config"
)

// captureWriter tees the response into buf, up to limit bytes.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 || cw.size+int64(len(b)) <= cw.limit {
		cw.buf.Write(b)
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// truncated is true once the body outgrew the limit; such responses
// are not cached.
func (cw *captureWriter) truncated() bool { return cw.limit > 0 && cw.size > cw.limit }

// UserCache caches successful GET responses per user in Redis. Each
// user has a generation counter; Invalidate bumps it so every older
// entry of that user becomes unreachable and expires on its own.
type UserCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
	log zerolog.Logger
}

// NewUserCache returns nil when caching is disabled or Redis is absent;
// a nil *UserCache is valid and does nothing.
func NewUserCache(cfg config.CacheConfig, rdb *redis.Client, log zerolog.Logger) *UserCache {
	if !cfg.Enabled || rdb == nil {
		return nil
	}
	return &UserCache{cfg: cfg, rdb: rdb, log: log}
}

func (uc *UserCache) genKey(userID string) string {
	return uc.cfg.Prefix + ":gen:" + userID
}

func (uc *UserCache) generation(ctx context.Context, userID string) int64 {
	n, err := uc.rdb.Get(ctx, uc.genKey(userID)).Int64()
	if err != nil {
		return 0
	}
	return n
}

// entryKey is prefix:user:gen:sha1(route and query).
func (uc *UserCache) entryKey(c echo.Context, userID string, gen int64) string {
	sum := sha1.Sum([]byte(c.Path() + "?" + c.Request().URL.RawQuery))
	return fmt.Sprintf("%s:%s:%d:%x", uc.cfg.Prefix, userID, gen, sum[:])
}

// Invalidate drops every cached response of userID.
func (uc *UserCache) Invalidate(ctx context.Context, userID string) {
	if uc == nil || userID == "" {
		return
	}
	if err := uc.rdb.Incr(ctx, uc.genKey(userID)).Err(); err != nil {
		uc.log.Warn().Err(err).Str("user_id", userID).Msg("cache invalidation failed")
	}
}

// cachedResponse is what one cache entry holds. Only 200 responses
// are stored, so the status is implied.
type cachedResponse struct {
	Header http.Header `json:"h"`
	Body   []byte      `json:"b"`
}

func (r cachedResponse) replay(c echo.Context) error {
	h := c.Response().Header()
	for k, vals := range r.Header {
		if strings.EqualFold(k, echo.HeaderContentLength) {
			continue
		}
		h[k] = append(h[k], vals...)
	}
	h.Set("X-Cache", "HIT")
	c.Response().WriteHeader(http.StatusOK)
	_, err := c.Response().Write(r.Body)
	return err
}

// Middleware serves GET requests of authenticated users from the
// cache and stores 200 responses on a miss. It must run after JWTAuth.
func (uc *UserCache) Middleware() echo.MiddlewareFunc {
	if uc == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := UserID(c)
			if c.Request().Method != http.MethodGet || userID == "" {
				return next(c)
			}
			ctx := c.Request().Context()
			key := uc.entryKey(c, userID, uc.generation(ctx, userID))

			var hit cachedResponse
			if bs, err := uc.rdb.Get(ctx, key).Bytes(); err == nil && json.Unmarshal(bs, &hit) == nil {
				return hit.replay(c)
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(uc.cfg.MaxBodyBytes)}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.truncated() {
				return nil
			}
			entry := cachedResponse{Header: c.Response().Header().Clone(), Body: cw.buf.Bytes()}
			entry.Header.Del("X-Cache")
			payload, err := json.Marshal(entry)
			if err != nil {
				return nil
			}
			if err := uc.rdb.Set(context.WithoutCancel(ctx), key, payload, uc.cfg.TTL).Err(); err != nil {
				uc.log.Warn().Err(err).Msg("cache store failed")
			}
			return nil
		}
	}
}
