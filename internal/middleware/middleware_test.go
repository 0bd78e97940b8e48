package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/minimal-calendar/internal/config"
	"github.com/iliyamo/minimal-calendar/internal/metrics"
	"github.com/iliyamo/minimal-calendar/internal/utils"
)

const testSecret = "0123456789abcdef-test"

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func do(e *echo.Echo, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		return c.String(http.StatusOK, UserID(c)+"|"+Email(c))
	}, JWTAuth(testSecret))

	rec := do(e, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing bearer token")

	rec = do(e, http.MethodGet, "/me", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	at, err := utils.NewAccessToken(testSecret, "u-1", "ana@example.com", time.Minute)
	require.NoError(t, err)
	rec = do(e, http.MethodGet, "/me", at.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-1|ana@example.com", rec.Body.String())
}

func TestOptionalJWT(t *testing.T) {
	e := echo.New()
	e.GET("/who", func(c echo.Context) error { return c.String(http.StatusOK, rateSubject(c)) }, OptionalJWT(testSecret))

	assert.Equal(t, "anon", do(e, http.MethodGet, "/who", "").Body.String())
	assert.Equal(t, "anon", do(e, http.MethodGet, "/who", "bad").Body.String())
	at, err := utils.NewAccessToken(testSecret, "u-9", "", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "u-9", do(e, http.MethodGet, "/who", at.Token).Body.String())
}

func TestTokenBucket_BlocksAfterCapacity(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.DefaultAuthRateLimit()
	cfg.Capacity = 2
	cfg.RefillInterval = time.Minute

	e := echo.New()
	e.POST("/v1/auth/register", func(c echo.Context) error { return c.NoContent(http.StatusCreated) },
		NewTokenBucket(cfg, rdb, zerolog.Nop()))

	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/v1/auth/register", "").Code)
	rec := do(e, http.MethodPost, "/v1/auth/register", "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = do(e, http.MethodPost, "/v1/auth/register", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"retry_after"`)
}

func TestTokenBucket_DisabledWithoutRedis(t *testing.T) {
	e := echo.New()
	cfg := config.DefaultRateLimit()
	cfg.Capacity = 1
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, nil, zerolog.Nop()))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/x", "").Code)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
	req.Header.Set("X-Real-IP", "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/auth/login")

	cfg := config.DefaultAuthRateLimit()
	assert.Equal(t, "rl:auth:ip:10.0.0.1:route:POST /v1/auth/login", buildRateKey(cfg, c))
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:auth:user:anon", buildRateKey(cfg, c))
}

func TestUserCache_HitAndInvalidate(t *testing.T) {
	rdb := newRedis(t)
	uc := NewUserCache(config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 1 << 20}, rdb, zerolog.Nop())
	require.NotNil(t, uc)

	calls := 0
	e := echo.New()
	e.GET("/v1/events", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"n": calls})
	}, JWTAuth(testSecret), uc.Middleware())

	at, err := utils.NewAccessToken(testSecret, "u-1", "", time.Minute)
	require.NoError(t, err)

	first := do(e, http.MethodGet, "/v1/events", at.Token)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := do(e, http.MethodGet, "/v1/events", at.Token)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	uc.Invalidate(context.Background(), "u-1")
	third := do(e, http.MethodGet, "/v1/events", at.Token)
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)
}

func TestUserCache_NilIsNoop(t *testing.T) {
	var uc *UserCache
	uc.Invalidate(context.Background(), "u-1")
	assert.Nil(t, NewUserCache(config.CacheConfig{Enabled: true}, nil, zerolog.Nop()))

	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, uc.Middleware())
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/x", "").Code)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	e := echo.New()
	e.Use(RequestLogger(log))
	e.GET("/missing-handler", func(c echo.Context) error { return c.NoContent(http.StatusTeapot) })

	do(e, http.MethodGet, "/missing-handler", "")
	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestMetrics_CountsByRouteTemplate(t *testing.T) {
	e := echo.New()
	e.Use(Metrics())
	e.DELETE("/v1/events/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	before := counterValue(t, metrics.HTTPRequests.WithLabelValues(http.MethodDelete, "/v1/events/:id", "204"))
	do(e, http.MethodDelete, "/v1/events/a", "")
	do(e, http.MethodDelete, "/v1/events/b", "")
	after := counterValue(t, metrics.HTTPRequests.WithLabelValues(http.MethodDelete, "/v1/events/:id", "204"))
	assert.Equal(t, 2.0, after-before)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}
