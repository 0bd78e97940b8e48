package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/minimal-calendar/internal/handler"    // handlers that implement the session service and row store
	"github.com/iliyamo/minimal-calendar/internal/middleware" // JWT, rate limiting and caching middleware
)

// Limits groups the middlewares that throttle callers. Auth is the
// stricter bucket for credential endpoints; General covers the rest.
type Limits struct {
	Auth    echo.MiddlewareFunc
	General echo.MiddlewareFunc
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func (l Limits) auth() echo.MiddlewareFunc {
	if l.Auth == nil {
		return passThrough
	}
	return l.Auth
}

func (l Limits) general() echo.MiddlewareFunc {
	if l.General == nil {
		return passThrough
	}
	return l.General
}

// RegisterRoutes registers routes that do not require authentication:
// the health check and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	// Load balancers and monitoring poll this endpoint.
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the session service under /v1/auth.
// Register and login sit behind the auth bucket so credential
// guessing gets 429 + Retry-After early.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, lim Limits) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register, lim.auth())
	g.POST("/login", a.Login, lim.auth())
	// Refresh rotates the refresh token.
	g.POST("/refresh", a.Refresh, lim.general())
	// Logout accepts a refresh token, a bearer token, or both.
	g.POST("/logout", a.Logout, middleware.OptionalJWT(jwtSecret), lim.general())
	g.GET("/session", a.Session, middleware.JWTAuth(jwtSecret), lim.general())
}

// RegisterEvents registers the row store of the authenticated user.
// Reads go through the per-user response cache; a nil cache serves
// every request from the database.
func RegisterEvents(e *echo.Echo, h *handler.EventHandler, jwtSecret string, lim Limits, cache *middleware.UserCache) {
	g := e.Group("/v1/events", middleware.JWTAuth(jwtSecret), lim.general())
	g.GET("", h.List, cache.Middleware())
	g.POST("", h.Create)
	g.GET("/export.ics", h.ExportICS, cache.Middleware())
	g.DELETE("/:id", h.Delete)
}
