package middleware

// identity.go holds the helpers that read what JWTAuth stored in the
// Echo context.

import "github.com/labstack/echo/v4"

// UserID returns the authenticated user's id, or "" when the request
// carries no valid token.
func UserID(c echo.Context) string {
	if v, ok := c.Get(CtxUserID).(string); ok {
		return v
	}
	return ""
}

// Email returns the email claim of the access token, if any.
func Email(c echo.Context) string {
	if v, ok := c.Get(CtxEmail).(string); ok {
		return v
	}
	return ""
}

// rateSubject is the user part of rate-limit and cache keys; "anon"
// stands for unauthenticated callers.
func rateSubject(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}
