package middleware

// identity.go exposes the caller identity stored by JWTAuth to handlers and
// to the rate limiter's key builder.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// UserID returns the authenticated caller's id.  ok is false on routes that
// did not pass through JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(ctxUserID).(uint64)
    return id, ok && id != 0
}

// Role returns the authenticated caller's role, or "" when unauthenticated.
func Role(c echo.Context) string {
    r, _ := c.Get(ctxRole).(string)
    return r
}

// currentUserID renders the caller id for cache and rate-limit keys.
func currentUserID(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
