package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/booking-marketplace/internal/utils"
)

// Context keys set by JWTAuth.
const (
    ctxUserID = "user_id"
    ctxRole   = "role"
)

// JWTAuth returns an Echo middleware that validates the access token in the
// Authorization header and injects the caller's id and role into the
// context.  The header may carry the raw token or "Bearer <token>".
//
// A missing header is answered with 401.  Any token that fails
// verification (malformed, bad signature, expired) is answered with 400.
// The handler never runs in either case.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw := bearer(c)
            if raw == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Access denied. No token provided."})
            }
            if err := identify(c, secret, raw); err != nil {
                c.Logger().Debugf("jwt: rejected token: %v", err)
                return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid token"})
            }
            return next(c)
        }
    }
}

// OptionalIdentity stores the caller's id and role when the request carries
// a valid access token and passes every other request through untouched.
// It runs ahead of the rate limiter so per-user keys see the caller;
// enforcement stays with JWTAuth.
func OptionalIdentity(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if raw := bearer(c); raw != "" {
                _ = identify(c, secret, raw)
            }
            return next(c)
        }
    }
}

// bearer returns the token from the Authorization header, with or without
// the "Bearer " prefix.
func bearer(c echo.Context) string {
    header := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
    return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func identify(c echo.Context, secret, raw string) error {
    claims, err := utils.ParseAccessToken(secret, raw)
    if err != nil {
        return err
    }
    id, _ := claims.UserID() // validated by ParseAccessToken
    c.Set(ctxUserID, id)
    c.Set(ctxRole, claims.Role)
    return nil
}
