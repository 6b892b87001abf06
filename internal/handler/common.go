package handler // handler defines the HTTP handlers of the marketplace API

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/booking-marketplace/internal/middleware"
	"github.com/iliyamo/booking-marketplace/internal/repository"
)

// Page sizes used when the client sends no limit.
const (
	listLimit  = 20
	adminLimit = 10
)

// errNoUser is returned by getUserID on routes not behind JWTAuth.
var errNoUser = errors.New("invalid user_id in context")

// message writes the common {"message": text} body.
func message(c echo.Context, code int, text string) error {
	return c.JSON(code, echo.Map{"message": text})
}

// serverError logs err and answers 500 without leaking details.
func serverError(c echo.Context, err error) error {
	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	return message(c, http.StatusInternalServerError, "Server error")
}

// getUserID returns the caller id stored by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, errNoUser
	}
	return id, nil
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// pageFrom reads ?page and ?limit, falling back to def for the page size.
func pageFrom(c echo.Context, def int) repository.Page {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return repository.NewPage(page, limit, def)
}

// queryUint returns nil when the parameter is absent or not a number.
func queryUint(c echo.Context, name string) *uint64 {
	v, err := strconv.ParseUint(strings.TrimSpace(c.QueryParam(name)), 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func queryFloat(c echo.Context, name string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(c.QueryParam(name)), 64)
	if err != nil {
		return nil
	}
	return &v
}

// queryDate accepts YYYY-MM-DD or RFC 3339.
func queryDate(c echo.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	t, err := parseDate(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, raw)
}

// timeout derives the per-request context used for store calls.
func timeout(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 5 * time.Second
	}
	return context.WithTimeout(c.Request().Context(), d)
}
