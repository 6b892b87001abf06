package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/booking-marketplace/internal/config"
	"github.com/iliyamo/booking-marketplace/internal/utils"
)

const secret = "test-secret"

func whoami(c echo.Context) error {
	id, _ := UserID(c)
	return c.JSON(http.StatusOK, echo.Map{"id": id, "role": Role(c)})
}

func serve(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(secret))

	at, err := utils.NewAccessToken(secret, 9, "provider", time.Hour)
	require.NoError(t, err)
	other, err := utils.NewAccessToken("other", 9, "provider", time.Hour)
	require.NoError(t, err)

	rec := serve(e, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "No token provided")

	rec = serve(e, http.MethodGet, "/me", "Bearer "+other.Token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid token")

	for _, h := range []string{"Bearer " + at.Token, at.Token} {
		rec = serve(e, http.MethodGet, "/me", h)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"id":9,"role":"provider"}`, rec.Body.String())
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/admin", whoami, JWTAuth(secret), RequireRole("admin"))

	user, err := utils.NewAccessToken(secret, 1, "user", time.Hour)
	require.NoError(t, err)
	admin, err := utils.NewAccessToken(secret, 2, "admin", time.Hour)
	require.NoError(t, err)

	rec := serve(e, http.MethodGet, "/admin", "Bearer "+user.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Insufficient permissions")

	rec = serve(e, http.MethodGet, "/admin", "Bearer "+admin.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLocalTokenBucket(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 2, RefillTokens: 1,
		RefillInterval: time.Hour, TTL: time.Hour, KeyStrategy: "ip", Prefix: "rl"}
	e := echo.New()
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, nil))

	for i := 0; i < 2; i++ {
		rec := serve(e, http.MethodGet, "/ping", "")
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}
	rec := serve(e, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimitKeysOnCallerBeforeAuth(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1,
		RefillInterval: time.Hour, TTL: time.Hour, KeyStrategy: "user", Prefix: "rl"}
	e := echo.New()
	e.GET("/me", whoami, OptionalIdentity(secret), NewTokenBucket(cfg, nil), JWTAuth(secret))

	ann, err := utils.NewAccessToken(secret, 1, "user", time.Hour)
	require.NoError(t, err)
	bob, err := utils.NewAccessToken(secret, 2, "user", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/me", "Bearer "+ann.Token).Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/me", "Bearer "+bob.Token).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, http.MethodGet, "/me", "Bearer "+ann.Token).Code)

	// Bad or missing tokens share the anonymous bucket and still reach JWTAuth.
	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodGet, "/me", "Bearer junk").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, http.MethodGet, "/me", "").Code)
}

func TestTokenBucketDisabled(t *testing.T) {
	e := echo.New()
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/ping", "").Code)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/services", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/services")
	c.Set(ctxUserID, uint64(5))

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user_route"}
	assert.Equal(t, "rl:ip:10.0.0.1:user:5:route:GET /api/services", buildRateKey(cfg, c))
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:5", buildRateKey(cfg, c))
}

func TestValidator(t *testing.T) {
	var v echo.Validator = NewValidator()
	type req struct {
		Name  *string  `validate:"required,notblank"`
		Price *float64 `validate:"required,ne=0"`
	}
	name, blank := "x", "  "
	price, zero := 10.0, 0.0
	assert.NoError(t, v.Validate(req{Name: &name, Price: &price}))
	assert.Error(t, v.Validate(req{Price: &price}))
	assert.Error(t, v.Validate(req{Name: &blank, Price: &price}))
	assert.Error(t, v.Validate(req{Name: &name}))
	assert.Error(t, v.Validate(req{Name: &name, Price: &zero}))
}

func TestCacheEntryCodec(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodeEntry(http.StatusOK, hdr, []byte(`{"ok":true}`))
	require.NoError(t, err)

	status, got, body, ok := decodeEntry(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, string(body))

	_, _, _, ok = decodeEntry(bs[:5])
	assert.False(t, ok)
}

func TestRecorderOverflow(t *testing.T) {
	rec := &recorder{ResponseWriter: httptest.NewRecorder(), limit: 4}
	_, _ = rec.Write([]byte("abc"))
	assert.False(t, rec.overflow)
	_, _ = rec.Write([]byte("de"))
	assert.True(t, rec.overflow)
	assert.Zero(t, rec.buf.Len())
}

func TestCacheKeyStrategy(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}
	a := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/services?page=1", nil), nil)
	b := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/services?page=2", nil), nil)
	assert.NotEqual(t, cacheKey(cfg, a), cacheKey(cfg, b))
	cfg.KeyStrategy = "route"
	assert.Equal(t, cacheKey(cfg, a), cacheKey(cfg, b))
}
