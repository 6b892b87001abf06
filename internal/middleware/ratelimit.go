package middleware

import (
    "math"
    "net/http"
    "strconv"
    "strings"
    "sync"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "golang.org/x/time/rate"

    "github.com/iliyamo/booking-marketplace/internal/config"
)

// bucketScript refills and takes one token atomically.  It returns
// {allowed, remaining, retry_after_ms}.
var bucketScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local capacity = tonumber(ARGV[2])
    local refill = tonumber(ARGV[3])
    local interval_ms = tonumber(ARGV[4])
    local ttl = tonumber(ARGV[5])

    local state = redis.call('HMGET', key, 'tokens', 'ts')
    local tokens = tonumber(state[1])
    local ts = tonumber(state[2])
    if tokens == nil or ts == nil then
        tokens = capacity
        ts = now_ms
    end

    local steps = math.floor(math.max(0, now_ms - ts) / interval_ms)
    if steps > 0 then
        tokens = math.min(capacity, tokens + steps * refill)
        ts = ts + steps * interval_ms
    end

    local allowed = 0
    local retry = 0
    if tokens > 0 then
        allowed = 1
        tokens = tokens - 1
    else
        retry = math.max(0, interval_ms - (now_ms - ts))
    end

    redis.call('HSET', key, 'tokens', tokens, 'ts', ts)
    redis.call('EXPIRE', key, ttl)
    return { allowed, tokens, retry }
`)

// NewTokenBucket returns a per-key token bucket limiter.  With a Redis
// client the bucket state is shared across instances; without one each
// process keeps its own buckets in memory.  Redis errors let the request
// through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    if rdb == nil {
        return newLocalBucket(cfg)
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            args := []interface{}{
                time.Now().UnixMilli(),
                cfg.Capacity,
                cfg.RefillTokens,
                cfg.RefillInterval.Milliseconds(),
                int64(cfg.TTL / time.Second),
            }
            vals, err := bucketScript.Run(c.Request().Context(), rdb, []string{key}, args...).Slice()
            if err != nil || len(vals) != 3 {
                if cfg.Debug {
                    c.Logger().Warnf("ratelimit: redis key=%s: %v", key, err)
                }
                return next(c)
            }

            remaining := asInt64(vals[1])
            setLimitHeaders(c, cfg, remaining)
            if asInt64(vals[0]) != 1 {
                return tooManyRequests(c, time.Duration(asInt64(vals[2]))*time.Millisecond)
            }
            if cfg.Debug {
                c.Response().Header().Set("X-RateLimit-Key", key)
            }
            return next(c)
        }
    }
}

// localBuckets holds one rate.Limiter per key.  Limiters idle longer than
// the configured TTL are swept on insert.
type localBuckets struct {
    mu       sync.Mutex
    limit    rate.Limit
    burst    int
    ttl      time.Duration
    entries  map[string]*localEntry
    lastScan time.Time
}

type localEntry struct {
    lim  *rate.Limiter
    seen time.Time
}

func newLocalBucket(cfg config.RateLimitConfig) echo.MiddlewareFunc {
    refill := max(cfg.RefillTokens, 1)
    interval := cfg.RefillInterval
    if interval <= 0 {
        interval = time.Second
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 10 * time.Minute
    }
    b := &localBuckets{
        limit:   rate.Every(interval / time.Duration(refill)),
        burst:   max(cfg.Capacity, 1),
        ttl:     ttl,
        entries: map[string]*localEntry{},
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            lim := b.get(buildRateKey(cfg, c), time.Now())
            r := lim.Reserve()
            if !r.OK() {
                return tooManyRequests(c, interval)
            }
            if d := r.Delay(); d > 0 {
                r.Cancel()
                setLimitHeaders(c, cfg, 0)
                return tooManyRequests(c, d)
            }
            setLimitHeaders(c, cfg, int64(lim.Tokens()))
            return next(c)
        }
    }
}

func (b *localBuckets) get(key string, now time.Time) *rate.Limiter {
    b.mu.Lock()
    defer b.mu.Unlock()
    if e, ok := b.entries[key]; ok {
        e.seen = now
        return e.lim
    }
    if now.Sub(b.lastScan) > b.ttl {
        for k, e := range b.entries {
            if now.Sub(e.seen) > b.ttl {
                delete(b.entries, k)
            }
        }
        b.lastScan = now
    }
    e := &localEntry{lim: rate.NewLimiter(b.limit, b.burst), seen: now}
    b.entries[key] = e
    return e.lim
}

func setLimitHeaders(c echo.Context, cfg config.RateLimitConfig, remaining int64) {
    if remaining < 0 {
        remaining = 0
    }
    h := c.Response().Header()
    h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
    h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
}

func tooManyRequests(c echo.Context, retry time.Duration) error {
    secs := int(math.Ceil(retry.Seconds()))
    if secs < 1 {
        secs = 1
    }
    c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
    return c.JSON(http.StatusTooManyRequests, echo.Map{
        "message":     "Too many requests, please try again later.",
        "retry_after": secs,
    })
}

func asInt64(v interface{}) int64 {
    switch t := v.(type) {
    case int64:
        return t
    case int:
        return int64(t)
    case float64:
        return int64(t)
    case string:
        n, _ := strconv.ParseInt(t, 10, 64)
        return n
    }
    return 0
}

// buildRateKey joins the key parts selected by cfg.KeyStrategy.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    uid := currentUserID(c)
    route := c.Request().Method + " " + c.Path()

    parts := []string{cfg.Prefix}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = append(parts, "ip", ip)
    case "user":
        parts = append(parts, "user", uid)
    case "route":
        parts = append(parts, "route", route)
    case "ip_user":
        parts = append(parts, "ip", ip, "user", uid)
    case "ip_route":
        parts = append(parts, "ip", ip, "route", route)
    case "user_route":
        parts = append(parts, "user", uid, "route", route)
    default:
        parts = append(parts, "ip", ip, "user", uid, "route", route)
    }
    return strings.Join(parts, ":")
}
