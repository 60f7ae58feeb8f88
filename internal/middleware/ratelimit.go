package middleware

import (
    "context"
    "errors"
    "fmt"
    "math"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/harbor-booking/internal/config"
)

// takeToken refills the bucket in whole intervals, then takes one token.
// KEYS[1] bucket; ARGV now_ms, capacity, refill, interval_ms, ttl_s.
// Returns {taken, left, wait_ms}.
var takeToken = redis.NewScript(`
    local now, cap, refill, every, ttl =
        tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])

    local b = redis.call('HMGET', KEYS[1], 'tokens', 'at')
    local tokens, at = tonumber(b[1]), tonumber(b[2])
    if not tokens or not at then
        tokens, at = cap, now
    end

    if every > 0 and refill > 0 and now > at then
        local n = math.floor((now - at) / every)
        if n > 0 then
            tokens = math.min(cap, tokens + n * refill)
            at = at + n * every
        end
    end

    local taken, wait = 0, 0
    if tokens > 0 then
        taken, tokens = 1, tokens - 1
    else
        wait = math.max(0, every - (now - at))
    end

    redis.call('HSET', KEYS[1], 'tokens', tokens, 'at', at)
    redis.call('EXPIRE', KEYS[1], ttl)
    return { taken, tokens, wait }
`)

var errBucketReply = errors.New("unexpected token bucket reply")

// bucketDecision is the outcome of one take.
type bucketDecision struct {
    Allowed   bool
    Remaining int64
    Wait      time.Duration
}

// retryAfter is Wait rounded up to whole seconds.
func (d bucketDecision) retryAfter() int {
    return int(math.Ceil(d.Wait.Seconds()))
}

// viewLimiter holds one token bucket per page view in Redis.
type viewLimiter struct {
    cfg config.RateLimitConfig
    rdb *redis.Client
    now func() time.Time
}

func (l *viewLimiter) take(ctx context.Context, key string) (bucketDecision, error) {
    args := []any{
        l.now().UnixMilli(),
        l.cfg.Capacity,
        l.cfg.RefillTokens,
        l.cfg.RefillInterval.Milliseconds(),
        int64(l.cfg.TTL / time.Second),
    }
    vals, err := takeToken.Run(ctx, l.rdb, []string{key}, args...).Slice()
    if err != nil {
        return bucketDecision{}, err
    }
    if len(vals) != 3 {
        return bucketDecision{}, fmt.Errorf("%w: %#v", errBucketReply, vals)
    }
    return bucketDecision{
        Allowed:   asInt64(vals[0]) == 1,
        Remaining: asInt64(vals[1]),
        Wait:      time.Duration(asInt64(vals[2])) * time.Millisecond,
    }, nil
}

// NewTokenBucket limits the actions posted to one page view.  Option switches
// come in bursts, so the bucket should be sized for a customer flicking
// through a card's seat classes.  Redis errors fail open.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    lim := &viewLimiter{cfg: cfg, rdb: rdb, now: time.Now}

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := bucketKey(cfg, c)
            d, err := lim.take(c.Request().Context(), key)
            if err != nil {
                if cfg.Debug {
                    c.Logger().Warnf("[ratelimit] %s: %v", key, err)
                }
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if d.Allowed {
                return next(c)
            }

            h.Set("Retry-After", strconv.Itoa(d.retryAfter()))
            return c.JSON(http.StatusTooManyRequests, map[string]any{
                "error":       "too_many_requests",
                "message":     "rate limit exceeded",
                "retry_after": d.retryAfter(),
            })
        }
    }
}

func asInt64(v any) int64 {
    switch t := v.(type) {
    case int64:
        return t
    case int:
        return int64(t)
    case string:
        n, _ := strconv.ParseInt(t, 10, 64)
        return n
    }
    return 0
}

// bucketKey is the Redis key of the caller's bucket for the view in the path.
func bucketKey(cfg config.RateLimitConfig, c echo.Context) string {
    view := c.Param("id")
    if view == "" {
        view = "none"
    }
    switch cfg.KeyStrategy {
    case config.KeyPerIPView:
        ip := c.RealIP()
        if ip == "" {
            ip = "unknown"
        }
        return cfg.Prefix + ":ip:" + ip + ":view:" + view
    case config.KeyPerUserView:
        return cfg.Prefix + ":user:" + userOrAnon(c) + ":view:" + view
    default:
        return cfg.Prefix + ":view:" + view
    }
}
