package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/travel-booking/internal/config"
	"github.com/iliyamo/travel-booking/internal/logging"
)

// tokenBucket refills a bucket by whole intervals, then takes one token.
// KEYS[1] bucket hash; ARGV: now_ms, capacity, refill_tokens, interval_ms,
// ttl_seconds.  Returns {allowed, remaining, retry_after_ms}.
var tokenBucket = redis.NewScript(`
local now = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local interval = tonumber(ARGV[4])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
  tokens = capacity
  ts = now
end

local steps = math.floor(math.max(0, now - ts) / interval)
if steps > 0 then
  tokens = math.min(capacity, tokens + steps * refill)
  ts = ts + steps * interval
end

local allowed = 0
local retry = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry = math.max(0, interval - (now - ts))
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', ts)
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[5]))
return {allowed, tokens, retry}
`)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// RateLimiter is a per-key token bucket stored in Redis.
type RateLimiter struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
	now func() time.Time
}

// NewRateLimiter returns a limiter using rdb.  A nil client disables it.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client) *RateLimiter {
	return &RateLimiter{cfg: cfg, rdb: rdb, now: time.Now}
}

// Allow takes one token from the bucket identified by key.
func (l *RateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	vals, err := tokenBucket.Run(ctx, l.rdb, []string{key},
		l.now().UnixMilli(),
		l.cfg.Capacity,
		l.cfg.RefillTokens,
		l.cfg.RefillInterval.Milliseconds(),
		int64(l.cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(vals) != 3 {
		return Decision{}, fmt.Errorf("rate limit script returned %d values", len(vals))
	}
	return Decision{
		Allowed:    vals[0] == 1,
		Remaining:  vals[1],
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

// Middleware rejects requests over the limit with 429.  Redis errors let
// the request through.
func (l *RateLimiter) Middleware() echo.MiddlewareFunc {
	if !l.cfg.Enabled || l.rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := l.Key(c)
			d, err := l.Allow(c.Request().Context(), key)
			if err != nil {
				logging.FromContext(c.Request().Context()).WithError(err).WithField("key", key).Warn("rate limit check failed")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
			if l.cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if !d.Allowed {
				secs := int(math.Ceil(d.RetryAfter.Seconds()))
				h.Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "rate limit exceeded",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

// Key builds the bucket key for c from the configured strategy, e.g.
// "ip_user" or "user_route".  Unknown strategies use ip, user and route.
func (l *RateLimiter) Key(c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	parts := map[string][]string{
		"ip":    {"ip", ip},
		"user":  {"user", userID(c)},
		"route": {"route", c.Request().Method + " " + c.Path()},
	}
	strategy := strings.ToLower(l.cfg.KeyStrategy)
	var fields []string
	switch strategy {
	case "ip", "user", "route", "ip_user", "ip_route", "user_route", "ip_user_route":
		fields = strings.Split(strategy, "_")
	default:
		fields = []string{"ip", "user", "route"}
	}
	key := []string{l.cfg.Prefix}
	for _, f := range fields {
		key = append(key, parts[f]...)
	}
	return strings.Join(key, ":")
}
