package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/flight-seat-reservation/internal/config"
)

// tokenBucket refills the bucket stored at KEYS[1] for the intervals that
// elapsed since its last refill, then tries to take one token.  It returns
// {allowed, remaining, retry_after_ms}.
var tokenBucket = redis.NewScript(`
local key          = KEYS[1]
local now_ms       = tonumber(ARGV[1])
local capacity     = tonumber(ARGV[2])
local refill       = tonumber(ARGV[3])
local interval_ms  = tonumber(ARGV[4])
local ttl_seconds  = tonumber(ARGV[5])

local state  = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last   = tonumber(state[2])
if tokens == nil or last == nil then
  tokens = capacity
  last = now_ms
end

local intervals = math.floor(math.max(0, now_ms - last) / interval_ms)
if intervals > 0 then
  tokens = math.min(capacity, tokens + intervals * refill)
  last = last + intervals * interval_ms
end

local allowed, retry_ms = 0, 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_ms = math.max(0, interval_ms - (now_ms - last))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last)
redis.call('EXPIRE', key, ttl_seconds)
return { allowed, tokens, retry_ms }
`)

// NewTokenBucket limits requests with a Redis-backed token bucket shared by
// every instance.  It passes everything through when rate limiting is
// disabled, rdb is nil, or Redis fails.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, clock clockwork.Clock) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg, c)
			res, err := tokenBucket.Run(c.Request().Context(), rdb, []string{key},
				clock.Now().UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				int64(cfg.TTL/time.Second),
			).Int64Slice()
			if err != nil || len(res) != 3 {
				if cfg.Debug {
					c.Logger().Warnf("[ratelimit] key=%s: %v %v", key, res, err)
				}
				return next(c)
			}
			allowed, remaining, retryMs := res[0] == 1, res[1], res[2]

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if allowed {
				return next(c)
			}

			secs := int(math.Ceil(float64(retryMs) / 1000))
			h.Set("Retry-After", strconv.Itoa(secs))
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"retry_after": secs,
			})
		}
	}
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	order := currentOrderID(c)
	if order == "" {
		order = "anon"
	}
	route := c.Request().Method + " " + c.Path()

	parts := []string{cfg.Prefix}
	for _, field := range strings.Split(strings.ToLower(cfg.KeyStrategy), "_") {
		switch field {
		case "ip":
			parts = append(parts, "ip", ip)
		case "order":
			parts = append(parts, "order", order)
		case "route":
			parts = append(parts, "route", route)
		}
	}
	if len(parts) == 1 {
		parts = append(parts, "ip", ip, "order", order, "route", route)
	}
	return strings.Join(parts, ":")
}
