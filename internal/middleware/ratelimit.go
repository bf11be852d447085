package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/whosaidit/internal/config"
	"github.com/iliyamo/whosaidit/internal/logging"
	"github.com/iliyamo/whosaidit/internal/security"
)

// takeToken refills the bucket in whole intervals, then takes one token.
// ARGV: capacity, tokens per interval, interval ms, ttl ms, now ms.
// Returns {allowed, tokens left, ms until the next refill when denied}.
var takeToken = redis.NewScript(`
local cap, per, every, ttl, now =
  tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
local b = redis.call('HMGET', KEYS[1], 't', 'ts')
local t = tonumber(b[1]) or cap
local ts = tonumber(b[2]) or now

local steps = math.floor(math.max(0, now - ts) / every)
if steps > 0 then
  t = math.min(cap, t + steps * per)
  ts = ts + steps * every
end

local ok, wait = 0, 0
if t >= 1 then
  ok = 1
  t = t - 1
else
  wait = math.max(0, every - (now - ts))
end

redis.call('HSET', KEYS[1], 't', t, 'ts', ts)
redis.call('PEXPIRE', KEYS[1], ttl)
return {ok, t, wait}
`)

type verdict struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

type bucket struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
	now func() time.Time
}

func (b bucket) take(ctx context.Context, key string) (verdict, error) {
	vals, err := takeToken.Run(ctx, b.rdb, []string{key},
		b.cfg.Capacity,
		b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(),
		b.cfg.TTL.Milliseconds(),
		b.now().UnixMilli(),
	).Int64Slice()
	if err != nil {
		return verdict{}, err
	}
	if len(vals) != 3 {
		return verdict{}, fmt.Errorf("ratelimit: unexpected script reply %v", vals)
	}
	return verdict{allowed: vals[0] == 1, remaining: vals[1], retry: time.Duration(vals[2]) * time.Millisecond}, nil
}

// NewTokenBucket limits requests per key with a Redis token bucket. It is a
// no-op when disabled or without a client, and lets requests through when
// Redis errors.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	b := bucket{cfg: cfg, rdb: rdb, now: time.Now}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg, c)
			v, err := b.take(c.Request().Context(), key)
			if err != nil {
				logging.Warn().Err(err).Str("key", key).Msg("ratelimit: redis unavailable, allowing request")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(v.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if v.allowed {
				return next(c)
			}

			// round up so clients never retry early
			secs := int((v.retry + time.Second - 1) / time.Second)
			h.Set("Retry-After", strconv.Itoa(secs))
			logging.Debug().Str("key", key).Dur("retry", v.retry).Msg("ratelimit: blocked")
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"retry_after": secs,
			})
		}
	}
}

// rateKey joins the prefix with the parts named by the key strategy, e.g.
// "ip_route" -> "<prefix>:ip:<ip>:route:<method path>". An unknown strategy
// keys on all three.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	parts := strings.Split(strings.ToLower(cfg.KeyStrategy), "_")
	for _, p := range parts {
		if p != "ip" && p != "user" && p != "route" {
			parts = []string{"ip", "user", "route"}
			break
		}
	}

	key := []string{cfg.Prefix}
	for _, p := range parts {
		switch p {
		case "ip":
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			key = append(key, "ip", ip)
		case "user":
			key = append(key, "user", callerKey(PrincipalFrom(c)))
		case "route":
			key = append(key, "route", c.Request().Method+" "+c.Path())
		}
	}
	return strings.Join(key, ":")
}

// callerKey identifies the principal for per-caller buckets.
func callerKey(p security.Principal) string {
	switch v := p.(type) {
	case security.UserPrincipal:
		return fmt.Sprintf("u%d", v.UserID)
	case security.QuizPrincipal:
		return fmt.Sprintf("q%d", v.QuizID)
	case security.PasswordResetPrincipal:
		return fmt.Sprintf("r%d", v.UserID)
	default:
		return "anon"
	}
}
