package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"webforum/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

// CodeRateLimited is the error code returned with 429 and 503 limiter responses.
const CodeRateLimited = "RATE_LIMITED"

var errNoRedis = errors.New("redis client is nil")

// Quota is the outcome of counting one hit.
type Quota struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// CheckRateLimit counts one hit against resource/id in a fixed window that
// starts at the first hit.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (Quota, error) {
	if rdb == nil {
		return Quota{}, errNoRedis
	}

	key := "rl:" + resource + ":" + id
	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return Quota{}, err
	}
	if cnt == 1 {
		rdb.Expire(ctx, key, window)
	}

	ttl, err := rdb.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = window
	}
	remaining := limit - int(cnt)
	if remaining < 0 {
		remaining = 0
	}
	return Quota{Allowed: cnt <= int64(limit), Remaining: remaining, ResetIn: ttl}, nil
}

// RateLimitPolicy names a bucket and its allowance.
type RateLimitPolicy struct {
	// Resource names the bucket; the request path is used when empty.
	Resource    string
	Limit       int
	Window      time.Duration
	OnStoreDown FailPolicy
}

// RateLimit fails open. Callers are keyed by user when authenticated, otherwise by IP.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, resource string) fiber.Handler {
	return RateLimitWithPolicy(rdb, RateLimitPolicy{Resource: resource, Limit: limit, Window: window})
}

// RateLimitWithPolicy enforces p and reports the quota in X-RateLimit-* headers.
func RateLimitWithPolicy(rdb *redis.Client, p RateLimitPolicy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := "ip:" + c.IP()
		if uid, ok := UserID(c); ok {
			id = "user:" + uid.String()
		}
		resource := p.Resource
		if resource == "" {
			resource = c.Path()
		}

		q, err := CheckRateLimit(c.UserContext(), rdb, resource, id, p.Limit, p.Window)
		if err != nil {
			if p.OnStoreDown == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit store unavailable, rejecting",
					slog.String("resource", resource),
					slog.String("error", err.Error()),
				)
				return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
					Error: "Rate limiting is temporarily unavailable",
					Code:  CodeRateLimited,
				})
			}
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(p.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(q.Remaining))
		if !q.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(q.ResetIn.Round(time.Second).Seconds())))
			Logger.InfoContext(c.UserContext(), "rate limit exceeded",
				slog.String("resource", resource),
				slog.String("caller", id),
			)
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, try again later",
				Code:  CodeRateLimited,
			})
		}
		return c.Next()
	}
}
