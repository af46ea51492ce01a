package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitWindow = time.Minute

var errUnexpectedLimiterResult = errors.New("unexpected redis limiter response")

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisRateLimiter is a fixed window per-platform limiter shared by every
// API instance.
type RedisRateLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisRateLimiter(client redis.UniversalClient, prefix string) *RedisRateLimiter {
	trimmed := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmed == "" {
		trimmed = "cards:rate_limit"
	}
	return &RedisRateLimiter{client: client, prefix: trimmed}
}

// Allow counts one call for the platform. Platforms without a positive limit
// are never limited.
func (l *RedisRateLimiter) Allow(ctx context.Context, platformID string, limit int) (bool, time.Duration, error) {
	if l == nil || l.client == nil || limit <= 0 || platformID == "" {
		return true, 0, nil
	}

	windowMs := rateLimitWindow.Milliseconds()
	key := fmt.Sprintf("%s:%s", l.prefix, platformID)
	raw, err := rateLimitScript.Run(ctx, l.client, []string{key}, windowMs).Result()
	if err != nil {
		return false, 0, err
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, fmt.Errorf("%w: %T", errUnexpectedLimiterResult, raw)
	}
	count, ok := values[0].(int64)
	if !ok {
		return false, 0, fmt.Errorf("%w: count %T", errUnexpectedLimiterResult, values[0])
	}
	ttlMs, ok := values[1].(int64)
	if !ok || ttlMs < 0 {
		ttlMs = windowMs
	}

	retryAfter := time.Duration(ttlMs) * time.Millisecond
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	return count <= int64(limit), retryAfter, nil
}
