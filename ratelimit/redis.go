package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable wraps Redis transport failures so callers can map them to an
// internal error instead of an admission decision.
var ErrUnavailable = errors.New("rate limit backend unavailable")

// Redis is the shared-state limiter for multi-instance deployments: INCR plus
// a conditional EXPIRE on the first hit of each window. Counts past the limit
// keep incrementing on this backend; the admission decision is the same as
// the memory limiter's and expiry bounds the key's lifetime, so no sweep task
// is needed.
type Redis struct {
	client redis.UniversalClient
	limit  int
	window time.Duration
	prefix string
}

// NewRedis returns a Redis-backed limiter. Keys are namespaced under prefix
// (default "rl").
func NewRedis(client redis.UniversalClient, limit int, window time.Duration, prefix string) *Redis {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if prefix == "" {
		prefix = "rl"
	}
	return &Redis{client: client, limit: limit, window: window, prefix: prefix}
}

// Allow admits the request iff the key's counter is within the limit for the
// current window.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := r.prefix + ":" + key

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, r.window).Err(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	return count <= int64(r.limit), nil
}
