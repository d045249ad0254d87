package csrf

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable wraps Redis transport failures.
var ErrUnavailable = errors.New("csrf backend unavailable")

// RedisStore keeps tokens in Redis for multi-instance deployments. Single-use
// consumption is a GETDEL, which is atomic server-side, and expiry rides on
// the key TTL, so Sweep is a no-op.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore namespaces tokens under prefix (default "csrf").
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "csrf"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(token string) string {
	return s.prefix + ":" + token
}

// Put stores the token with a TTL matching its expiry.
func (s *RedisStore) Put(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.SetNX(ctx, s.key(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Consume deletes the token and succeeds iff it still existed.
func (s *RedisStore) Consume(ctx context.Context, token string, _ time.Time) (bool, error) {
	res, err := s.client.GetDel(ctx, s.key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return res != "", nil
}

// Sweep is unnecessary with key TTLs.
func (s *RedisStore) Sweep(context.Context, time.Time) error { return nil }
