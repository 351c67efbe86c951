package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// RedisIndex shares the index between server replicas.
type RedisIndex struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisIndex wraps client. Entries expire after ttl.
func NewRedisIndex(client *redis.Client, ttl time.Duration) *RedisIndex {
	return &RedisIndex{client: client, ttl: ttl}
}

// Known implements SessionIndex.
func (r *RedisIndex) Known(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.client.Exists(ctx, keyPrefix+sessionID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Remember implements SessionIndex.
func (r *RedisIndex) Remember(ctx context.Context, sessionID string) error {
	return r.client.Set(ctx, keyPrefix+sessionID, 1, r.ttl).Err()
}

// Close implements SessionIndex.
func (r *RedisIndex) Close() error {
	return r.client.Close()
}
