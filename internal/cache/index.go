// Package cache remembers which session ids are known to exist so the
// service can skip a store lookup on the hot path.
//
// Sessions are never deleted, so a positive entry never goes stale. A miss
// only means "ask the store".
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Driver names a SessionIndex backend.
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverRedis  Driver = "redis"
)

const defaultTTL = 24 * time.Hour

var (
	// ErrInvalidDriver is returned for an unknown driver name.
	ErrInvalidDriver = errors.New("invalid session index driver")
	// ErrInvalidConfig is returned when a driver is missing its settings.
	ErrInvalidConfig = errors.New("invalid session index configuration")
)

// SessionIndex records session ids known to exist.
type SessionIndex interface {
	// Known reports whether sessionID was remembered. False is a miss, not a
	// statement that the session does not exist.
	Known(ctx context.Context, sessionID string) (bool, error)
	// Remember records that sessionID exists.
	Remember(ctx context.Context, sessionID string) error
	Close() error
}

// Option configures NewIndex.
type Option func(*indexConfig)

type indexConfig struct {
	redisURL    string
	redisClient *redis.Client
	ttl         time.Duration
}

// WithRedisURL sets the redis connection URL, e.g. redis://localhost:6379/0.
func WithRedisURL(url string) Option {
	return func(c *indexConfig) {
		c.redisURL = url
	}
}

// WithRedisClient uses an existing redis client.
func WithRedisClient(client *redis.Client) Option {
	return func(c *indexConfig) {
		c.redisClient = client
	}
}

// WithTTL sets how long a redis entry lives.
func WithTTL(ttl time.Duration) Option {
	return func(c *indexConfig) {
		c.ttl = ttl
	}
}

// NewIndex creates a SessionIndex for the given driver.
func NewIndex(driver Driver, opts ...Option) (SessionIndex, error) {
	cfg := &indexConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	switch driver {
	case DriverMemory, "":
		return NewMemoryIndex(), nil

	case DriverRedis:
		client := cfg.redisClient
		if client == nil {
			if cfg.redisURL == "" {
				return nil, ErrInvalidConfig
			}
			redisOpts, err := redis.ParseURL(cfg.redisURL)
			if err != nil {
				return nil, fmt.Errorf("failed to parse redis url: %w", err)
			}
			client = redis.NewClient(redisOpts)
		}
		ttl := cfg.ttl
		if ttl <= 0 {
			ttl = defaultTTL
		}
		return NewRedisIndex(client, ttl), nil

	default:
		return nil, ErrInvalidDriver
	}
}
