package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"f1league/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Config holds Redis connection configuration
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// RedisCache is a small TTL cache in front of the result feed
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(cfg Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Info().Str("host", cfg.Host).Str("port", cfg.Port).Msg("Redis cache connected")
	return &RedisCache{client: client}, nil
}

// Get returns the cached value and whether it was present. A nil cache
// always misses, so callers don't need to guard against a failed
// connection at startup.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	if c == nil {
		return "", false
	}

	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheMiss()
		return "", false
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		metrics.RecordCacheMiss()
		return "", false
	}

	metrics.RecordCacheHit()
	return val, true
}

// Set stores a value with a TTL. Failures are logged, never propagated;
// the cache is an optimization, not a source of truth.
func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if c == nil {
		return
	}

	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
