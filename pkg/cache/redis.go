package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds the configuration for the Redis client.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix namespaces every key written by this cache.
	KeyPrefix string
}

// RedisCache is a generic cache implementation using Redis. Values are stored
// as JSON and expire through Redis' own TTL.
type RedisCache[K comparable, V any] struct {
	redisClient *redis.Client
	ownsClient  bool
	prefix      string
	logger      zerolog.Logger
}

// NewRedisCache creates and connects a new generic RedisCache.
// It pings the Redis server to ensure connectivity before returning.
func NewRedisCache[K comparable, V any](
	ctx context.Context,
	cfg *RedisConfig,
	logger zerolog.Logger,
) (*RedisCache[K, V], error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info().Str("redis_address", cfg.Addr).Msg("Successfully connected to Redis.")

	c := NewRedisCacheFromClient[K, V](rdb, cfg.KeyPrefix, logger)
	c.ownsClient = true
	return c, nil
}

// NewRedisCacheFromClient wraps an existing client, so several typed caches
// can share one connection pool. The caller keeps ownership of rdb.
func NewRedisCacheFromClient[K comparable, V any](rdb *redis.Client, keyPrefix string, logger zerolog.Logger) *RedisCache[K, V] {
	return &RedisCache[K, V]{
		redisClient: rdb,
		prefix:      keyPrefix,
		logger:      logger.With().Str("component", "RedisCache").Str("prefix", keyPrefix).Logger(),
	}
}

func (c *RedisCache[K, V]) key(key K) string {
	return c.prefix + fmt.Sprintf("%v", key)
}

// Get retrieves an item by key. redis.Nil is a normal miss; a payload that no
// longer decodes into V is logged and also reported as a miss.
func (c *RedisCache[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	var zero V
	stringKey := c.key(key)
	cachedData, err := c.redisClient.Get(ctx, stringKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, false, nil
		}
		c.logger.Error().Err(err).Str("key", stringKey).Msg("Unexpected Redis error during fetch.")
		return zero, false, fmt.Errorf("redis get %s: %w", stringKey, err)
	}

	var value V
	if err := json.Unmarshal(cachedData, &value); err != nil {
		c.logger.Warn().Err(err).Str("key", stringKey).Msg("Failed to unmarshal cached data, treating as miss.")
		return zero, false, nil
	}

	c.logger.Debug().Str("key", stringKey).Msg("Redis cache hit.")
	return value, true, nil
}

// GetWithTTL reads the value and its remaining PTTL in one round trip.
func (c *RedisCache[K, V]) GetWithTTL(ctx context.Context, key K) (V, time.Duration, bool, error) {
	var zero V
	stringKey := c.key(key)

	pipe := c.redisClient.Pipeline()
	get := pipe.Get(ctx, stringKey)
	pttl := pipe.PTTL(ctx, stringKey)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Error().Err(err).Str("key", stringKey).Msg("Unexpected Redis error during fetch.")
		return zero, 0, false, fmt.Errorf("redis get %s: %w", stringKey, err)
	}
	cachedData, err := get.Bytes()
	if err != nil {
		return zero, 0, false, nil
	}

	var value V
	if err := json.Unmarshal(cachedData, &value); err != nil {
		c.logger.Warn().Err(err).Str("key", stringKey).Msg("Failed to unmarshal cached data, treating as miss.")
		return zero, 0, false, nil
	}
	// PTTL is negative for keys without an expiry.
	remaining := max(pttl.Val(), 0)
	return value, remaining, true, nil
}

// Set stores value as JSON with the given TTL.
func (c *RedisCache[K, V]) Set(ctx context.Context, key K, value V, ttl time.Duration) error {
	stringKey := c.key(key)
	jsonData, err := json.Marshal(value)
	if err != nil {
		c.logger.Error().Err(err).Str("key", stringKey).Msg("Failed to marshal data for caching.")
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	if ttl < 0 {
		ttl = 0
	}
	if err := c.redisClient.Set(ctx, stringKey, jsonData, ttl).Err(); err != nil {
		c.logger.Error().Err(err).Str("key", stringKey).Msg("Failed to set data in Redis cache.")
		return fmt.Errorf("failed to set in redis: %w", err)
	}

	c.logger.Debug().Str("key", stringKey).Dur("ttl", ttl).Msg("Successfully stored data in Redis cache.")
	return nil
}

// Invalidate deletes key from Redis.
func (c *RedisCache[K, V]) Invalidate(ctx context.Context, key K) error {
	if err := c.redisClient.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// Close closes the Redis client connection if this cache created it.
func (c *RedisCache[K, V]) Close() error {
	if c.redisClient != nil && c.ownsClient {
		c.logger.Info().Msg("Closing Redis client connection...")
		return c.redisClient.Close()
	}
	return nil
}
