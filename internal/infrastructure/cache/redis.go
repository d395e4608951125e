package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"scamguard/internal/config"
	"scamguard/internal/domain/models"
	"scamguard/pkg/logger"
)

// RedisCache wraps the Redis client with typed operations. It is the
// key-value collaborator behind the detector state stores.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
	logger    *logger.Logger
}

// NewRedis creates a new Redis client
func NewRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*RedisCache, error) {
	log = log.WithComponent("redis")
	log.Info().Str("host", cfg.Host).Int("port", cfg.Port).Msg("connecting to Redis")

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	log.Info().Msg("connected to Redis successfully")

	return NewRedisFromClient(client, cfg.KeyPrefix, log), nil
}

// NewRedisFromClient wraps an existing client
func NewRedisFromClient(client *redis.Client, keyPrefix string, log *logger.Logger) *RedisCache {
	return &RedisCache{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    log.WithComponent("redis"),
	}
}

// Client returns the underlying Redis client
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	c.logger.Info().Msg("closing Redis connection")
	return c.client.Close()
}

// Ping checks the connection
func (c *RedisCache) Ping(ctx context.Context) error {
	return wrapErr("ping", c.client.Ping(ctx).Err())
}

// key prepends the namespace prefix to a key
func (c *RedisCache) key(k string) string {
	return c.keyPrefix + k
}

// wrapErr maps redis.Nil to ErrNotFound and everything else to ErrStoreUnavailable
func wrapErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return models.ErrNotFound
	default:
		return fmt.Errorf("%w: redis %s: %v", models.ErrStoreUnavailable, op, err)
	}
}

// Get retrieves a value
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, c.key(key)).Result()
	return val, wrapErr("get", err)
}

// Set stores a value with optional TTL
func (c *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return wrapErr("set", c.client.Set(ctx, c.key(key), value, ttl).Err())
}

// Delete removes keys
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	prefixedKeys := make([]string, len(keys))
	for i, k := range keys {
		prefixedKeys[i] = c.key(k)
	}
	return wrapErr("del", c.client.Del(ctx, prefixedKeys...).Err())
}

// HSet sets fields in a hash
func (c *RedisCache) HSet(ctx context.Context, key string, values ...any) error {
	return wrapErr("hset", c.client.HSet(ctx, c.key(key), values...).Err())
}

// HGetAll gets all fields from a hash; a missing hash is empty
func (c *RedisCache) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	res, err := c.client.HGetAll(ctx, c.key(key)).Result()
	return res, wrapErr("hgetall", err)
}

// HDel removes fields from a hash
func (c *RedisCache) HDel(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return wrapErr("hdel", c.client.HDel(ctx, c.key(key), fields...).Err())
}

// SAdd adds members to a set
func (c *RedisCache) SAdd(ctx context.Context, key string, members ...any) error {
	return wrapErr("sadd", c.client.SAdd(ctx, c.key(key), members...).Err())
}

// SMembers returns all members of a set
func (c *RedisCache) SMembers(ctx context.Context, key string) ([]string, error) {
	res, err := c.client.SMembers(ctx, c.key(key)).Result()
	return res, wrapErr("smembers", err)
}

// LPushTrim pushes values to the head of a list and trims it to limit entries
func (c *RedisCache) LPushTrim(ctx context.Context, key string, limit int64, values ...any) error {
	pipe := c.client.TxPipeline()
	pipe.LPush(ctx, c.key(key), values...)
	if limit > 0 {
		pipe.LTrim(ctx, c.key(key), 0, limit-1)
	}
	_, err := pipe.Exec(ctx)
	return wrapErr("lpush", err)
}

// LRange returns list entries between start and stop inclusive
func (c *RedisCache) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	res, err := c.client.LRange(ctx, c.key(key), start, stop).Result()
	return res, wrapErr("lrange", err)
}

// Pipeline returns a Redis pipeline for batch operations
func (c *RedisCache) Pipeline() redis.Pipeliner {
	return c.client.Pipeline()
}

// KeyRateLimitPrefix namespaces API rate limit counters
const KeyRateLimitPrefix = "rate_limit:"

// CheckRateLimit checks and increments the rate limit counter
// Returns (allowed, remaining, resetTime, error)
func (c *RedisCache) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, time.Time, error) {
	now := time.Now()
	bucket := int64(window.Seconds())
	if bucket <= 0 {
		bucket = 1
	}
	windowKey := fmt.Sprintf("%s%s:%d", KeyRateLimitPrefix, key, now.Unix()/bucket)

	pipe := c.Pipeline()
	incr := pipe.Incr(ctx, c.key(windowKey))
	pipe.Expire(ctx, c.key(windowKey), window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, wrapErr("ratelimit", err)
	}

	count := incr.Val()
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= limit, remaining, now.Add(window), nil
}

// KeyLockPrefix namespaces distributed job locks
const KeyLockPrefix = "lock:"

// AcquireLock attempts to take a distributed lock. It reports false when
// another holder owns it.
func (c *RedisCache) AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.key(KeyLockPrefix+name), "locked", ttl).Result()
	return ok, wrapErr("lock", err)
}

// RefreshLock extends the TTL of a held lock
func (c *RedisCache) RefreshLock(ctx context.Context, name string, ttl time.Duration) error {
	return wrapErr("lock refresh", c.client.Expire(ctx, c.key(KeyLockPrefix+name), ttl).Err())
}

// ReleaseLock releases a distributed lock
func (c *RedisCache) ReleaseLock(ctx context.Context, name string) error {
	return wrapErr("unlock", c.client.Del(ctx, c.key(KeyLockPrefix+name)).Err())
}
