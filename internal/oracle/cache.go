package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores verdicts. Get reports found=false on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (matched, found bool, err error)
	Set(ctx context.Context, key string, matched bool) error
}

// DefaultCacheTTL bounds how long a verdict is reused.
const DefaultCacheTTL = 24 * time.Hour

const cacheKeyPrefix = "gapfinder:oracle:"

// CacheKey derives the key for one (model, slug, phrase) question.
func CacheKey(model, normalizedSlug, combinationPhrase string) string {
	sum := sha256.Sum256([]byte(model + "|" + normalizedSlug + "|" + combinationPhrase))
	return hex.EncodeToString(sum[:])
}

// RedisCache keeps verdicts in Redis with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed verdict cache. A non-positive ttl uses DefaultCacheTTL.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached verdict for key.
func (c *RedisCache) Get(ctx context.Context, key string) (matched, found bool, err error) {
	val, err := c.client.Get(ctx, cacheKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("redis get: %w", err)
	}
	return val == string(VerdictYes), true, nil
}

// Set stores a verdict.
func (c *RedisCache) Set(ctx context.Context, key string, matched bool) error {
	val := string(VerdictNo)
	if matched {
		val = string(VerdictYes)
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+key, val, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
