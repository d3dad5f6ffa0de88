package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/loopbill/loopbill/internal/logger"
	"github.com/loopbill/loopbill/internal/redis"
)

// RedisCache is a shared cache backed by redis. Values are stored as JSON
// strings; use UnmarshalValue on reads.
type RedisCache struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisCache creates a redis-backed cache.
func NewRedisCache(client *redis.Client, log *logger.Logger) *RedisCache {
	return &RedisCache{client: client, log: log}
}

func (c *RedisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	val, err := c.client.GetClient().Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		c.log.Warnw("failed to marshal cache value", "key", key, "error", err)
		return
	}
	if err := c.client.GetClient().Set(ctx, key, data, ttl).Err(); err != nil {
		c.log.Warnw("failed to set cache value", "key", key, "error", err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.client.GetClient().Del(ctx, key).Err(); err != nil {
		c.log.Warnw("failed to delete cache value", "key", key, "error", err)
	}
}

// UnmarshalValue converts a cached value to the requested type. It handles
// both the in-memory cache (stores objects) and redis (stores JSON strings).
func UnmarshalValue[T any](value interface{}) (*T, bool) {
	if value == nil {
		return nil, false
	}

	if typed, ok := value.(*T); ok {
		return typed, true
	}

	if str, ok := value.(string); ok {
		var result T
		if err := json.Unmarshal([]byte(str), &result); err == nil {
			return &result, true
		}
	}

	return nil, false
}
