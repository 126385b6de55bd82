package cache

import (
	"context"
	"time"

	rediscache "github.com/go-redis/cache/v8"
	"github.com/go-redis/redis/v8"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/log"
)

type redisCache struct {
	cache *rediscache.Cache
}

// NewRedisCache returns a new cache based on redis
func NewRedisCache(client *redis.Client) Cache {
	c := rediscache.New(&rediscache.Options{
		Redis: client,
	})
	return &redisCache{cache: c}
}

// Set sets an entry in redis. A ttl of ForEver means no expiration
func (c *redisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = ForEver
	}
	return c.cache.Set(&rediscache.Item{
		Ctx:            ctx,
		Key:            key,
		Value:          value,
		TTL:            ttl,
		SkipLocalCache: true,
	})
}

// Get returns an entry from redis, and a boolean telling if the key was found
func (c *redisCache) Get(ctx context.Context, key string, value any) bool {
	err := c.cache.Get(ctx, key, value)
	return err == nil
}

// Exists returns true if the key exists in redis
func (c *redisCache) Exists(ctx context.Context, key string) bool {
	return c.cache.Exists(ctx, key)
}

// Delete removes an entry from redis
func (c *redisCache) Delete(ctx context.Context, key string) error {
	err := c.cache.Delete(ctx, key)
	if err != nil {
		log.Error(ctx, "error deleting key from redis", "err", err, "key", key)
	}
	return err
}
