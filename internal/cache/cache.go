package cache

import (
	"context"
	"time"
)

const (
	// ForEver is a cache entry that never expires
	ForEver = -1 * time.Second
)

// Cache interface propose the methods for a key value cache service
type Cache interface {
	// Set sets a value in the cache with a expiration time. ttl <= 0 means ForEver
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Get returns an element from the cache and a boolean value telling if the key exists or not
	Get(ctx context.Context, key string, value any) bool
	// Exists tells if a key exists in the cache with a valid value
	Exists(ctx context.Context, key string) bool
	// Delete removes an entry from the cache.
	Delete(ctx context.Context, key string) error
}
