package cache

import (
	"context"
	"errors"
	"reflect"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type memoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache returns a basic in memory cache
func NewMemoryCache() Cache {
	return &memoryCache{cache: gocache.New(gocache.NoExpiration, 10*time.Minute)}
}

// Set sets an entry in the in memory cache. A ttl <=0 means an entry that never expires
func (m *memoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.cache.Set(key, value, ttl)
	return nil
}

// Get returns an entry from the in memory cache. value must be a pointer to
// the same type that was stored.
func (m *memoryCache) Get(_ context.Context, key string, value any) bool {
	stored, found := m.cache.Get(key)
	if !found {
		return false
	}
	out := reflect.ValueOf(value)
	if out.Kind() != reflect.Pointer || out.IsNil() {
		return false
	}
	storedVal := reflect.ValueOf(stored)
	if !storedVal.Type().AssignableTo(out.Elem().Type()) {
		return false
	}
	out.Elem().Set(storedVal)
	return true
}

// Exists returns true if the key exists in the in memory cache
func (m *memoryCache) Exists(_ context.Context, key string) bool {
	_, found := m.cache.Get(key)
	return found
}

// Delete removes an entry from the in memory cache
func (m *memoryCache) Delete(_ context.Context, key string) error {
	if _, found := m.cache.Get(key); !found {
		return errors.New("key not found")
	}
	m.cache.Delete(key)
	return nil
}
