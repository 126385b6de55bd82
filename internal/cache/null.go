package cache

import (
	"context"
	"time"
)

// NullCache returns a cache that does nothing. It never caches anything and
// all lookups miss. Useful when status list caching is disabled.
func NullCache() Cache {
	return &nullCache{}
}

type nullCache struct{}

func (n *nullCache) Set(_ context.Context, _ string, _ any, _ time.Duration) error {
	return nil
}

func (n *nullCache) Get(_ context.Context, _ string, _ any) bool {
	return false
}

func (n *nullCache) Exists(_ context.Context, _ string) bool {
	return false
}

func (n *nullCache) Delete(_ context.Context, _ string) error {
	return nil
}
