package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCaches(t *testing.T) map[string]Cache {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]Cache{
		"memory": NewMemoryCache(),
		"redis":  NewRedisCache(client),
	}
}

func TestCacheSetGet(t *testing.T) {
	ctx := context.Background()
	for name, c := range testCaches(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, c.Set(ctx, "key", "value", time.Minute))

			var got string
			assert.True(t, c.Get(ctx, "key", &got))
			assert.Equal(t, "value", got)
			assert.True(t, c.Exists(ctx, "key"))
		})
	}
}

func TestCacheMiss(t *testing.T) {
	ctx := context.Background()
	for name, c := range testCaches(t) {
		t.Run(name, func(t *testing.T) {
			var got string
			assert.False(t, c.Get(ctx, "absent", &got))
			assert.False(t, c.Exists(ctx, "absent"))
		})
	}
}

func TestCacheDelete(t *testing.T) {
	ctx := context.Background()
	for name, c := range testCaches(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, c.Set(ctx, "key", "value", time.Minute))
			require.NoError(t, c.Delete(ctx, "key"))
			assert.False(t, c.Exists(ctx, "key"))
		})
	}
}

func TestCacheStructValues(t *testing.T) {
	type entry struct {
		URI   string
		Token string
	}
	ctx := context.Background()
	for name, c := range testCaches(t) {
		t.Run(name, func(t *testing.T) {
			stored := entry{URI: "https://status.example.com/1", Token: "abc"}
			require.NoError(t, c.Set(ctx, "entry", stored, time.Minute))

			var got entry
			require.True(t, c.Get(ctx, "entry", &got))
			assert.Equal(t, stored, got)
		})
	}
}

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NullCache()

	require.NoError(t, c.Set(ctx, "key", "value", time.Minute))
	var got string
	assert.False(t, c.Get(ctx, "key", &got))
	assert.False(t, c.Exists(ctx, "key"))
	assert.NoError(t, c.Delete(ctx, "key"))
}
