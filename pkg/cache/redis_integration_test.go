//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/illmade-knight/go-contentcache/pkg/cache"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

type redisTestValue struct {
	ID   string
	Data []byte
}

func TestRedisCache_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	cfg := &cache.RedisConfig{Addr: addr, KeyPrefix: "test:"}
	c, err := cache.NewRedisCache[string, redisTestValue](ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	t.Run("Set and Get", func(t *testing.T) {
		value := redisTestValue{ID: "test-id", Data: []byte("hello world")}

		require.NoError(t, c.Set(ctx, "test-key-1", value, time.Minute))

		retrieved, ok, err := c.Get(ctx, "test-key-1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, value, retrieved)
	})

	t.Run("Get Miss", func(t *testing.T) {
		_, ok, err := c.Get(ctx, "non-existent-key")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Undecodable payload is a miss", func(t *testing.T) {
		strCache, err := cache.NewRedisCache[string, string](ctx, cfg, zerolog.Nop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = strCache.Close() })
		require.NoError(t, strCache.Set(ctx, "mixed", "not a struct", time.Minute))

		_, ok, err := c.Get(ctx, "mixed")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("TTL Expires", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "ttl-key", redisTestValue{ID: "ttl-id"}, 100*time.Millisecond))

		// Explicitly verifying a time-based feature of the backend.
		time.Sleep(250 * time.Millisecond)

		_, ok, err := c.Get(ctx, "ttl-key")
		require.NoError(t, err)
		assert.False(t, ok, "entry should be gone after its TTL")
	})

	t.Run("Invalidate", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "gone", redisTestValue{ID: "x"}, time.Minute))
		require.NoError(t, c.Invalidate(ctx, "gone"))

		_, ok, err := c.Get(ctx, "gone")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
