package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/sfadvisor/internal/core/catalog"
	"github.com/artpar/sfadvisor/internal/core/metadata"
)

// =============================================================================
// Test Helpers
// =============================================================================

func newTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

// =============================================================================
// Shared Behavior
// =============================================================================

func TestCache_GetSet(t *testing.T) {
	redisCache, _ := newTestRedis(t)
	caches := map[string]Cache{
		"memory": NewMemoryCache(0, 0),
		"redis":  redisCache,
	}

	for name, c := range caches {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := c.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, c.Set(ctx, "bundle", []byte("zip-bytes"), time.Minute))
			got, ok, err := c.Get(ctx, "bundle")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []byte("zip-bytes"), got)

			require.NoError(t, c.Set(ctx, "bundle", []byte("replaced"), 0))
			got, _, err = c.Get(ctx, "bundle")
			require.NoError(t, err)
			assert.Equal(t, []byte("replaced"), got)
		})
	}
}

// =============================================================================
// Redis
// =============================================================================

func TestRedisCache_Expiry(t *testing.T) {
	c, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_Unavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer c.Close()
	mr.Close()

	_, _, err = c.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, c.Set(context.Background(), "k", nil, 0), ErrUnavailable)
}

func TestNewRedisCache_PingFails(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisCache(context.Background(), addr, "", 0)
	assert.ErrorIs(t, err, ErrUnavailable)
}

// =============================================================================
// Memory
// =============================================================================

func TestMemoryCache_EntryTTL(t *testing.T) {
	c := NewMemoryCache(0, 0)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("a"), time.Second))
	require.NoError(t, c.Set(ctx, "forever", []byte("b"), 0))

	now = now.Add(time.Hour)

	_, ok, _ := c.Get(ctx, "short")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "forever")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestMemoryCache_CacheTTL(t *testing.T) {
	c := NewMemoryCache(0, 20*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	_, ok, _ := c.Get(ctx, "k")
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok, _ := c.Get(ctx, "k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewMemoryCache(2, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	_, ok, _ := c.Get(ctx, "a")
	require.True(t, ok)
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))

	assert.Equal(t, 2, c.Len())
	_, ok, _ = c.Get(ctx, "b")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "a")
	assert.True(t, ok)
	_, ok, _ = c.Get(ctx, "c")
	assert.True(t, ok)
}

func TestMemoryCache_ReturnsCopy(t *testing.T) {
	c := NewMemoryCache(0, 0)
	ctx := context.Background()
	value := []byte("abc")

	require.NoError(t, c.Set(ctx, "k", value, 0))
	value[0] = 'x'

	got, _, _ := c.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), got)
	got[1] = 'y'

	again, _, _ := c.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), again)
}

func TestMemoryCache_Close(t *testing.T) {
	c := NewMemoryCache(0, 0)
	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), 0))
	require.NoError(t, c.Close())
	assert.Equal(t, 0, c.Len())
}

// =============================================================================
// Keys
// =============================================================================

func TestBundleKey(t *testing.T) {
	all := metadata.AllComponents()
	modules := []catalog.Module{
		catalog.NewModule("Lead Management"),
		catalog.NewModule("CPQ"),
	}
	key := func(apiVersion, industry string, mods []catalog.Module, sel metadata.Selection) string {
		t.Helper()
		k, err := BundleKey(apiVersion, "Sales", industry, mods, sel)
		require.NoError(t, err)
		return k
	}

	base := key("58.0", "Technology", modules, all)
	assert.Equal(t, base, key("58.0", "Technology", []catalog.Module{modules[0].Clone(), modules[1].Clone()}, all))
	assert.Contains(t, base, keyPrefix)

	noFlows := all
	noFlows.Flows = false
	assert.NotEqual(t, base, key("58.0", "Technology", modules, noFlows))
	assert.NotEqual(t, base, key("59.0", "Technology", modules, all))
	assert.NotEqual(t, base, key("58.0", "Healthcare", modules, all))
	assert.NotEqual(t, base, key("58.0", "Technology", []catalog.Module{modules[1], modules[0]}, all))

	edited := []catalog.Module{modules[0].Clone(), modules[1].Clone()}
	edited[1].SalesforceObjects = []string{"Quote__c"}
	assert.NotEqual(t, base, key("58.0", "Technology", edited, all))
}
