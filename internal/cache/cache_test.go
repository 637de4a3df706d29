package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return mr, rc
}

func TestGetSet(t *testing.T) {
	mr, rc := newRedis(t)
	c := New(rc, time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))

	key := Key("search", "v1", "广州")
	_, ok := c.Get(ctx, key)
	assert.False(t, ok)

	c.Set(ctx, key, []byte(`[{"name":"广州市"}]`))
	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.JSONEq(t, `[{"name":"广州市"}]`, string(got))

	assert.Equal(t, time.Minute, mr.TTL(key))
	mr.FastForward(2 * time.Minute)
	_, ok = c.Get(ctx, key)
	assert.False(t, ok)
}

func TestKey(t *testing.T) {
	k1 := Key("search", "v1", "广州")
	assert.True(t, strings.HasPrefix(k1, "jiuyu:search:v1:"))
	assert.Equal(t, k1, Key("search", "v1", "广州"))
	assert.NotEqual(t, k1, Key("search", "v2", "广州"))
	assert.NotEqual(t, k1, Key("region", "v1", "广州"))
	assert.Len(t, strings.TrimPrefix(k1, "jiuyu:search:v1:"), 16)
}

func TestDisabledCache(t *testing.T) {
	c := New(nil, 0)
	assert.False(t, c.Enabled())
	c.Set(context.Background(), "k", []byte("v"))
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
	assert.NoError(t, c.Ping(context.Background()))

	var nilCache *Cache
	assert.False(t, nilCache.Enabled())
}

func TestRedisDown(t *testing.T) {
	mr, rc := newRedis(t)
	c := New(rc, time.Minute)
	mr.Close()

	c.Set(context.Background(), "k", []byte("v"))
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
}
