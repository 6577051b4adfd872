package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sangkips/khata-api/internal/config"
)

func newTestCache(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), &config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewRedisCache(client).(*RedisCache)
}

func TestRedisCache_GetSetDelete(t *testing.T) {
	mr, c := newTestCache(t)
	ctx := context.Background()

	miss, err := c.Get(ctx, "dashboard:1")
	require.NoError(t, err)
	assert.Nil(t, miss)

	require.NoError(t, c.Set(ctx, "dashboard:1", []byte(`{"total":1}`), time.Minute))
	assert.True(t, mr.Exists("khata:dashboard:1"))

	got, err := c.Get(ctx, "dashboard:1")
	require.NoError(t, err)
	assert.Equal(t, `{"total":1}`, string(got))

	require.NoError(t, c.Delete(ctx, "dashboard:1", "missing"))
	assert.False(t, mr.Exists("khata:dashboard:1"))
	require.NoError(t, c.Delete(ctx))
}

func TestRedisCache_TTL(t *testing.T) {
	mr, c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))
	mr.FastForward(2 * time.Second)

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisCache_ServerDown(t *testing.T) {
	mr, c := newTestCache(t)
	mr.Close()

	_, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	_, err := NewRedisClient(context.Background(), &config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestNoopCache(t *testing.T) {
	c := NewNoopCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, c.Delete(ctx, "k"))
}
