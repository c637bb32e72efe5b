package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, Store) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewRedisStore(client, RedisOptions{DefaultTTL: time.Minute})
}

func TestRedisStoreGetSetDelete(t *testing.T) {
	ctx := context.Background()
	mr, store := setupRedis(t)

	_, err := store.Get(ctx, "orders:receipt:ORD-1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, store.Set(ctx, "orders:receipt:ORD-1", []byte("hello"), 0))
	got, err := store.Get(ctx, "orders:receipt:ORD-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
	assert.Equal(t, time.Minute, mr.TTL("orders:receipt:ORD-1"))

	require.NoError(t, store.Delete(ctx, "orders:receipt:ORD-1"))
	_, err = store.Get(ctx, "orders:receipt:ORD-1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisStoreExpiry(t *testing.T) {
	ctx := context.Background()
	mr, store := setupRedis(t)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Second))
	mr.FastForward(2 * time.Second)

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisStoreRejectsEmptyKey(t *testing.T) {
	_, store := setupRedis(t)
	assert.Error(t, store.Set(context.Background(), "", []byte("v"), 0))
}

type payload struct {
	Code  string  `json:"code"`
	Total float64 `json:"total"`
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	_, store := setupRedis(t)

	require.NoError(t, SetJSON(ctx, store, "p", payload{Code: "ORD-1", Total: 30}, 0))
	got, err := GetJSON[payload](ctx, store, "p")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", got.Code)
	assert.Equal(t, 30.0, got.Total)

	require.NoError(t, store.Set(ctx, "broken", []byte("{"), 0))
	_, err = GetJSON[payload](ctx, store, "broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestNoopStore(t *testing.T) {
	ctx := context.Background()
	store := Noop()

	require.NoError(t, SetJSON(ctx, store, "p", payload{}, 0))
	_, err := GetJSON[payload](ctx, store, "p")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisStorePrefixesKeys(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client, RedisOptions{Prefix: "burgerbar:", DefaultTTL: time.Minute})

	require.NoError(t, store.Set(ctx, "orders:receipt:ORD-1", []byte("r"), 0))
	assert.True(t, mr.Exists("burgerbar:orders:receipt:ORD-1"))
	assert.False(t, mr.Exists("orders:receipt:ORD-1"))

	got, err := store.Get(ctx, "orders:receipt:ORD-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("r"), got)

	require.NoError(t, store.Delete(ctx, "orders:receipt:ORD-1"))
	assert.False(t, mr.Exists("burgerbar:orders:receipt:ORD-1"))
}
