package kvstore_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/niksmo/product-explorer/internal/adapter/kvstore"
	"github.com/niksmo/product-explorer/internal/core/port"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, store port.KeyValueStore) {
	t.Helper()
	ctx := t.Context()

	t.Run("MissingKey", func(t *testing.T) {
		v, ok, err := store.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, v)
	})

	t.Run("SetGet", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "s1:favourites", []byte(`["1","2"]`)))

		v, ok, err := store.Get(ctx, "s1:favourites")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `["1","2"]`, string(v))
	})

	t.Run("LastWriteWins", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "s1:theme", []byte(`"light"`)))
		require.NoError(t, store.Set(ctx, "s1:theme", []byte(`"dark"`)))

		v, ok, err := store.Get(ctx, "s1:theme")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `"dark"`, string(v))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "s1:admin", []byte("true")))
		require.NoError(t, store.Delete(ctx, "s1:admin"))

		_, ok, err := store.Get(ctx, "s1:admin")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("DeleteMissing", func(t *testing.T) {
		assert.NoError(t, store.Delete(ctx, "never-set"))
	})
}

func TestMemoryStore(t *testing.T) {
	testStore(t, kvstore.NewMemoryStore())

	t.Run("ValueIsCopied", func(t *testing.T) {
		store := kvstore.NewMemoryStore()
		v := []byte("abc")
		require.NoError(t, store.Set(t.Context(), "k", v))
		v[0] = 'x'

		got, _, err := store.Get(t.Context(), "k")
		require.NoError(t, err)
		assert.Equal(t, "abc", string(got))
	})

	t.Run("CanceledContext", func(t *testing.T) {
		store := kvstore.NewMemoryStore()
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		assert.Error(t, store.Set(ctx, "k", []byte("v")))
	})
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	cl := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cl.Close() })

	store := kvstore.NewRedisStoreFromClient(cl, "explorer:")
	testStore(t, store)

	t.Run("Prefix", func(t *testing.T) {
		require.NoError(t, store.Set(t.Context(), "s2:theme", []byte(`"dark"`)))
		got, err := mr.Get("explorer:s2:theme")
		require.NoError(t, err)
		assert.Equal(t, `"dark"`, got)
	})

	t.Run("ServerDown", func(t *testing.T) {
		mr.Close()
		_, _, err := store.Get(t.Context(), "s1:theme")
		assert.Error(t, err)
	})
}

func TestNewRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := kvstore.NewRedisStore(t.Context(), mr.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(store.Close)

	require.NoError(t, store.Set(t.Context(), "k", []byte("v")))
	got, ok, err := store.Get(t.Context(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(got))
}
