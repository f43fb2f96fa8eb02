// Package kvtest holds a conformance suite every kv.Store backend must pass.
package kvtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkstream/inkstream-backend/pkg/kv"
)

// Factory builds a fresh, empty store for one subtest.
type Factory func(t *testing.T) kv.Store

// Run exercises the full Store contract against stores built by factory.
func Run(t *testing.T, factory Factory) {
	t.Run("strings", func(t *testing.T) { testStrings(t, factory(t)) })
	t.Run("ttl", func(t *testing.T) { testTTL(t, factory(t)) })
	t.Run("keys", func(t *testing.T) { testKeys(t, factory(t)) })
	t.Run("counters", func(t *testing.T) { testCounters(t, factory(t)) })
	t.Run("hashes", func(t *testing.T) { testHashes(t, factory(t)) })
	t.Run("multi", func(t *testing.T) { testMulti(t, factory(t)) })
}

func testStrings(t *testing.T, s kv.Store) {
	defer s.Close()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", []byte("v1")))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	// Overwrite.
	require.NoError(t, s.Set(ctx, "k", []byte("v2")))
	got, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	require.NoError(t, s.SetString(ctx, "str", "hello"))
	str, err := s.GetString(ctx, "str")
	require.NoError(t, err)
	assert.Equal(t, "hello", str)
}

func testTTL(t *testing.T, s kv.Store) {
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "short", []byte("v"), 50*time.Millisecond))
	_, err := s.Get(ctx, "short")
	require.NoError(t, err)

	time.Sleep(80 * time.Millisecond)
	_, err = s.Get(ctx, "short")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, s.Set(ctx, "eternal", []byte("v")))
	d, err := s.TTL(ctx, "eternal")
	require.NoError(t, err)
	assert.Equal(t, kv.NoExpiry, d)

	require.NoError(t, s.Set(ctx, "bounded", []byte("v"), time.Minute))
	d, err = s.TTL(ctx, "bounded")
	require.NoError(t, err)
	assert.Greater(t, d, 50*time.Second)

	_, err = s.TTL(ctx, "missing")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func testKeys(t *testing.T, s kv.Store) {
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", []byte("1")))
	require.NoError(t, s.Set(ctx, "b", []byte("2")))

	n, err := s.Exists(ctx, "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ok, err := s.Expire(ctx, "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Expire(ctx, "missing", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err = s.Del(ctx, "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func testCounters(t *testing.T, s kv.Store) {
	defer s.Close()
	ctx := context.Background()

	n, err := s.IncrBy(ctx, "hits", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.IncrBy(ctx, "hits", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	n, err = s.DecrBy(ctx, "hits", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func testHashes(t *testing.T, s kv.Store) {
	defer s.Close()
	ctx := context.Background()

	_, err := s.HGet(ctx, "h", "f")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, s.HSet(ctx, "h", "f1", []byte("v1")))
	require.NoError(t, s.HSet(ctx, "h", "f2", []byte("v2")))

	got, err := s.HGet(ctx, "h", "f1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	all, err := s.HGetAll(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"f1": []byte("v1"), "f2": []byte("v2")}, all)

	n, err := s.HDel(ctx, "h", "f1", "nope")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.HGet(ctx, "h", "f1")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func testMulti(t *testing.T, s kv.Store) {
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.MSet(ctx, map[string][]byte{
		"m1": []byte("a"),
		"m2": []byte("b"),
	}))

	values, err := s.MGet(ctx, "m1", "missing", "m2")
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.Equal(t, []byte("a"), values[0])
	assert.Nil(t, values[1])
	assert.Equal(t, []byte("b"), values[2])
}
