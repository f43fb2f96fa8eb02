package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkstream/inkstream-backend/pkg/kv"
	"github.com/inkstream/inkstream-backend/pkg/kv/kvtest"
)

func TestConformance(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) kv.Store {
		return New(10 * time.Millisecond)
	})
}

func TestJanitorPurgesExpiredKeys(t *testing.T) {
	s := New(10 * time.Millisecond)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "gone", []byte("v"), 20*time.Millisecond))
	time.Sleep(60 * time.Millisecond)

	s.mu.Lock()
	_, stillThere := s.entries["gone"]
	s.mu.Unlock()
	assert.False(t, stillThere, "janitor should have removed the key")
}

func TestTypeMismatch(t *testing.T) {
	s := New(0)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.HSet(ctx, "h", "f", []byte("v")))
	_, err := s.IncrBy(ctx, "h", 1)
	assert.Error(t, err)

	require.NoError(t, s.Set(ctx, "str", []byte("v")))
	assert.Error(t, s.HSet(ctx, "str", "f", []byte("v")))

	// Get on a hash key behaves like a missing string key.
	_, err = s.Get(ctx, "h")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestIncrByPreservesTTL(t *testing.T) {
	s := New(0)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "n", []byte("1"), time.Minute))
	_, err := s.IncrBy(ctx, "n", 1)
	require.NoError(t, err)

	d, err := s.TTL(ctx, "n")
	require.NoError(t, err)
	assert.Greater(t, d, 50*time.Second)
}
