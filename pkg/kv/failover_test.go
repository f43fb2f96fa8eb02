package kv

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore is a minimal Store whose operations can be switched to fail
// with ErrBackendUnavailable.
type flakyStore struct {
	mu   sync.Mutex
	data map[string][]byte
	down bool
}

func newFlakyStore() *flakyStore {
	return &flakyStore{data: make(map[string][]byte)}
}

func (f *flakyStore) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *flakyStore) fail() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return fmt.Errorf("%w: connection refused", ErrBackendUnavailable)
	}
	return nil
}

func (f *flakyStore) Set(_ context.Context, key string, value []byte, _ ...time.Duration) error {
	if err := f.fail(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *flakyStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (f *flakyStore) SetString(ctx context.Context, key, value string, ttl ...time.Duration) error {
	return f.Set(ctx, key, []byte(value), ttl...)
}

func (f *flakyStore) GetString(ctx context.Context, key string) (string, error) {
	b, err := f.Get(ctx, key)
	return string(b), err
}

func (f *flakyStore) Del(_ context.Context, keys ...string) (int64, error) {
	if err := f.fail(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return n, nil
}

func (f *flakyStore) Exists(_ context.Context, keys ...string) (int64, error) {
	if err := f.fail(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			n++
		}
	}
	return n, nil
}

func (f *flakyStore) Expire(context.Context, string, time.Duration) (bool, error) {
	return false, f.fail()
}

func (f *flakyStore) TTL(context.Context, string) (time.Duration, error) {
	return NoExpiry, f.fail()
}

func (f *flakyStore) IncrBy(context.Context, string, int64) (int64, error) {
	return 0, f.fail()
}

func (f *flakyStore) DecrBy(context.Context, string, int64) (int64, error) {
	return 0, f.fail()
}

func (f *flakyStore) HSet(context.Context, string, string, []byte) error { return f.fail() }

func (f *flakyStore) HGet(context.Context, string, string) ([]byte, error) {
	return nil, f.fail()
}

func (f *flakyStore) HDel(context.Context, string, ...string) (int64, error) {
	return 0, f.fail()
}

func (f *flakyStore) HGetAll(context.Context, string) (map[string][]byte, error) {
	return nil, f.fail()
}

func (f *flakyStore) MGet(context.Context, ...string) ([][]byte, error) { return nil, f.fail() }

func (f *flakyStore) MSet(context.Context, map[string][]byte, ...time.Duration) error {
	return f.fail()
}

func (f *flakyStore) Ping(context.Context) error { return f.fail() }
func (f *flakyStore) Close() error               { return nil }

func TestFailover_DemotesOnPrimaryFailure(t *testing.T) {
	primary := newFlakyStore()
	fallback := newFlakyStore()
	fs := NewFailoverStore(primary, fallback, time.Hour, nil)
	defer fs.Close()
	ctx := context.Background()

	require.NoError(t, fs.Set(ctx, "k", []byte("v")))
	assert.Equal(t, "primary", fs.ActiveBackend())

	primary.setDown(true)

	// The failing write demotes and retries on the fallback.
	require.NoError(t, fs.Set(ctx, "k2", []byte("v2")))
	assert.Equal(t, "fallback", fs.ActiveBackend())

	got, err := fs.Get(ctx, "k2")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestFailover_DataErrorsDoNotDemote(t *testing.T) {
	primary := newFlakyStore()
	fallback := newFlakyStore()
	fs := NewFailoverStore(primary, fallback, time.Hour, nil)
	defer fs.Close()

	_, err := fs.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "primary", fs.ActiveBackend())
}

func TestFailover_RecoversViaProbe(t *testing.T) {
	primary := newFlakyStore()
	fallback := newFlakyStore()
	fs := NewFailoverStore(primary, fallback, 20*time.Millisecond, nil)
	defer fs.Close()
	ctx := context.Background()

	primary.setDown(true)
	require.NoError(t, fs.Set(ctx, "k", []byte("v")))
	require.Equal(t, "fallback", fs.ActiveBackend())

	primary.setDown(false)

	assert.Eventually(t, func() bool {
		return fs.ActiveBackend() == "primary"
	}, time.Second, 10*time.Millisecond, "probe should promote the recovered primary")
}

func TestFailover_StartsOnFallbackWhenPrimaryDownAtStartup(t *testing.T) {
	primary := newFlakyStore()
	primary.setDown(true)
	fallback := newFlakyStore()

	fs := NewFailoverStoreWithFallbackActive(primary, fallback, 20*time.Millisecond, nil)
	defer fs.Close()

	require.Equal(t, "fallback", fs.ActiveBackend())
	require.NoError(t, fs.Set(context.Background(), "k", []byte("v")))

	primary.setDown(false)
	assert.Eventually(t, func() bool {
		return fs.ActiveBackend() == "primary"
	}, time.Second, 10*time.Millisecond)
}
