package kv

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// LogFunc receives structured failover events as a message plus key/value
// pairs.
type LogFunc func(msg string, fields ...any)

// FailoverStore wraps a primary and a fallback store. Operations run against
// the active store; when the primary fails with ErrBackendUnavailable the
// wrapper demotes to the fallback, retries the operation there, and probes
// the primary in the background until it recovers.
type FailoverStore struct {
	primary       Store
	fallback      Store
	active        atomic.Value
	probeInterval time.Duration
	logger        LogFunc

	mu      sync.Mutex
	probing bool
	closed  chan struct{}
}

// NewFailoverStore returns a failover store with the primary active.
func NewFailoverStore(primary, fallback Store, probeInterval time.Duration, logger LogFunc) *FailoverStore {
	if logger == nil {
		logger = func(string, ...any) {}
	}
	fs := &FailoverStore{
		primary:       primary,
		fallback:      fallback,
		probeInterval: probeInterval,
		logger:        logger,
		closed:        make(chan struct{}),
	}
	fs.active.Store(primary)
	return fs
}

// NewFailoverStoreWithFallbackActive returns a failover store that starts on
// the fallback and probes the primary for recovery, for when the primary is
// already down at startup.
func NewFailoverStoreWithFallbackActive(primary, fallback Store, probeInterval time.Duration, logger LogFunc) *FailoverStore {
	fs := NewFailoverStore(primary, fallback, probeInterval, logger)
	fs.active.Store(fallback)
	fs.mu.Lock()
	fs.startProbingLocked()
	fs.mu.Unlock()
	return fs
}

func (fs *FailoverStore) activeStore() Store {
	return fs.active.Load().(Store)
}

// ActiveBackend reports which backend currently serves requests, "primary"
// or "fallback".
func (fs *FailoverStore) ActiveBackend() string {
	if fs.activeStore() == fs.primary {
		return "primary"
	}
	return "fallback"
}

func (fs *FailoverStore) demote() {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.activeStore() == fs.fallback {
		return
	}
	fs.active.Store(fs.fallback)
	fs.logger("Failing over to in-memory store", "reason", "primary_unavailable")
	fs.startProbingLocked()
}

func (fs *FailoverStore) startProbingLocked() {
	if fs.probing {
		return
	}
	fs.probing = true
	go fs.probeLoop()
}

func (fs *FailoverStore) probeLoop() {
	ticker := time.NewTicker(fs.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-fs.closed:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), fs.probeInterval/2)
			err := fs.primary.Ping(ctx)
			cancel()
			if err != nil {
				continue
			}

			fs.mu.Lock()
			fs.active.Store(fs.primary)
			fs.probing = false
			fs.mu.Unlock()
			fs.logger("Recovered to primary store", "reason", "primary_healthy")
			return
		}
	}
}

// do runs fn against the active store, demoting and retrying on the fallback
// when the primary reports a connection failure.
func do[T any](fs *FailoverStore, fn func(Store) (T, error)) (T, error) {
	store := fs.activeStore()
	result, err := fn(store)

	if store == fs.primary && errors.Is(err, ErrBackendUnavailable) {
		fs.demote()
		if next := fs.activeStore(); next != store {
			return fn(next)
		}
	}
	return result, err
}

func doErr(fs *FailoverStore, fn func(Store) error) error {
	_, err := do(fs, func(s Store) (struct{}, error) {
		return struct{}{}, fn(s)
	})
	return err
}

func (fs *FailoverStore) Set(ctx context.Context, key string, value []byte, ttl ...time.Duration) error {
	return doErr(fs, func(s Store) error { return s.Set(ctx, key, value, ttl...) })
}

func (fs *FailoverStore) Get(ctx context.Context, key string) ([]byte, error) {
	return do(fs, func(s Store) ([]byte, error) { return s.Get(ctx, key) })
}

func (fs *FailoverStore) SetString(ctx context.Context, key string, value string, ttl ...time.Duration) error {
	return doErr(fs, func(s Store) error { return s.SetString(ctx, key, value, ttl...) })
}

func (fs *FailoverStore) GetString(ctx context.Context, key string) (string, error) {
	return do(fs, func(s Store) (string, error) { return s.GetString(ctx, key) })
}

func (fs *FailoverStore) Del(ctx context.Context, keys ...string) (int64, error) {
	return do(fs, func(s Store) (int64, error) { return s.Del(ctx, keys...) })
}

func (fs *FailoverStore) Exists(ctx context.Context, keys ...string) (int64, error) {
	return do(fs, func(s Store) (int64, error) { return s.Exists(ctx, keys...) })
}

func (fs *FailoverStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return do(fs, func(s Store) (bool, error) { return s.Expire(ctx, key, ttl) })
}

func (fs *FailoverStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	return do(fs, func(s Store) (time.Duration, error) { return s.TTL(ctx, key) })
}

func (fs *FailoverStore) IncrBy(ctx context.Context, key string, n int64) (int64, error) {
	return do(fs, func(s Store) (int64, error) { return s.IncrBy(ctx, key, n) })
}

func (fs *FailoverStore) DecrBy(ctx context.Context, key string, n int64) (int64, error) {
	return do(fs, func(s Store) (int64, error) { return s.DecrBy(ctx, key, n) })
}

func (fs *FailoverStore) HSet(ctx context.Context, key string, field string, value []byte) error {
	return doErr(fs, func(s Store) error { return s.HSet(ctx, key, field, value) })
}

func (fs *FailoverStore) HGet(ctx context.Context, key string, field string) ([]byte, error) {
	return do(fs, func(s Store) ([]byte, error) { return s.HGet(ctx, key, field) })
}

func (fs *FailoverStore) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	return do(fs, func(s Store) (int64, error) { return s.HDel(ctx, key, fields...) })
}

func (fs *FailoverStore) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	return do(fs, func(s Store) (map[string][]byte, error) { return s.HGetAll(ctx, key) })
}

func (fs *FailoverStore) MGet(ctx context.Context, keys ...string) ([][]byte, error) {
	return do(fs, func(s Store) ([][]byte, error) { return s.MGet(ctx, keys...) })
}

func (fs *FailoverStore) MSet(ctx context.Context, kvs map[string][]byte, ttl ...time.Duration) error {
	return doErr(fs, func(s Store) error { return s.MSet(ctx, kvs, ttl...) })
}

// Ping checks the active store.
func (fs *FailoverStore) Ping(ctx context.Context) error {
	return fs.activeStore().Ping(ctx)
}

// Close stops background probing and closes both stores, returning the first
// close error.
func (fs *FailoverStore) Close() error {
	fs.mu.Lock()
	select {
	case <-fs.closed:
	default:
		close(fs.closed)
	}
	fs.probing = false
	fs.mu.Unlock()

	err := fs.primary.Close()
	if ferr := fs.fallback.Close(); err == nil {
		err = ferr
	}
	return err
}
