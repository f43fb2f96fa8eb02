// Package memory implements kv.Store entirely in process memory with full
// TTL support and background expiry. It is the development and test backend
// and the failover target when Redis is down.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/inkstream/inkstream-backend/pkg/kv"
)

type entry struct {
	value     []byte
	hash      map[string][]byte
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Store is the in-memory kv.Store implementation. All operations are safe
// for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry

	janitorStop chan struct{}
	closeOnce   sync.Once
}

var _ kv.Store = (*Store)(nil)

// New returns a store whose janitor purges expired keys every
// janitorInterval. A zero interval disables the janitor; expired keys are
// then only dropped lazily on access.
func New(janitorInterval time.Duration) *Store {
	s := &Store{
		entries:     make(map[string]*entry),
		janitorStop: make(chan struct{}),
	}
	if janitorInterval > 0 {
		go s.janitor(janitorInterval)
	}
	return s
}

func (s *Store) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.janitorStop:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for key, e := range s.entries {
				if e.expired(now) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}

// live returns the entry for key, dropping it first if it has expired.
// Callers must hold the lock.
func (s *Store) live(key string) *entry {
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	if e.expired(time.Now()) {
		delete(s.entries, key)
		return nil
	}
	return e
}

func expiry(ttl []time.Duration) time.Time {
	if len(ttl) == 0 || ttl[0] <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl[0])
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl ...time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	s.entries[key] = &entry{value: v, expiresAt: expiry(ttl)}
	return nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil || e.hash != nil {
		return nil, kv.ErrNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (s *Store) SetString(ctx context.Context, key string, value string, ttl ...time.Duration) error {
	return s.Set(ctx, key, []byte(value), ttl...)
}

func (s *Store) GetString(ctx context.Context, key string) (string, error) {
	b, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *Store) Del(_ context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for _, key := range keys {
		if s.live(key) != nil {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) Exists(_ context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, key := range keys {
		if s.live(key) != nil {
			count++
		}
	}
	return count, nil
}

func (s *Store) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		return false, nil
	}
	if ttl <= 0 {
		delete(s.entries, key)
		return true, nil
	}
	e.expiresAt = time.Now().Add(ttl)
	return true, nil
}

func (s *Store) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		return 0, kv.ErrNotFound
	}
	if e.expiresAt.IsZero() {
		return kv.NoExpiry, nil
	}
	return time.Until(e.expiresAt), nil
}

func (s *Store) IncrBy(_ context.Context, key string, n int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	expiresAt := time.Time{}
	if e := s.live(key); e != nil {
		if e.hash != nil {
			return 0, fmt.Errorf("key %q holds a hash, not a counter", key)
		}
		parsed, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("key %q is not an integer: %w", key, err)
		}
		current = parsed
		expiresAt = e.expiresAt
	}

	current += n
	s.entries[key] = &entry{value: []byte(strconv.FormatInt(current, 10)), expiresAt: expiresAt}
	return current, nil
}

func (s *Store) DecrBy(ctx context.Context, key string, n int64) (int64, error) {
	return s.IncrBy(ctx, key, -n)
}

func (s *Store) HSet(_ context.Context, key string, field string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		e = &entry{hash: make(map[string][]byte)}
		s.entries[key] = e
	}
	if e.hash == nil {
		return fmt.Errorf("key %q holds a string, not a hash", key)
	}

	v := make([]byte, len(value))
	copy(v, value)
	e.hash[field] = v
	return nil
}

func (s *Store) HGet(_ context.Context, key string, field string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil || e.hash == nil {
		return nil, kv.ErrNotFound
	}
	v, ok := e.hash[field]
	if !ok {
		return nil, kv.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *Store) HDel(_ context.Context, key string, fields ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil || e.hash == nil {
		return 0, nil
	}

	var removed int64
	for _, f := range fields {
		if _, ok := e.hash[f]; ok {
			delete(e.hash, f)
			removed++
		}
	}
	if len(e.hash) == 0 {
		delete(s.entries, key)
	}
	return removed, nil
}

func (s *Store) HGetAll(_ context.Context, key string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]byte)
	e := s.live(key)
	if e == nil || e.hash == nil {
		return out, nil
	}
	for f, v := range e.hash {
		c := make([]byte, len(v))
		copy(c, v)
		out[f] = c
	}
	return out, nil
}

func (s *Store) MGet(ctx context.Context, keys ...string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	for i, key := range keys {
		v, err := s.Get(ctx, key)
		if err != nil {
			continue
		}
		out[i] = v
	}
	return out, nil
}

func (s *Store) MSet(ctx context.Context, kvs map[string][]byte, ttl ...time.Duration) error {
	for key, value := range kvs {
		if err := s.Set(ctx, key, value, ttl...); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

// Close stops the janitor. The store stays usable; expired keys are then
// only purged lazily.
func (s *Store) Close() error {
	s.closeOnce.Do(func() { close(s.janitorStop) })
	return nil
}
