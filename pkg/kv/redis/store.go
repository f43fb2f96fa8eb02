// Package redis implements kv.Store over go-redis/v9. Connection-level
// failures are wrapped with kv.ErrBackendUnavailable so the failover wrapper
// can tell them apart from data errors.
package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/inkstream/inkstream-backend/pkg/kv"
)

// Store is the Redis-backed kv.Store implementation.
type Store struct {
	client *redis.Client
}

var _ kv.Store = (*Store)(nil)

// New connects to redisURL, accepting either a full redis:// URL or a bare
// host:port address.
func New(redisURL string) (*Store, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt, err = redis.ParseURL("redis://" + redisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL %q: %w", redisURL, err)
		}
	}
	return &Store{client: redis.NewClient(opt)}, nil
}

// IsConnectionError reports whether err is a connection-level failure that
// should trigger failover. redis.Nil and caller cancellation are not.
func IsConnectionError(err error) bool {
	if err == nil || errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := err.Error()
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"network is unreachable",
		"connection closed",
		"client is closed",
		"EOF",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return kv.ErrNotFound
	}
	if IsConnectionError(err) {
		return fmt.Errorf("%w: %v", kv.ErrBackendUnavailable, err)
	}
	return err
}

func ttlArg(ttl []time.Duration) time.Duration {
	if len(ttl) == 0 || ttl[0] <= 0 {
		return 0
	}
	return ttl[0]
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl ...time.Duration) error {
	return wrap(s.client.Set(ctx, key, value, ttlArg(ttl)).Err())
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, wrap(err)
	}
	return b, nil
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

func (s *Store) Del(ctx context.Context, keys ...string) (int64, error) {
	n, err := s.client.Del(ctx, keys...).Result()
	return n, wrap(err)
}

func (s *Store) Exists(ctx context.Context, keys ...string) (int64, error) {
	n, err := s.client.Exists(ctx, keys...).Result()
	return n, wrap(err)
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.Expire(ctx, key, ttl).Result()
	return ok, wrap(err)
}

func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, wrap(err)
	}
	switch d {
	case -2 * time.Second:
		return 0, kv.ErrNotFound
	case -1 * time.Second:
		return kv.NoExpiry, nil
	}
	return d, nil
}

func (s *Store) IncrBy(ctx context.Context, key string, n int64) (int64, error) {
	v, err := s.client.IncrBy(ctx, key, n).Result()
	return v, wrap(err)
}

func (s *Store) DecrBy(ctx context.Context, key string, n int64) (int64, error) {
	v, err := s.client.DecrBy(ctx, key, n).Result()
	return v, wrap(err)
}

func (s *Store) HSet(ctx context.Context, key string, field string, value []byte) error {
	return wrap(s.client.HSet(ctx, key, field, value).Err())
}

func (s *Store) HGet(ctx context.Context, key string, field string) ([]byte, error) {
	b, err := s.client.HGet(ctx, key, field).Bytes()
	if err != nil {
		return nil, wrap(err)
	}
	return b, nil
}

func (s *Store) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	n, err := s.client.HDel(ctx, key, fields...).Result()
	return n, wrap(err)
}

func (s *Store) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	m, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, wrap(err)
	}
	out := make(map[string][]byte, len(m))
	for f, v := range m {
		out[f] = []byte(v)
	}
	return out, nil
}

func (s *Store) MGet(ctx context.Context, keys ...string) ([][]byte, error) {
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, wrap(err)
	}
	out := make([][]byte, len(values))
	for i, v := range values {
		if str, ok := v.(string); ok {
			out[i] = []byte(str)
		}
	}
	return out, nil
}

func (s *Store) MSet(ctx context.Context, kvs map[string][]byte, ttl ...time.Duration) error {
	if len(kvs) == 0 {
		return nil
	}

	d := ttlArg(ttl)
	pipe := s.client.Pipeline()
	for key, value := range kvs {
		pipe.Set(ctx, key, value, d)
	}
	_, err := pipe.Exec(ctx)
	return wrap(err)
}

func (s *Store) Ping(ctx context.Context) error {
	return wrap(s.client.Ping(ctx).Err())
}

func (s *Store) Close() error {
	return s.client.Close()
}

// Client exposes the underlying go-redis client for pub/sub use.
func (s *Store) Client() *redis.Client {
	return s.client
}
