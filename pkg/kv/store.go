package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key or hash field does not exist.
var ErrNotFound = errors.New("not found")

// ErrBackendUnavailable marks connection-level failures that should trigger
// failover rather than surface to callers as data errors.
var ErrBackendUnavailable = errors.New("backend unavailable")

// NoExpiry is returned by TTL for keys that exist without an expiry.
const NoExpiry = time.Duration(-1)

// Store is a Redis-shaped key-value interface covering the operations the
// service actually uses: strings with TTL, counters, hashes and multi-key
// reads/writes.
type Store interface {
	// String operations
	Set(ctx context.Context, key string, value []byte, ttl ...time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	SetString(ctx context.Context, key string, value string, ttl ...time.Duration) error
	GetString(ctx context.Context, key string) (string, error)

	// Key operations
	Del(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, keys ...string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Counter operations
	IncrBy(ctx context.Context, key string, n int64) (int64, error)
	DecrBy(ctx context.Context, key string, n int64) (int64, error)

	// Hash operations
	HSet(ctx context.Context, key string, field string, value []byte) error
	HGet(ctx context.Context, key string, field string) ([]byte, error)
	HDel(ctx context.Context, key string, fields ...string) (int64, error)
	HGetAll(ctx context.Context, key string) (map[string][]byte, error)

	// Multi operations
	MGet(ctx context.Context, keys ...string) ([][]byte, error)
	MSet(ctx context.Context, kv map[string][]byte, ttl ...time.Duration) error

	// Health check
	Ping(ctx context.Context) error

	// Cleanup
	Close() error
}
