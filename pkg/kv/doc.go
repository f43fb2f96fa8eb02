// Package kv provides a Redis-shaped key-value store abstraction with
// in-memory and Redis-backed implementations plus an automatic failover
// wrapper.
//
// The Store interface covers strings, counters and hashes with TTL support.
// The in-memory backend is self-contained (full TTL support, background
// expiry) and is the default for development and tests; the Redis backend
// wraps go-redis/v9 for production. When Redis is configured, the factory
// wraps it in a FailoverStore that demotes to the in-memory backend on
// connection failures and promotes back once Redis answers pings again.
//
//	cfg := kv.Config{Backend: kv.BackendMemory}
//	store, err := kv.NewStoreFromConfig(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	err = store.Set(ctx, "ink:catalog:revision", []byte("rev-7"), time.Minute)
//	value, err := store.Get(ctx, "ink:catalog:revision")
//	if errors.Is(err, kv.ErrNotFound) {
//		// key missing or expired
//	}
//
// Backends register themselves in init, so callers import the ones they want:
//
//	import (
//		_ "github.com/inkstream/inkstream-backend/pkg/kv/memory"
//		_ "github.com/inkstream/inkstream-backend/pkg/kv/redis"
//	)
package kv
