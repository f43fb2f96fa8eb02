package kv

import (
	"context"
	"fmt"
	"time"
)

// Backend names a storage backend.
type Backend string

const (
	// BackendMemory uses the in-memory store.
	BackendMemory Backend = "memory"
	// BackendRedis uses Redis, with in-memory failover unless disabled.
	BackendRedis Backend = "redis"
)

// Config holds everything needed to build a Store.
type Config struct {
	// Backend selects the storage backend.
	Backend Backend

	// RedisURL is the Redis connection string, required for the redis
	// backend. Either redis://host:port/db or a bare host:port.
	RedisURL string

	// JanitorInterval controls how often the in-memory store purges
	// expired keys. Default 30s.
	JanitorInterval time.Duration

	// FailoverDisabled turns off automatic demotion to the in-memory
	// store when Redis becomes unavailable.
	FailoverDisabled bool

	// ProbeInterval controls how often a demoted store probes Redis for
	// recovery. Default 5s.
	ProbeInterval time.Duration

	// StartupProbeTimeout bounds the initial Redis health check.
	// Default 1s.
	StartupProbeTimeout time.Duration

	// Logger receives failover events. Nil disables logging.
	Logger LogFunc
}

// StoreFactory builds a Store from a Config.
type StoreFactory func(cfg Config) (Store, error)

var factories = make(map[Backend]StoreFactory)

// RegisterBackend registers a factory for a backend. Backends call this from
// init.
func RegisterBackend(backend Backend, factory StoreFactory) {
	factories[backend] = factory
}

// NewStoreFromConfig builds a Store per cfg. The redis backend degrades to
// the in-memory store when Redis cannot be reached at startup.
func NewStoreFromConfig(cfg Config) (Store, error) {
	if cfg.JanitorInterval == 0 {
		cfg.JanitorInterval = 30 * time.Second
	}
	if cfg.ProbeInterval == 0 {
		cfg.ProbeInterval = 5 * time.Second
	}
	if cfg.StartupProbeTimeout == 0 {
		cfg.StartupProbeTimeout = time.Second
	}

	switch cfg.Backend {
	case BackendMemory:
		factory, ok := factories[BackendMemory]
		if !ok {
			return nil, fmt.Errorf("memory backend not registered")
		}
		return factory(cfg)

	case BackendRedis:
		return newRedisWithFailover(cfg)

	default:
		return nil, fmt.Errorf("unsupported backend: %s (supported: %s, %s)",
			cfg.Backend, BackendMemory, BackendRedis)
	}
}

func newRedisWithFailover(cfg Config) (Store, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis URL is required when backend is %q", BackendRedis)
	}

	memoryFactory, ok := factories[BackendMemory]
	if !ok {
		return nil, fmt.Errorf("memory backend not registered")
	}
	redisFactory, ok := factories[BackendRedis]
	if !ok {
		return nil, fmt.Errorf("redis backend not registered")
	}

	memoryStore, err := memoryFactory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory fallback: %w", err)
	}

	redisStore, err := redisFactory(cfg)
	if err != nil {
		if cfg.Logger != nil {
			cfg.Logger("Redis unavailable at startup; using in-memory store", "error", err.Error())
		}
		return memoryStore, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.StartupProbeTimeout)
	defer cancel()
	healthy := redisStore.Ping(ctx) == nil

	if cfg.FailoverDisabled {
		if healthy {
			memoryStore.Close()
			return redisStore, nil
		}
		redisStore.Close()
		if cfg.Logger != nil {
			cfg.Logger("Redis health check failed at startup, using in-memory store")
		}
		return memoryStore, nil
	}

	if !healthy {
		if cfg.Logger != nil {
			cfg.Logger("Redis unhealthy at startup; using in-memory store (will retry in background)")
		}
		return NewFailoverStoreWithFallbackActive(redisStore, memoryStore, cfg.ProbeInterval, cfg.Logger), nil
	}

	if cfg.Logger != nil {
		cfg.Logger("Redis healthy at startup; using Redis with in-memory failover")
	}
	return NewFailoverStore(redisStore, memoryStore, cfg.ProbeInterval, cfg.Logger), nil
}
