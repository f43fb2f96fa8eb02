package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/inkstream/inkstream-backend/internal/metrics"
	"github.com/inkstream/inkstream-backend/pkg/kv"
	memkv "github.com/inkstream/inkstream-backend/pkg/kv/memory"
)

// Cache is the service-wide JSON cache. It prefers Redis and degrades to an
// in-memory kv.Store with a local pub/sub hub when Redis is unreachable at
// startup, so a dev box without Redis still runs the full stack.
type Cache struct {
	client *redis.Client

	// In-memory fallback, used when client is nil.
	kvStore   kv.Store
	pubsubHub *PubSubHub

	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

// NewCache connects to Redis at addr, or falls back to in-memory mode when
// addr is empty or the server does not answer a ping.
func NewCache(addr string, logger *zap.SugaredLogger, metrics *metrics.Metrics) (*Cache, error) {
	if addr == "" {
		return newInMemoryCache(logger, metrics), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if logger != nil {
			logger.Warnw("Redis unavailable; using in-memory cache with local pubsub", "addr", addr, "error", err)
		}
		_ = client.Close()
		return newInMemoryCache(logger, metrics), nil
	}

	return &Cache{
		client:  client,
		logger:  logger,
		metrics: metrics,
	}, nil
}

func newInMemoryCache(logger *zap.SugaredLogger, metrics *metrics.Metrics) *Cache {
	return &Cache{
		kvStore:   memkv.NewStore(),
		pubsubHub: NewPubSubHub(),
		logger:    logger,
		metrics:   metrics,
	}
}

// Cache keys and pub/sub channels.
const (
	KeyCatalogPosts    = "ink:catalog:posts"
	KeyCatalogRevision = "ink:catalog:revision"
	KeyAfterPost       = "ink:selection:after"
	KeySearch          = "ink:search"

	ChannelRevision = "ink:events:revision"
)

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client != nil {
		val, err := c.client.Get(ctx, key).Result()
		if err != nil {
			if err == redis.Nil {
				if c.metrics != nil {
					c.metrics.RecordCacheMiss(ctx, key)
				}
				return ErrCacheMiss
			}
			if c.logger != nil {
				c.logger.Errorw("Cache get error", "key", key, "error", err)
			}
			return fmt.Errorf("cache get error: %w", err)
		}
		if c.metrics != nil {
			c.metrics.RecordCacheHit(ctx, key)
		}
		if err := json.Unmarshal([]byte(val), dest); err != nil {
			return fmt.Errorf("cache unmarshal error: %w", err)
		}
		return nil
	}

	data, err := c.kvStore.Get(ctx, key)
	if err != nil {
		if err == kv.ErrNotFound {
			if c.metrics != nil {
				c.metrics.RecordCacheMiss(ctx, key)
			}
			return ErrCacheMiss
		}
		return fmt.Errorf("cache get error: %w", err)
	}
	if c.metrics != nil {
		c.metrics.RecordCacheHit(ctx, key)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}
	return nil
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	if c.client != nil {
		if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
			if c.logger != nil {
				c.logger.Errorw("Cache set error", "key", key, "error", err)
			}
			return fmt.Errorf("cache set error: %w", err)
		}
		return nil
	}
	if err := c.kvStore.Set(ctx, key, data, ttl); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if c.client != nil {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			if c.logger != nil {
				c.logger.Errorw("Cache delete error", "keys", keys, "error", err)
			}
			return fmt.Errorf("cache delete error: %w", err)
		}
		return nil
	}
	if _, err := c.kvStore.Del(ctx, keys...); err != nil {
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	if c.client != nil {
		count, err := c.client.Exists(ctx, key).Result()
		if err != nil {
			return false, fmt.Errorf("cache exists error: %w", err)
		}
		return count > 0, nil
	}
	count, err := c.kvStore.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("cache exists error: %w", err)
	}
	return count > 0, nil
}

// GetCatalogPosts loads the last catalog snapshot written by the refresher.
// Used to warm the in-process catalog before the first provider fetch lands.
func (c *Cache) GetCatalogPosts(ctx context.Context, dest interface{}) error {
	return c.Get(ctx, KeyCatalogPosts, dest)
}

func (c *Cache) SetCatalogPosts(ctx context.Context, value interface{}, ttl time.Duration) error {
	return c.Set(ctx, KeyCatalogPosts, value, ttl)
}

func (c *Cache) GetCatalogRevision(ctx context.Context) (string, error) {
	var revision string
	if err := c.Get(ctx, KeyCatalogRevision, &revision); err != nil {
		return "", err
	}
	return revision, nil
}

func (c *Cache) SetCatalogRevision(ctx context.Context, revision string, ttl time.Duration) error {
	return c.Set(ctx, KeyCatalogRevision, revision, ttl)
}

// After-post selections are revision-scoped so a catalog swap naturally
// invalidates them without a delete sweep.
func (c *Cache) GetAfterPost(ctx context.Context, revision, slug string, dest interface{}) error {
	return c.Get(ctx, afterPostKey(revision, slug), dest)
}

func (c *Cache) SetAfterPost(ctx context.Context, revision, slug string, value interface{}) error {
	return c.Set(ctx, afterPostKey(revision, slug), value, 10*time.Minute)
}

func afterPostKey(revision, slug string) string {
	return fmt.Sprintf("%s:%s:%s", KeyAfterPost, revision, slug)
}

func (c *Cache) GetSearch(ctx context.Context, revision, query string, limit int, dest interface{}) error {
	return c.Get(ctx, searchKey(revision, query, limit), dest)
}

func (c *Cache) SetSearch(ctx context.Context, revision, query string, limit int, value interface{}) error {
	return c.Set(ctx, searchKey(revision, query, limit), value, time.Minute)
}

func searchKey(revision, query string, limit int) string {
	return fmt.Sprintf("%s:%s:%d:%s", KeySearch, revision, limit, query)
}

// Publish sends message as JSON to every subscriber of channel, over Redis
// or the local hub depending on mode.
func (c *Cache) Publish(ctx context.Context, channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("pubsub marshal error: %w", err)
	}

	if c.client != nil {
		if err := c.client.Publish(ctx, channel, data).Err(); err != nil {
			if c.logger != nil {
				c.logger.Errorw("Publish error", "channel", channel, "error", err)
			}
			return fmt.Errorf("pubsub publish error: %w", err)
		}
		return nil
	}

	if c.pubsubHub != nil {
		c.pubsubHub.Publish(channel, string(data))
	}
	return nil
}

// Subscribe returns a Redis subscription, or nil in in-memory mode; callers
// check IsInMemoryMode and use SubscribeInMemory instead.
func (c *Cache) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	if c.client != nil {
		return c.client.Subscribe(ctx, channels...)
	}
	return nil
}

// SubscribeInMemory subscribes through the local hub.
func (c *Cache) SubscribeInMemory(ctx context.Context, channels ...string) *Subscription {
	if c.pubsubHub != nil {
		return c.pubsubHub.Subscribe(ctx, channels...)
	}
	return nil
}

func (c *Cache) IsInMemoryMode() bool {
	return c.client == nil
}

func (c *Cache) Ping(ctx context.Context) error {
	if c.client != nil {
		return c.client.Ping(ctx).Err()
	}
	return nil
}

func (c *Cache) Close() error {
	var err error
	if c.client != nil {
		err = c.client.Close()
	}
	if c.kvStore != nil {
		if closeErr := c.kvStore.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

var ErrCacheMiss = fmt.Errorf("cache miss")
