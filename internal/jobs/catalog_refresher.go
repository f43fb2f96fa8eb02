package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkstream/inkstream-backend/internal/content"
	"github.com/inkstream/inkstream-backend/internal/metrics"
	"github.com/inkstream/inkstream-backend/internal/store"
)

// RevisionEvent is published on store.ChannelRevision whenever a new catalog
// snapshot is swapped in.
type RevisionEvent struct {
	Revision  string `json:"revision"`
	Provider  string `json:"provider"`
	PostCount int    `json:"post_count"`
}

type CatalogRefresherConfig struct {
	Interval time.Duration // re-fetch cadence
	PageSize int           // provider page size while draining the post list
}

func DefaultCatalogRefresherConfig() CatalogRefresherConfig {
	return CatalogRefresherConfig{
		Interval: 5 * time.Minute,
		PageSize: 100,
	}
}

// CatalogRefresher periodically drains the content provider, builds an
// immutable catalog snapshot, swaps it into the holder, and broadcasts the
// new revision. When the primary provider fails it falls back to the
// secondary (the built-in demo set) so the reader never goes empty.
type CatalogRefresher struct {
	primary  content.Provider
	fallback content.Provider
	holder   *content.Holder
	cache    *store.Cache
	logger   *zap.SugaredLogger
	metrics  *metrics.Metrics
	config   CatalogRefresherConfig

	mu            sync.RWMutex
	usingFallback bool
	cancelCtx     context.CancelFunc
}

func NewCatalogRefresher(
	primary, fallback content.Provider,
	holder *content.Holder,
	cache *store.Cache,
	logger *zap.SugaredLogger,
	m *metrics.Metrics,
	config CatalogRefresherConfig,
) *CatalogRefresher {
	if config.PageSize <= 0 {
		config.PageSize = 100
	}
	return &CatalogRefresher{
		primary:  primary,
		fallback: fallback,
		holder:   holder,
		cache:    cache,
		logger:   logger,
		metrics:  m,
		config:   config,
	}
}

// Start runs an immediate refresh, then ticks until ctx is cancelled.
func (r *CatalogRefresher) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.cancelCtx = cancel

	r.warmFromCache(ctx)
	r.Refresh(ctx)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Infow("Catalog refresher stopping")
			return ctx.Err()
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}

func (r *CatalogRefresher) Stop() {
	if r.cancelCtx != nil {
		r.cancelCtx()
	}
}

// UsingFallback reports whether the last successful refresh came from the
// fallback provider.
func (r *CatalogRefresher) UsingFallback() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.usingFallback
}

// warmFromCache loads the previous snapshot left behind by an earlier run so
// the API can answer before the first provider fetch completes.
func (r *CatalogRefresher) warmFromCache(ctx context.Context) {
	if r.cache == nil || r.holder.Get() != nil {
		return
	}

	var posts []content.Post
	if err := r.cache.GetCatalogPosts(ctx, &posts); err != nil {
		if err != store.ErrCacheMiss {
			r.logger.Warnw("Failed to warm catalog from cache", "error", err)
		}
		return
	}
	if len(posts) == 0 {
		return
	}

	revision, err := r.cache.GetCatalogRevision(ctx)
	if err != nil || revision == "" {
		revision = uuid.NewString()
	}

	r.holder.Swap(content.NewCatalog(revision, posts))
	r.logger.Infow("Warmed catalog from cache", "revision", revision, "posts", len(posts))
}

// Refresh fetches the full post list and swaps in a new catalog. A failed
// primary fetch falls through to the fallback provider; if both fail the
// current catalog stays in place.
func (r *CatalogRefresher) Refresh(ctx context.Context) {
	posts, err := r.drain(ctx, r.primary)
	if err == nil {
		r.recordRefresh(ctx, r.primary.Name(), true)
		r.setFallback(false)
		r.publish(ctx, r.primary.Name(), posts)
		return
	}

	r.recordRefresh(ctx, r.primary.Name(), false)
	r.logger.Warnw("Primary content provider failed", "provider", r.primary.Name(), "error", err)

	if r.fallback == nil || r.fallback == r.primary {
		return
	}

	posts, err = r.drain(ctx, r.fallback)
	if err != nil {
		r.recordRefresh(ctx, r.fallback.Name(), false)
		r.logger.Errorw("Fallback content provider failed; keeping current catalog",
			"provider", r.fallback.Name(), "error", err)
		return
	}

	r.recordRefresh(ctx, r.fallback.Name(), true)
	r.setFallback(true)
	r.publish(ctx, r.fallback.Name(), posts)
}

func (r *CatalogRefresher) drain(ctx context.Context, provider content.Provider) ([]content.Post, error) {
	var posts []content.Post
	offset := 0

	for {
		result, err := provider.ListPosts(ctx, content.ListOptions{Offset: offset, Limit: r.config.PageSize})
		if err != nil {
			return nil, err
		}
		posts = append(posts, result.Items...)
		offset += len(result.Items)
		if len(result.Items) == 0 || offset >= result.Total {
			return posts, nil
		}
	}
}

func (r *CatalogRefresher) publish(ctx context.Context, providerName string, posts []content.Post) {
	previous := r.holder.Get()
	if previous != nil && samePosts(previous.All(), posts) {
		r.logger.Debugw("Catalog unchanged", "revision", previous.Revision(), "posts", len(posts))
		return
	}

	revision := uuid.NewString()
	catalog := content.NewCatalog(revision, posts)
	r.holder.Swap(catalog)

	if r.cache != nil {
		ttl := 2 * r.config.Interval
		if err := r.cache.SetCatalogPosts(ctx, catalog.All(), ttl); err != nil {
			r.logger.Warnw("Failed to cache catalog snapshot", "error", err)
		}
		if err := r.cache.SetCatalogRevision(ctx, revision, ttl); err != nil {
			r.logger.Warnw("Failed to cache catalog revision", "error", err)
		}

		event := RevisionEvent{Revision: revision, Provider: providerName, PostCount: catalog.Len()}
		if err := r.cache.Publish(ctx, store.ChannelRevision, event); err != nil {
			r.logger.Warnw("Failed to publish revision event", "error", err)
		}
	}

	r.logger.Infow("Catalog refreshed",
		"revision", revision,
		"provider", providerName,
		"posts", catalog.Len(),
	)
}

// samePosts compares snapshots by slug sequence. Post bodies are assumed
// stable for a given slug list within a refresh interval.
func samePosts(a, b []content.Post) bool {
	if len(a) != len(b) {
		return false
	}
	index := make(map[string]content.Post, len(a))
	for _, p := range a {
		index[p.Slug] = p
	}
	for _, p := range b {
		prev, ok := index[p.Slug]
		if !ok || prev.DateISO != p.DateISO || prev.Title != p.Title {
			return false
		}
	}
	return true
}

func (r *CatalogRefresher) setFallback(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if active && !r.usingFallback {
		r.logger.Warnw("Serving catalog from fallback provider", "provider", r.fallback.Name())
	}
	if !active && r.usingFallback {
		r.logger.Infow("Primary content provider recovered", "provider", r.primary.Name())
	}
	r.usingFallback = active
}

func (r *CatalogRefresher) recordRefresh(ctx context.Context, provider string, ok bool) {
	if r.metrics != nil {
		r.metrics.RecordCatalogRefresh(ctx, provider, ok)
	}
}
