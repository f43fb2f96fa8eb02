package demo

import (
	"context"
	"sync"

	"github.com/inkstream/inkstream-backend/internal/content"
)

// Provider serves the generated demo dataset. It needs no network and never
// fails, which makes it both the local-dev default and the fallback when the
// CMS is unreachable.
type Provider struct {
	once    sync.Once
	catalog *content.Catalog
}

var _ content.Provider = (*Provider)(nil)

// NewProvider returns a demo provider. The dataset is generated lazily on
// first use and reused afterwards.
func NewProvider() *Provider {
	return &Provider{}
}

func (p *Provider) get() *content.Catalog {
	p.once.Do(func() {
		p.catalog = content.NewCatalog("demo", generatePosts())
	})
	return p.catalog
}

// Name identifies the provider in logs and the readiness probe.
func (p *Provider) Name() string { return "demo" }

// ListPosts returns a date-descending page of the demo collection.
func (p *Provider) ListPosts(_ context.Context, opts content.ListOptions) (content.ListResult, error) {
	all := p.get().All()
	total := len(all)

	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}

	limit := opts.Limit
	if limit <= 0 || offset+limit > total {
		limit = total - offset
	}

	items := make([]content.Post, limit)
	copy(items, all[offset:offset+limit])
	return content.ListResult{Items: items, Total: total}, nil
}

// GetPostBySlug resolves one demo post by exact slug.
func (p *Provider) GetPostBySlug(_ context.Context, slug string) (*content.Post, error) {
	post, err := p.get().BySlug(slug)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// ListAllSlugs returns every demo slug in date-descending order.
func (p *Provider) ListAllSlugs(_ context.Context) ([]string, error) {
	return p.get().Slugs(), nil
}

// SearchPosts matches the query case-insensitively against title, summary and
// slug.
func (p *Provider) SearchPosts(_ context.Context, query string, limit int) ([]content.SearchItem, error) {
	return p.get().Search(query, limit), nil
}
