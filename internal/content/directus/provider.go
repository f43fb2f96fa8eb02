package directus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/inkstream/inkstream-backend/internal/content"
)

const defaultTimeout = 10 * time.Second

// postFields lists the columns fetched for a full post record.
var postFields = []string{
	"slug", "title", "summary", "date_published", "author_name",
	"cover_src", "cover_alt", "topic_slug", "topic_label", "tags", "body",
}

// Health describes the last observed state of the upstream CMS.
type Health struct {
	Healthy     bool
	LastSuccess time.Time
	LastError   string
}

// Provider fetches published posts from a Directus instance over its REST
// items API.
type Provider struct {
	logger  *zap.SugaredLogger
	client  *http.Client
	baseURL string
	token   string

	mu     sync.RWMutex
	health Health
}

var _ content.Provider = (*Provider)(nil)

// NewProvider creates a Directus provider. baseURL points at the Directus
// root, e.g. "https://cms.example.com". token may be empty for public
// collections.
func NewProvider(logger *zap.SugaredLogger, baseURL, token string) *Provider {
	return &Provider{
		logger:  logger,
		client:  &http.Client{Timeout: defaultTimeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		health: Health{
			Healthy:     true,
			LastSuccess: time.Now(),
		},
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "directus"
}

// Health returns the last observed upstream state.
func (p *Provider) Health() Health {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.health
}

func (p *Provider) updateHealth(healthy bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.health.Healthy = healthy
	if healthy {
		p.health.LastSuccess = time.Now()
		p.health.LastError = ""
	} else if err != nil {
		p.health.LastError = err.Error()
	}
}

// ListPosts returns a date-descending page of published posts plus the
// filtered total.
func (p *Provider) ListPosts(ctx context.Context, opts content.ListOptions) (content.ListResult, error) {
	params := url.Values{}
	params.Set("fields", strings.Join(postFields, ","))
	params.Set("filter[status][_eq]", "published")
	params.Set("sort", "-date_published")
	params.Set("meta", "filter_count")
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	} else {
		params.Set("limit", "-1")
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}

	var body struct {
		Data []postRecord `json:"data"`
		Meta struct {
			FilterCount int `json:"filter_count"`
		} `json:"meta"`
	}
	if err := p.get(ctx, "/items/posts", params, &body); err != nil {
		return content.ListResult{}, err
	}

	items := make([]content.Post, 0, len(body.Data))
	for _, rec := range body.Data {
		items = append(items, rec.toPost())
	}

	total := body.Meta.FilterCount
	if total == 0 {
		total = len(items)
	}

	return content.ListResult{Items: items, Total: total}, nil
}

// GetPostBySlug fetches one published post by exact slug.
func (p *Provider) GetPostBySlug(ctx context.Context, slug string) (*content.Post, error) {
	params := url.Values{}
	params.Set("fields", strings.Join(postFields, ","))
	params.Set("filter[status][_eq]", "published")
	params.Set("filter[slug][_eq]", slug)
	params.Set("limit", "1")

	var body struct {
		Data []postRecord `json:"data"`
	}
	if err := p.get(ctx, "/items/posts", params, &body); err != nil {
		return nil, err
	}
	if len(body.Data) == 0 {
		return nil, content.ErrNotFound
	}

	post := body.Data[0].toPost()
	return &post, nil
}

// ListAllSlugs returns every published slug in date-descending order.
func (p *Provider) ListAllSlugs(ctx context.Context) ([]string, error) {
	params := url.Values{}
	params.Set("fields", "slug")
	params.Set("filter[status][_eq]", "published")
	params.Set("sort", "-date_published")
	params.Set("limit", "-1")

	var body struct {
		Data []struct {
			Slug string `json:"slug"`
		} `json:"data"`
	}
	if err := p.get(ctx, "/items/posts", params, &body); err != nil {
		return nil, err
	}

	slugs := make([]string, 0, len(body.Data))
	for _, rec := range body.Data {
		slugs = append(slugs, rec.Slug)
	}
	return slugs, nil
}

// SearchPosts matches the query case-insensitively against title, summary and
// slug using a Directus _or filter.
func (p *Provider) SearchPosts(ctx context.Context, query string, limit int) ([]content.SearchItem, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return []content.SearchItem{}, nil
	}

	params := url.Values{}
	params.Set("fields", "slug,title")
	params.Set("filter[status][_eq]", "published")
	params.Set("filter[_or][0][title][_icontains]", query)
	params.Set("filter[_or][1][summary][_icontains]", query)
	params.Set("filter[_or][2][slug][_icontains]", query)
	params.Set("sort", "-date_published")
	params.Set("limit", strconv.Itoa(limit))

	var body struct {
		Data []struct {
			Slug  string `json:"slug"`
			Title string `json:"title"`
		} `json:"data"`
	}
	if err := p.get(ctx, "/items/posts", params, &body); err != nil {
		return nil, err
	}

	items := make([]content.SearchItem, 0, len(body.Data))
	for _, rec := range body.Data {
		items = append(items, content.SearchItem{Slug: rec.Slug, Title: rec.Title})
	}
	return items, nil
}

// Ping hits the server health endpoint without authentication side effects.
func (p *Provider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/server/ping", nil)
	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.updateHealth(false, err)
		return fmt.Errorf("failed to reach Directus: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("Directus ping error: %d", resp.StatusCode)
		p.updateHealth(false, err)
		return err
	}

	p.updateHealth(true, nil)
	return nil
}

func (p *Provider) get(ctx context.Context, path string, params url.Values, out any) error {
	requestURL := fmt.Sprintf("%s%s?%s", p.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		p.updateHealth(false, err)
		return fmt.Errorf("failed to create request: %w", err)
	}
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.updateHealth(false, err)
		return fmt.Errorf("failed to fetch from Directus: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("Directus API error: %d", resp.StatusCode)
		p.updateHealth(false, err)
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		p.updateHealth(false, err)
		return fmt.Errorf("failed to decode response: %w", err)
	}

	p.updateHealth(true, nil)
	return nil
}

// postRecord mirrors the Directus posts collection schema. Tags and body are
// stored as JSON columns.
type postRecord struct {
	Slug          string              `json:"slug"`
	Title         string              `json:"title"`
	Summary       string              `json:"summary"`
	DatePublished string              `json:"date_published"`
	AuthorName    string              `json:"author_name"`
	CoverSrc      string              `json:"cover_src"`
	CoverAlt      string              `json:"cover_alt"`
	TopicSlug     string              `json:"topic_slug"`
	TopicLabel    string              `json:"topic_label"`
	Tags          []content.Ref       `json:"tags"`
	Body          []content.BodyBlock `json:"body"`
}

func (r postRecord) toPost() content.Post {
	post := content.Post{
		Slug:       r.Slug,
		Title:      r.Title,
		Summary:    r.Summary,
		DateISO:    isoDate(r.DatePublished),
		AuthorName: r.AuthorName,
		Cover:      content.Cover{Src: r.CoverSrc, Alt: r.CoverAlt},
		Tags:       r.Tags,
		Body:       r.Body,
	}
	if r.TopicSlug != "" {
		post.Topic = &content.Ref{Slug: r.TopicSlug, Label: r.TopicLabel}
	}
	return post
}

// isoDate trims a Directus datetime to its YYYY-MM-DD prefix.
func isoDate(value string) string {
	if len(value) >= 10 {
		return value[:10]
	}
	return value
}
