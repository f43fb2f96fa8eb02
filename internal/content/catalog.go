package content

import (
	"errors"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"
)

// ErrNotFound is returned when a slug does not resolve to a post.
var ErrNotFound = errors.New("post not found")

// NormalizeSlug decodes, trims and lowercases a slug so taxonomy joins are
// insensitive to URL encoding and casing.
func NormalizeSlug(input string) string {
	decoded, err := url.QueryUnescape(input)
	if err != nil {
		decoded = input
	}
	return strings.ToLower(strings.TrimSpace(decoded))
}

// ByDateDesc reports whether a should sort before b in a date-descending
// ordering. ISO dates compare lexicographically.
func ByDateDesc(a, b Post) bool {
	return a.DateISO > b.DateISO
}

// Catalog is an immutable snapshot of the full post collection: the
// date-descending order plus slug/tag/topic indexes. Selection and the
// stream reader both operate on a single Catalog instance so their results
// stay consistent for the lifetime of a revision.
type Catalog struct {
	revision string
	ordered  []Post
	bySlug   map[string]int
	byTag    map[string][]int
	byTopic  map[string][]int
}

// NewCatalog builds a snapshot from posts. The input is copied; ordering is
// a stable date-descending sort so input order breaks ties. Tag lists are
// deduplicated by slug, keeping the first occurrence.
func NewCatalog(revision string, posts []Post) *Catalog {
	ordered := make([]Post, len(posts))
	copy(ordered, posts)
	for i := range ordered {
		ordered[i].Tags = dedupeTags(ordered[i].Tags)
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ByDateDesc(ordered[i], ordered[j])
	})

	c := &Catalog{
		revision: revision,
		ordered:  ordered,
		bySlug:   make(map[string]int, len(ordered)),
		byTag:    make(map[string][]int),
		byTopic:  make(map[string][]int),
	}

	for i, p := range ordered {
		c.bySlug[p.Slug] = i
		if p.Topic != nil {
			key := NormalizeSlug(p.Topic.Slug)
			c.byTopic[key] = append(c.byTopic[key], i)
		}
		for _, t := range p.Tags {
			key := NormalizeSlug(t.Slug)
			c.byTag[key] = append(c.byTag[key], i)
		}
	}

	return c
}

func dedupeTags(tags []Ref) []Ref {
	if len(tags) < 2 {
		return tags
	}
	seen := make(map[string]struct{}, len(tags))
	out := tags[:0:0]
	for _, t := range tags {
		key := NormalizeSlug(t.Slug)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Revision identifies this snapshot; it changes whenever the collection is
// re-fetched.
func (c *Catalog) Revision() string { return c.revision }

// Len returns the number of posts in the collection.
func (c *Catalog) Len() int { return len(c.ordered) }

// All returns the full collection in date-descending order. Callers must not
// modify the returned slice.
func (c *Catalog) All() []Post { return c.ordered }

// IndexOf returns the position of slug in the date-descending order, or -1.
func (c *Catalog) IndexOf(slug string) int {
	if i, ok := c.bySlug[slug]; ok {
		return i
	}
	return -1
}

// At returns the post at index i in the date-descending order.
func (c *Catalog) At(i int) Post { return c.ordered[i] }

// BySlug resolves a post by exact slug.
func (c *Catalog) BySlug(slug string) (Post, error) {
	i, ok := c.bySlug[slug]
	if !ok {
		return Post{}, ErrNotFound
	}
	return c.ordered[i], nil
}

// Slugs returns every slug in date-descending order.
func (c *Catalog) Slugs() []string {
	out := make([]string, len(c.ordered))
	for i, p := range c.ordered {
		out[i] = p.Slug
	}
	return out
}

// PostsByTag returns all posts carrying the tag, in date-descending order.
func (c *Catalog) PostsByTag(tagSlug string) []Post {
	return c.collect(c.byTag[NormalizeSlug(tagSlug)])
}

// PostsByTopic returns all posts under the topic, in date-descending order.
func (c *Catalog) PostsByTopic(topicSlug string) []Post {
	return c.collect(c.byTopic[NormalizeSlug(topicSlug)])
}

func (c *Catalog) collect(indexes []int) []Post {
	out := make([]Post, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, c.ordered[i])
	}
	return out
}

// Topics lists every topic with its post count, sorted by label.
func (c *Catalog) Topics() []TaxonomyItem {
	items := make(map[string]*TaxonomyItem)
	for _, p := range c.ordered {
		if p.Topic == nil {
			continue
		}
		c.accumulate(items, *p.Topic)
	}
	return sortTaxonomy(items)
}

// Tags lists every tag with its post count, sorted by label.
func (c *Catalog) Tags() []TaxonomyItem {
	items := make(map[string]*TaxonomyItem)
	for _, p := range c.ordered {
		for _, t := range p.Tags {
			c.accumulate(items, t)
		}
	}
	return sortTaxonomy(items)
}

func (c *Catalog) accumulate(items map[string]*TaxonomyItem, ref Ref) {
	key := NormalizeSlug(ref.Slug)
	if existing, ok := items[key]; ok {
		existing.Count++
		return
	}
	items[key] = &TaxonomyItem{Ref: Ref{Slug: key, Label: ref.Label}, Count: 1}
}

func sortTaxonomy(items map[string]*TaxonomyItem) []TaxonomyItem {
	out := make([]TaxonomyItem, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Search matches query case-insensitively against title, summary and slug,
// returning hits in date-descending order. An empty query matches nothing.
func (c *Catalog) Search(query string, limit int) []SearchItem {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || limit <= 0 {
		return []SearchItem{}
	}

	out := make([]SearchItem, 0, limit)
	for _, p := range c.ordered {
		if strings.Contains(strings.ToLower(p.Title), q) ||
			strings.Contains(strings.ToLower(p.Summary), q) ||
			strings.Contains(strings.ToLower(p.Slug), q) {
			out = append(out, SearchItem{Slug: p.Slug, Title: p.Title})
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// Holder publishes the current Catalog snapshot. Writers swap the whole
// snapshot; readers never observe a partially built collection.
type Holder struct {
	current atomic.Pointer[Catalog]
}

// NewHolder seeds a holder with an initial snapshot.
func NewHolder(initial *Catalog) *Holder {
	h := &Holder{}
	h.current.Store(initial)
	return h
}

// Get returns the current snapshot.
func (h *Holder) Get() *Catalog { return h.current.Load() }

// Swap replaces the current snapshot.
func (h *Holder) Swap(next *Catalog) { h.current.Store(next) }
