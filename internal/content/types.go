package content

import "context"

// Ref is a {slug, label} value object used for both topics and tags. The slug
// is the join key; the label is display text.
type Ref struct {
	Slug  string `json:"slug"`
	Label string `json:"label"`
}

// BlockKind enumerates the supported post body block types.
type BlockKind string

const (
	BlockParagraph BlockKind = "p"
	BlockHeading   BlockKind = "h2"
	BlockRaw       BlockKind = "raw"
)

// BodyBlock is one ordered unit of post body content.
type BodyBlock struct {
	Kind BlockKind `json:"kind"`
	Text string    `json:"text"`
}

// Cover is an image reference attached to a post.
type Cover struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// Post is the unit of content. Slug is globally unique across the collection
// and is the only key used for cross-references. Posts are immutable once
// loaded; the reader only derives views over a fixed collection.
type Post struct {
	Slug       string      `json:"slug"`
	Title      string      `json:"title"`
	Summary    string      `json:"summary"`
	DateISO    string      `json:"dateIso"`
	AuthorName string      `json:"authorName"`
	Cover      Cover       `json:"cover"`
	Topic      *Ref        `json:"topic,omitempty"`
	Tags       []Ref       `json:"tags,omitempty"`
	Body       []BodyBlock `json:"body"`
}

// ListOptions bounds a ListPosts call.
type ListOptions struct {
	Limit  int
	Offset int
}

// ListResult is a page of posts plus the total collection size.
type ListResult struct {
	Items []Post `json:"items"`
	Total int    `json:"total"`
}

// SearchItem is a lightweight search hit.
type SearchItem struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// TaxonomyItem is a topic or tag with its post count.
type TaxonomyItem struct {
	Ref
	Count int `json:"count"`
}

// Provider supplies posts from a content source. Implementations must return
// posts sorted by publish date descending.
type Provider interface {
	ListPosts(ctx context.Context, opts ListOptions) (ListResult, error)
	GetPostBySlug(ctx context.Context, slug string) (*Post, error)
	ListAllSlugs(ctx context.Context) ([]string, error)
	SearchPosts(ctx context.Context, query string, limit int) ([]SearchItem, error)
	Name() string
}
