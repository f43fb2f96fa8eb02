// Package selection derives the deterministic "after post" rails shown under
// each post in the stream: a per-tag related wall, a topic spotlight, tag
// spotlights and latest-posts fills. All picks are seeded on the current
// post's slug so the same post over the same collection always yields the
// same rails.
package selection

import (
	"sync"

	"github.com/inkstream/inkstream-backend/internal/content"
	"github.com/inkstream/inkstream-backend/internal/rng"
)

const (
	wallTagLimit     = 4
	spotlightSize    = 4
	wideTagLimit     = 2
	compactLatestLen = 5
	wideLatestLen    = 6
)

// WallItem is one related-wall entry: the tag it was picked for and the
// picked post.
type WallItem struct {
	Tag  content.Ref  `json:"tag"`
	Post content.Post `json:"post"`
}

// TagSpotlight is a rail of posts sharing one tag.
type TagSpotlight struct {
	Tag   content.Ref    `json:"tag"`
	Posts []content.Post `json:"posts"`
}

// CompactBundle holds the rails for the compact layout. Its exclusion
// tracking is independent from the wide bundle's.
type CompactBundle struct {
	Wall           []WallItem     `json:"wall"`
	TopicSpotlight []content.Post `json:"topicSpotlight"`
	LatestFive     []content.Post `json:"latestFive"`
}

// WideBundle holds the rails for the wide layout.
type WideBundle struct {
	TagSpotlights []TagSpotlight `json:"tagSpotlights"`
	LatestSix     []content.Post `json:"latestSix"`
}

// AfterData is everything rendered after one post in the stream.
type AfterData struct {
	Compact CompactBundle `json:"compact"`
	Wide    WideBundle    `json:"wide"`
}

// ComputeAfterPost builds both bundles for post over the catalog. Compact and
// wide run over independent exclusion sets seeded with the current slug, so a
// post excluded in one bundle can still appear in the other. Steps that come
// up short return fewer entries, never placeholders.
func ComputeAfterPost(c *content.Catalog, post content.Post) AfterData {
	return AfterData{
		Compact: computeCompact(c, post),
		Wide:    computeWide(c, post),
	}
}

func computeCompact(c *content.Catalog, post content.Post) CompactBundle {
	used := map[string]struct{}{post.Slug: {}}

	tags := post.Tags
	if len(tags) > wallTagLimit {
		tags = tags[:wallTagLimit]
	}

	wall := make([]WallItem, 0, len(tags))
	for _, tag := range tags {
		candidates := excludeUsed(c.PostsByTag(tag.Slug), used)
		shuffled := rng.Shuffle(candidates, post.Slug+":wall:"+tag.Slug)
		if len(shuffled) == 0 {
			continue
		}
		pick := shuffled[0]
		used[pick.Slug] = struct{}{}
		wall = append(wall, WallItem{Tag: tag, Post: pick})
	}

	// Spotlight picks stay out of the exclusion set: the latest rail may
	// repeat them.
	var spotlight []content.Post
	if post.Topic != nil {
		candidates := excludeUsed(c.PostsByTopic(post.Topic.Slug), used)
		spotlight = rng.Shuffle(candidates, post.Slug+":topic:"+post.Topic.Slug)
		if len(spotlight) > spotlightSize {
			spotlight = spotlight[:spotlightSize]
		}
	}

	return CompactBundle{
		Wall:           wall,
		TopicSpotlight: spotlight,
		LatestFive:     latest(c, used, compactLatestLen),
	}
}

func computeWide(c *content.Catalog, post content.Post) WideBundle {
	used := map[string]struct{}{post.Slug: {}}

	tags := post.Tags
	if len(tags) > wideTagLimit {
		tags = tags[:wideTagLimit]
	}

	spotlights := make([]TagSpotlight, 0, len(tags))
	for _, tag := range tags {
		candidates := excludeUsed(c.PostsByTag(tag.Slug), used)
		picked := rng.Shuffle(candidates, post.Slug+":tagspot:"+tag.Slug)
		if len(picked) > spotlightSize {
			picked = picked[:spotlightSize]
		}
		if len(picked) == 0 {
			continue
		}
		for _, p := range picked {
			used[p.Slug] = struct{}{}
		}
		spotlights = append(spotlights, TagSpotlight{Tag: tag, Posts: picked})
	}

	return WideBundle{
		TagSpotlights: spotlights,
		LatestSix:     latest(c, used, wideLatestLen),
	}
}

// excludeUsed filters posts down to those not yet used. The input is already
// date-descending, which is the ordering the shuffle seeds against.
func excludeUsed(posts []content.Post, used map[string]struct{}) []content.Post {
	out := make([]content.Post, 0, len(posts))
	for _, p := range posts {
		if _, skip := used[p.Slug]; skip {
			continue
		}
		out = append(out, p)
	}
	return out
}

// latest takes the first n posts of the date-descending collection not in
// used, preserving date order.
func latest(c *content.Catalog, used map[string]struct{}, n int) []content.Post {
	out := make([]content.Post, 0, n)
	for _, p := range c.All() {
		if _, skip := used[p.Slug]; skip {
			continue
		}
		out = append(out, p)
		if len(out) == n {
			break
		}
	}
	return out
}

// Engine memoizes ComputeAfterPost per post slug for the lifetime of one
// catalog revision. A revision change drops the whole cache.
type Engine struct {
	mu       sync.Mutex
	revision string
	cache    map[string]AfterData
}

// NewEngine returns an empty memoizing engine.
func NewEngine() *Engine {
	return &Engine{cache: make(map[string]AfterData)}
}

// AfterPost resolves slug in the catalog and returns its rails, computing and
// caching them on first use.
func (e *Engine) AfterPost(c *content.Catalog, slug string) (AfterData, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.revision != c.Revision() {
		e.revision = c.Revision()
		e.cache = make(map[string]AfterData)
	}

	if cached, ok := e.cache[slug]; ok {
		return cached, nil
	}

	post, err := c.BySlug(slug)
	if err != nil {
		return AfterData{}, err
	}

	data := ComputeAfterPost(c, post)
	e.cache[slug] = data
	return data, nil
}
