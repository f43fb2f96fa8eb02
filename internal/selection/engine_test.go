package selection

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkstream/inkstream-backend/internal/content"
)

func ref(slug string) content.Ref {
	return content.Ref{Slug: slug, Label: slug}
}

func fixturePost(slug, date string, topicSlug string, tagSlugs ...string) content.Post {
	p := content.Post{
		Slug:    slug,
		Title:   "Title " + slug,
		Summary: "Summary " + slug,
		DateISO: date,
	}
	if topicSlug != "" {
		t := ref(topicSlug)
		p.Topic = &t
	}
	for _, s := range tagSlugs {
		p.Tags = append(p.Tags, ref(s))
	}
	return p
}

// fixtureCatalog builds 20 posts across two topics and four tags with
// distinct dates.
func fixtureCatalog() *content.Catalog {
	posts := make([]content.Post, 0, 20)
	topicsBySlot := []string{"science", "art"}
	tagsBySlot := [][]string{
		{"alpha", "beta"},
		{"beta", "gamma"},
		{"gamma", "delta"},
		{"delta", "alpha"},
	}
	for i := 0; i < 20; i++ {
		date := fmt.Sprintf("2026-01-%02d", 20-i)
		posts = append(posts, fixturePost(
			fmt.Sprintf("post-%02d", i),
			date,
			topicsBySlot[i%2],
			tagsBySlot[i%4]...,
		))
	}
	return content.NewCatalog("rev-1", posts)
}

func TestComputeAfterPost_Deterministic(t *testing.T) {
	c := fixtureCatalog()
	post, err := c.BySlug("post-03")
	require.NoError(t, err)

	first := ComputeAfterPost(c, post)
	second := ComputeAfterPost(c, post)
	assert.Equal(t, first, second)
}

func TestCompactWall_TagOrderAndDistinctSlugs(t *testing.T) {
	c := fixtureCatalog()
	post, err := c.BySlug("post-00")
	require.NoError(t, err)
	require.Len(t, post.Tags, 2)

	got := ComputeAfterPost(c, post).Compact

	require.Len(t, got.Wall, 2)
	assert.Equal(t, "alpha", got.Wall[0].Tag.Slug)
	assert.Equal(t, "beta", got.Wall[1].Tag.Slug)

	seen := map[string]struct{}{post.Slug: {}}
	for _, item := range got.Wall {
		_, dup := seen[item.Post.Slug]
		require.False(t, dup, "wall pick %q reused", item.Post.Slug)
		seen[item.Post.Slug] = struct{}{}
	}
}

func TestCompactWall_CapsAtFourTags(t *testing.T) {
	posts := []content.Post{
		fixturePost("current", "2026-01-10", "science", "t1", "t2", "t3", "t4", "t5"),
	}
	// One candidate per tag, including the fifth tag which must be ignored.
	for i := 1; i <= 5; i++ {
		posts = append(posts, fixturePost(
			fmt.Sprintf("cand-%d", i),
			fmt.Sprintf("2026-01-%02d", i),
			"science",
			fmt.Sprintf("t%d", i),
		))
	}
	c := content.NewCatalog("rev", posts)
	post, err := c.BySlug("current")
	require.NoError(t, err)

	got := ComputeAfterPost(c, post).Compact

	require.Len(t, got.Wall, 4)
	for i, item := range got.Wall {
		assert.Equal(t, fmt.Sprintf("t%d", i+1), item.Tag.Slug)
		assert.Equal(t, fmt.Sprintf("cand-%d", i+1), item.Post.Slug)
	}
}

func TestCompactWall_ExhaustedTagOmitted(t *testing.T) {
	c := content.NewCatalog("rev", []content.Post{
		fixturePost("current", "2026-01-10", "science", "lonely", "shared"),
		fixturePost("other", "2026-01-09", "science", "shared"),
	})
	post, err := c.BySlug("current")
	require.NoError(t, err)

	got := ComputeAfterPost(c, post).Compact

	// "lonely" has no candidate besides the current post, so only "shared"
	// produces a wall entry. No placeholder for the exhausted tag.
	require.Len(t, got.Wall, 1)
	assert.Equal(t, "shared", got.Wall[0].Tag.Slug)
	assert.Equal(t, "other", got.Wall[0].Post.Slug)
}

func TestBundles_IndependentExclusionSets(t *testing.T) {
	// Exactly one other post shares the current post's first tag: both the
	// compact wall and the wide tag spotlight must pick it.
	c := content.NewCatalog("rev", []content.Post{
		fixturePost("current", "2026-01-10", "science", "shared"),
		fixturePost("only-match", "2026-01-09", "science", "shared"),
		fixturePost("filler-1", "2026-01-08", "art"),
		fixturePost("filler-2", "2026-01-07", "art"),
	})
	post, err := c.BySlug("current")
	require.NoError(t, err)

	got := ComputeAfterPost(c, post)

	require.Len(t, got.Compact.Wall, 1)
	assert.Equal(t, "only-match", got.Compact.Wall[0].Post.Slug)

	require.Len(t, got.Wide.TagSpotlights, 1)
	require.Len(t, got.Wide.TagSpotlights[0].Posts, 1)
	assert.Equal(t, "only-match", got.Wide.TagSpotlights[0].Posts[0].Slug)
}

func TestCompactLatest_ExcludesWallPicksButNotSpotlight(t *testing.T) {
	c := fixtureCatalog()
	post, err := c.BySlug("post-10")
	require.NoError(t, err)

	got := ComputeAfterPost(c, post).Compact
	require.Len(t, got.LatestFive, 5)

	excluded := map[string]struct{}{post.Slug: {}}
	for _, item := range got.Wall {
		excluded[item.Post.Slug] = struct{}{}
	}

	// Latest five = first five of the date-descending order minus the
	// current post and wall picks, original date order preserved.
	want := make([]string, 0, 5)
	for _, p := range c.All() {
		if _, skip := excluded[p.Slug]; skip {
			continue
		}
		want = append(want, p.Slug)
		if len(want) == 5 {
			break
		}
	}
	gotSlugs := make([]string, 0, 5)
	for _, p := range got.LatestFive {
		gotSlugs = append(gotSlugs, p.Slug)
	}
	assert.Equal(t, want, gotSlugs)
}

func TestTopicSpotlight_SkippedWithoutTopic(t *testing.T) {
	c := content.NewCatalog("rev", []content.Post{
		fixturePost("current", "2026-01-10", "", "alpha"),
		fixturePost("other", "2026-01-09", "science", "alpha"),
	})
	post, err := c.BySlug("current")
	require.NoError(t, err)

	got := ComputeAfterPost(c, post).Compact
	assert.Empty(t, got.TopicSpotlight)
}

func TestTopicSpotlight_CapsAtFour(t *testing.T) {
	c := fixtureCatalog()
	post, err := c.BySlug("post-02")
	require.NoError(t, err)

	got := ComputeAfterPost(c, post).Compact
	assert.Len(t, got.TopicSpotlight, 4)
	for _, p := range got.TopicSpotlight {
		require.NotNil(t, p.Topic)
		assert.Equal(t, "science", p.Topic.Slug)
		assert.NotEqual(t, post.Slug, p.Slug)
	}
}

func TestWideSpotlights_SecondTagPoolDisjointFromFirstPicks(t *testing.T) {
	// Five posts carry both tags. The first spotlight takes four of them;
	// the second tag's pool must only contain the remaining one.
	posts := []content.Post{
		fixturePost("current", "2026-01-10", "science", "one", "two"),
	}
	for i := 1; i <= 5; i++ {
		posts = append(posts, fixturePost(
			fmt.Sprintf("both-%d", i),
			fmt.Sprintf("2026-01-%02d", i),
			"science",
			"one", "two",
		))
	}
	c := content.NewCatalog("rev", posts)
	post, err := c.BySlug("current")
	require.NoError(t, err)

	got := ComputeAfterPost(c, post).Wide

	require.Len(t, got.TagSpotlights, 2)
	require.Len(t, got.TagSpotlights[0].Posts, 4)
	require.Len(t, got.TagSpotlights[1].Posts, 1)

	firstPicks := map[string]struct{}{}
	for _, p := range got.TagSpotlights[0].Posts {
		firstPicks[p.Slug] = struct{}{}
	}
	leftover := got.TagSpotlights[1].Posts[0].Slug
	_, overlap := firstPicks[leftover]
	assert.False(t, overlap, "second spotlight reused a first-spotlight pick")
}

func TestWideLatest_ExcludesSpotlightPicks(t *testing.T) {
	c := fixtureCatalog()
	post, err := c.BySlug("post-05")
	require.NoError(t, err)

	got := ComputeAfterPost(c, post).Wide
	require.Len(t, got.LatestSix, 6)

	excluded := map[string]struct{}{post.Slug: {}}
	for _, sp := range got.TagSpotlights {
		for _, p := range sp.Posts {
			excluded[p.Slug] = struct{}{}
		}
	}
	for _, p := range got.LatestSix {
		_, skip := excluded[p.Slug]
		assert.False(t, skip, "latest six contains excluded slug %q", p.Slug)
	}

	// Date order preserved.
	for i := 1; i < len(got.LatestSix); i++ {
		assert.GreaterOrEqual(t, got.LatestSix[i-1].DateISO, got.LatestSix[i].DateISO)
	}
}

func TestEngine_MemoizesPerRevision(t *testing.T) {
	e := NewEngine()
	c1 := fixtureCatalog()

	first, err := e.AfterPost(c1, "post-03")
	require.NoError(t, err)
	again, err := e.AfterPost(c1, "post-03")
	require.NoError(t, err)
	assert.Equal(t, first, again)

	_, err = e.AfterPost(c1, "missing")
	assert.ErrorIs(t, err, content.ErrNotFound)

	// A new revision recomputes from the new collection.
	c2 := content.NewCatalog("rev-2", []content.Post{
		fixturePost("post-03", "2026-01-17", "science", "alpha"),
		fixturePost("solo", "2026-01-16", "science", "alpha"),
	})
	fresh, err := e.AfterPost(c2, "post-03")
	require.NoError(t, err)
	require.Len(t, fresh.Compact.Wall, 1)
	assert.Equal(t, "solo", fresh.Compact.Wall[0].Post.Slug)
}
