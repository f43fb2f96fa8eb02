package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(slug, date string, topic *Ref, tags ...Ref) Post {
	return Post{
		Slug:    slug,
		Title:   "Title " + slug,
		Summary: "Summary " + slug,
		DateISO: date,
		Topic:   topic,
		Tags:    tags,
	}
}

func TestNormalizeSlug(t *testing.T) {
	assert.Equal(t, "true-crime", NormalizeSlug("True-Crime"))
	assert.Equal(t, "are you lucky", NormalizeSlug("Are%20You%20Lucky"))
	assert.Equal(t, "plain", NormalizeSlug("  plain  "))
	// Undecodable input falls back to the raw string.
	assert.Equal(t, "bad%zz", NormalizeSlug("bad%zz"))
}

func TestNewCatalog_OrderAndIndexes(t *testing.T) {
	art := &Ref{Slug: "art", Label: "Art"}
	science := &Ref{Slug: "science", Label: "Science"}
	tagA := Ref{Slug: "alpha", Label: "alpha"}
	tagB := Ref{Slug: "beta", Label: "beta"}

	c := NewCatalog("rev-1", []Post{
		post("old", "2026-01-01", art, tagA),
		post("new", "2026-02-01", science, tagA, tagB),
		post("mid", "2026-01-15", art, tagB),
	})

	assert.Equal(t, "rev-1", c.Revision())
	require.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"new", "mid", "old"}, c.Slugs())

	assert.Equal(t, 0, c.IndexOf("new"))
	assert.Equal(t, 2, c.IndexOf("old"))
	assert.Equal(t, -1, c.IndexOf("missing"))
	assert.Equal(t, "mid", c.At(1).Slug)

	got, err := c.BySlug("mid")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-15", got.DateISO)

	_, err = c.BySlug("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewCatalog_StableTieBreak(t *testing.T) {
	c := NewCatalog("rev", []Post{
		post("first", "2026-01-10", nil),
		post("second", "2026-01-10", nil),
	})

	// Same date keeps input order.
	assert.Equal(t, []string{"first", "second"}, c.Slugs())
}

func TestNewCatalog_DedupesTagsBySlug(t *testing.T) {
	c := NewCatalog("rev", []Post{
		post("p", "2026-01-01", nil,
			Ref{Slug: "videos", Label: "Videos"},
			Ref{Slug: "Videos", Label: "videos dup"},
			Ref{Slug: "other", Label: "other"},
		),
	})

	got := c.At(0)
	require.Len(t, got.Tags, 2)
	assert.Equal(t, "Videos", got.Tags[0].Label, "first occurrence wins")
}

func TestCatalog_TaxonomyQueries(t *testing.T) {
	art := &Ref{Slug: "art", Label: "Art"}
	science := &Ref{Slug: "science", Label: "Science"}
	tagA := Ref{Slug: "alpha", Label: "alpha"}
	tagB := Ref{Slug: "beta", Label: "beta"}

	c := NewCatalog("rev", []Post{
		post("a", "2026-02-03", art, tagA),
		post("b", "2026-02-02", science, tagA, tagB),
		post("c", "2026-02-01", art, tagB),
	})

	byTag := c.PostsByTag("alpha")
	require.Len(t, byTag, 2)
	assert.Equal(t, "a", byTag[0].Slug)
	assert.Equal(t, "b", byTag[1].Slug)

	byTopic := c.PostsByTopic("ART")
	require.Len(t, byTopic, 2)
	assert.Equal(t, "a", byTopic[0].Slug)

	assert.Empty(t, c.PostsByTag("missing"))

	topics := c.Topics()
	require.Len(t, topics, 2)
	assert.Equal(t, TaxonomyItem{Ref: Ref{Slug: "art", Label: "Art"}, Count: 2}, topics[0])
	assert.Equal(t, TaxonomyItem{Ref: Ref{Slug: "science", Label: "Science"}, Count: 1}, topics[1])

	tags := c.Tags()
	require.Len(t, tags, 2)
	assert.Equal(t, 2, tags[0].Count)
	assert.Equal(t, 2, tags[1].Count)
}

func TestCatalog_Search(t *testing.T) {
	c := NewCatalog("rev", []Post{
		{Slug: "alpha-one", Title: "Calm systems", Summary: "On design", DateISO: "2026-02-03"},
		{Slug: "beta-two", Title: "Loud systems", Summary: "On chaos", DateISO: "2026-02-02"},
		{Slug: "gamma-three", Title: "Other", Summary: "calm words", DateISO: "2026-02-01"},
	})

	hits := c.Search("CALM", 10)
	require.Len(t, hits, 2)
	assert.Equal(t, "alpha-one", hits[0].Slug)
	assert.Equal(t, "gamma-three", hits[1].Slug)

	hits = c.Search("systems", 1)
	require.Len(t, hits, 1)
	assert.Equal(t, "alpha-one", hits[0].Slug)

	hits = c.Search("beta", 10)
	require.Len(t, hits, 1, "slug text matches too")

	assert.Empty(t, c.Search("   ", 10))
	assert.Empty(t, c.Search("calm", 0))
}

func TestHolder_Swap(t *testing.T) {
	first := NewCatalog("rev-1", nil)
	second := NewCatalog("rev-2", nil)

	h := NewHolder(first)
	assert.Equal(t, "rev-1", h.Get().Revision())

	h.Swap(second)
	assert.Equal(t, "rev-2", h.Get().Revision())
}
