package directus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inkstream/inkstream-backend/internal/content"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func TestListPosts_MapsRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/items/posts", r.URL.Path)
		assert.Equal(t, "published", r.URL.Query().Get("filter[status][_eq]"))
		assert.Equal(t, "-date_published", r.URL.Query().Get("sort"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{
					"slug":           "science-calm-guide",
					"title":          "A calm guide",
					"summary":        "A note.",
					"date_published": "2026-02-05T08:30:00Z",
					"author_name":    "Ozge",
					"cover_src":      "/img/a.jpg",
					"cover_alt":      "Cover",
					"topic_slug":     "science",
					"topic_label":    "Science",
					"tags":           []map[string]string{{"slug": "papers", "label": "papers"}},
					"body":           []map[string]string{{"kind": "p", "text": "Hello"}},
				},
			},
			"meta": map[string]any{"filter_count": 42},
		})
	}))
	defer srv.Close()

	p := NewProvider(testLogger(), srv.URL, "secret")

	res, err := p.ListPosts(context.Background(), content.ListOptions{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 42, res.Total)
	require.Len(t, res.Items, 1)

	got := res.Items[0]
	assert.Equal(t, "science-calm-guide", got.Slug)
	assert.Equal(t, "2026-02-05", got.DateISO, "datetime trimmed to date")
	require.NotNil(t, got.Topic)
	assert.Equal(t, "Science", got.Topic.Label)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, content.BlockParagraph, got.Body[0].Kind)

	assert.True(t, p.Health().Healthy)
}

func TestGetPostBySlug_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "missing", r.URL.Query().Get("filter[slug][_eq]"))
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer srv.Close()

	p := NewProvider(testLogger(), srv.URL, "")

	_, err := p.GetPostBySlug(context.Background(), "missing")
	assert.ErrorIs(t, err, content.ErrNotFound)
}

func TestSearchPosts_BuildsOrFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "calm", q.Get("filter[_or][0][title][_icontains]"))
		assert.Equal(t, "calm", q.Get("filter[_or][1][summary][_icontains]"))
		assert.Equal(t, "calm", q.Get("filter[_or][2][slug][_icontains]"))
		assert.Equal(t, "8", q.Get("limit"))

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"slug": "a", "title": "A"}},
		})
	}))
	defer srv.Close()

	p := NewProvider(testLogger(), srv.URL, "")

	hits, err := p.SearchPosts(context.Background(), " calm ", 8)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].Slug)
}

func TestSearchPosts_EmptyQuerySkipsFetch(t *testing.T) {
	p := NewProvider(testLogger(), "http://unreachable.invalid", "")

	hits, err := p.SearchPosts(context.Background(), "   ", 8)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestListAllSlugs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "slug", r.URL.Query().Get("fields"))
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"slug": "newest"}, {"slug": "older"}},
		})
	}))
	defer srv.Close()

	p := NewProvider(testLogger(), srv.URL, "")

	slugs, err := p.ListAllSlugs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"newest", "older"}, slugs)
}

func TestGet_UpstreamErrorMarksUnhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewProvider(testLogger(), srv.URL, "")

	_, err := p.ListAllSlugs(context.Background())
	require.Error(t, err)
	assert.False(t, p.Health().Healthy)
	assert.NotEmpty(t, p.Health().LastError)
}

func TestSubmitContact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/items/contact_messages", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var msg ContactMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		assert.Equal(t, "Ada", msg.Name)
		assert.True(t, msg.Consent)
		assert.Nil(t, msg.PageURL)

		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := NewProvider(testLogger(), srv.URL, "secret")

	err := p.SubmitContact(context.Background(), ContactMessage{
		Name:    "Ada",
		Email:   "ada@example.com",
		Message: "Hello",
		Consent: true,
	})
	require.NoError(t, err)
}
