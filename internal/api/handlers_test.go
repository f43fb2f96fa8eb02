package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inkstream/inkstream-backend/internal/contact"
	"github.com/inkstream/inkstream-backend/internal/content"
	"github.com/inkstream/inkstream-backend/internal/selection"
	"github.com/inkstream/inkstream-backend/internal/store"
)

func fixtureCatalog() *content.Catalog {
	topics := []content.Ref{
		{Slug: "art", Label: "Art"},
		{Slug: "science", Label: "Science"},
	}
	tags := []content.Ref{
		{Slug: "ideas", Label: "Ideas"},
		{Slug: "essays", Label: "Essays"},
		{Slug: "field-notes", Label: "Field Notes"},
		{Slug: "interviews", Label: "Interviews"},
	}

	base := time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)
	posts := make([]content.Post, 20)
	for i := range posts {
		topic := topics[i%2]
		posts[i] = content.Post{
			Slug:       fmt.Sprintf("%s-post-%02d", topic.Slug, i),
			Title:      fmt.Sprintf("Post %02d", i),
			Summary:    fmt.Sprintf("Summary for post %02d", i),
			DateISO:    base.AddDate(0, 0, -i).Format("2006-01-02"),
			AuthorName: "Ozge",
			Cover:      content.Cover{Src: fmt.Sprintf("/demo/archive/%02d.jpg", i%20+1), Alt: "cover"},
			Topic:      &topic,
			Tags:       []content.Ref{tags[i%4], tags[(i+1)%4]},
			Body:       []content.BodyBlock{{Kind: content.BlockParagraph, Text: "Body."}},
		}
	}
	return content.NewCatalog("rev-fixture", posts)
}

type testEnv struct {
	server *httptest.Server
	sink   *contact.MemorySink
	holder *content.Holder
}

func newTestEnv(t *testing.T, catalog *content.Catalog) *testEnv {
	t.Helper()

	logger, _ := zap.NewDevelopment()
	sugar := logger.Sugar()

	cache, err := store.NewCache("", sugar, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	sink := contact.NewMemorySink()
	holder := content.NewHolder(catalog)

	handler := NewHandler(holder, selection.NewEngine(), cache, sink, nil, nil, nil, nil, sugar, nil)
	router := handler.Routes(NewMiddleware(sugar, nil), nil, []string{"http://localhost:3000"}, 60000)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, sink: sink, holder: holder}
}

func getJSON(t *testing.T, url string, dest any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if dest != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
	}
	return resp
}

func TestListPosts(t *testing.T) {
	env := newTestEnv(t, fixtureCatalog())

	var body ListPostsResponse
	resp := getJSON(t, env.server.URL+"/v1/posts?limit=5&offset=10", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, 20, body.Total)
	assert.Equal(t, "rev-fixture", body.Revision)
	assert.Len(t, body.Items, 5)
	assert.Equal(t, "art-post-10", body.Items[0].Slug)
	assert.NotEmpty(t, body.Items[0].Summary, "summaries are included")
}

func TestListPosts_LimitClamped(t *testing.T) {
	env := newTestEnv(t, fixtureCatalog())

	var body ListPostsResponse
	getJSON(t, env.server.URL+"/v1/posts?limit=9999", &body)
	assert.Equal(t, maxPageLimit, body.Limit)
	assert.Len(t, body.Items, 20)
}

func TestGetPost(t *testing.T) {
	env := newTestEnv(t, fixtureCatalog())

	var body PostResponse
	resp := getJSON(t, env.server.URL+"/v1/posts/ART-POST-04", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "art-post-04", body.Post.Slug, "slug lookup is case-insensitive")
	assert.Equal(t, 4, body.Index)
	assert.NotEmpty(t, body.Post.Body)
}

func TestGetPost_NotFound(t *testing.T) {
	env := newTestEnv(t, fixtureCatalog())

	var body ErrorResponse
	resp := getJSON(t, env.server.URL+"/v1/posts/nope", &body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "POST_NOT_FOUND", body.Code)
}

func TestAfterPost_DeterministicAndCached(t *testing.T) {
	env := newTestEnv(t, fixtureCatalog())
	url := env.server.URL + "/v1/posts/art-post-00/after"

	var first, second selection.AfterData
	resp := getJSON(t, url, &first)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	getJSON(t, url, &second)

	assert.Equal(t, first, second, "rails must be stable across requests")
	assert.NotEmpty(t, first.Compact.Wall)
	assert.Len(t, first.Compact.LatestFive, 5)
	assert.Len(t, first.Wide.LatestSix, 6)
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t, fixtureCatalog())

	var body SearchResponse
	resp := getJSON(t, env.server.URL+"/v1/search?q=post+01", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, body.Items)
	assert.Equal(t, "science-post-01", body.Items[0].Slug)

	// Blank query short-circuits to an empty result.
	getJSON(t, env.server.URL+"/v1/search?q=", &body)
	assert.Empty(t, body.Items)
}

func TestTaxonomies(t *testing.T) {
	env := newTestEnv(t, fixtureCatalog())

	var topics TaxonomyResponse
	getJSON(t, env.server.URL+"/v1/topics", &topics)
	require.Len(t, topics.Items, 2)
	assert.Equal(t, 10, topics.Items[0].Count)

	var tags TaxonomyResponse
	getJSON(t, env.server.URL+"/v1/tags", &tags)
	assert.Len(t, tags.Items, 4)

	var slugs SlugsResponse
	getJSON(t, env.server.URL+"/v1/slugs", &slugs)
	assert.Len(t, slugs.Slugs, 20)
}

func postContact(t *testing.T, env *testEnv, payload map[string]any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(env.server.URL+"/v1/contact", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestSubmitContact(t *testing.T) {
	env := newTestEnv(t, fixtureCatalog())

	resp := postContact(t, env, map[string]any{
		"name":    "Reader",
		"email":   "reader@example.com",
		"message": "Hello there",
		"consent": true,
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Len(t, env.sink.Messages(), 1)
	assert.Equal(t, "reader@example.com", env.sink.Messages()[0].Email)
}

func TestSubmitContact_HoneypotSilentlyDropped(t *testing.T) {
	env := newTestEnv(t, fixtureCatalog())

	resp := postContact(t, env, map[string]any{
		"name":    "Bot",
		"email":   "bot@example.com",
		"message": "Buy things",
		"consent": true,
		"website": "https://spam.example",
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode, "honeypot gets the success envelope")
	assert.Empty(t, env.sink.Messages(), "nothing is stored")
}

func TestSubmitContact_ValidationError(t *testing.T) {
	env := newTestEnv(t, fixtureCatalog())

	resp := postContact(t, env, map[string]any{
		"name":    "Reader",
		"email":   "not-an-email",
		"message": "Hello",
		"consent": true,
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Equal(t, "email", body.Field)
}

func TestCatalogNotReady(t *testing.T) {
	env := newTestEnv(t, nil)

	var body ErrorResponse
	resp := getJSON(t, env.server.URL+"/v1/posts", &body)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "CATALOG_NOT_READY", body.Code)

	readyResp, err := http.Get(env.server.URL + "/readyz")
	require.NoError(t, err)
	defer readyResp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, readyResp.StatusCode)
}

func TestReadyz(t *testing.T) {
	env := newTestEnv(t, fixtureCatalog())

	var body ReadyzDTO
	resp := getJSON(t, env.server.URL+"/readyz", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", body.Status)
	assert.Equal(t, "rev-fixture", body.Revision)
	assert.Equal(t, "ok", body.Checks["catalog"])
	assert.Equal(t, "ok", body.Checks["cache"])
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, fixtureCatalog())
	resp, err := http.Get(env.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
