package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/inkstream/inkstream-backend/internal/config"
	"github.com/inkstream/inkstream-backend/internal/contact"
	"github.com/inkstream/inkstream-backend/internal/content"
	"github.com/inkstream/inkstream-backend/internal/metrics"
	"github.com/inkstream/inkstream-backend/internal/selection"
	"github.com/inkstream/inkstream-backend/internal/store"
	"github.com/inkstream/inkstream-backend/internal/util"
	"github.com/inkstream/inkstream-backend/internal/ws"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100

	defaultSearchLimit = 8
	maxSearchLimit     = 20
)

type Handler struct {
	holder        *content.Holder
	engine        *selection.Engine
	cache         *store.Cache
	contactSink   contact.Sink
	wsHub         *ws.Hub
	sseHandler    *ws.SSEHandler
	readerHandler *ws.ReaderHandler
	config        *config.Config
	logger        *zap.SugaredLogger
	metrics       *metrics.Metrics

	afterGroup util.Group // collapses concurrent after-post cache misses
}

func NewHandler(
	holder *content.Holder,
	engine *selection.Engine,
	cache *store.Cache,
	contactSink contact.Sink,
	wsHub *ws.Hub,
	sseHandler *ws.SSEHandler,
	readerHandler *ws.ReaderHandler,
	cfg *config.Config,
	logger *zap.SugaredLogger,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		holder:        holder,
		engine:        engine,
		cache:         cache,
		contactSink:   contactSink,
		wsHub:         wsHub,
		sseHandler:    sseHandler,
		readerHandler: readerHandler,
		config:        cfg,
		logger:        logger,
		metrics:       m,
	}
}

// catalog returns the current snapshot, or nil with a 503 already written.
func (h *Handler) catalog(w http.ResponseWriter) *content.Catalog {
	c := h.holder.Get()
	if c == nil || c.Len() == 0 {
		h.writeError(w, http.StatusServiceUnavailable, "CATALOG_NOT_READY", "content catalog is not loaded yet")
		return nil
	}
	return c
}

func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	c := h.catalog(w)
	if c == nil {
		return
	}

	limit := queryInt(r, "limit", defaultPageLimit, 1, maxPageLimit)
	offset := queryInt(r, "offset", 0, 0, c.Len())

	posts := c.All()
	end := offset + limit
	if end > len(posts) {
		end = len(posts)
	}
	if offset > len(posts) {
		offset = len(posts)
	}

	items := make([]PostSummaryDTO, 0, end-offset)
	for _, p := range posts[offset:end] {
		items = append(items, toSummary(p))
	}

	h.writeJSON(w, http.StatusOK, ListPostsResponse{
		Items:    items,
		Total:    c.Len(),
		Offset:   offset,
		Limit:    limit,
		Revision: c.Revision(),
	})
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	c := h.catalog(w)
	if c == nil {
		return
	}

	slug := content.NormalizeSlug(chi.URLParam(r, "slug"))
	post, err := c.BySlug(slug)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "POST_NOT_FOUND", "no post with slug "+slug)
			return
		}
		h.writeError(w, http.StatusInternalServerError, "POST_LOOKUP_ERROR", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, PostResponse{
		Post:     post,
		Index:    c.IndexOf(slug),
		Revision: c.Revision(),
	})
}

// AfterPost serves the deterministic rails rendered under a post. Results are
// cached per catalog revision.
func (h *Handler) AfterPost(w http.ResponseWriter, r *http.Request) {
	c := h.catalog(w)
	if c == nil {
		return
	}

	slug := content.NormalizeSlug(chi.URLParam(r, "slug"))

	if h.cache != nil {
		var cached selection.AfterData
		if err := h.cache.GetAfterPost(r.Context(), c.Revision(), slug, &cached); err == nil {
			h.writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	result, err, _ := h.afterGroup.Do(c.Revision()+":"+slug, func() (interface{}, error) {
		data, err := h.engine.AfterPost(c, slug)
		if err != nil {
			return nil, err
		}
		if h.cache != nil {
			if err := h.cache.SetAfterPost(r.Context(), c.Revision(), slug, data); err != nil {
				h.logger.Warnw("Failed to cache after-post selection", "slug", slug, "error", err)
			}
		}
		return data, nil
	})
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "POST_NOT_FOUND", "no post with slug "+slug)
			return
		}
		h.writeError(w, http.StatusInternalServerError, "SELECTION_ERROR", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, result.(selection.AfterData))
}

func (h *Handler) ListSlugs(w http.ResponseWriter, r *http.Request) {
	c := h.catalog(w)
	if c == nil {
		return
	}
	h.writeJSON(w, http.StatusOK, SlugsResponse{Slugs: c.Slugs(), Revision: c.Revision()})
}

func (h *Handler) ListTopics(w http.ResponseWriter, r *http.Request) {
	c := h.catalog(w)
	if c == nil {
		return
	}
	h.writeJSON(w, http.StatusOK, TaxonomyResponse{Items: c.Topics(), Revision: c.Revision()})
}

func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	c := h.catalog(w)
	if c == nil {
		return
	}
	h.writeJSON(w, http.StatusOK, TaxonomyResponse{Items: c.Tags(), Revision: c.Revision()})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	c := h.catalog(w)
	if c == nil {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	limit := queryInt(r, "limit", defaultSearchLimit, 1, maxSearchLimit)

	if query == "" {
		h.writeJSON(w, http.StatusOK, SearchResponse{Query: query, Items: []content.SearchItem{}, Revision: c.Revision()})
		return
	}

	if h.cache != nil {
		var cached []content.SearchItem
		if err := h.cache.GetSearch(r.Context(), c.Revision(), query, limit, &cached); err == nil {
			h.writeJSON(w, http.StatusOK, SearchResponse{Query: query, Items: cached, Revision: c.Revision()})
			return
		}
	}

	items := c.Search(query, limit)
	if items == nil {
		items = []content.SearchItem{}
	}

	if h.cache != nil {
		if err := h.cache.SetSearch(r.Context(), c.Revision(), query, limit, items); err != nil {
			h.logger.Warnw("Failed to cache search result", "query", query, "error", err)
		}
	}

	h.writeJSON(w, http.StatusOK, SearchResponse{Query: query, Items: items, Revision: c.Revision()})
}

// SubmitContact accepts a contact form submission. Honeypot trips get the
// same success envelope as real submissions and are dropped.
func (h *Handler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var sub contact.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON")
		return
	}

	if sub.IsSpam() {
		h.logger.Debugw("Contact honeypot tripped; dropping submission")
		h.writeJSON(w, http.StatusAccepted, ContactResponse{Status: "accepted"})
		return
	}

	if sub.PageURL == nil {
		if referer := r.Header.Get("Referer"); referer != "" {
			sub.PageURL = &referer
		}
	}
	if sub.UserAgent == nil {
		if ua := r.UserAgent(); ua != "" {
			sub.UserAgent = &ua
		}
	}

	msg, err := sub.Validate(time.Now())
	if err != nil {
		var verr *contact.ValidationError
		if errors.As(err, &verr) {
			h.writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: verr.Reason,
				Field:   verr.Field,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if err := h.contactSink.Save(r.Context(), msg); err != nil {
		h.logger.Errorw("Failed to store contact message", "sink", h.contactSink.Name(), "error", err)
		h.writeError(w, http.StatusBadGateway, "CONTACT_SINK_ERROR", "could not store the message")
		return
	}

	if h.metrics != nil {
		h.metrics.RecordContactMessage(r.Context(), h.contactSink.Name())
	}
	h.writeJSON(w, http.StatusAccepted, ContactResponse{Status: "accepted"})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := http.StatusOK
	dto := ReadyzDTO{Status: "ready", Checks: checks}

	if c := h.holder.Get(); c != nil && c.Len() > 0 {
		checks["catalog"] = "ok"
		dto.Revision = c.Revision()
	} else {
		checks["catalog"] = "not loaded"
		status = http.StatusServiceUnavailable
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			checks["cache"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["cache"] = "ok"
		}
	}

	if h.contactSink != nil {
		if err := h.contactSink.Ping(r.Context()); err != nil {
			checks["contact_sink"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["contact_sink"] = "ok"
		}
	}

	if status != http.StatusOK {
		dto.Status = "not ready"
	}
	h.writeJSON(w, status, dto)
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.wsHub.HandleWebSocket(w, r)
}

func (h *Handler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	h.sseHandler.HandleSSE(w, r)
}

func (h *Handler) HandleReaderSocket(w http.ResponseWriter, r *http.Request) {
	h.readerHandler.HandleReader(w, r)
}

func queryInt(r *http.Request, name string, def, min, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.logger.Errorw("API error", "code", code, "message", message, "status", status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Code: code, Message: message})
}
