package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes assembles the router. Streaming endpoints skip the timeout and
// compression wrappers; http.TimeoutHandler cannot hijack connections.
func (h *Handler) Routes(m *Middleware, metricsHandler http.Handler, corsOrigins []string, rateLimitRPM int) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(m.RequestID)
	r.Use(m.RequestLogger)
	r.Use(m.Recoverer)
	r.Use(m.SecurityHeaders)
	r.Use(middleware.Heartbeat("/ping"))

	// CORS and rate limiting - configured from main
	r.Use(m.CORS(corsOrigins))
	r.Use(m.RateLimit(rateLimitRPM))

	// Health endpoints
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	// v1 API routes
	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(m.Compress)
			r.Use(m.Timeout(15 * time.Second))

			// Content
			r.Route("/posts", func(r chi.Router) {
				r.Get("/", h.ListPosts)
				r.Get("/{slug}", h.GetPost)
				r.Get("/{slug}/after", h.AfterPost)
			})
			r.Get("/slugs", h.ListSlugs)
			r.Get("/topics", h.ListTopics)
			r.Get("/tags", h.ListTags)
			r.Get("/search", h.Search)

			// Contact form
			r.Post("/contact", h.SubmitContact)
		})

		// Live updates and the reader session socket
		r.Get("/stream", h.HandleSSE)
		r.Get("/stream/ws", h.HandleWebSocket)
		r.Get("/reader", h.HandleReaderSocket)
	})

	return r
}
