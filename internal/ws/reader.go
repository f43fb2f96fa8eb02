package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/inkstream/inkstream-backend/internal/content"
	"github.com/inkstream/inkstream-backend/internal/metrics"
	"github.com/inkstream/inkstream-backend/internal/stream"
)

// readerEvent is one client-to-server message on the reader socket.
type readerEvent struct {
	Type         string                     `json:"type"`
	Entries      []stream.IntersectionEntry `json:"entries,omitempty"`
	Path         string                     `json:"path,omitempty"`
	HeaderOffset float64                    `json:"headerOffset,omitempty"`
	Slug         string                     `json:"slug,omitempty"`
}

// ReaderHandler owns the per-connection reader sessions. Each socket drives
// one stream.Session; commands flow back as JSON frames.
type ReaderHandler struct {
	holder   *content.Holder
	config   stream.Config
	logger   *zap.SugaredLogger
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
}

func NewReaderHandler(
	holder *content.Holder,
	config stream.Config,
	logger *zap.SugaredLogger,
	m *metrics.Metrics,
	allowedOrigins []string,
) *ReaderHandler {
	return &ReaderHandler{
		holder:  holder,
		config:  config,
		logger:  logger,
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// socketSink serializes session commands onto the connection through a
// buffered channel; session timers fire on their own goroutines.
type socketSink struct {
	send    chan stream.Command
	metrics *metrics.Metrics
}

func (s *socketSink) Send(cmd stream.Command) {
	if s.metrics != nil && cmd.Type == stream.CommandActive {
		s.metrics.RecordStreamPromotion(context.Background())
	}
	select {
	case s.send <- cmd:
	default:
		// Slow consumer; drop rather than stall the session.
	}
}

// HandleReader upgrades the connection and runs a reader session until the
// client goes away. The initial post is selected with the slug query
// parameter; path defaults to the configured prefix plus the slug.
func (h *ReaderHandler) HandleReader(w http.ResponseWriter, r *http.Request) {
	catalog := h.holder.Get()
	if catalog == nil || catalog.Len() == 0 {
		http.Error(w, "catalog not ready", http.StatusServiceUnavailable)
		return
	}

	slug := content.NormalizeSlug(r.URL.Query().Get("slug"))
	path := r.URL.Query().Get("path")
	if path == "" {
		path = h.config.PathPrefix + slug
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorw("Reader socket upgrade failed", "error", err)
		return
	}

	ctx := r.Context()
	if h.metrics != nil {
		h.metrics.IncrementConnections(ctx)
		defer h.metrics.DecrementConnections(ctx)
	}

	sink := &socketSink{send: make(chan stream.Command, 64), metrics: h.metrics}
	session := stream.NewSession(h.logger, h.config, stream.NewClock(), catalog, slug, path, sink)
	defer session.Close()

	done := make(chan struct{})
	go h.writeCommands(conn, sink.send, done)
	h.readEvents(conn, session)
	close(done)
}

func (h *ReaderHandler) writeCommands(conn *websocket.Conn, send <-chan stream.Command, done <-chan struct{}) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case cmd := <-send:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(cmd); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *ReaderHandler) readEvents(conn *websocket.Conn, session *stream.Session) {
	defer conn.Close()

	conn.SetReadLimit(32 * 1024)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Errorw("Reader socket error", "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var event readerEvent
		if err := json.Unmarshal(message, &event); err != nil {
			h.logger.Warnw("Invalid reader event", "error", err)
			continue
		}

		switch event.Type {
		case "intersections":
			session.HandleIntersections(event.Entries)
		case "pointerdown":
			session.NotifyAnchorPointerDown()
		case "path":
			session.NotifyPathChange(event.Path)
		case "resize":
			session.HandleResize(event.HeaderOffset)
		case "unmount":
			session.SectionUnmounted(event.Slug)
		default:
			h.logger.Debugw("Unknown reader event", "type", event.Type)
		}
	}
}
