// Package stream implements the reading-stream state machine behind the
// continuous post reader: a grow-only render window over the date-ordered
// collection, an activity tracker fed by viewport observations, and a
// debounced URL synchronizer guarded by a navigation lock.
package stream

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/inkstream/inkstream-backend/internal/content"
)

const (
	defaultURLDebounce = 120 * time.Millisecond
	defaultNavLock     = 2500 * time.Millisecond
	defaultPathPrefix  = "/blog/"
)

// CommandType names the commands a session pushes back to its client.
type CommandType string

const (
	// CommandInit carries the initial window, active slug and observer
	// configuration after the session opens.
	CommandInit CommandType = "init"
	// CommandActive announces a newly promoted active post.
	CommandActive CommandType = "active"
	// CommandExtend announces render window growth.
	CommandExtend CommandType = "extend"
	// CommandObserve carries fresh observer configuration after a resize.
	CommandObserve CommandType = "observe"
	// CommandURLReplace instructs the client to replace (not push) its
	// history entry with Path.
	CommandURLReplace CommandType = "url_replace"
)

// Command is one message from the session to its client.
type Command struct {
	Type        CommandType `json:"type"`
	Slug        string      `json:"slug,omitempty"`
	WindowStart int         `json:"windowStart"`
	WindowEnd   int         `json:"windowEnd"`
	Path        string      `json:"path,omitempty"`
	Thresholds  []float64   `json:"thresholds,omitempty"`
	RootMargin  string      `json:"rootMargin,omitempty"`
}

// CommandSink receives session commands, typically a websocket writer.
type CommandSink interface {
	Send(Command)
}

// Config bounds the session's timing and URL behavior.
type Config struct {
	URLDebounce time.Duration
	NavLock     time.Duration
	PathPrefix  string
}

// DefaultConfig returns the production timing values.
func DefaultConfig() Config {
	return Config{
		URLDebounce: defaultURLDebounce,
		NavLock:     defaultNavLock,
		PathPrefix:  defaultPathPrefix,
	}
}

// Session drives one reader over one catalog snapshot. All methods are safe
// for concurrent use; in practice a single client connection feeds events
// while the URL debounce fires from a timer.
type Session struct {
	cfg     Config
	clock   Clock
	logger  *zap.SugaredLogger
	catalog *content.Catalog
	sink    CommandSink

	mu          sync.Mutex
	tracker     *Tracker
	window      Window
	active      string
	lockUntil   time.Time
	urlTimer    Timer
	currentPath string
	closed      bool
}

// NewSession opens a session centered on initialSlug. An unknown slug falls
// back to the newest post instead of failing. The init command with the
// window bounds and observer configuration is sent before NewSession
// returns.
func NewSession(logger *zap.SugaredLogger, cfg Config, clock Clock, catalog *content.Catalog, initialSlug, currentPath string, sink CommandSink) *Session {
	last := catalog.Len() - 1
	idx := catalog.IndexOf(initialSlug)
	if idx < 0 {
		logger.Debugw("initial slug not found, falling back to newest", "slug", initialSlug)
		idx = 0
	}

	s := &Session{
		cfg:         cfg,
		clock:       clock,
		logger:      logger,
		catalog:     catalog,
		sink:        sink,
		tracker:     NewTracker(),
		window:      NewWindow(idx, last),
		currentPath: currentPath,
	}
	if catalog.Len() > 0 {
		s.active = catalog.At(s.window.Start()).Slug
	}

	sink.Send(Command{
		Type:        CommandInit,
		Slug:        s.active,
		WindowStart: s.window.Start(),
		WindowEnd:   s.window.End(),
		Thresholds:  Thresholds(),
		RootMargin:  RootMargin(0),
	})
	return s
}

// Active returns the current active slug.
func (s *Session) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Window returns the current render window bounds.
func (s *Session) Window() (start, end int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window.Start(), s.window.End()
}

// HandleIntersections merges one observation batch and, unless the
// navigation lock is engaged, promotes the best visible section. Promotion
// may grow the render window and always restarts the URL debounce.
func (s *Session) HandleIntersections(entries []IntersectionEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.tracker.Update(entries)

	if s.clock.Now().Before(s.lockUntil) {
		return
	}

	best, ok := s.tracker.PickBest()
	if !ok || best == s.active {
		return
	}

	s.active = best
	s.sink.Send(Command{
		Type:        CommandActive,
		Slug:        best,
		WindowStart: s.window.Start(),
		WindowEnd:   s.window.End(),
	})

	if idx := s.catalog.IndexOf(best); idx >= 0 && s.window.Extend(idx) {
		s.sink.Send(Command{
			Type:        CommandExtend,
			WindowStart: s.window.Start(),
			WindowEnd:   s.window.End(),
		})
	}

	s.scheduleURLSyncLocked()
}

// NotifyAnchorPointerDown engages the navigation lock: the client saw a
// pointer-down on an anchor, so automatic promotion and URL rewrites stand
// down while a real navigation may be in flight.
func (s *Session) NotifyAnchorPointerDown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockUntil = s.clock.Now().Add(s.cfg.NavLock)
}

// NotifyPathChange records the client's current location path.
func (s *Session) NotifyPathChange(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentPath = path
}

// HandleResize resets accumulated visibility and sends fresh observer
// configuration for the new header height.
func (s *Session) HandleResize(headerOffset float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.tracker.Reset()
	s.sink.Send(Command{
		Type:        CommandObserve,
		WindowStart: s.window.Start(),
		WindowEnd:   s.window.End(),
		Thresholds:  Thresholds(),
		RootMargin:  RootMargin(headerOffset),
	})
}

// SectionUnmounted forgets a section the client no longer renders.
func (s *Session) SectionUnmounted(slug string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracker.Deregister(slug)
}

// Close stops the debounce timer and rejects further events. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.urlTimer != nil {
		s.urlTimer.Stop()
		s.urlTimer = nil
	}
}

// scheduleURLSyncLocked restarts the debounce timer; last write wins.
func (s *Session) scheduleURLSyncLocked() {
	if s.urlTimer != nil {
		s.urlTimer.Stop()
	}
	s.urlTimer = s.clock.AfterFunc(s.cfg.URLDebounce, s.syncURL)
}

func (s *Session) syncURL() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.clock.Now().Before(s.lockUntil) {
		return
	}
	if !strings.HasPrefix(s.currentPath, s.cfg.PathPrefix) {
		return
	}

	next := s.cfg.PathPrefix + s.active
	if next == s.currentPath {
		return
	}

	s.currentPath = next
	s.sink.Send(Command{
		Type:        CommandURLReplace,
		Slug:        s.active,
		WindowStart: s.window.Start(),
		WindowEnd:   s.window.End(),
		Path:        next,
	})
}
