package stream

const (
	// windowSize is both the initial window length and the growth step.
	windowSize = 5
	// loadAhead is how close to the window end the active post may get
	// before the window grows.
	loadAhead = 3
)

// Window is the contiguous index range of posts currently rendered. It only
// ever grows forward; rendered posts are never unmounted, which keeps scroll
// positions stable.
type Window struct {
	start int
	end   int
	last  int
}

// NewWindow opens a window of up to windowSize posts at requested. A
// requested index outside [0, last] is clamped to 0, matching the
// missing-post fallback.
func NewWindow(requested, last int) Window {
	if requested < 0 || requested > last {
		requested = 0
	}
	end := requested + windowSize - 1
	if end > last {
		end = last
	}
	return Window{start: requested, end: end, last: last}
}

// Start returns the first rendered index.
func (w Window) Start() int { return w.start }

// End returns the last rendered index.
func (w Window) End() int { return w.end }

// Contains reports whether idx is currently rendered.
func (w Window) Contains(idx int) bool { return idx >= w.start && idx <= w.end }

// AtEnd reports whether the window has reached the last index; no further
// growth is possible.
func (w Window) AtEnd() bool { return w.end == w.last }

// Extend grows the window by windowSize when the promoted index is within
// loadAhead positions of the end and the end has room left. Growth is
// monotonic; re-promoting the same index is a no-op once the window has
// grown past it. Reports whether the window changed.
func (w *Window) Extend(promotedIdx int) bool {
	if promotedIdx < w.end-loadAhead || w.end >= w.last {
		return false
	}
	w.end += windowSize
	if w.end > w.last {
		w.end = w.last
	}
	return true
}
