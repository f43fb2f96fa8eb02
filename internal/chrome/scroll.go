package chrome

const (
	// topResetY is the scroll position under which the header always shows.
	topResetY = 64
	// deltaThreshold is the accumulated same-direction scroll distance that
	// toggles the header.
	deltaThreshold = 12
)

// ScrollTracker turns raw scroll positions into header hide/show actions. It
// accumulates scroll distance per direction; a direction change restarts the
// accumulator so a short counter-scroll immediately starts counting toward
// the opposite toggle.
type ScrollTracker struct {
	lastY   float64
	delta   float64
	lastDir int
}

// NewScrollTracker returns a tracker starting at scroll position 0.
func NewScrollTracker() *ScrollTracker {
	return &ScrollTracker{}
}

// Observe consumes one scroll position against the current chrome state and
// returns the action to dispatch, if any.
func (t *ScrollTracker) Observe(s State, y float64) (Action, bool) {
	if y <= topResetY {
		t.reset(y)
		if s.HeaderHidden {
			return ActionHeaderShow, true
		}
		return "", false
	}

	// Auto-hide only runs with no overlay and pointer input; otherwise the
	// accumulator resets so stale distance never triggers a toggle later.
	if s.Overlay != OverlayNone || s.InputMode != InputPointer {
		t.reset(y)
		return "", false
	}

	delta := y - t.lastY

	dir := 0
	if delta > 0 {
		dir = 1
	} else if delta < 0 {
		dir = -1
	}

	if dir != 0 && dir != t.lastDir {
		t.delta = delta
		t.lastDir = dir
	} else {
		t.delta += delta
	}

	t.lastY = y

	if t.delta >= deltaThreshold {
		t.delta = 0
		if !s.HeaderHidden {
			return ActionHeaderHide, true
		}
		return "", false
	}
	if t.delta <= -deltaThreshold {
		t.delta = 0
		if s.HeaderHidden {
			return ActionHeaderShow, true
		}
		return "", false
	}

	return "", false
}

func (t *ScrollTracker) reset(y float64) {
	t.delta = 0
	t.lastDir = 0
	t.lastY = y
}
