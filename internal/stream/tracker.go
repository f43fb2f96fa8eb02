package stream

import (
	"fmt"
	"math"
	"sort"
)

// SectionState is the last reported visibility of one rendered post section.
type SectionState struct {
	Ratio        float64
	TopOffset    float64
	Intersecting bool
}

// IntersectionEntry is one observation delivered by the client, keyed by the
// post slug of the section it describes.
type IntersectionEntry struct {
	Slug         string  `json:"slug"`
	Ratio        float64 `json:"ratio"`
	TopOffset    float64 `json:"topOffset"`
	Intersecting bool    `json:"intersecting"`
}

// Tracker accumulates per-section visibility and answers which section is the
// best "active" candidate. It holds no timing state; the session applies the
// navigation lock before consulting it.
type Tracker struct {
	sections map[string]SectionState
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{sections: make(map[string]SectionState)}
}

// Update merges one observation batch into the accumulated state. Entries
// later in the batch win for the same slug.
func (t *Tracker) Update(entries []IntersectionEntry) {
	for _, e := range entries {
		t.sections[e.Slug] = SectionState{
			Ratio:        e.Ratio,
			TopOffset:    e.TopOffset,
			Intersecting: e.Intersecting,
		}
	}
}

// Deregister forgets a section, used when the client unmounts it.
func (t *Tracker) Deregister(slug string) {
	delete(t.sections, slug)
}

// Reset drops all accumulated state, mirroring an observer rebuild after a
// viewport resize.
func (t *Tracker) Reset() {
	t.sections = make(map[string]SectionState)
}

// PickBest returns the intersecting section with the highest ratio, breaking
// ties by smallest top offset so the topmost section wins. Remaining ties go
// to the lexicographically smallest slug to keep the result independent of
// update order. ok is false when nothing intersects; callers then retain the
// previous active post.
func (t *Tracker) PickBest() (slug string, ok bool) {
	type candidate struct {
		slug  string
		state SectionState
	}
	candidates := make([]candidate, 0, len(t.sections))
	for s, st := range t.sections {
		if !st.Intersecting {
			continue
		}
		candidates = append(candidates, candidate{slug: s, state: st})
	}
	if len(candidates) == 0 {
		return "", false
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.state.Ratio != b.state.Ratio {
			return a.state.Ratio > b.state.Ratio
		}
		if a.state.TopOffset != b.state.TopOffset {
			return a.state.TopOffset < b.state.TopOffset
		}
		return a.slug < b.slug
	})
	return candidates[0].slug, true
}

// Thresholds returns the 21 observation thresholds (0, 0.05, …, 1.0) the
// client should sample at, giving fine-grained ratios instead of a binary
// in/out signal.
func Thresholds() []float64 {
	out := make([]float64, 0, 21)
	out = append(out, 0)
	for i := 1; i <= 20; i++ {
		out = append(out, float64(i)/20)
	}
	return out
}

// RootMargin formats the observer root margin for a given header height: the
// active zone starts below the fixed header and stops 25% above the viewport
// bottom.
func RootMargin(headerOffset float64) string {
	return fmt.Sprintf("-%dpx 0px -25%% 0px", int(math.Ceil(headerOffset)))
}
