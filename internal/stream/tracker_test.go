package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_PickBestHighestRatio(t *testing.T) {
	tr := NewTracker()
	tr.Update([]IntersectionEntry{
		{Slug: "a", Ratio: 0.4, TopOffset: 100, Intersecting: true},
		{Slug: "b", Ratio: 0.9, TopOffset: 300, Intersecting: true},
		{Slug: "c", Ratio: 0.7, TopOffset: 10, Intersecting: true},
	})

	best, ok := tr.PickBest()
	require.True(t, ok)
	assert.Equal(t, "b", best)
}

func TestTracker_TieBreaksOnTopOffset(t *testing.T) {
	tr := NewTracker()
	tr.Update([]IntersectionEntry{
		{Slug: "lower", Ratio: 0.5, TopOffset: 420, Intersecting: true},
		{Slug: "upper", Ratio: 0.5, TopOffset: 80, Intersecting: true},
	})

	best, ok := tr.PickBest()
	require.True(t, ok)
	assert.Equal(t, "upper", best, "topmost wins on equal ratio")
}

func TestTracker_IgnoresNonIntersecting(t *testing.T) {
	tr := NewTracker()
	tr.Update([]IntersectionEntry{
		{Slug: "gone", Ratio: 1.0, TopOffset: 0, Intersecting: false},
		{Slug: "faint", Ratio: 0, TopOffset: 50, Intersecting: true},
	})

	best, ok := tr.PickBest()
	require.True(t, ok)
	assert.Equal(t, "faint", best, "a zero-ratio intersecting section still counts")
}

func TestTracker_NoIntersectionNoPick(t *testing.T) {
	tr := NewTracker()
	_, ok := tr.PickBest()
	assert.False(t, ok)

	tr.Update([]IntersectionEntry{
		{Slug: "a", Ratio: 0.5, TopOffset: 10, Intersecting: false},
	})
	_, ok = tr.PickBest()
	assert.False(t, ok)
}

func TestTracker_LaterEntriesWinWithinBatch(t *testing.T) {
	tr := NewTracker()
	tr.Update([]IntersectionEntry{
		{Slug: "a", Ratio: 0.9, TopOffset: 10, Intersecting: true},
		{Slug: "a", Ratio: 0.1, TopOffset: 10, Intersecting: true},
		{Slug: "b", Ratio: 0.5, TopOffset: 20, Intersecting: true},
	})

	best, ok := tr.PickBest()
	require.True(t, ok)
	assert.Equal(t, "b", best)
}

func TestTracker_DeregisterAndReset(t *testing.T) {
	tr := NewTracker()
	tr.Update([]IntersectionEntry{
		{Slug: "a", Ratio: 0.9, TopOffset: 10, Intersecting: true},
		{Slug: "b", Ratio: 0.5, TopOffset: 20, Intersecting: true},
	})

	tr.Deregister("a")
	best, ok := tr.PickBest()
	require.True(t, ok)
	assert.Equal(t, "b", best)

	tr.Reset()
	_, ok = tr.PickBest()
	assert.False(t, ok)
}

func TestThresholds(t *testing.T) {
	ts := Thresholds()
	require.Len(t, ts, 21)
	assert.Equal(t, 0.0, ts[0])
	assert.Equal(t, 0.05, ts[1])
	assert.Equal(t, 1.0, ts[20])
}

func TestRootMargin(t *testing.T) {
	assert.Equal(t, "-0px 0px -25% 0px", RootMargin(0))
	assert.Equal(t, "-64px 0px -25% 0px", RootMargin(64))
	assert.Equal(t, "-73px 0px -25% 0px", RootMargin(72.3), "header offset rounds up")
}
