package roster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParticipants() []Participant {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return []Participant{
		{ID: "a", JoinedAt: base.Add(1 * time.Second)},
		{ID: "b", IsSpeaking: true, JoinedAt: base.Add(2 * time.Second)},
		{ID: LocalID, IsLocal: true, JoinedAt: base.Add(3 * time.Second)},
	}
}

func orderedIDs(v View) []string {
	ids := make([]string, len(v.Participants))
	for i, p := range v.Participants {
		ids[i] = p.ID
	}
	return ids
}

// TestViewUnpinnedOrder verifies local sorts first when nothing is pinned,
// then speakers, then join time.
func TestViewUnpinnedOrder(t *testing.T) {
	pr := NewPrioritizer()
	view := pr.View(testParticipants())

	assert.Equal(t, []string{LocalID, "b", "a"}, orderedIDs(view))
	assert.Empty(t, view.PinnedID)
}

// TestViewPinnedOrder verifies the pin takes absolute precedence and the
// local-first rule is suspended while a pin is set: the remainder orders
// by speaking activity.
func TestViewPinnedOrder(t *testing.T) {
	pr := NewPrioritizer()
	pr.Pin("a")

	view := pr.View(testParticipants())

	assert.Equal(t, []string{"a", "b", LocalID}, orderedIDs(view))
	assert.Equal(t, "a", view.PinnedID)
}

func TestViewVideoPrecedence(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	participants := []Participant{
		{ID: "novideo", IsVideoOff: true, JoinedAt: base.Add(1 * time.Second)},
		{ID: "video", JoinedAt: base.Add(2 * time.Second)},
	}

	view := NewPrioritizer().View(participants)
	assert.Equal(t, []string{"video", "novideo"}, orderedIDs(view))
}

func TestViewJoinTimeTieBreak(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	participants := []Participant{
		{ID: "later", JoinedAt: base.Add(2 * time.Second)},
		{ID: "earlier", JoinedAt: base.Add(1 * time.Second)},
	}

	view := NewPrioritizer().View(participants)
	assert.Equal(t, []string{"earlier", "later"}, orderedIDs(view))
}

// TestViewDeterministic verifies the order is re-derivable: the same
// snapshot always produces the same view.
func TestViewDeterministic(t *testing.T) {
	pr := NewPrioritizer()
	first := orderedIDs(pr.View(testParticipants()))
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, orderedIDs(pr.View(testParticipants())))
	}
}

func TestPinHelpers(t *testing.T) {
	pr := NewPrioritizer()

	assert.False(t, pr.IsPinned("a"))
	assert.False(t, pr.IsPinned(""))

	pr.Pin("a")
	assert.True(t, pr.IsPinned("a"))
	assert.False(t, pr.IsPinned("b"))
	assert.Equal(t, "a", pr.PinnedID())

	pr.Pin("")
	assert.False(t, pr.IsPinned("a"))
	assert.Empty(t, pr.PinnedID())
}

// TestPinNonexistentDegrades verifies pinning an id that is not in the
// roster is accepted and the view degrades to the unpinned ordering.
func TestPinNonexistentDegrades(t *testing.T) {
	pr := NewPrioritizer()
	pr.Pin("ghost")

	view := pr.View(testParticipants())
	assert.Equal(t, []string{LocalID, "b", "a"}, orderedIDs(view))
	assert.Empty(t, view.PinnedID, "unmatched pin reports as no pin")
}

func TestGridColumns(t *testing.T) {
	tests := []struct {
		count    int
		expected int
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{4, 2},
		{5, 3},
		{9, 3},
		{10, 4},
		{25, 4},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, gridColumns(tt.count), "count=%d", tt.count)
	}
}

func TestViewLayouts(t *testing.T) {
	participants := testParticipants()

	t.Run("grid sizes columns by count", func(t *testing.T) {
		pr := NewPrioritizer()
		view := pr.View(participants)
		assert.Equal(t, LayoutGrid, view.Layout)
		assert.Equal(t, 2, view.GridColumns)
		assert.Empty(t, view.FeaturedID)
	})

	t.Run("speaker without pin falls back to grid", func(t *testing.T) {
		pr := NewPrioritizer()
		pr.SetLayout(LayoutSpeaker)
		view := pr.View(participants)
		assert.Equal(t, LayoutGrid, view.Layout)
		assert.Equal(t, 2, view.GridColumns)
	})

	t.Run("speaker with pin features the pinned participant", func(t *testing.T) {
		pr := NewPrioritizer()
		pr.SetLayout(LayoutSpeaker)
		pr.Pin("b")
		view := pr.View(participants)
		assert.Equal(t, LayoutSpeaker, view.Layout)
		assert.Equal(t, "b", view.FeaturedID)
		assert.Equal(t, "b", view.Participants[0].ID)
	})

	t.Run("sidebar features pinned participant", func(t *testing.T) {
		pr := NewPrioritizer()
		pr.SetLayout(LayoutSidebar)
		pr.Pin("a")
		view := pr.View(participants)
		assert.Equal(t, LayoutSidebar, view.Layout)
		assert.Equal(t, "a", view.FeaturedID)
	})

	t.Run("sidebar without pin features first in order", func(t *testing.T) {
		pr := NewPrioritizer()
		pr.SetLayout(LayoutSidebar)
		view := pr.View(participants)
		require.NotEmpty(t, view.Participants)
		assert.Equal(t, LocalID, view.FeaturedID)
	})

	t.Run("sidebar with empty roster has no feature", func(t *testing.T) {
		pr := NewPrioritizer()
		pr.SetLayout(LayoutSidebar)
		view := pr.View(nil)
		assert.Empty(t, view.FeaturedID)
	})
}

func TestLayoutString(t *testing.T) {
	assert.Equal(t, "grid", LayoutGrid.String())
	assert.Equal(t, "speaker", LayoutSpeaker.String())
	assert.Equal(t, "sidebar", LayoutSidebar.String())
	assert.Equal(t, "unknown(9)", Layout(9).String())
}
