package roster

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Layout selects how the renderer arranges video surfaces.
type Layout int

const (
	// LayoutGrid renders all participants in an N-column arrangement
	// sized by participant count. This is the default.
	LayoutGrid Layout = iota
	// LayoutSpeaker renders the pinned participant large with a scroll
	// strip of the rest. Requires a pin; falls back to grid without one.
	LayoutSpeaker
	// LayoutSidebar renders the pinned-or-first participant large with a
	// vertical list of the rest.
	LayoutSidebar
)

// String returns the string representation of the layout.
func (l Layout) String() string {
	switch l {
	case LayoutGrid:
		return "grid"
	case LayoutSpeaker:
		return "speaker"
	case LayoutSidebar:
		return "sidebar"
	default:
		return fmt.Sprintf("unknown(%d)", int(l))
	}
}

// View is the derived render ordering handed to the renderer. It is
// computed fresh on every read and has no independent lifecycle.
type View struct {
	Participants []Participant // Stable render order, highest priority first
	PinnedID     string        // Empty when nothing is pinned
	Layout       Layout        // Effective layout after fallback rules
	GridColumns  int           // Column count for LayoutGrid, 0 otherwise
	FeaturedID   string        // Large tile for speaker/sidebar, empty for grid
}

// Prioritizer turns roster snapshots plus UI intent (pin, layout mode)
// into a deterministic, re-derivable render order.
type Prioritizer struct {
	mu       sync.RWMutex
	pinnedID string
	layout   Layout
}

// NewPrioritizer creates a prioritizer with grid layout and no pin.
func NewPrioritizer() *Prioritizer {
	return &Prioritizer{layout: LayoutGrid}
}

// Pin fixes the participant with the given id as the primary rendered
// subject. An empty id clears the pin. Pinning an id that is not in the
// roster is accepted; it simply never matches and the view degrades to the
// unpinned ordering.
func (pr *Prioritizer) Pin(id string) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	pr.pinnedID = id

	logrus.WithFields(logrus.Fields{
		"function": "Pin",
		"id":       id,
	}).Debug("Pin updated")
}

// IsPinned reports whether the given id is the currently pinned one.
func (pr *Prioritizer) IsPinned(id string) bool {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	return id != "" && pr.pinnedID == id
}

// PinnedID returns the currently pinned id, empty when nothing is pinned.
func (pr *Prioritizer) PinnedID() string {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	return pr.pinnedID
}

// SetLayout selects the layout mode. Layout is an independent input, not
// derived from roster state.
func (pr *Prioritizer) SetLayout(l Layout) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	pr.layout = l

	logrus.WithFields(logrus.Fields{
		"function": "SetLayout",
		"layout":   l.String(),
	}).Debug("Layout updated")
}

// Layout returns the currently selected layout mode.
func (pr *Prioritizer) Layout() Layout {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	return pr.layout
}

// View computes the render order and effective layout for the given roster
// snapshot.
//
// Sort precedence, ties broken by the next rule and finally by join time
// ascending:
//
//  1. the pinned participant,
//  2. the local participant, only when no pin is set,
//  3. participants currently speaking,
//  4. participants with an active (non-off) video track,
//  5. earliest join time.
func (pr *Prioritizer) View(participants []Participant) View {
	pr.mu.RLock()
	pinnedID := pr.pinnedID
	layout := pr.layout
	pr.mu.RUnlock()

	ordered := make([]Participant, len(participants))
	copy(ordered, participants)

	pinExists := false
	for _, p := range ordered {
		if pinnedID != "" && p.ID == pinnedID {
			pinExists = true
			break
		}
	}
	// A pin that matches nothing degrades to "no pin" for ordering.
	effectivePin := ""
	if pinExists {
		effectivePin = pinnedID
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return renderLess(ordered[i], ordered[j], effectivePin)
	})

	view := View{
		Participants: ordered,
		PinnedID:     effectivePin,
		Layout:       layout,
	}

	switch layout {
	case LayoutSpeaker:
		if effectivePin == "" {
			// Speaker layout needs a subject; degrade to grid.
			view.Layout = LayoutGrid
			view.GridColumns = gridColumns(len(ordered))
		} else {
			view.FeaturedID = effectivePin
		}
	case LayoutSidebar:
		if len(ordered) > 0 {
			view.FeaturedID = ordered[0].ID
		}
	default:
		view.GridColumns = gridColumns(len(ordered))
	}

	return view
}

// renderLess implements the sort precedence for the render order.
func renderLess(a, b Participant, pinnedID string) bool {
	if pinnedID != "" {
		if a.ID == pinnedID {
			return b.ID != pinnedID
		}
		if b.ID == pinnedID {
			return false
		}
	} else {
		if a.IsLocal != b.IsLocal {
			return a.IsLocal
		}
	}

	if a.IsSpeaking != b.IsSpeaking {
		return a.IsSpeaking
	}

	aVideo := !a.IsVideoOff
	bVideo := !b.IsVideoOff
	if aVideo != bVideo {
		return aVideo
	}

	return a.JoinedAt.Before(b.JoinedAt)
}

// gridColumns sizes the grid by participant count.
func gridColumns(count int) int {
	switch {
	case count <= 1:
		return 1
	case count <= 4:
		return 2
	case count <= 9:
		return 3
	default:
		return 4
	}
}
