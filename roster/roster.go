// Package roster maintains the live set of call participants and computes
// the render ordering consumed by the video surface layer.
//
// The roster follows a single-writer, many-reader model: only the session
// controller's event dispatch mutates participant records, while the
// prioritizer and renderer read immutable snapshots. No caller ever
// mutates a Participant obtained from a snapshot; updates flow exclusively
// through roster events.
package roster

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// LocalID is the reserved participant id for the caller's own participant.
// It is never removed by remote events.
const LocalID = "local"

// Participant is a single member of the session roster.
type Participant struct {
	ID              string
	DisplayName     string
	IsLocal         bool
	IsHost          bool
	IsSpeaking      bool
	IsVideoOff      bool
	IsScreenSharing bool
	IsHandRaised    bool
	JoinedAt        time.Time
	TrackKeys       []string // Published media stream keys
}

// clone returns a deep copy safe to hand to readers.
func (p *Participant) clone() Participant {
	out := *p
	out.TrackKeys = append([]string(nil), p.TrackKeys...)
	return out
}

// Roster is the mutable participant set for one session.
//
// All mutation methods are intended to be called from a single writer (the
// session controller's event dispatch). Snapshot may be called from any
// goroutine.
type Roster struct {
	mu           sync.RWMutex
	participants map[string]*Participant
}

// New creates an empty roster.
func New() *Roster {
	return &Roster{
		participants: make(map[string]*Participant),
	}
}

// SetLocal creates or replaces the local participant record.
func (r *Roster) SetLocal(displayName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.participants[LocalID] = &Participant{
		ID:          LocalID,
		DisplayName: displayName,
		IsLocal:     true,
		JoinedAt:    time.Now(),
	}

	logrus.WithFields(logrus.Fields{
		"function":     "SetLocal",
		"display_name": displayName,
	}).Debug("Local participant registered")
}

// Join adds a remote participant. An existing record with the same id is
// replaced, which makes replayed join events harmless.
func (r *Roster) Join(p Participant) {
	if p.ID == LocalID {
		logrus.WithFields(logrus.Fields{
			"function": "Join",
			"id":       p.ID,
		}).Warn("Ignoring remote join event for reserved local id")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now()
	}
	stored := p.clone()
	r.participants[p.ID] = &stored

	logrus.WithFields(logrus.Fields{
		"function":     "Join",
		"id":           p.ID,
		"display_name": p.DisplayName,
		"roster_size":  len(r.participants),
	}).Info("Participant joined")
}

// Leave removes a remote participant. The reserved local participant is
// never removed by remote events; callers tearing down the session should
// use Clear instead.
func (r *Roster) Leave(id string) {
	if id == LocalID {
		logrus.WithFields(logrus.Fields{
			"function": "Leave",
			"id":       id,
		}).Warn("Ignoring remote leave event for reserved local id")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.participants[id]; !exists {
		return
	}
	delete(r.participants, id)

	logrus.WithFields(logrus.Fields{
		"function":    "Leave",
		"id":          id,
		"roster_size": len(r.participants),
	}).Info("Participant left")
}

// Update applies a state change to an existing participant in place.
// Unknown ids are ignored; an update racing ahead of its join event is not
// an error.
func (r *Roster) Update(id string, apply func(*Participant)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.participants[id]
	if !exists {
		logrus.WithFields(logrus.Fields{
			"function": "Update",
			"id":       id,
		}).Debug("Ignoring update for unknown participant")
		return
	}
	apply(p)
}

// SetStreamPublished records a published or unpublished media stream key
// for a participant.
func (r *Roster) SetStreamPublished(id, key string, published bool) {
	r.Update(id, func(p *Participant) {
		if published {
			for _, k := range p.TrackKeys {
				if k == key {
					return
				}
			}
			p.TrackKeys = append(p.TrackKeys, key)
			return
		}

		kept := p.TrackKeys[:0]
		for _, k := range p.TrackKeys {
			if k != key {
				kept = append(kept, k)
			}
		}
		p.TrackKeys = kept
	})
}

// Get returns a copy of the participant with the given id.
func (r *Roster) Get(id string) (Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.participants[id]
	if !exists {
		return Participant{}, false
	}
	return p.clone(), true
}

// Snapshot returns copies of all participants. The returned slice is owned
// by the caller and carries no ordering guarantee; ordering is the
// prioritizer's concern.
func (r *Roster) Snapshot() []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, p.clone())
	}
	return out
}

// Count returns the current number of participants, local included.
func (r *Roster) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}

// Clear removes every participant, the local one included. Used on session
// teardown.
func (r *Roster) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.participants = make(map[string]*Participant)

	logrus.WithFields(logrus.Fields{
		"function": "Clear",
	}).Debug("Roster cleared")
}
