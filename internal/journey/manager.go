package journey

import (
	"time"

	"github.com/arcweld-retail/gatetrack/internal/trackmodel"
)

type pendingEgress struct {
	journey *Journey
	emitAt  time.Time
}

// Manager owns the journey lifecycle: Active -> (Pending-Egress) ->
// Emitted, with an alternate edge Active -> Discarded (spec.md §4.F).
// Bounded by concurrently-active persons plus whatever is held during the
// emit hold window (spec.md §5: "tens" of entries either way).
type Manager struct {
	hold time.Duration

	byID    map[string]*Journey
	byTrack map[trackmodel.Track]*Journey
	pending []*pendingEgress
}

// NewManager constructs a Manager with the given hold window (spec.md §3,
// §8: default 10s).
func NewManager(hold time.Duration) *Manager {
	return &Manager{
		hold:    hold,
		byID:    make(map[string]*Journey),
		byTrack: make(map[trackmodel.Track]*Journey),
	}
}

// NewJourney implements spec.md §4.F "new_journey": fresh journey id, new
// person id, started-at=now.
func (m *Manager) NewJourney(track trackmodel.Track, now time.Time) *Journey {
	j := &Journey{
		ID:        newID(),
		PersonID:  newID(),
		TrackIDs:  []trackmodel.Track{track},
		StartedAt: now,
		Outcome:   InProgress,
	}
	m.byID[j.ID] = j
	m.byTrack[track] = j
	return j
}

// ByTrack returns the journey currently associated with track, if any.
func (m *Manager) ByTrack(track trackmodel.Track) (*Journey, bool) {
	j, ok := m.byTrack[track]
	return j, ok
}

// ByID returns a journey (active or held in pending-egress) by id.
func (m *Manager) ByID(id string) (*Journey, bool) {
	j, ok := m.byID[id]
	return j, ok
}

// Stitch implements spec.md §4.F "stitch": transfer journey ownership to
// newTrack, append newTrack to the track-id list, and — per invariant 7 —
// if the journey was held in pending-egress, un-close it: remove it from
// pending, clear its outcome, and return it to active.
//
// If journeyID does not resolve (the prior journey was discarded at close
// because it never crossed the entry line — spec.md §4.F "close" discards
// such journeys immediately, before any hold window), Stitch reports
// ok=false; the caller (internal/tracker) falls back to creating a fresh
// journey while still inheriting the stitched person identity.
func (m *Manager) Stitch(journeyID string, newTrack trackmodel.Track, now time.Time, timeDeltaMs, distanceCM float64) (*Journey, bool) {
	j, ok := m.byID[journeyID]
	if !ok {
		return nil, false
	}
	m.unpend(j)
	j.Outcome = InProgress
	j.EndedAt = time.Time{}
	j.TrackIDs = append(j.TrackIDs, newTrack)
	m.byTrack[newTrack] = j
	j.Events = append(j.Events, Event{At: now, Kind: "stitch", Fields: map[string]any{
		"to":          int64(newTrack),
		"time_delta_ms": timeDeltaMs,
		"distance_cm":   distanceCM,
	}})
	return j, true
}

// AddEvent implements spec.md §4.F "add_event": append a typed event to
// track's current journey. No-op if track has no active journey (a
// defensive boundary, not expected on any path the Tracker exercises).
func (m *Manager) AddEvent(track trackmodel.Track, kind string, fields map[string]any, at time.Time) {
	j, ok := m.byTrack[track]
	if !ok {
		return
	}
	j.Events = append(j.Events, Event{At: at, Kind: kind, Fields: fields})
}

// AddDwell accumulates POS dwell onto track's current journey (spec.md §3
// invariant 3: monotonic non-decreasing per (zone, track); delta must
// therefore be >= 0, which the caller in internal/tracker guarantees).
func (m *Manager) AddDwell(track trackmodel.Track, delta time.Duration) {
	j, ok := m.byTrack[track]
	if !ok {
		return
	}
	j.TotalPOSDwell += delta
}

// SetAuthorized implements spec.md §3 invariant 4: authorized transitions
// false->true exactly once and never reverts. Returns whether this call
// performed the transition (false if already authorized or no journey).
func (m *Manager) SetAuthorized(track trackmodel.Track) bool {
	j, ok := m.byTrack[track]
	if !ok || j.Authorized {
		return false
	}
	j.Authorized = true
	return true
}

// Close implements spec.md §4.F "close": set outcome and ended-at; if
// crossed-entry, push to pending-egress with emit-at = now + hold;
// otherwise discard immediately (removed from every index).
func (m *Manager) Close(track trackmodel.Track, outcome Outcome, now time.Time) (*Journey, bool) {
	j, ok := m.byTrack[track]
	if !ok {
		return nil, false
	}
	delete(m.byTrack, track)
	j.Outcome = outcome
	j.EndedAt = now
	if j.CrossedEntry {
		m.pending = append(m.pending, &pendingEgress{journey: j, emitAt: now.Add(m.hold)})
	} else {
		delete(m.byID, j.ID)
	}
	return j, true
}

// Tick implements spec.md §4.F "tick": return and remove every
// pending-egress whose emit-at <= now. Only journeys that crossed the
// entry line are ever in pending-egress (spec.md §4.F "Filtering rule"),
// so every journey returned here is emit-eligible.
func (m *Manager) Tick(now time.Time) []*Journey {
	var ready []*Journey
	kept := m.pending[:0]
	for _, pe := range m.pending {
		if !pe.emitAt.After(now) {
			ready = append(ready, pe.journey)
			delete(m.byID, pe.journey.ID)
			continue
		}
		kept = append(kept, pe)
	}
	m.pending = kept
	return ready
}

// ActiveTracks returns the track ids currently attached to a live journey,
// for shutdown draining (spec.md §4.G "Shutdown").
func (m *Manager) ActiveTracks() []trackmodel.Track {
	out := make([]trackmodel.Track, 0, len(m.byTrack))
	for t := range m.byTrack {
		out = append(out, t)
	}
	return out
}

// ActiveCount returns the number of journeys currently attached to a live
// track (the active-persons gauge, spec.md §6).
func (m *Manager) ActiveCount() int { return len(m.byTrack) }

// AuthorizedCount returns the number of active journeys with Authorized
// set (the authorized-persons gauge, spec.md §6).
func (m *Manager) AuthorizedCount() int {
	n := 0
	for _, j := range m.byTrack {
		if j.Authorized {
			n++
		}
	}
	return n
}

func (m *Manager) unpend(j *Journey) {
	for i, pe := range m.pending {
		if pe.journey == j {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}
