// Package journey implements component F, the Journey Manager: journey
// lifecycle (create, merge on stitch, append events, close,
// hold-before-emit) per spec.md §4.F. Journey identity uses a
// time-ordered UUID (google/uuid's NewV7), exactly as spec.md §3 names it.
package journey

import (
	"time"

	"github.com/google/uuid"

	"github.com/arcweld-retail/gatetrack/internal/trackmodel"
)

// Outcome is set exactly once, at close (spec.md §3 invariant 5).
type Outcome string

const (
	InProgress  Outcome = ""
	Completed   Outcome = "completed"
	Abandoned   Outcome = "abandoned"
	LostWithAcc Outcome = "lost_with_acc"
)

// Event is one typed entry in a journey's ordered event list (spec.md §3).
// Kind is one of: entry_cross, exit_cross, approach_cross, zone_entry,
// zone_exit, payment, gate_command, gate_open, stitch, pending,
// dwell_threshold_met. Fields
// carries the short-key, typed payload for that kind; the key set per
// Kind is documented in tracker.go where events are appended.
type Event struct {
	At     time.Time      `json:"t"`
	Kind   string         `json:"k"`
	Fields map[string]any `json:"f,omitempty"`
}

// Record is the short-key JSON shape emitted to the journey sink
// (spec.md §3 "Short-key JSON record").
type Record struct {
	ID              string    `json:"id"`
	PersonID        string    `json:"pid"`
	TrackIDs        []int64   `json:"tracks"`
	ParentJourneyID string    `json:"parent,omitempty"`
	CrossedEntry    bool      `json:"entered"`
	Authorized      bool      `json:"auth"`
	ACCMatched      bool      `json:"acc"`
	GateWasOpen     bool      `json:"gate_was_open"`
	ReturnedToStore bool      `json:"returned,omitempty"`
	StartedAtMs     int64     `json:"start_ms"`
	EndedAtMs       int64     `json:"end_ms,omitempty"`
	GateCommandAtMs int64     `json:"gate_cmd_ms,omitempty"`
	GateOpenedAtMs  int64     `json:"gate_open_ms,omitempty"`
	TotalPOSDwellMs int64     `json:"dwell_ms"`
	Outcome         Outcome   `json:"outcome"`
	Events          []Event   `json:"events,omitempty"`
}

// Journey is the engine's live view of a person's journey through the
// store. Field meanings follow spec.md §3 exactly.
type Journey struct {
	ID              string
	PersonID        string
	TrackIDs        []trackmodel.Track
	ParentJourneyID string

	CrossedEntry    bool
	Authorized      bool
	ACCMatched      bool
	GateWasOpen     bool
	ReturnedToStore bool

	StartedAt     time.Time
	EndedAt       time.Time
	GateCommandAt time.Time
	GateOpenedAt  time.Time

	TotalPOSDwell time.Duration
	Outcome       Outcome

	Events []Event
}

// newID mints a time-ordered UUID. uuid.NewV7 only fails on exhausted
// system entropy; in that case newID falls back to a random v4 rather
// than surface an error through every journey-creating call site.
func newID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// ToRecord converts j into the short-key JSON shape for the journey sink.
func (j *Journey) ToRecord() Record {
	tracks := make([]int64, len(j.TrackIDs))
	for i, t := range j.TrackIDs {
		tracks[i] = int64(t)
	}
	r := Record{
		ID:              j.ID,
		PersonID:        j.PersonID,
		TrackIDs:        tracks,
		ParentJourneyID: j.ParentJourneyID,
		CrossedEntry:    j.CrossedEntry,
		Authorized:      j.Authorized,
		ACCMatched:      j.ACCMatched,
		GateWasOpen:     j.GateWasOpen,
		ReturnedToStore: j.ReturnedToStore,
		TotalPOSDwellMs: j.TotalPOSDwell.Milliseconds(),
		Outcome:         j.Outcome,
		Events:          j.Events,
	}
	if !j.StartedAt.IsZero() {
		r.StartedAtMs = j.StartedAt.UnixMilli()
	}
	if !j.EndedAt.IsZero() {
		r.EndedAtMs = j.EndedAt.UnixMilli()
	}
	if !j.GateCommandAt.IsZero() {
		r.GateCommandAtMs = j.GateCommandAt.UnixMilli()
	}
	if !j.GateOpenedAt.IsZero() {
		r.GateOpenedAtMs = j.GateOpenedAt.UnixMilli()
	}
	return r
}
