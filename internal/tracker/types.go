// Package tracker implements component G, the Tracker: the single-writer
// event loop that fuses ingress.Event into per-person state, drives
// components A-F, and emits egress.Command / journey.Record (spec.md §4.G).
package tracker

import (
	"time"

	"github.com/arcweld-retail/gatetrack/internal/trackmodel"
)

// Person is the Tracker's live view of an active track (spec.md §3).
// Height is immutable once set, per the same invariant.
type Person struct {
	Track         trackmodel.Track
	Zone          trackmodel.Zone
	Height        *float64
	Pos           trackmodel.Position
	ZoneEnteredAt time.Time
	LastSeen      time.Time
}

// stitchSnapshot is the inherited person/journey reference the Stitcher
// carries across a track-delete/track-create gap (spec.md §3 "Pending
// Track... full inherited person/journey reference"). It instantiates the
// generic stitch.Stitcher[T] so internal/stitch never has to import this
// package.
type stitchSnapshot struct {
	PersonID   string
	JourneyID  string
	Height     *float64
	Authorized bool
}
