// Package reentry implements component E, the Re-entry Detector: linking a
// new track that crosses the entry line shortly after a prior journey
// ended, using height similarity (spec.md §4.E).
package reentry

import "time"

// ExitRecord is what the detector remembers about a journey that just
// crossed the exit line.
type ExitRecord struct {
	PersonID  string
	JourneyID string
	Height    *float64
	At        time.Time
}

// Detector matches a newly-created person against recent exits.
type Detector struct {
	window time.Duration
	tolCM  float64
	exits  []ExitRecord
}

// New constructs a Detector with the re-entry window and height tolerance
// from spec.md §4.E / §8.
func New(window time.Duration, toleranceCM float64) *Detector {
	return &Detector{window: window, tolCM: toleranceCM}
}

// RecordExit implements spec.md §4.E "On exit-line forward cross": record
// the journey's person id, height, and instant.
func (d *Detector) RecordExit(rec ExitRecord) {
	d.exits = append(d.exits, rec)
}

// FindMatch implements spec.md §4.E "On entry-line forward cross": within
// the window and height tolerance, only the newest eligible exit wins; a
// match consumes that exit record so it cannot be linked twice.
func (d *Detector) FindMatch(newHeight *float64, now time.Time) (ExitRecord, bool) {
	d.prune(now)
	if newHeight == nil {
		return ExitRecord{}, false
	}
	bestIdx := -1
	var best ExitRecord
	for i, e := range d.exits {
		if e.Height == nil {
			continue
		}
		dh := *newHeight - *e.Height
		if dh < 0 {
			dh = -dh
		}
		if dh > d.tolCM {
			continue
		}
		if bestIdx == -1 || e.At.After(best.At) {
			bestIdx, best = i, e
		}
	}
	if bestIdx == -1 {
		return ExitRecord{}, false
	}
	d.exits = append(d.exits[:bestIdx], d.exits[bestIdx+1:]...)
	return best, true
}

func (d *Detector) prune(now time.Time) {
	kept := d.exits[:0]
	for _, e := range d.exits {
		if now.Sub(e.At) <= d.window {
			kept = append(kept, e)
		}
	}
	d.exits = kept
}
