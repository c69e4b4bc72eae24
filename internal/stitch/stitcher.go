// Package stitch implements component B, the Stitcher: reconnecting a
// freshly-created track to a recently-deleted one using spatial/temporal
// proximity (spec.md §4.B). It is generic over the inherited snapshot type
// so it never needs to import internal/journey or internal/tracker — it
// carries whatever the Tracker asks it to carry (the "arena + index"
// pattern from DESIGN.md: cross-references are small values, not live
// pointers into another component's state).
package stitch

import (
	"time"

	"github.com/arcweld-retail/gatetrack/internal/trackmodel"
)

// Config holds the matching thresholds from spec.md §4.B / §8.
type Config struct {
	BaseGrace         time.Duration
	POSGrace          time.Duration
	BaseDistanceCM    float64
	SameZoneDistanceCM float64
	HeightToleranceCM float64
	WeightTime        float64
	WeightDistance    float64
}

type pending[T any] struct {
	track     trackmodel.Track
	zone      trackmodel.Zone
	pos       trackmodel.Position
	height    *float64
	deletedAt time.Time
	grace     time.Duration
	snapshot  T
}

// Stitcher holds recently-deleted tracks awaiting a successor. T is the
// caller-defined snapshot carried forward on a match (in this module, the
// Tracker instantiates Stitcher[stitchSnapshot]).
type Stitcher[T any] struct {
	cfg     Config
	pending []*pending[T]
}

// New constructs a Stitcher with the given matching configuration.
func New[T any](cfg Config) *Stitcher[T] {
	return &Stitcher[T]{cfg: cfg}
}

// Register implements spec.md §4.B "On track-delete": record a pending
// entry carrying the last known position/height/zone and an
// arbitrary inherited snapshot (e.g. person id, authorized flag, journey
// id) the Tracker wants restored if a match is later found.
func (s *Stitcher[T]) Register(track trackmodel.Track, zone trackmodel.Zone, wasPOSZone bool, pos trackmodel.Position, height *float64, now time.Time, snapshot T) {
	grace := s.cfg.BaseGrace
	if wasPOSZone {
		grace = s.cfg.POSGrace
	}
	s.pending = append(s.pending, &pending[T]{
		track: track, zone: zone, pos: pos, height: height,
		deletedAt: now, grace: grace, snapshot: snapshot,
	})
}

// Match is the result of a successful FindMatch.
type Match[T any] struct {
	OldTrack     trackmodel.Track
	Snapshot     T
	TimeDeltaMs  float64
	DistanceCM   float64
}

// FindMatch implements spec.md §4.B "On track-create": scans all pending
// entries (newest first), expiring stale ones, and returns the best-
// scoring match if any qualifies. The common case is no match; that is
// not an error (§4.B "Failure").
// FindMatch's second return value is the number of pending entries that
// expired during this scan, for the stitch-expired counter (spec.md §6).
func (s *Stitcher[T]) FindMatch(newPos trackmodel.Position, newHeight *float64, newZone trackmodel.Zone, now time.Time) (Match[T], int, bool) {
	expired := s.expire(now)

	var (
		best      *pending[T]
		bestScore float64
		bestDelta float64
		bestDist  float64
		bestSame  bool
	)
	// Newest first: pending is append-ordered, so iterate in reverse.
	for i := len(s.pending) - 1; i >= 0; i-- {
		p := s.pending[i]
		elapsed := now.Sub(p.deletedAt)
		if elapsed > p.grace {
			continue
		}
		sameZone := newZone != "" && newZone == p.zone
		maxDist := s.cfg.BaseDistanceCM
		if sameZone {
			maxDist = s.cfg.SameZoneDistanceCM
		}
		dist := newPos.PlaneDistance(p.pos)
		if dist > maxDist {
			continue
		}
		if newHeight != nil && p.height != nil {
			dh := *newHeight - *p.height
			if dh < 0 {
				dh = -dh
			}
			if dh > s.cfg.HeightToleranceCM {
				continue
			}
		}
		deltaMs := float64(elapsed.Milliseconds())
		score := deltaMs*s.cfg.WeightTime + dist*s.cfg.WeightDistance

		switch {
		case best == nil:
			best, bestScore, bestDelta, bestDist, bestSame = p, score, deltaMs, dist, sameZone
		case score < bestScore:
			best, bestScore, bestDelta, bestDist, bestSame = p, score, deltaMs, dist, sameZone
		case score == bestScore:
			// Zone continuity preferred at equal score.
			if sameZone && !bestSame {
				best, bestScore, bestDelta, bestDist, bestSame = p, score, deltaMs, dist, sameZone
			} else if sameZone == bestSame && deltaMs < bestDelta {
				best, bestScore, bestDelta, bestDist, bestSame = p, score, deltaMs, dist, sameZone
			}
		}
	}
	if best == nil {
		return Match[T]{}, expired, false
	}
	s.remove(best)
	return Match[T]{OldTrack: best.track, Snapshot: best.snapshot, TimeDeltaMs: bestDelta, DistanceCM: bestDist}, expired, true
}

// expire implements spec.md §4.B "Expiration": pending entries past their
// per-entry grace are discarded on every scan. Returns the count removed,
// for the stitch-expired counter (spec.md §6).
func (s *Stitcher[T]) expire(now time.Time) int {
	kept := s.pending[:0]
	removed := 0
	for _, p := range s.pending {
		if now.Sub(p.deletedAt) <= p.grace {
			kept = append(kept, p)
		} else {
			removed++
		}
	}
	s.pending = kept
	return removed
}

func (s *Stitcher[T]) remove(target *pending[T]) {
	for i, p := range s.pending {
		if p == target {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

// Len reports the number of pending entries, for memory-bound diagnostics
// (spec.md §5).
func (s *Stitcher[T]) Len() int { return len(s.pending) }
