package stitch

import (
	"testing"
	"time"

	"github.com/arcweld-retail/gatetrack/internal/trackmodel"
)

func defaultConfig() Config {
	return Config{
		BaseGrace:          4500 * time.Millisecond,
		POSGrace:           8000 * time.Millisecond,
		BaseDistanceCM:     180,
		SameZoneDistanceCM: 300,
		HeightToleranceCM:  10,
		WeightTime:         1.0,
		WeightDistance:     1.0,
	}
}

func height(v float64) *float64 { return &v }

func TestStitchMatchesWithinGraceAndDistance(t *testing.T) {
	s := New[string](defaultConfig())
	base := time.Unix(0, 0)

	s.Register(100, "STORE", false, trackmodel.Position{X: 5, Y: 5}, height(175), base, "snap-100")

	match, expired, ok := s.FindMatch(trackmodel.Position{X: 5.5, Y: 5.1}, height(175.5), "STORE", base.Add(2*time.Second))
	if !ok {
		t.Fatalf("expected a match")
	}
	if expired != 0 {
		t.Fatalf("expired = %d, want 0", expired)
	}
	if match.OldTrack != 100 || match.Snapshot != "snap-100" {
		t.Fatalf("match = %+v, want old track 100 with inherited snapshot", match)
	}
}

func TestStitchGraceBoundaryNonPOS(t *testing.T) {
	s := New[string](defaultConfig())
	base := time.Unix(0, 0)

	s.Register(100, "STORE", false, trackmodel.Position{}, nil, base, "s")
	if _, _, ok := s.FindMatch(trackmodel.Position{}, nil, "STORE", base.Add(4499*time.Millisecond)); !ok {
		t.Fatalf("expected match at 4499ms (just within 4500ms base grace)")
	}

	s2 := New[string](defaultConfig())
	s2.Register(100, "STORE", false, trackmodel.Position{}, nil, base, "s")
	if _, _, ok := s2.FindMatch(trackmodel.Position{}, nil, "STORE", base.Add(4501*time.Millisecond)); ok {
		t.Fatalf("expected no match at 4501ms (just past 4500ms base grace)")
	}
}

func TestStitchGraceBoundaryPOS(t *testing.T) {
	s := New[string](defaultConfig())
	base := time.Unix(0, 0)

	s.Register(100, "POS_1", true, trackmodel.Position{}, nil, base, "s")
	if _, _, ok := s.FindMatch(trackmodel.Position{}, nil, "POS_1", base.Add(7999*time.Millisecond)); !ok {
		t.Fatalf("expected match at 7999ms (just within 8000ms POS grace)")
	}

	s2 := New[string](defaultConfig())
	s2.Register(100, "POS_1", true, trackmodel.Position{}, nil, base, "s")
	if _, _, ok := s2.FindMatch(trackmodel.Position{}, nil, "POS_1", base.Add(8001*time.Millisecond)); ok {
		t.Fatalf("expected no match at 8001ms (just past 8000ms POS grace)")
	}
}

func TestStitchDistanceBoundaryBase(t *testing.T) {
	s := New[string](defaultConfig())
	base := time.Unix(0, 0)

	s.Register(100, "STORE", false, trackmodel.Position{X: 0, Y: 0}, nil, base, "s")
	if _, _, ok := s.FindMatch(trackmodel.Position{X: 179, Y: 0}, nil, "GATE", base.Add(time.Second)); !ok {
		t.Fatalf("expected match at 179cm (just within 180cm base distance, cross-zone)")
	}

	s2 := New[string](defaultConfig())
	s2.Register(100, "STORE", false, trackmodel.Position{X: 0, Y: 0}, nil, base, "s")
	if _, _, ok := s2.FindMatch(trackmodel.Position{X: 181, Y: 0}, nil, "GATE", base.Add(time.Second)); ok {
		t.Fatalf("expected no match at 181cm (just past 180cm base distance, cross-zone)")
	}
}

func TestStitchDistanceBoundarySameZone(t *testing.T) {
	s := New[string](defaultConfig())
	base := time.Unix(0, 0)

	s.Register(100, "STORE", false, trackmodel.Position{X: 0, Y: 0}, nil, base, "s")
	if _, _, ok := s.FindMatch(trackmodel.Position{X: 299, Y: 0}, nil, "STORE", base.Add(time.Second)); !ok {
		t.Fatalf("expected match at 299cm same-zone (just within 300cm)")
	}

	s2 := New[string](defaultConfig())
	s2.Register(100, "STORE", false, trackmodel.Position{X: 0, Y: 0}, nil, base, "s")
	if _, _, ok := s2.FindMatch(trackmodel.Position{X: 301, Y: 0}, nil, "STORE", base.Add(time.Second)); ok {
		t.Fatalf("expected no match at 301cm same-zone (just past 300cm)")
	}
}

func TestStitchHeightToleranceBoundary(t *testing.T) {
	s := New[string](defaultConfig())
	base := time.Unix(0, 0)

	s.Register(100, "STORE", false, trackmodel.Position{}, height(175), base, "s")
	if _, _, ok := s.FindMatch(trackmodel.Position{}, height(184.9), "STORE", base.Add(time.Second)); !ok {
		t.Fatalf("expected match at 9.9cm height delta (just within 10cm tolerance)")
	}

	s2 := New[string](defaultConfig())
	s2.Register(100, "STORE", false, trackmodel.Position{}, height(175), base, "s")
	if _, _, ok := s2.FindMatch(trackmodel.Position{}, height(185.1), "STORE", base.Add(time.Second)); ok {
		t.Fatalf("expected no match at 10.1cm height delta (just past 10cm tolerance)")
	}
}

func TestStitchNoMatchIsNotAnError(t *testing.T) {
	s := New[string](defaultConfig())
	base := time.Unix(0, 0)

	if _, _, ok := s.FindMatch(trackmodel.Position{X: 1000, Y: 1000}, nil, "STORE", base); ok {
		t.Fatalf("expected no match against an empty pending set")
	}
}

func TestStitchExpiredCountedOnScan(t *testing.T) {
	s := New[string](defaultConfig())
	base := time.Unix(0, 0)

	s.Register(100, "STORE", false, trackmodel.Position{}, nil, base, "s")
	_, expired, ok := s.FindMatch(trackmodel.Position{}, nil, "STORE", base.Add(10*time.Second))
	if ok {
		t.Fatalf("expected no match once grace has elapsed")
	}
	if expired != 1 {
		t.Fatalf("expired = %d, want 1", expired)
	}
	if s.Len() != 0 {
		t.Fatalf("pending len = %d, want 0 after expiration", s.Len())
	}
}

func TestStitchZoneContinuityPreferredAtEqualScore(t *testing.T) {
	cfg := defaultConfig()
	s := New[string](cfg)
	base := time.Unix(0, 0)

	// Both candidates deleted at the same instant and equidistant, but one
	// shares the new track's zone.
	s.Register(100, "STORE", false, trackmodel.Position{X: 0, Y: 0}, nil, base, "cross-zone")
	s.Register(200, "GATE", false, trackmodel.Position{X: 0, Y: 0}, nil, base, "same-zone")

	match, _, ok := s.FindMatch(trackmodel.Position{X: 0, Y: 0}, nil, "GATE", base.Add(time.Second))
	if !ok {
		t.Fatalf("expected a match")
	}
	if match.Snapshot != "same-zone" {
		t.Fatalf("match snapshot = %q, want same-zone candidate preferred at equal score", match.Snapshot)
	}
}
