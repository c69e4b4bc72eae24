package reentry

import (
	"testing"
	"time"
)

func h(v float64) *float64 { return &v }

func TestReentryMatchesWithinWindowAndTolerance(t *testing.T) {
	d := New(30000*time.Millisecond, 10)
	base := time.Unix(0, 0)

	d.RecordExit(ExitRecord{PersonID: "p1", JourneyID: "j1", Height: h(175), At: base})

	rec, ok := d.FindMatch(h(176), base.Add(5*time.Second))
	if !ok || rec.PersonID != "p1" {
		t.Fatalf("rec = %+v, ok = %v, want matched p1", rec, ok)
	}
}

func TestReentryWindowBoundary(t *testing.T) {
	d := New(30000*time.Millisecond, 10)
	base := time.Unix(0, 0)
	d.RecordExit(ExitRecord{PersonID: "p1", Height: h(175), At: base})

	if _, ok := d.FindMatch(h(175), base.Add(29999*time.Millisecond)); !ok {
		t.Fatalf("expected match at 29999ms (just within 30000ms window)")
	}

	d2 := New(30000*time.Millisecond, 10)
	d2.RecordExit(ExitRecord{PersonID: "p1", Height: h(175), At: base})
	if _, ok := d2.FindMatch(h(175), base.Add(30001*time.Millisecond)); ok {
		t.Fatalf("expected no match at 30001ms (just past 30000ms window)")
	}
}

func TestReentryHeightToleranceBoundary(t *testing.T) {
	d := New(30000*time.Millisecond, 10)
	base := time.Unix(0, 0)
	d.RecordExit(ExitRecord{PersonID: "p1", Height: h(175), At: base})

	if _, ok := d.FindMatch(h(184.9), base.Add(time.Second)); !ok {
		t.Fatalf("expected match at 9.9cm height delta")
	}

	d2 := New(30000*time.Millisecond, 10)
	d2.RecordExit(ExitRecord{PersonID: "p1", Height: h(175), At: base})
	if _, ok := d2.FindMatch(h(185.1), base.Add(time.Second)); ok {
		t.Fatalf("expected no match at 10.1cm height delta")
	}
}

func TestReentryNoHeightIsNeverMatched(t *testing.T) {
	d := New(30000*time.Millisecond, 10)
	base := time.Unix(0, 0)
	d.RecordExit(ExitRecord{PersonID: "p1", Height: h(175), At: base})

	if _, ok := d.FindMatch(nil, base.Add(time.Second)); ok {
		t.Fatalf("expected no match when the new track has no height reading")
	}
}

func TestReentryNewestExitWinsAndIsConsumed(t *testing.T) {
	d := New(30000*time.Millisecond, 10)
	base := time.Unix(0, 0)

	d.RecordExit(ExitRecord{PersonID: "older", Height: h(175), At: base})
	d.RecordExit(ExitRecord{PersonID: "newer", Height: h(175), At: base.Add(time.Second)})

	rec, ok := d.FindMatch(h(175), base.Add(2*time.Second))
	if !ok || rec.PersonID != "newer" {
		t.Fatalf("rec = %+v, want newer exit to win", rec)
	}

	// The matched exit is consumed; a second lookup must not find it again.
	if _, ok := d.FindMatch(h(175), base.Add(3*time.Second)); !ok {
		t.Fatalf("expected the remaining older exit to still match")
	}
	if _, ok := d.FindMatch(h(175), base.Add(4*time.Second)); ok {
		t.Fatalf("expected both exits consumed after two matches")
	}
}
