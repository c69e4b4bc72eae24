package journey

import (
	"testing"
	"time"

	"github.com/arcweld-retail/gatetrack/internal/trackmodel"
)

func TestNewJourneyAssignsFreshIdentity(t *testing.T) {
	m := NewManager(10 * time.Second)
	base := time.Unix(0, 0)

	j := m.NewJourney(100, base)
	if j.ID == "" || j.PersonID == "" {
		t.Fatalf("new journey missing id/person id: %+v", j)
	}
	if j.Outcome != InProgress {
		t.Fatalf("new journey outcome = %q, want in-progress", j.Outcome)
	}
	got, ok := m.ByTrack(100)
	if !ok || got != j {
		t.Fatalf("ByTrack(100) = %v, %v, want the journey just created", got, ok)
	}
}

func TestCloseDiscardsUncrossedJourneyImmediately(t *testing.T) {
	m := NewManager(10 * time.Second)
	base := time.Unix(0, 0)

	j := m.NewJourney(100, base)
	// never crossed entry
	closed, ok := m.Close(100, Abandoned, base.Add(time.Second))
	if !ok || closed.Outcome != Abandoned {
		t.Fatalf("close = %+v, %v", closed, ok)
	}
	if _, ok := m.ByID(j.ID); ok {
		t.Fatalf("expected uncrossed journey discarded immediately from ByID index")
	}
	if ready := m.Tick(base.Add(20 * time.Second)); len(ready) != 0 {
		t.Fatalf("discarded journey must never be emitted, got %v", ready)
	}
}

func TestCloseHeldForHoldThenEmitted(t *testing.T) {
	m := NewManager(10 * time.Second)
	base := time.Unix(0, 0)

	j := m.NewJourney(100, base)
	j.CrossedEntry = true
	m.Close(100, Completed, base.Add(time.Second))

	if ready := m.Tick(base.Add(5 * time.Second)); len(ready) != 0 {
		t.Fatalf("expected journey still held within hold window, got %v", ready)
	}
	ready := m.Tick(base.Add(11 * time.Second))
	if len(ready) != 1 || ready[0].ID != j.ID {
		t.Fatalf("ready = %v, want journey emitted after hold elapses", ready)
	}
	if _, ok := m.ByID(j.ID); ok {
		t.Fatalf("expected journey removed from ByID index once emitted")
	}
}

func TestStitchUnclosesHeldJourney(t *testing.T) {
	m := NewManager(10 * time.Second)
	base := time.Unix(0, 0)

	j := m.NewJourney(100, base)
	j.CrossedEntry = true
	m.Close(100, Completed, base.Add(time.Second))

	stitched, ok := m.Stitch(j.ID, 200, base.Add(3*time.Second), 1500, 50)
	if !ok {
		t.Fatalf("expected stitch to succeed onto a held journey")
	}
	if stitched.Outcome != InProgress {
		t.Fatalf("stitched journey outcome = %q, want un-closed to in-progress", stitched.Outcome)
	}
	if !stitched.EndedAt.IsZero() {
		t.Fatalf("expected ended-at cleared on un-close")
	}
	if len(stitched.TrackIDs) != 2 || stitched.TrackIDs[1] != 200 {
		t.Fatalf("track ids = %v, want [100 200]", stitched.TrackIDs)
	}
	got, ok := m.ByTrack(200)
	if !ok || got.ID != j.ID {
		t.Fatalf("ByTrack(200) after stitch = %v, %v", got, ok)
	}
	// Must no longer be pending-egress: a Tick past the original emit-at
	// must not emit it.
	if ready := m.Tick(base.Add(20 * time.Second)); len(ready) != 0 {
		t.Fatalf("un-closed journey must not be emitted by a stale pending entry, got %v", ready)
	}
}

func TestStitchOntoDiscardedJourneyFails(t *testing.T) {
	m := NewManager(10 * time.Second)
	base := time.Unix(0, 0)

	j := m.NewJourney(100, base)
	// never crossed entry -> discarded immediately on close
	m.Close(100, Abandoned, base.Add(time.Second))

	_, ok := m.Stitch(j.ID, 200, base.Add(2*time.Second), 100, 10)
	if ok {
		t.Fatalf("expected stitch onto a discarded (uncrossed) journey to fail")
	}
}

func TestSetAuthorizedIsOneWay(t *testing.T) {
	m := NewManager(10 * time.Second)
	base := time.Unix(0, 0)
	m.NewJourney(100, base)

	if !m.SetAuthorized(100) {
		t.Fatalf("expected first SetAuthorized call to transition false->true")
	}
	if m.SetAuthorized(100) {
		t.Fatalf("expected second SetAuthorized call to be a no-op")
	}
	j, _ := m.ByTrack(100)
	if !j.Authorized {
		t.Fatalf("expected journey to remain authorized")
	}
}

func TestAddDwellAccumulates(t *testing.T) {
	m := NewManager(10 * time.Second)
	base := time.Unix(0, 0)
	m.NewJourney(100, base)

	m.AddDwell(100, 3*time.Second)
	m.AddDwell(100, 2*time.Second)

	j, _ := m.ByTrack(100)
	if j.TotalPOSDwell != 5*time.Second {
		t.Fatalf("total dwell = %v, want 5s", j.TotalPOSDwell)
	}
}

func TestActiveAndAuthorizedCounts(t *testing.T) {
	m := NewManager(10 * time.Second)
	base := time.Unix(0, 0)
	m.NewJourney(100, base)
	m.NewJourney(200, base)
	m.SetAuthorized(100)

	if m.ActiveCount() != 2 {
		t.Fatalf("active count = %d, want 2", m.ActiveCount())
	}
	if m.AuthorizedCount() != 1 {
		t.Fatalf("authorized count = %d, want 1", m.AuthorizedCount())
	}
}

func TestActiveTracksForShutdownDraining(t *testing.T) {
	m := NewManager(10 * time.Second)
	base := time.Unix(0, 0)
	m.NewJourney(100, base)
	m.NewJourney(200, base)

	tracks := m.ActiveTracks()
	if len(tracks) != 2 {
		t.Fatalf("active tracks = %v, want 2 entries", tracks)
	}
	seen := map[trackmodel.Track]bool{}
	for _, tr := range tracks {
		seen[tr] = true
	}
	if !seen[100] || !seen[200] {
		t.Fatalf("active tracks = %v, want {100, 200}", tracks)
	}
}
