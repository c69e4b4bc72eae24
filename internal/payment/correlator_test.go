package payment

import (
	"testing"
	"time"

	"github.com/arcweld-retail/gatetrack/internal/trackmodel"
)

type fakeOccupancy struct {
	cands map[trackmodel.Zone][]trackmodel.Track
}

func (f *fakeOccupancy) Candidates(zone trackmodel.Zone, minDwell, grace time.Duration, now time.Time) []trackmodel.Track {
	return f.cands[zone]
}

func (f *fakeOccupancy) Dwell(zone trackmodel.Zone, track trackmodel.Track, now time.Time) time.Duration {
	return 0
}

func testConfig() Config {
	return Config{
		MinDwell:     7000 * time.Millisecond,
		Grace:        5000 * time.Millisecond,
		FlickerMerge: 10000 * time.Millisecond,
		SourceZones:  map[string]trackmodel.Zone{"POS_1": "POS_1"},
	}
}

func TestPaymentUnknownSourceIsUnmatched(t *testing.T) {
	occ := &fakeOccupancy{cands: map[trackmodel.Zone][]trackmodel.Track{}}
	c := New(testConfig(), occ)

	res := c.OnPayment("POS_99", "r1", time.Unix(0, 0))
	if res.Matched {
		t.Fatalf("expected unmatched for unconfigured source")
	}
}

func TestPaymentNoCandidatesIsUnmatched(t *testing.T) {
	occ := &fakeOccupancy{cands: map[trackmodel.Zone][]trackmodel.Track{"POS_1": {}}}
	c := New(testConfig(), occ)

	res := c.OnPayment("POS_1", "r1", time.Unix(0, 0))
	if res.Matched {
		t.Fatalf("expected unmatched when no occupancy candidates are present")
	}
}

func TestPaymentSingleCandidateMatches(t *testing.T) {
	occ := &fakeOccupancy{cands: map[trackmodel.Zone][]trackmodel.Track{"POS_1": {100}}}
	c := New(testConfig(), occ)

	res := c.OnPayment("POS_1", "r1", time.Unix(0, 0))
	if !res.Matched || res.Track != 100 {
		t.Fatalf("res = %+v, want matched track 100", res)
	}
}

func TestPaymentPrefersFirstCandidate(t *testing.T) {
	occ := &fakeOccupancy{cands: map[trackmodel.Zone][]trackmodel.Track{"POS_1": {200, 100}}}
	c := New(testConfig(), occ)

	res := c.OnPayment("POS_1", "r1", time.Unix(0, 0))
	if !res.Matched || res.Track != 200 {
		t.Fatalf("res = %+v, want the occupancy-preferred candidate (200) first", res)
	}
}

func TestPaymentFlickerMergeDeduplicatesWithinWindow(t *testing.T) {
	occ := &fakeOccupancy{cands: map[trackmodel.Zone][]trackmodel.Track{"POS_1": {100}}}
	c := New(testConfig(), occ)
	base := time.Unix(0, 0)

	first := c.OnPayment("POS_1", "r1", base)
	if first.Deduplicated {
		t.Fatalf("first payment should not be marked deduplicated")
	}

	// A second, distinct receipt from the same terminal within the flicker
	// window is treated as the same physical payment (spec.md §4.D).
	occ.cands["POS_1"] = []trackmodel.Track{999} // even if occupancy has changed underneath
	second := c.OnPayment("POS_1", "r2", base.Add(9999*time.Millisecond))
	if !second.Matched || !second.Deduplicated || second.Track != 100 {
		t.Fatalf("second payment = %+v, want deduplicated match to original track 100", second)
	}
}

func TestPaymentFlickerMergeBoundary(t *testing.T) {
	occ := &fakeOccupancy{cands: map[trackmodel.Zone][]trackmodel.Track{"POS_1": {100}}}
	c := New(testConfig(), occ)
	base := time.Unix(0, 0)

	c.OnPayment("POS_1", "r1", base)

	res := c.OnPayment("POS_1", "r2", base.Add(10001*time.Millisecond))
	if res.Deduplicated {
		t.Fatalf("expected flicker-merge window to have elapsed at 10001ms (past 10000ms)")
	}
}

func TestPaymentGroupMembersAttachedToMatch(t *testing.T) {
	occ := &fakeOccupancy{cands: map[trackmodel.Zone][]trackmodel.Track{"POS_1": {100}}}
	c := New(testConfig(), occ)
	c.SetGroup(100, []trackmodel.Track{100, 200, 300})

	res := c.OnPayment("POS_1", "r1", time.Unix(0, 0))
	if !res.Matched || len(res.GroupMembers) != 3 {
		t.Fatalf("res.GroupMembers = %v, want 3 members", res.GroupMembers)
	}
}

func TestPaymentGroupLookupFromMemberSide(t *testing.T) {
	c := New(testConfig(), &fakeOccupancy{})
	c.SetGroup(100, []trackmodel.Track{100, 200})

	members := c.GroupMembers(200)
	if len(members) != 2 {
		t.Fatalf("members via peer lookup = %v, want 2", members)
	}
}
