// Package payment implements component D, the Payment Correlator: mapping
// a payment event to the best person candidate currently or recently at
// the paying terminal's zone (spec.md §4.D).
package payment

import (
	"time"

	"github.com/arcweld-retail/gatetrack/internal/trackmodel"
)

// Occupancy is the subset of internal/pos.Occupancy the correlator reads.
type Occupancy interface {
	Candidates(zone trackmodel.Zone, minDwell, grace time.Duration, now time.Time) []trackmodel.Track
	Dwell(zone trackmodel.Zone, track trackmodel.Track, now time.Time) time.Duration
}

// Config holds the matching thresholds from spec.md §4.D / §8.
type Config struct {
	MinDwell     time.Duration
	Grace        time.Duration
	FlickerMerge time.Duration
	SourceZones  map[string]trackmodel.Zone
}

type recent struct {
	source  string
	matched trackmodel.Track
	at      time.Time
}

// Correlator matches payment events to occupancy candidates and tracks
// group membership (spec.md §4.D's "group association event stream").
type Correlator struct {
	cfg     Config
	occ     Occupancy
	groups  map[trackmodel.Track][]trackmodel.Track // group track -> members
	memberOf map[trackmodel.Track]trackmodel.Track   // member -> group track
	recent  []recent
}

// New constructs a Correlator reading presence/dwell from occ.
func New(cfg Config, occ Occupancy) *Correlator {
	return &Correlator{
		cfg: cfg, occ: occ,
		groups:   make(map[trackmodel.Track][]trackmodel.Track),
		memberOf: make(map[trackmodel.Track]trackmodel.Track),
	}
}

// SetGroup implements spec.md SPEC_FULL.md §I: records group membership
// from the dedicated group-association stream.
func (c *Correlator) SetGroup(group trackmodel.Track, members []trackmodel.Track) {
	c.groups[group] = append([]trackmodel.Track(nil), members...)
	for _, m := range members {
		c.memberOf[m] = group
	}
}

// GroupMembers returns the full member list of track's group (track itself
// included when it is a member), or the members of the group track itself
// when track is a group id; nil if track belongs to no group.
func (c *Correlator) GroupMembers(track trackmodel.Track) []trackmodel.Track {
	group, ok := c.memberOf[track]
	if !ok {
		if members, ok := c.groups[track]; ok {
			return members
		}
		return nil
	}
	return c.groups[group]
}

// Result is the outcome of matching a single payment event.
type Result struct {
	Matched      bool
	Track        trackmodel.Track
	GroupMembers []trackmodel.Track
	Deduplicated bool // coalesced with a recent payment from the same source
}

// OnPayment implements spec.md §4.D: maps source to zone via
// cfg.SourceZones, queries Occupancy for candidates, and applies the §4.D
// selection rule. receiptID is accepted for interface parity with
// spec.md §4.D's signature but this engine de-duplicates purely on
// source + time window, since receipts from the same terminal within the
// flicker-merge window are definitionally the same physical payment.
func (c *Correlator) OnPayment(source string, receiptID string, now time.Time) Result {
	_ = receiptID
	c.pruneRecent(now)

	zone, ok := c.cfg.SourceZones[source]
	if !ok {
		return Result{}
	}

	for _, r := range c.recent {
		if r.source == source {
			return Result{Matched: true, Track: r.matched, GroupMembers: c.GroupMembers(r.matched), Deduplicated: true}
		}
	}

	cands := c.occ.Candidates(zone, c.cfg.MinDwell, c.cfg.Grace, now)
	track, ok := c.selectBest(zone, cands, now)
	if !ok {
		return Result{}
	}
	c.recent = append(c.recent, recent{source: source, matched: track, at: now})
	return Result{Matched: true, Track: track, GroupMembers: c.GroupMembers(track)}
}

// selectBest implements spec.md §4.D "Selection": exactly one -> match;
// multiple -> prefer present with larger dwell, tie by more recent
// activity (internal/pos.Candidates already returns tracks in this
// preference order, so the best candidate is simply the first one);
// none -> unmatched.
func (c *Correlator) selectBest(zone trackmodel.Zone, cands []trackmodel.Track, now time.Time) (trackmodel.Track, bool) {
	if len(cands) == 0 {
		return 0, false
	}
	return cands[0], true
}

func (c *Correlator) pruneRecent(now time.Time) {
	kept := c.recent[:0]
	for _, r := range c.recent {
		if now.Sub(r.at) <= c.cfg.FlickerMerge {
			kept = append(kept, r)
		}
	}
	c.recent = kept
}
