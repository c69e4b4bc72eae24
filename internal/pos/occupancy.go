// Package pos implements component A, POS Occupancy: per-zone presence and
// accumulated dwell per track, with a grace window after exit (spec.md
// §4.A). The per-zone hard cap + oldest-last-activity eviction is adapted
// from the teacher's engine/resources.Manager LRU cache (container/list +
// map), repurposed here from "page cache entries" to "(zone, track)
// occupancy entries".
package pos

import (
	"container/list"
	"sync"
	"time"

	"github.com/arcweld-retail/gatetrack/internal/trackmodel"
)

// Entry is a POS Occupancy Entry keyed by (zone, track), per spec.md §3.
type Entry struct {
	Zone         trackmodel.Zone
	Track        trackmodel.Track
	Present      bool
	EntryAt      time.Time
	LastActivity time.Time
	Dwell        time.Duration
}

type zoneState struct {
	entries map[trackmodel.Track]*list.Element // value *Entry, list ordered by last-activity (front = most recent)
	lru     *list.List
}

// Occupancy tracks presence and dwell per (zone, track). All operations are
// safe for concurrent use, though in this module only the single Tracker
// goroutine ever calls in (spec.md §5: single-writer).
type Occupancy struct {
	mu    sync.Mutex
	zones map[trackmodel.Zone]*zoneState
	cap   int           // hard cap per zone, spec.md §3 ("default 100")
	grace time.Duration // default grace window, used to prune on every entry/exit
}

// New constructs an Occupancy tracker with the given per-zone cap and
// default grace window (used to prune stale entries on every operation,
// per spec.md §4.A "Expiration").
func New(perZoneCap int, grace time.Duration) *Occupancy {
	if perZoneCap <= 0 {
		perZoneCap = 100
	}
	return &Occupancy{zones: make(map[trackmodel.Zone]*zoneState), cap: perZoneCap, grace: grace}
}

func (o *Occupancy) zoneFor(zone trackmodel.Zone) *zoneState {
	z, ok := o.zones[zone]
	if !ok {
		z = &zoneState{entries: make(map[trackmodel.Track]*list.Element), lru: list.New()}
		o.zones[zone] = z
	}
	return z
}

// OnZoneEntry implements spec.md §4.A "Entry": create if absent, flip
// present=true from a grace-held entry, or reset entry=now on a double-
// entry (a no-op for dwell accounting).
func (o *Occupancy) OnZoneEntry(zone trackmodel.Zone, track trackmodel.Track, now time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	z := o.zoneFor(zone)
	if el, ok := z.entries[track]; ok {
		e := el.Value.(*Entry)
		e.Present = true
		e.EntryAt = now
		e.LastActivity = now
		z.lru.MoveToFront(el)
		return
	}
	e := &Entry{Zone: zone, Track: track, Present: true, EntryAt: now, LastActivity: now}
	el := z.lru.PushFront(e)
	z.entries[track] = el
	o.pruneLocked(z, o.grace, now)
	o.evictIfOverCap(z)
}

// OnZoneExit implements spec.md §4.A "Exit": accumulate dwell, flip
// present=false, retain the entry for the grace window. Double-exit is a
// no-op.
func (o *Occupancy) OnZoneExit(zone trackmodel.Zone, track trackmodel.Track, now time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	z, ok := o.zones[zone]
	if !ok {
		return
	}
	el, ok := z.entries[track]
	if !ok {
		return
	}
	e := el.Value.(*Entry)
	if !e.Present {
		return // double-exit, ignored
	}
	e.Dwell += now.Sub(e.EntryAt)
	e.Present = false
	e.EntryAt = time.Time{}
	e.LastActivity = now
	z.lru.MoveToFront(el)
	o.pruneLocked(z, o.grace, now)
}

// Dwell returns the accumulated dwell for (zone, track), including the
// in-progress visit if currently present.
func (o *Occupancy) Dwell(zone trackmodel.Zone, track trackmodel.Track, now time.Time) time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	z, ok := o.zones[zone]
	if !ok {
		return 0
	}
	el, ok := z.entries[track]
	if !ok {
		return 0
	}
	e := el.Value.(*Entry)
	d := e.Dwell
	if e.Present {
		d += now.Sub(e.EntryAt)
	}
	return d
}

// Present returns the tracks currently present in zone.
func (o *Occupancy) Present(zone trackmodel.Zone) []trackmodel.Track {
	o.mu.Lock()
	defer o.mu.Unlock()
	z, ok := o.zones[zone]
	if !ok {
		return nil
	}
	var out []trackmodel.Track
	for e := z.lru.Front(); e != nil; e = e.Next() {
		entry := e.Value.(*Entry)
		if entry.Present {
			out = append(out, entry.Track)
		}
	}
	return out
}

// Candidates implements spec.md §4.A "Candidates": tracks present, or
// exited within grace, whose accumulated dwell meets minDwell, ordered by
// the §4.A preference (present before exited; larger dwell; more recent
// activity).
func (o *Occupancy) Candidates(zone trackmodel.Zone, minDwell, grace time.Duration, now time.Time) []trackmodel.Track {
	o.mu.Lock()
	defer o.mu.Unlock()
	z, ok := o.zones[zone]
	if !ok {
		return nil
	}
	o.pruneLocked(z, grace, now)
	var cands []*Entry
	for e := z.lru.Front(); e != nil; e = e.Next() {
		entry := e.Value.(*Entry)
		dwell := entry.Dwell
		if entry.Present {
			dwell += now.Sub(entry.EntryAt)
		}
		eligible := entry.Present || now.Sub(entry.LastActivity) < grace
		if eligible && dwell >= minDwell {
			cands = append(cands, entry)
		}
	}
	sortByPreference(cands, now)
	out := make([]trackmodel.Track, len(cands))
	for i, c := range cands {
		out[i] = c.Track
	}
	return out
}

func sortByPreference(cands []*Entry, now time.Time) {
	// present before exited; among equals, larger accumulated dwell, then
	// more-recent last-activity. Entries slice is small (bounded by the
	// per-zone cap), so an insertion sort keeps this allocation-light.
	for i := 1; i < len(cands); i++ {
		for j := i; j > 0 && less(cands[j], cands[j-1], now); j-- {
			cands[j], cands[j-1] = cands[j-1], cands[j]
		}
	}
}

func less(a, b *Entry, now time.Time) bool {
	if a.Present != b.Present {
		return a.Present // present sorts first
	}
	da, db := a.Dwell, b.Dwell
	if a.Present {
		da += now.Sub(a.EntryAt)
	}
	if b.Present {
		db += now.Sub(b.EntryAt)
	}
	if da != db {
		return da > db
	}
	return a.LastActivity.After(b.LastActivity)
}

// pruneLocked drops exited entries whose last-activity + grace has
// elapsed. It runs on new entries, exits and Candidates scans, so no
// background timer is required (spec.md §4.A "Expiration"). The per-zone
// hard cap is enforced separately by evictIfOverCap.
func (o *Occupancy) pruneLocked(z *zoneState, grace time.Duration, now time.Time) {
	ttl := grace
	for e := z.lru.Back(); e != nil; {
		entry := e.Value.(*Entry)
		prev := e.Prev()
		if !entry.Present && now.Sub(entry.LastActivity) >= ttl {
			z.lru.Remove(e)
			delete(z.entries, entry.Track)
		}
		e = prev
	}
}

func (o *Occupancy) evictIfOverCap(z *zoneState) {
	for len(z.entries) > o.cap {
		back := z.lru.Back()
		if back == nil {
			return
		}
		entry := back.Value.(*Entry)
		z.lru.Remove(back)
		delete(z.entries, entry.Track)
	}
}
