package tracker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/arcweld-retail/gatetrack/internal/config"
	"github.com/arcweld-retail/gatetrack/internal/door"
	"github.com/arcweld-retail/gatetrack/internal/egress"
	"github.com/arcweld-retail/gatetrack/internal/ingress"
	"github.com/arcweld-retail/gatetrack/internal/journey"
	"github.com/arcweld-retail/gatetrack/internal/payment"
	"github.com/arcweld-retail/gatetrack/internal/pos"
	"github.com/arcweld-retail/gatetrack/internal/reentry"
	"github.com/arcweld-retail/gatetrack/internal/stitch"
	"github.com/arcweld-retail/gatetrack/internal/telemetry/metrics"
	"github.com/arcweld-retail/gatetrack/internal/telemetry/tracing"
	"github.com/arcweld-retail/gatetrack/internal/trackerr"
	"github.com/arcweld-retail/gatetrack/internal/trackmodel"
)

// Tracker is the single-writer event loop of spec.md §4.G. Exactly one
// goroutine may call Dispatch/Run; every field below is private, mutable,
// un-synchronized state, matching §5's "single-owner channel-fed actor"
// design (see DESIGN.md).
type Tracker struct {
	cfg config.Config

	persons  map[trackmodel.Track]*Person
	occ      *pos.Occupancy
	stitcher *stitch.Stitcher[stitchSnapshot]
	door     *door.Correlator
	payments *payment.Correlator
	reentry  *reentry.Detector
	journeys *journey.Manager

	commands chan<- egress.Command
	sink     chan<- journey.Record

	log    zerolog.Logger
	tracer *tracing.Tracer

	m trackerMetrics
}

// New constructs a Tracker bound to a validated, checksummed config
// snapshot (§5: "Configuration is read once at start and treated as
// immutable"). commands and sink are the bounded output handoffs the
// caller owns; provider supplies the metrics instruments (use
// metrics.NewNoopProvider() in tests, metrics.NewAtomicProvider(bridge)
// in production).
func New(cfg config.Config, commands chan<- egress.Command, sink chan<- journey.Record, provider metrics.Provider, log zerolog.Logger, tracer *tracing.Tracer) *Tracker {
	if tracer == nil {
		tracer = tracing.Noop()
	}
	sourceZones := make(map[string]trackmodel.Zone, len(cfg.PaymentSourceZones))
	for source, zone := range cfg.PaymentSourceZones {
		sourceZones[source] = trackmodel.Zone(zone)
	}
	occ := pos.New(cfg.POSZoneCap, cfg.POSGrace)
	return &Tracker{
		cfg:     cfg,
		persons: make(map[trackmodel.Track]*Person),
		occ:     occ,
		stitcher: stitch.New[stitchSnapshot](stitch.Config{
			BaseGrace:          cfg.StitchBaseGrace,
			POSGrace:           cfg.StitchPOSGrace,
			BaseDistanceCM:     cfg.StitchBaseDistanceCM,
			SameZoneDistanceCM: cfg.StitchSameZoneDistanceCM,
			HeightToleranceCM:  cfg.HeightToleranceCM,
			WeightTime:         cfg.StitchWeightTime,
			WeightDistance:     cfg.StitchWeightDistance,
		}),
		door: door.New(cfg.DoorCorrelationWindow),
		payments: payment.New(payment.Config{
			MinDwell:     cfg.MinDwell,
			Grace:        cfg.POSGrace,
			FlickerMerge: cfg.ACCFlickerMerge,
			SourceZones:  sourceZones,
		}, occ),
		reentry:  reentry.New(cfg.ReentryWindow, cfg.HeightToleranceCM),
		journeys: journey.NewManager(cfg.JourneyHold),
		commands: commands,
		sink:     sink,
		log:      log,
		tracer:   tracer,
		m:        newTrackerMetrics(provider),
	}
}

// Run consumes in until it is closed, ctx is cancelled, or a Shutdown event
// is dispatched (whichever comes first), matching §5's cancellation model:
// the Shutdown event is the ordinary in-band signal; ctx is an operator-level
// kill switch with no drain guarantee, distinct from it.
func (t *Tracker) Run(ctx context.Context, in <-chan ingress.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			t.Dispatch(ev)
			if ev.Kind == ingress.Shutdown {
				return
			}
		}
	}
}

// Dispatch routes one event to its handler (spec.md §4.G). This is the hot
// path: for a ZoneEntry into the gate zone by an authorized person, no lock
// is taken and the gate command is handed to a bounded non-blocking
// channel. The path is not allocation-free: the zone_entry and
// gate_command journey events appended on it each allocate a field map.
func (t *Tracker) Dispatch(ev ingress.Event) {
	issueStart := time.Now()
	t.m.eventsTotal.Inc(1)
	t.m.byKind[ev.Kind].Inc(1)

	switch ev.Kind {
	case ingress.TrackCreate:
		t.handleTrackCreate(ev)
	case ingress.TrackDelete:
		t.handleTrackDelete(ev)
	case ingress.ZoneEntry:
		t.handleZoneEntry(ev, issueStart)
	case ingress.ZoneExit:
		t.handleZoneExit(ev)
	case ingress.LineCross:
		t.handleLineCross(ev)
	case ingress.Payment:
		t.handlePayment(ev)
	case ingress.GroupAssociation:
		t.handleGroupAssociation(ev)
	case ingress.DoorState:
		t.handleDoorState(ev)
	case ingress.Tick:
		t.handleTick(ev)
	case ingress.Shutdown:
		t.handleShutdown(ev)
	}
}

// handleTrackCreate implements §4.G "TrackCreate": attempt a stitch; on
// match, move the journey and restore person identity under the new track
// id; otherwise mint a fresh Person and Journey.
func (t *Tracker) handleTrackCreate(ev ingress.Event) {
	now := ev.RecvTime
	match, expired, ok := t.stitcher.FindMatch(ev.Pos, ev.Height, ev.Zone, now)
	if expired > 0 {
		t.m.stitchExpired.Inc(float64(expired))
	}
	if !ok {
		t.journeys.NewJourney(ev.Track, now)
		t.persons[ev.Track] = &Person{Track: ev.Track, Pos: ev.Pos, Height: ev.Height, LastSeen: now}
		return
	}

	t.m.stitchSuccess.Inc(1)
	snap := match.Snapshot
	j, ok := t.journeys.Stitch(snap.JourneyID, ev.Track, now, match.TimeDeltaMs, match.DistanceCM)
	if !ok {
		// The prior journey was discarded at close (never crossed the entry
		// line, spec.md §4.F "close"). Fall back to a fresh journey while
		// still inheriting the stitched person identity, preserving track
		// history across the gap.
		j = t.journeys.NewJourney(ev.Track, now)
		j.PersonID = snap.PersonID
		j.TrackIDs = []trackmodel.Track{match.OldTrack, ev.Track}
	}
	if snap.Authorized {
		t.journeys.SetAuthorized(ev.Track)
	}

	height := ev.Height
	if height == nil {
		height = snap.Height
	}
	t.persons[ev.Track] = &Person{Track: ev.Track, Pos: ev.Pos, Height: height, LastSeen: now}
}

// handleTrackDelete implements §4.G "TrackDelete": register the stitch
// candidate before closing, so a fast re-create can still un-close the
// journey (invariant 7).
func (t *Tracker) handleTrackDelete(ev ingress.Event) {
	now := ev.RecvTime
	p, hasPerson := t.persons[ev.Track]
	j, hasJourney := t.journeys.ByTrack(ev.Track)

	if hasJourney {
		var lastPos trackmodel.Position
		var height *float64
		var zone trackmodel.Zone
		wasPOS := false
		if hasPerson {
			lastPos, height, zone = p.Pos, p.Height, p.Zone
			wasPOS = zone != "" && t.cfg.IsPOSZone(string(zone))
		}
		snap := stitchSnapshot{PersonID: j.PersonID, JourneyID: j.ID, Height: height, Authorized: j.Authorized}
		t.stitcher.Register(ev.Track, zone, wasPOS, lastPos, height, now, snap)

		if hasPerson && zone != "" {
			if dwell := t.occ.Dwell(zone, ev.Track, now); dwell > 0 {
				t.journeys.AddEvent(ev.Track, "pending", map[string]any{"dwell_ms": dwell.Milliseconds()}, now)
			}
		}

		outcome := journey.Abandoned
		if j.ACCMatched {
			outcome = journey.LostWithAcc
		}
		t.journeys.Close(ev.Track, outcome, now)
	}

	delete(t.persons, ev.Track)
}

// handleZoneEntry implements §4.G "ZoneEntry", including the latency-
// critical gate-zone dispatch. issueStart is the instant Dispatch began
// processing this event; the gate-command latency is measured against it.
func (t *Tracker) handleZoneEntry(ev ingress.Event, issueStart time.Time) {
	now := ev.RecvTime
	zoneStr := string(ev.Zone)
	if !t.isKnownZone(zoneStr) {
		t.logBoundary(trackerr.New("tracker", trackerr.KindUnknownZone, int64(ev.Track), "unknown zone id "+zoneStr))
		return
	}

	p, ok := t.persons[ev.Track]
	if !ok {
		// §5: "a ZoneEntry for an unknown track lazily creates a minimal
		// Person." Causal anomaly, not a boundary error.
		p = &Person{Track: ev.Track, LastSeen: now}
		t.persons[ev.Track] = p
		t.journeys.NewJourney(ev.Track, now)
	}

	if t.cfg.IsPOSZone(zoneStr) {
		t.occ.OnZoneEntry(ev.Zone, ev.Track, now)
	}
	p.Zone = ev.Zone
	p.ZoneEnteredAt = now
	p.LastSeen = now
	t.journeys.AddEvent(ev.Track, "zone_entry", map[string]any{"zone": zoneStr}, now)

	if zoneStr != t.cfg.GateZone {
		return
	}
	j, ok := t.journeys.ByTrack(ev.Track)
	if !ok || !j.Authorized {
		return
	}

	select {
	case t.commands <- egress.Command{Track: ev.Track}:
		j.GateCommandAt = now
		latencyUs := float64(time.Since(issueStart).Microseconds())
		t.m.gateIssued.Inc(1)
		t.m.latencyUs.Observe(latencyUs)
		t.journeys.AddEvent(ev.Track, "gate_command", map[string]any{"latency_us": latencyUs}, now)
		t.door.RecordCmd(ev.Track, now)
	default:
		t.m.gateDropped.Inc(1)
	}
}

// handleZoneExit implements §4.G "ZoneExit": accumulate dwell, check the
// authorization threshold exactly once, and append the zone_exit event.
func (t *Tracker) handleZoneExit(ev ingress.Event) {
	now := ev.RecvTime
	zoneStr := string(ev.Zone)
	if !t.isKnownZone(zoneStr) {
		t.logBoundary(trackerr.New("tracker", trackerr.KindUnknownZone, int64(ev.Track), "unknown zone id "+zoneStr))
		return
	}

	p, ok := t.persons[ev.Track]
	if !ok {
		t.logBoundary(trackerr.New("tracker", trackerr.KindInvariant, int64(ev.Track), "zone_exit for untracked person"))
		return
	}

	var dwellTotal time.Duration
	if t.cfg.IsPOSZone(zoneStr) {
		t.occ.OnZoneExit(ev.Zone, ev.Track, now)
		dwellTotal = t.occ.Dwell(ev.Zone, ev.Track, now)
		if delta := now.Sub(p.ZoneEnteredAt); delta > 0 {
			t.journeys.AddDwell(ev.Track, delta)
		}
		if dwellTotal >= t.cfg.MinDwell {
			if t.journeys.SetAuthorized(ev.Track) {
				t.journeys.AddEvent(ev.Track, "dwell_threshold_met", map[string]any{
					"zone": zoneStr, "dwell_ms": dwellTotal.Milliseconds(),
				}, now)
			}
		}
	}
	p.Zone = ""
	t.journeys.AddEvent(ev.Track, "zone_exit", map[string]any{"zone": zoneStr, "dwell_ms": dwellTotal.Milliseconds()}, now)
}

// handleLineCross implements §4.G "LineCross": entry/exit/approach line
// semantics, including the re-entry-detector hookup on entry-forward and
// exit-forward crosses (§4.E).
func (t *Tracker) handleLineCross(ev ingress.Event) {
	now := ev.RecvTime
	lineStr := string(ev.Line)
	if !t.isKnownLine(lineStr) {
		t.logBoundary(trackerr.New("tracker", trackerr.KindUnknownLine, int64(ev.Track), "unknown line id "+lineStr))
		return
	}
	j, ok := t.journeys.ByTrack(ev.Track)
	if !ok {
		return
	}
	p := t.persons[ev.Track] // may be nil; height lookups below guard for it

	switch {
	case lineStr == t.cfg.EntryLine && ev.Direction == trackmodel.Forward:
		j.CrossedEntry = true
		t.journeys.AddEvent(ev.Track, "entry_cross", nil, now)
		var height *float64
		if p != nil {
			height = p.Height
		}
		if rec, ok := t.reentry.FindMatch(height, now); ok {
			j.PersonID = rec.PersonID
			j.ParentJourneyID = rec.JourneyID
		}

	case lineStr == t.cfg.EntryLine && ev.Direction == trackmodel.Backward:
		// Entry-line backward cross mid-journey: dashboard-only metadata
		// (SPEC_FULL.md §J), no effect on outcome or authorization.
		j.ReturnedToStore = true

	case lineStr == t.cfg.ExitLine && ev.Direction == trackmodel.Forward:
		t.journeys.AddEvent(ev.Track, "exit_cross", nil, now)
		var height *float64
		if p != nil {
			height = p.Height
		}
		t.reentry.RecordExit(reentry.ExitRecord{PersonID: j.PersonID, JourneyID: j.ID, Height: height, At: now})
		t.journeys.Close(ev.Track, journey.Completed, now)

	case lineStr == t.cfg.ApproachLine:
		t.journeys.AddEvent(ev.Track, "approach_cross", map[string]any{"direction": int(ev.Direction)}, now)
	}
}

// handlePayment implements §4.G "Payment": delegate to the Payment
// Correlator and fan the match out to the matched track's group.
func (t *Tracker) handlePayment(ev ingress.Event) {
	now := ev.RecvTime
	res := t.payments.OnPayment(ev.Source, ev.ReceiptID, now)
	if !res.Matched {
		t.m.paymentUnmatched.Inc(1)
		if _, known := t.cfg.PaymentSourceZones[ev.Source]; !known {
			t.logBoundary(trackerr.New("tracker", trackerr.KindUnknownSource, 0, "unknown payment source "+ev.Source))
		}
		return
	}
	t.m.paymentMatched.Inc(1)

	tracks := append([]trackmodel.Track{res.Track}, res.GroupMembers...)

	// Late per §4.D: the payment lands after a group member (possibly the
	// matched track itself) has already had its gate command issued.
	late := false
	for _, tr := range tracks {
		if j, ok := t.journeys.ByTrack(tr); ok && !j.GateCommandAt.IsZero() {
			late = true
			break
		}
	}

	for _, tr := range tracks {
		j, ok := t.journeys.ByTrack(tr)
		if !ok {
			continue
		}
		j.ACCMatched = true
		fields := map[string]any{"source": ev.Source, "receipt": ev.ReceiptID}
		if late {
			fields["late"] = true
		}
		t.journeys.AddEvent(tr, "payment", fields, now)
		t.journeys.SetAuthorized(tr)
	}
}

// handleGroupAssociation implements SPEC_FULL.md §I: records group
// membership from the dedicated association stream ahead of any payment
// that references it.
func (t *Tracker) handleGroupAssociation(ev ingress.Event) {
	t.payments.SetGroup(ev.GroupTrack, ev.Members)
}

// handleDoorState implements §4.G "DoorState": forward to the Door
// Correlator and stamp gate-opened-at on a confirmed flow track.
func (t *Tracker) handleDoorState(ev ingress.Event) {
	now := ev.RecvTime
	trans := t.door.OnDoorState(ev.DoorStatus, now)
	if trans.Opened && trans.HasFlowTrack {
		if j, ok := t.journeys.ByTrack(trans.FlowTrack); ok {
			j.GateOpenedAt = now
			j.GateWasOpen = trans.DoorWasOpen
			t.journeys.AddEvent(trans.FlowTrack, "gate_open", map[string]any{"door_was_open": trans.DoorWasOpen}, now)
		}
	}
}

// handleTick implements §4.G "Tick": drain the Journey Manager's ready-to-
// emit list to the journey sink and refresh the person-count gauges. The
// sink send is non-blocking (§5: "the event handler does not suspend").
func (t *Tracker) handleTick(ev ingress.Event) {
	now := ev.RecvTime
	ready := t.journeys.Tick(now)
	if len(ready) > 0 {
		_, span := t.tracer.StartSpan(context.Background(), "tracker.tick_drain", map[string]any{"count": len(ready)})
		for _, j := range ready {
			t.emit(j)
		}
		span.End()
	}
	t.m.active.Set(float64(t.journeys.ActiveCount()))
	t.m.authorized.Set(float64(t.journeys.AuthorizedCount()))
}

// handleShutdown implements §4.G "Shutdown": close every still-active
// journey as Abandoned (or LostWithAcc if an ACC match already landed),
// then emit whatever is eligible. Anything still held in the hold window
// is lost on exit (§1 "not a persistent store").
func (t *Tracker) handleShutdown(ev ingress.Event) {
	now := ev.RecvTime
	_, span := t.tracer.StartSpan(context.Background(), "tracker.shutdown", nil)
	defer span.End()

	for _, tr := range t.journeys.ActiveTracks() {
		j, ok := t.journeys.ByTrack(tr)
		if !ok {
			continue
		}
		outcome := journey.Abandoned
		if j.ACCMatched {
			outcome = journey.LostWithAcc
		}
		t.journeys.Close(tr, outcome, now)
	}
	for _, j := range t.journeys.Tick(now) {
		t.emit(j)
	}
}

func (t *Tracker) emit(j *journey.Journey) {
	select {
	case t.sink <- j.ToRecord():
	default:
		t.log.Warn().Str("journey_id", j.ID).Msg("journey sink full, dropping record")
	}
}

func (t *Tracker) isKnownLine(line string) bool {
	return line == t.cfg.EntryLine || line == t.cfg.ExitLine || line == t.cfg.ApproachLine
}

func (t *Tracker) isKnownZone(zone string) bool {
	return zone == t.cfg.GateZone || t.cfg.IsPOSZone(zone)
}

func (t *Tracker) logBoundary(err *trackerr.Error) {
	t.m.boundaryErrors.Inc(1)
	t.log.Debug().Str("kind", string(err.Kind)).Int64("track", err.Track).Msg(err.Detail)
}
