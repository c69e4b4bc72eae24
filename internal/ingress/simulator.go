package ingress

import (
	"context"
	"time"

	"github.com/arcweld-retail/gatetrack/internal/trackmodel"
)

// Simulator is the "Administrative/simulation channel" of spec.md §6: a
// thin, in-process event writer for injecting Payment events (and, more
// generally, any ingress.Event) for testing, distinct from the
// network-facing sensor/door/payment adapters this core does not
// implement. There is no open-gate input event kind: open-gate commands
// are only produced by the Tracker.
type Simulator struct {
	out chan<- Event
}

// NewSimulator wraps a bounded channel (the merged queue feeding
// internal/tracker.Tracker) for programmatic injection.
func NewSimulator(out chan<- Event) *Simulator { return &Simulator{out: out} }

// Send enqueues ev, blocking until ctx is done or the queue accepts it.
// Unlike the hot-path gate-command output, the simulation channel is
// allowed to block: it is a test/ops tool, not part of the latency
// contract.
func (s *Simulator) Send(ctx context.Context, ev Event) error {
	select {
	case s.out <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrackCreateEvent builds a TrackCreate event at RecvTime=now.
func TrackCreateEvent(track trackmodel.Track, pos trackmodel.Position, height *float64, now time.Time) Event {
	return Event{Kind: TrackCreate, Track: track, Pos: pos, Height: height, RecvTime: now, SensorTime: now}
}

// TrackDeleteEvent builds a TrackDelete event at RecvTime=now.
func TrackDeleteEvent(track trackmodel.Track, now time.Time) Event {
	return Event{Kind: TrackDelete, Track: track, RecvTime: now, SensorTime: now}
}

// ZoneEntryEvent builds a ZoneEntry event at RecvTime=now.
func ZoneEntryEvent(track trackmodel.Track, zone trackmodel.Zone, now time.Time) Event {
	return Event{Kind: ZoneEntry, Track: track, Zone: zone, RecvTime: now, SensorTime: now}
}

// ZoneExitEvent builds a ZoneExit event at RecvTime=now.
func ZoneExitEvent(track trackmodel.Track, zone trackmodel.Zone, now time.Time) Event {
	return Event{Kind: ZoneExit, Track: track, Zone: zone, RecvTime: now, SensorTime: now}
}

// LineCrossEvent builds a LineCross event at RecvTime=now.
func LineCrossEvent(track trackmodel.Track, line trackmodel.Line, dir trackmodel.Direction, now time.Time) Event {
	return Event{Kind: LineCross, Track: track, Line: line, Direction: dir, RecvTime: now, SensorTime: now}
}

// PaymentEvent builds a Payment event at RecvTime=now.
func PaymentEvent(source, receiptID string, now time.Time) Event {
	return Event{Kind: Payment, Source: source, ReceiptID: receiptID, RecvTime: now}
}

// GroupAssociationEvent builds a GroupAssociation event at RecvTime=now.
func GroupAssociationEvent(group trackmodel.Track, members []trackmodel.Track, now time.Time) Event {
	return Event{Kind: GroupAssociation, GroupTrack: group, Members: members, RecvTime: now}
}

// DoorStateEvent builds a DoorState event at RecvTime=now.
func DoorStateEvent(status trackmodel.DoorStatus, now time.Time) Event {
	return Event{Kind: DoorState, DoorStatus: status, RecvTime: now}
}

// TickEvent builds a Tick event at RecvTime=now.
func TickEvent(now time.Time) Event { return Event{Kind: Tick, RecvTime: now} }

// ShutdownEvent builds a Shutdown event at RecvTime=now.
func ShutdownEvent(now time.Time) Event { return Event{Kind: Shutdown, RecvTime: now} }
