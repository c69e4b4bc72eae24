// Package ingress defines the normalized input event feed the Tracker
// consumes (spec.md §6). Wire-level adapters that produce these events
// (MQTT sensor client, RS485 door poller, payment TCP listener) are out of
// scope for this core (spec.md §1); this package only carries the closed
// tagged union they must normalize into, plus the one ingress source this
// module does implement: the administrative/simulation channel, which is
// explicitly in scope (spec.md §6 — used by this module's own test suite).
package ingress

import (
	"time"

	"github.com/arcweld-retail/gatetrack/internal/trackmodel"
)

// Kind discriminates the closed union of input events (spec.md §4.G).
type Kind int

const (
	TrackCreate Kind = iota
	TrackDelete
	ZoneEntry
	ZoneExit
	LineCross
	Payment
	GroupAssociation
	DoorState
	Tick
	Shutdown
)

func (k Kind) String() string {
	switch k {
	case TrackCreate:
		return "track_create"
	case TrackDelete:
		return "track_delete"
	case ZoneEntry:
		return "zone_entry"
	case ZoneExit:
		return "zone_exit"
	case LineCross:
		return "line_cross"
	case Payment:
		return "payment"
	case GroupAssociation:
		return "group_association"
	case DoorState:
		return "door_state"
	case Tick:
		return "tick"
	case Shutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Event is the flat, allocation-free representation of every variant in
// the tagged union: the Tracker's hot-path dispatch switches on Kind and
// reads only the fields that variant defines, exactly the "duck-typed
// records -> tagged variants" shape DESIGN.md calls for. RecvTime is the
// locally-measured wall time every correlator keys off of (spec.md §5,
// §9); SensorTime is the sensor's own frame timestamp, carried for
// analytics only and never read by a correlator (this spec's resolution
// of the §9 open question).
type Event struct {
	Kind Kind

	Track  trackmodel.Track
	Pos    trackmodel.Position
	Height *float64 // nil if not reported this frame

	Zone trackmodel.Zone

	Line      trackmodel.Line
	Direction trackmodel.Direction

	Source    string
	ReceiptID string

	GroupTrack trackmodel.Track
	Members    []trackmodel.Track

	DoorStatus trackmodel.DoorStatus

	SensorTime time.Time
	RecvTime   time.Time
}
