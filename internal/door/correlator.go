// Package door implements component C, the Door Correlator: matching
// issued gate-open commands to subsequent door-state transitions and
// preserving a single "flow track" identity across the
// open-moving-closed cycle (spec.md §4.C).
package door

import (
	"time"

	"github.com/arcweld-retail/gatetrack/internal/trackmodel"
)

// State is the correlator's own state machine, distinct from the raw
// trackmodel.DoorStatus reported by the serial poll.
type State int

const (
	Idle State = iota
	Awaiting
	Moving
	Open
	Closed
)

type cmd struct {
	track      trackmodel.Track
	issuedAt   time.Time
	doorWasOpen bool
}

// Correlator holds at most one "flow track" at a time between an issued
// command and the subsequent door-closed (spec.md §3 invariant 8).
type Correlator struct {
	window       time.Duration
	state        State
	lastStatus   trackmodel.DoorStatus
	commands     []cmd
	flowTrack    trackmodel.Track
	flowDoorWasOpen bool
	hasFlow      bool
}

// New constructs a Correlator with the given command-to-door-transition
// correlation window (spec.md §8: default 5000ms).
func New(window time.Duration) *Correlator {
	return &Correlator{window: window, state: Idle}
}

// RecordCmd implements spec.md §4.C "On record_cmd": append a pending
// command, flagging it door_was_open if the door was last seen Open.
func (c *Correlator) RecordCmd(track trackmodel.Track, now time.Time) {
	c.commands = append(c.commands, cmd{
		track: track, issuedAt: now, doorWasOpen: c.lastStatus == trackmodel.DoorOpen,
	})
	if c.state == Idle {
		c.state = Awaiting
	}
}

// Transition is the result of feeding a door-state observation to the
// correlator: what, if anything, the Tracker should do with a journey.
type Transition struct {
	FlowTrack    trackmodel.Track
	HasFlowTrack bool
	Opened       bool // door transitioned to Open with a known flow track
	Closed       bool // door transitioned to Closed; cycle ended
	DoorWasOpen  bool // the command that produced this flow was issued while door was already open
}

// OnDoorState implements spec.md §4.C's Moving/Open/Closed rules.
func (c *Correlator) OnDoorState(status trackmodel.DoorStatus, now time.Time) Transition {
	c.lastStatus = status

	switch status {
	case trackmodel.DoorMoving:
		c.expireCommands(now)
		if newest, ok := c.newestCommand(); ok {
			c.flowTrack = newest.track
			c.flowDoorWasOpen = newest.doorWasOpen
			c.hasFlow = true
			c.commands = nil // other older pendings are dropped
		}
		c.state = Moving
		return Transition{FlowTrack: c.flowTrack, HasFlowTrack: c.hasFlow}

	case trackmodel.DoorOpen:
		c.state = Open
		if c.hasFlow {
			return Transition{FlowTrack: c.flowTrack, HasFlowTrack: true, Opened: true, DoorWasOpen: c.flowDoorWasOpen}
		}
		// Sensor-triggered open: no preceding command (spec.md §4.C).
		return Transition{Opened: true}

	case trackmodel.DoorClosed:
		t := Transition{}
		if c.hasFlow {
			t = Transition{FlowTrack: c.flowTrack, HasFlowTrack: true, Closed: true}
		} else {
			t = Transition{Closed: true}
		}
		c.flowTrack = 0
		c.hasFlow = false
		c.state = Idle
		c.commands = nil
		return t

	default:
		return Transition{}
	}
}

// CurrentFlowTrack returns the track id the correlator believes caused the
// current open-moving-closed cycle, if any.
func (c *Correlator) CurrentFlowTrack() (trackmodel.Track, bool) {
	return c.flowTrack, c.hasFlow
}

// newestCommand picks the newest pending command (spec.md §4.C's
// corrected tie-break — "prior implementation picked oldest").
func (c *Correlator) newestCommand() (cmd, bool) {
	if len(c.commands) == 0 {
		return cmd{}, false
	}
	newest := c.commands[0]
	for _, cm := range c.commands[1:] {
		if cm.issuedAt.After(newest.issuedAt) {
			newest = cm
		}
	}
	return newest, true
}

// expireCommands drops commands older than the correlation window without
// a Moving transition (spec.md §4.C "Tie-break").
func (c *Correlator) expireCommands(now time.Time) {
	kept := c.commands[:0]
	for _, cm := range c.commands {
		if now.Sub(cm.issuedAt) <= c.window {
			kept = append(kept, cm)
		}
	}
	c.commands = kept
}
