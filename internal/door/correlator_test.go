package door

import (
	"testing"
	"time"

	"github.com/arcweld-retail/gatetrack/internal/trackmodel"
)

func TestDoorHappyPathOpenClose(t *testing.T) {
	c := New(5000 * time.Millisecond)
	base := time.Unix(0, 0)

	c.RecordCmd(100, base)
	tr := c.OnDoorState(trackmodel.DoorMoving, base.Add(200*time.Millisecond))
	if !tr.HasFlowTrack || tr.FlowTrack != 100 {
		t.Fatalf("moving transition = %+v, want flow track 100", tr)
	}

	tr = c.OnDoorState(trackmodel.DoorOpen, base.Add(500*time.Millisecond))
	if !tr.Opened || tr.FlowTrack != 100 {
		t.Fatalf("open transition = %+v, want opened for track 100", tr)
	}

	tr = c.OnDoorState(trackmodel.DoorClosed, base.Add(2*time.Second))
	if !tr.Closed || tr.FlowTrack != 100 {
		t.Fatalf("closed transition = %+v, want closed for track 100", tr)
	}
	if _, ok := c.CurrentFlowTrack(); ok {
		t.Fatalf("expected no flow track after close")
	}
}

func TestDoorNewestCommandWinsTieBreak(t *testing.T) {
	c := New(5000 * time.Millisecond)
	base := time.Unix(0, 0)

	c.RecordCmd(100, base)
	c.RecordCmd(200, base.Add(100*time.Millisecond)) // newer; corrected tie-break picks this one.

	tr := c.OnDoorState(trackmodel.DoorMoving, base.Add(300*time.Millisecond))
	if tr.FlowTrack != 200 {
		t.Fatalf("flow track = %d, want 200 (newest command)", tr.FlowTrack)
	}
}

func TestDoorCommandWindowBoundary(t *testing.T) {
	c := New(5000 * time.Millisecond)
	base := time.Unix(0, 0)

	c.RecordCmd(100, base)
	tr := c.OnDoorState(trackmodel.DoorMoving, base.Add(4999*time.Millisecond))
	if !tr.HasFlowTrack {
		t.Fatalf("expected command still valid at 4999ms (just within 5000ms window)")
	}

	c2 := New(5000 * time.Millisecond)
	c2.RecordCmd(100, base)
	tr2 := c2.OnDoorState(trackmodel.DoorMoving, base.Add(5001*time.Millisecond))
	if tr2.HasFlowTrack {
		t.Fatalf("expected command expired at 5001ms (just past 5000ms window)")
	}
}

func TestDoorSensorTriggeredOpenWithoutCommand(t *testing.T) {
	c := New(5000 * time.Millisecond)
	base := time.Unix(0, 0)

	tr := c.OnDoorState(trackmodel.DoorOpen, base)
	if !tr.Opened || tr.HasFlowTrack {
		t.Fatalf("sensor-triggered open = %+v, want opened with no flow track", tr)
	}
}

func TestDoorWasOpenFlagCarriedFromCommand(t *testing.T) {
	c := New(5000 * time.Millisecond)
	base := time.Unix(0, 0)

	// Door already open when a second command is recorded (e.g. a second
	// person following through a still-open gate).
	c.OnDoorState(trackmodel.DoorOpen, base)
	c.RecordCmd(100, base.Add(time.Second))
	tr := c.OnDoorState(trackmodel.DoorMoving, base.Add(1100*time.Millisecond))
	if !tr.HasFlowTrack {
		t.Fatalf("expected flow track for follow-through command")
	}

	tr = c.OnDoorState(trackmodel.DoorOpen, base.Add(1200*time.Millisecond))
	if !tr.DoorWasOpen {
		t.Fatalf("expected DoorWasOpen to be carried from the recorded command")
	}
}

func TestDoorCloseWithoutFlowTrack(t *testing.T) {
	c := New(5000 * time.Millisecond)
	base := time.Unix(0, 0)

	c.OnDoorState(trackmodel.DoorOpen, base)
	tr := c.OnDoorState(trackmodel.DoorClosed, base.Add(time.Second))
	if !tr.Closed || tr.HasFlowTrack {
		t.Fatalf("close without flow = %+v, want closed with no flow track", tr)
	}
}
