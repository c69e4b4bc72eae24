package egress

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/arcweld-retail/gatetrack/internal/journey"
)

func TestLineWriterWritesNewlineDelimitedJSON(t *testing.T) {
	var buf bytes.Buffer
	w := NewLineWriter(&buf)

	rec1 := journey.Record{ID: "j1", PersonID: "p1", Outcome: journey.Completed}
	rec2 := journey.Record{ID: "j2", PersonID: "p2", Outcome: journey.Abandoned}

	if err := w.Write(rec1); err != nil {
		t.Fatalf("Write rec1: %v", err)
	}
	if err := w.Write(rec2); err != nil {
		t.Fatalf("Write rec2: %v", err)
	}

	dec := json.NewDecoder(&buf)
	var got1, got2 journey.Record
	if err := dec.Decode(&got1); err != nil {
		t.Fatalf("decode rec1: %v", err)
	}
	if err := dec.Decode(&got2); err != nil {
		t.Fatalf("decode rec2: %v", err)
	}
	if got1.ID != "j1" || got2.ID != "j2" {
		t.Fatalf("got %+v, %+v, want ids j1, j2 in order", got1, got2)
	}
}

func TestLineWriterName(t *testing.T) {
	var buf bytes.Buffer
	w := NewLineWriter(&buf)
	if w.Name() == "" {
		t.Fatalf("expected a non-empty sink name")
	}
}
