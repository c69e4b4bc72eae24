package egress

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/arcweld-retail/gatetrack/internal/journey"
)

// JourneySink consumes emitted journey records. Grounded in the teacher's
// engine/internal/output.OutputSink interface (Write/Flush/Close/Name).
type JourneySink interface {
	Write(r journey.Record) error
	Flush() error
	Close() error
	Name() string
}

// LineWriter writes each journey.Record as a compact JSON line to w, the
// short-key-JSON-per-line format spec.md §6 describes for the journey
// sink. It is the reference external writer named in spec.md §1 ("the
// journey-sink file writer... out of scope") — provided here as a usable
// default, not as part of the Tracker's hot path.
type LineWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
	w   io.Writer
}

// NewLineWriter wraps w (e.g. an *os.File opened by a caller) for
// newline-delimited JSON journey records.
func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{enc: json.NewEncoder(w), w: w}
}

func (l *LineWriter) Write(r journey.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enc.Encode(r); err != nil {
		return fmt.Errorf("egress: encode journey record: %w", err)
	}
	return nil
}

func (l *LineWriter) Flush() error {
	if f, ok := l.w.(interface{ Sync() error }); ok {
		return f.Sync()
	}
	return nil
}

func (l *LineWriter) Close() error {
	if c, ok := l.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (l *LineWriter) Name() string { return "jsonl-journey-sink" }

var _ JourneySink = (*LineWriter)(nil)
