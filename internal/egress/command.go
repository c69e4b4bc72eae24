// Package egress defines the normalized output command feed the Tracker
// produces (spec.md §6) plus a reference journey-sink writer. The actual
// wire issuance (HTTP GET / binary TCP protocol to the physical gate,
// retries, door-state reporting) is out of scope for this core
// (spec.md §1); callers consume Command values from a bounded channel and
// perform that I/O themselves.
package egress

import "github.com/arcweld-retail/gatetrack/internal/trackmodel"

// Command is the tagged union of outputs the Tracker issues. Today there
// is exactly one variant (spec.md §3): open-gate.
type Command struct {
	Track trackmodel.Track
}
