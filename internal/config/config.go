// Package config is the tracker's "configuration surface" (spec.md §6): a
// single struct read once at process start and treated as immutable for
// the lifetime of the Tracker (§5). It mirrors the teacher's
// engine/config.UnifiedBusinessConfig / engine/internal/runtime shape:
// yaml-tagged fields, a Defaults() constructor, a Validate() pass, and a
// checksum-stamped Snapshot a caller hands to the Tracker by value.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Config is the full configuration surface named in spec.md §6.
type Config struct {
	// Zones & lines.
	POSZones   []string `yaml:"pos_zones" json:"pos_zones"`
	GateZone   string   `yaml:"gate_zone" json:"gate_zone"`
	EntryLine  string   `yaml:"entry_line" json:"entry_line"`
	ExitLine   string   `yaml:"exit_line" json:"exit_line"`
	ApproachLine string `yaml:"approach_line" json:"approach_line"`

	// Dwell / occupancy (§4.A, §4.D).
	MinDwell  time.Duration `yaml:"min_dwell" json:"min_dwell"`
	POSGrace  time.Duration `yaml:"pos_grace" json:"pos_grace"`
	POSZoneCap int          `yaml:"pos_zone_cap" json:"pos_zone_cap"`

	// Stitching (§4.B).
	StitchBaseGrace        time.Duration `yaml:"stitch_base_grace" json:"stitch_base_grace"`
	StitchPOSGrace         time.Duration `yaml:"stitch_pos_grace" json:"stitch_pos_grace"`
	StitchBaseDistanceCM   float64       `yaml:"stitch_base_distance_cm" json:"stitch_base_distance_cm"`
	StitchSameZoneDistanceCM float64     `yaml:"stitch_same_zone_distance_cm" json:"stitch_same_zone_distance_cm"`
	HeightToleranceCM      float64       `yaml:"height_tolerance_cm" json:"height_tolerance_cm"`
	StitchWeightTime       float64       `yaml:"stitch_weight_time" json:"stitch_weight_time"`
	StitchWeightDistance   float64       `yaml:"stitch_weight_distance" json:"stitch_weight_distance"`

	// Door correlation (§4.C).
	DoorCorrelationWindow time.Duration `yaml:"door_correlation_window" json:"door_correlation_window"`

	// Re-entry (§4.E).
	ReentryWindow time.Duration `yaml:"reentry_window" json:"reentry_window"`

	// Payment (§4.D).
	PaymentSourceZones map[string]string `yaml:"payment_source_zones" json:"payment_source_zones"`
	ACCFlickerMerge    time.Duration     `yaml:"acc_flicker_merge" json:"acc_flicker_merge"`

	// Journey lifecycle (§4.F).
	JourneyHold time.Duration `yaml:"journey_hold" json:"journey_hold"`

	// Output queue (§5).
	CommandQueueDepth int `yaml:"command_queue_depth" json:"command_queue_depth"`

	// Metadata.
	Version   string    `yaml:"version" json:"version"`
	LoadedAt  time.Time `yaml:"-" json:"loaded_at"`
	Checksum  string    `yaml:"-" json:"checksum"`
}

// Defaults returns a Config populated with the values named throughout
// spec.md (§4, §8's boundary table).
func Defaults() Config {
	return Config{
		GateZone:     "gate",
		EntryLine:    "entry",
		ExitLine:     "exit",
		ApproachLine: "approach",

		MinDwell:   7000 * time.Millisecond,
		POSGrace:   5000 * time.Millisecond,
		POSZoneCap: 100,

		StitchBaseGrace:          4500 * time.Millisecond,
		StitchPOSGrace:           8000 * time.Millisecond,
		StitchBaseDistanceCM:     180,
		StitchSameZoneDistanceCM: 300,
		HeightToleranceCM:        10,
		StitchWeightTime:         1.0,
		StitchWeightDistance:     1.0,

		DoorCorrelationWindow: 5000 * time.Millisecond,

		ReentryWindow: 30000 * time.Millisecond,

		PaymentSourceZones: map[string]string{},
		ACCFlickerMerge:    10000 * time.Millisecond,

		JourneyHold: 10 * time.Second,

		CommandQueueDepth: 256,

		Version: "1.0.0",
	}
}

// Validate rejects configurations that would violate spec.md invariants.
func (c Config) Validate() error {
	if c.GateZone == "" {
		return fmt.Errorf("config: gate_zone is required")
	}
	if c.EntryLine == "" || c.ExitLine == "" {
		return fmt.Errorf("config: entry_line and exit_line are required")
	}
	if c.MinDwell <= 0 {
		return fmt.Errorf("config: min_dwell must be positive")
	}
	if c.POSGrace <= 0 {
		return fmt.Errorf("config: pos_grace must be positive")
	}
	if c.StitchPOSGrace < c.StitchBaseGrace {
		return fmt.Errorf("config: stitch_pos_grace must be >= stitch_base_grace")
	}
	if c.POSZoneCap <= 0 {
		return fmt.Errorf("config: pos_zone_cap must be positive")
	}
	if c.CommandQueueDepth <= 0 {
		return fmt.Errorf("config: command_queue_depth must be positive")
	}
	zones := make(map[string]struct{}, len(c.POSZones))
	for _, z := range c.POSZones {
		if z == "" {
			return fmt.Errorf("config: empty pos zone id")
		}
		zones[z] = struct{}{}
	}
	for source, zone := range c.PaymentSourceZones {
		if source == "" || zone == "" {
			return fmt.Errorf("config: payment_source_zones entries must be non-empty")
		}
	}
	return nil
}

// IsPOSZone reports whether zone is one of the configured POS zones.
func (c Config) IsPOSZone(zone string) bool {
	for _, z := range c.POSZones {
		if z == zone {
			return true
		}
	}
	return false
}

// Snapshot returns an immutable, checksummed copy of c stamped with the
// current time, the shape the Tracker actually stores (§5: "Configuration
// is read once at start and treated as immutable").
func (c Config) Snapshot() (Config, error) {
	cp := c
	cp.LoadedAt = time.Now()
	sum, err := checksum(cp)
	if err != nil {
		return Config{}, err
	}
	cp.Checksum = sum
	return cp, nil
}

func checksum(c Config) (string, error) {
	// Checksum excludes the fields it stamps.
	c.Checksum = ""
	c.LoadedAt = time.Time{}
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("config: checksum: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
