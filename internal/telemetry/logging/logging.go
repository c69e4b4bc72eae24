// Package logging builds the structured logger every component in this
// module logs through. It is grounded in Sergey-Bar-Alfred's
// services/gateway/logger package: a console writer in development, a bare
// JSON writer in production, both via zerolog. It additionally wires
// zerolog's sampler so the §7 "rate-limited summaries" requirement for
// input-boundary errors (malformed sensor frames, unknown zone ids) comes
// from the logging library itself rather than a hand-rolled limiter.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Environment selects the logger's sink and level the way the teacher's
// config.Env does.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// New returns a configured zerolog.Logger bound to component.
func New(env Environment, component string) zerolog.Logger {
	var out zerolog.ConsoleWriter
	var writer interface{ Write([]byte) (int, error) }
	lvl := zerolog.InfoLevel
	if env == Development {
		lvl = zerolog.DebugLevel
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		writer = out
	} else {
		writer = os.Stderr
	}
	zerolog.SetGlobalLevel(lvl)
	return zerolog.New(writer).With().Timestamp().Str("component", component).Logger()
}

// Sampled wraps logger with a basic/burst sampler so a storm of identical
// input-boundary errors (e.g. a sensor stuck emitting malformed frames)
// collapses to the first `burst` lines in each second plus every `every`th
// line beyond that, rather than flooding the sink. Used by the ingress boundary
// (outside this core, see spec.md §1) and by internal/tracker's own
// counted-but-not-propagated boundary errors (§7).
func Sampled(logger zerolog.Logger, burst, every uint32) zerolog.Logger {
	return logger.Sample(&zerolog.BurstSampler{
		Burst:  burst,
		Period: time.Second,
		NextSampler: &zerolog.BasicSampler{N: every},
	})
}
