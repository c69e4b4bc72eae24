// Command gatetrack wires the core Tracker (internal/tracker) to a minimal
// set of reference adapters: a newline-JSON journey sink
// (internal/egress.LineWriter) in place of the wire-level sensor/door/
// payment adapters spec.md §1 scopes out, and a choice of metrics backend
// (Prometheus scrape endpoint or an OpenTelemetry MeterProvider). It is the
// kind of thin composition root the teacher's cli/cmd/ariadne/main.go is:
// flag parsing, signal-driven graceful shutdown, nothing else. Operators
// wanting to inject events programmatically (tests, admin tooling) use
// internal/ingress.Simulator directly against the event channel this
// binary would otherwise feed from wire adapters.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/arcweld-retail/gatetrack/internal/config"
	"github.com/arcweld-retail/gatetrack/internal/egress"
	"github.com/arcweld-retail/gatetrack/internal/ingress"
	"github.com/arcweld-retail/gatetrack/internal/journey"
	"github.com/arcweld-retail/gatetrack/internal/telemetry/logging"
	"github.com/arcweld-retail/gatetrack/internal/telemetry/metrics"
	"github.com/arcweld-retail/gatetrack/internal/telemetry/tracing"
	"github.com/arcweld-retail/gatetrack/internal/tracker"
)

func main() {
	var (
		configPath     string
		metricsAddr    string
		metricsBackend string
		journeyPath    string
		environment    string
		showVersion    bool
	)
	flag.StringVar(&configPath, "config", "", "Path to the YAML configuration file (defaults applied if empty)")
	flag.StringVar(&metricsAddr, "metrics-addr", ":9090", "Address for the Prometheus scrape endpoint (ignored when -metrics-backend=otel)")
	flag.StringVar(&metricsBackend, "metrics-backend", "prometheus", "Metrics backend: prometheus or otel")
	flag.StringVar(&journeyPath, "journey-sink", "journeys.jsonl", "Path to the newline-JSON journey sink file")
	flag.StringVar(&environment, "env", "development", "Logging environment: development or production")
	flag.BoolVar(&showVersion, "version", false, "Show version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println("gatetrack core v1")
		return
	}

	cfg := config.Defaults()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}
	snapshot, err := cfg.Snapshot()
	if err != nil {
		log.Fatalf("snapshot config: %v", err)
	}

	env := logging.Development
	if environment == "production" {
		env = logging.Production
	}
	baseLog := logging.New(env, "gatetrack")
	boundaryLog := logging.Sampled(baseLog, 10, 100)

	tracer, err := tracing.New("gatetrack", environment)
	if err != nil {
		log.Fatalf("init tracing: %v", err)
	}

	// Two metrics backends are wired against the same metrics.Provider
	// contract: the default lock-free-atomics-plus-Prometheus-Bridge pair
	// (registry/bridge below), or an OpenTelemetry MeterProvider
	// (metrics.NewOTelProvider) for deployments that export metrics via
	// OTLP instead of a Prometheus pull endpoint. Only one is active per
	// process; registry/bridge stay nil when -metrics-backend=otel.
	var (
		registry *prometheus.Registry
		provider metrics.Provider
		otelMP   interface{ Shutdown(context.Context) error }
	)
	switch metricsBackend {
	case "otel":
		otp := metrics.NewOTelProvider(metrics.OTelProviderOptions{ServiceName: "gatetrack"})
		provider = otp
		otelMP = otp.(interface{ Shutdown(context.Context) error })
	default:
		registry = prometheus.NewRegistry()
		bridge := metrics.NewBridge()
		registry.MustRegister(bridge)
		provider = metrics.NewAtomicProvider(bridge)
	}

	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, baseLog)
		if err != nil {
			baseLog.Warn().Err(err).Msg("config file watcher disabled")
		} else {
			defer watcher.Close()
		}
	}

	journeyFile, err := os.OpenFile(journeyPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Fatalf("open journey sink: %v", err)
	}
	sink := egress.NewLineWriter(journeyFile)
	defer sink.Close()

	commandCh := make(chan egress.Command, 64)
	journeyCh := make(chan journey.Record, snapshot.CommandQueueDepth)
	eventCh := make(chan ingress.Event, snapshot.CommandQueueDepth)

	trk := tracker.New(snapshot, commandCh, journeyCh, provider, boundaryLog, tracer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		baseLog.Info().Msg("signal received; initiating graceful shutdown")
		eventCh <- ingress.ShutdownEvent(time.Now())
	}()

	var metricsServer *http.Server
	if registry != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				baseLog.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	} else {
		baseLog.Info().Msg("otel metrics backend selected; configure an OTLP exporter on the returned MeterProvider externally, no pull endpoint is served")
	}

	go drainCommands(ctx, commandCh, baseLog)
	go drainJourneys(ctx, journeyCh, sink, baseLog)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				eventCh <- ingress.TickEvent(t)
			}
		}
	}()

	trk.Run(ctx, eventCh)

	if metricsServer != nil {
		_ = metricsServer.Close()
	}
	if otelMP != nil {
		_ = otelMP.Shutdown(context.Background())
	}
	baseLog.Info().Msg("gatetrack stopped")
}

// drainCommands is the reference gate-command consumer: the core hands off
// open-gate commands through a bounded channel (spec.md §6) and leaves the
// actual wire issuance (HTTP GET / binary TCP to the physical gate) to the
// caller (spec.md §1). This reference implementation only logs each
// command; a real deployment replaces this goroutine with a wire client
// and reports door-state transitions back through a DoorState ingress event.
func drainCommands(ctx context.Context, commands <-chan egress.Command, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-commands:
			if !ok {
				return
			}
			log.Info().Int64("track", int64(cmd.Track)).Msg("open-gate command issued")
		}
	}
}

// drainJourneys is the reference journey-sink consumer named in spec.md §1
// ("the journey-sink file writer... out of scope" of the core itself, but a
// usable default here).
func drainJourneys(ctx context.Context, records <-chan journey.Record, sink egress.JourneySink, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			_ = sink.Flush()
			return
		case rec, ok := <-records:
			if !ok {
				_ = sink.Flush()
				return
			}
			if err := sink.Write(rec); err != nil {
				log.Error().Err(err).Str("journey_id", rec.ID).Msg("write journey record")
				continue
			}
			_ = sink.Flush()
		}
	}
}
