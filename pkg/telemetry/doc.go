// Package telemetry provides observability instrumentation for configuration
// passes.
//
// The package integrates structured logging (zerolog), tracing
// (OpenTelemetry), metrics (Prometheus) and pass events into one Telemetry
// value carried through the context.
//
// # Usage
//
// Initialize telemetry at startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.Metrics.TextfilePath = "/var/lib/node_exporter/projconf.prom"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
//	logger := tel.Logger.NewComponentLogger("configurator")
//	logger = logger.WithPassID(passID).WithProject("payments")
//	logger.Info("Configuring project")
//
// # Tracing
//
// One span is started per pass, per plugin application and per configurator
// step:
//
//	ctx, span := tel.Tracer.StartPassSpan(ctx, passID, project)
//	defer span.End()
//
// Exporters: otlp (gRPC), stdout, none. Tracing is off unless enabled.
//
// # Metrics
//
// Metrics live in a private registry. They are exposed over HTTP by watch
// mode and can be written to a node exporter textfile after each pass:
//
//   - projconf_passes_started_total
//   - projconf_passes_completed_total{status}
//   - projconf_pass_duration_seconds{status}
//   - projconf_configure_steps_total{step,status}
//   - projconf_configure_step_duration_seconds{step}
//   - projconf_plugins_applied_total{plugin,status}
//   - projconf_changelog_edge_decisions_total{outcome}
//   - projconf_errors_total{code}
//   - projconf_last_pass_timestamp_seconds
//
// # Events
//
// EventRecorder keeps pass events in memory and delivers them synchronously
// to subscribers:
//
//	tel.Events.Subscribe(func(e telemetry.Event) {
//	    fmt.Println(e.Type, e.Subject)
//	}, telemetry.FilterByType(telemetry.EventTypeEdgeAdded))
package telemetry
