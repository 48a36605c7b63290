package telemetry

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "default", mutate: func(*Config) {}},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: true},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: true},
		{name: "bad exporter", mutate: func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "jaeger"
		}, wantErr: true},
		{name: "otlp without endpoint", mutate: func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "otlp"
		}, wantErr: true},
		{name: "sampling out of range", mutate: func(c *Config) { c.Tracing.SamplingRate = 2 }, wantErr: true},
		{name: "no service name", mutate: func(c *Config) { c.ServiceName = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LoggingConfig{Level: "debug", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.NewComponentLogger("configurator").WithPassID("p-1").WithStep("release").Info("configured")

	out := buf.String()
	for _, want := range []string{`"component":"configurator"`, `"pass_id":"p-1"`, `"step":"release"`, `"message":"configured"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %s does not contain %s", out, want)
		}
	}
}

func TestLogger_FromContextDefault(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("Expected a default logger")
	}
}

func TestMetrics_Record(t *testing.T) {
	m, err := NewMetrics(DefaultConfig().Metrics)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	m.RecordPassStarted()
	m.RecordStep("release", "success", 0)
	m.RecordStep("release", "success", 0)
	m.RecordPluginApplied("release", "success")
	m.RecordChangelogEdge(true)
	m.RecordChangelogEdge(false)
	m.RecordError("")

	if got := testutil.ToFloat64(m.passesStarted); got != 1 {
		t.Errorf("passes started = %v", got)
	}
	if got := testutil.ToFloat64(m.stepsExecuted.WithLabelValues("release", "success")); got != 2 {
		t.Errorf("steps = %v", got)
	}
	if got := testutil.ToFloat64(m.changelogEdges.WithLabelValues("added")); got != 1 {
		t.Errorf("added edges = %v", got)
	}
	if got := testutil.ToFloat64(m.errorsByCode.WithLabelValues("UNKNOWN")); got != 1 {
		t.Errorf("unknown errors = %v", got)
	}
}

func TestMetrics_Disabled(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatal(err)
	}
	m.RecordPassStarted()
	m.RecordStep("x", "success", 0)
	if m.Registry() != nil {
		t.Error("Expected no registry when disabled")
	}
	if m.NewMetricsServer() != nil {
		t.Error("Expected no server when disabled")
	}
	if err := m.WriteTextfile(); err != nil {
		t.Errorf("WriteTextfile() error = %v", err)
	}
}

func TestTracer_StepSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tracer := NewTracerWithExporter(exporter)

	tel := NewNopTelemetry()
	tel.Tracer = tracer
	ctx := tel.WithContext(context.Background())

	ok := tel.StartStep(ctx, "p-1", "wrapper")
	ok.End(nil)
	failed := tel.StartStep(ctx, "p-1", "release")
	failed.End(errors.New("boom"))

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("Expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name != "configure.wrapper" || spans[0].Status.Code != codes.Ok {
		t.Errorf("unexpected first span %s %v", spans[0].Name, spans[0].Status)
	}
	if spans[1].Status.Code != codes.Error {
		t.Errorf("Expected error status, got %v", spans[1].Status)
	}

	events := tel.Events.EventsForPass("p-1")
	if len(events) != 2 || events[1].Type != EventTypeStepFailed {
		t.Errorf("unexpected events %+v", events)
	}
}

func TestEventRecorder_Bounded(t *testing.T) {
	r := NewEventRecorder(EventsConfig{Enabled: true, MaxEvents: 2})
	for _, subject := range []string{"a", "b", "c"} {
		r.Publish(Event{Type: EventTypePluginApplied, Subject: subject})
	}

	events := r.Events()
	if len(events) != 2 || events[0].Subject != "b" || events[1].Subject != "c" {
		t.Errorf("unexpected events %+v", events)
	}
	if events[0].ID == "" || events[0].Timestamp.IsZero() {
		t.Error("Expected id and timestamp to be filled in")
	}
}

func TestEventRecorder_FilterByLevel(t *testing.T) {
	r := NewEventRecorder(EventsConfig{Enabled: true, MaxEvents: 10})
	var got []string
	r.Subscribe(func(e Event) { got = append(got, e.Subject) }, FilterByLevel(EventLevelWarning))

	r.Publish(Event{Subject: "info"})
	r.Publish(Event{Subject: "warn", Level: EventLevelWarning})
	r.Publish(Event{Subject: "err", Level: EventLevelError})

	if strings.Join(got, ",") != "warn,err" {
		t.Errorf("delivered %v", got)
	}
}

func TestTracer_TraceIDAndEvents(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tracer := NewTracerWithExporter(exporter)

	if TraceID(context.Background()) != "" {
		t.Error("Expected no trace id without a span")
	}

	ctx, span := tracer.StartPassSpan(context.Background(), "p-1", "payments")
	if TraceID(ctx) == "" {
		t.Error("Expected a trace id inside the pass span")
	}
	AddEvent(span, "task.edge_added", AttrTask.String("build"), AttrDependsOn.String("checkChangelog"))
	span.End()

	if err := tracer.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush() error = %v", err)
	}
	spans := exporter.GetSpans()
	if len(spans) != 1 || len(spans[0].Events) != 1 || spans[0].Events[0].Name != "task.edge_added" {
		t.Errorf("unexpected spans %+v", spans)
	}
}
