package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/openfroyo/projconf/pkg/host"
)

// Telemetry bundles logging, tracing, metrics and events.
type Telemetry struct {
	Logger  *Logger
	Tracer  *Tracer
	Metrics *Metrics
	Events  *EventRecorder
	Config  *Config
}

// telemetryContextKey is the context key for telemetry instances.
type telemetryContextKey struct{}

// NewTelemetry creates a new telemetry instance from configuration.
func NewTelemetry(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Logger:  logger,
		Tracer:  tracer,
		Metrics: metrics,
		Events:  NewEventRecorder(cfg.Events),
		Config:  cfg,
	}, nil
}

// NewNopTelemetry returns telemetry that records metrics and events in
// memory and discards logs and spans.
func NewNopTelemetry() *Telemetry {
	cfg := DefaultConfig()
	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		// The default configuration always registers cleanly.
		panic(err)
	}
	tracer, _ := NewTracer(TracingConfig{}, cfg.ServiceName, cfg.ServiceVersion)
	return &Telemetry{
		Logger:  NewNopLogger(),
		Tracer:  tracer,
		Metrics: metrics,
		Events:  NewEventRecorder(cfg.Events),
		Config:  cfg,
	}
}

// WithContext adds the telemetry instance to the context.
func (t *Telemetry) WithContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, telemetryContextKey{}, t)
	ctx = t.Logger.WithContext(ctx)
	return ctx
}

// FromTelemetryContext retrieves the telemetry instance from the context.
// If none is found it returns a no-op instance.
func FromTelemetryContext(ctx context.Context) *Telemetry {
	if t, ok := ctx.Value(telemetryContextKey{}).(*Telemetry); ok {
		return t
	}
	return NewNopTelemetry()
}

// Shutdown flushes spans and writes the metrics textfile if configured.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if err := t.Tracer.Shutdown(ctx); err != nil {
		return err
	}
	return t.Metrics.WriteTextfile()
}

// InstrumentedContext carries the span, logger and timer of one operation.
type InstrumentedContext struct {
	Ctx    context.Context
	Span   trace.Span
	Logger *Logger
	Timer  *Timer

	tel     *Telemetry
	step    string
	passID  string
	subject string
}

// StartOperation begins an instrumented operation with logging, tracing, and timing.
func (t *Telemetry) StartOperation(ctx context.Context, operation string, attrs ...attribute.KeyValue) *InstrumentedContext {
	spanCtx, span := t.Tracer.StartSpan(ctx, operation, attrs...)

	logger := FromContext(ctx).WithField("operation", operation)
	if span.SpanContext().IsValid() {
		logger = logger.WithFields(map[string]interface{}{
			"trace_id": span.SpanContext().TraceID().String(),
			"span_id":  span.SpanContext().SpanID().String(),
		})
	}

	return &InstrumentedContext{
		Ctx:    logger.WithContext(spanCtx),
		Span:   span,
		Logger: logger,
		Timer:  NewTimer(),
		tel:    t,
	}
}

// StartStep begins a configurator step. End records the step metric and
// event.
func (t *Telemetry) StartStep(ctx context.Context, passID, step string) *InstrumentedContext {
	spanCtx, span := t.Tracer.StartStepSpan(ctx, step)
	logger := FromContext(ctx).WithStep(step)
	return &InstrumentedContext{
		Ctx:     logger.WithContext(spanCtx),
		Span:    span,
		Logger:  logger,
		Timer:   NewTimer(),
		tel:     t,
		step:    step,
		passID:  passID,
		subject: step,
	}
}

// End finishes the operation, recording success or failure.
func (ic *InstrumentedContext) End(err error) {
	if ic.Span != nil {
		if err != nil {
			ic.Span.SetAttributes(AttrErrorCode.String(host.CodeOf(err)))
			RecordError(ic.Span, err)
		} else {
			RecordSuccess(ic.Span)
		}
		ic.Span.End()
	}

	if ic.step == "" || ic.tel == nil {
		return
	}

	duration := ic.Timer.Duration()
	status := "success"
	eventType := EventTypeStepCompleted
	level := EventLevelInfo
	message := "step completed"
	if err != nil {
		status = "failure"
		eventType = EventTypeStepFailed
		level = EventLevelError
		message = err.Error()
	}
	ic.tel.Metrics.RecordStep(ic.step, status, duration)
	ic.tel.Events.Publish(Event{
		Type:    eventType,
		PassID:  ic.passID,
		Subject: ic.subject,
		Message: message,
		Level:   level,
		Data:    map[string]interface{}{"duration_ms": duration.Milliseconds()},
	})

	if err != nil {
		ic.Logger.WithError(err).Error("Configuration step failed")
		return
	}
	ic.Logger.Debugf("Configuration step completed in %s", duration)
}
