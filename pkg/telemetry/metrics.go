package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for configuration passes.
type Metrics struct {
	config MetricsConfig

	// Pass metrics
	passesStarted   prometheus.Counter
	passesCompleted *prometheus.CounterVec
	passDuration    *prometheus.HistogramVec

	// Step metrics
	stepsExecuted *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec

	// Plugin metrics
	pluginsApplied *prometheus.CounterVec

	// Changelog edge decisions, labelled by outcome (added, skipped)
	changelogEdges *prometheus.CounterVec

	// Error metrics
	errorsByCode *prometheus.CounterVec

	lastPassTimestamp prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		passesStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "passes_started_total",
				Help:      "Total number of configuration passes started",
			},
		),
		passesCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "passes_completed_total",
				Help:      "Total number of configuration passes completed",
			},
			[]string{"status"},
		),
		passDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pass_duration_seconds",
				Help:      "Duration of configuration passes in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),

		stepsExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "configure_steps_total",
				Help:      "Total number of configurator steps executed",
			},
			[]string{"step", "status"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "configure_step_duration_seconds",
				Help:      "Duration of configurator steps in seconds",
				Buckets:   buckets,
			},
			[]string{"step"},
		),

		pluginsApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "plugins_applied_total",
				Help:      "Total number of plugin applications",
			},
			[]string{"plugin", "status"},
		),

		changelogEdges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "changelog_edge_decisions_total",
				Help:      "Decisions on the build -> checkChangelog edge",
			},
			[]string{"outcome"},
		),

		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of pass failures by error code",
			},
			[]string{"code"},
		),

		lastPassTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_pass_timestamp_seconds",
				Help:      "Unix time of the last completed pass",
			},
		),
	}

	collectors := []prometheus.Collector{
		m.passesStarted,
		m.passesCompleted,
		m.passDuration,
		m.stepsExecuted,
		m.stepDuration,
		m.pluginsApplied,
		m.changelogEdges,
		m.errorsByCode,
		m.lastPassTimestamp,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return m, nil
}

// Registry returns the private registry, or nil when metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordPassStarted increments the counter for started passes.
func (m *Metrics) RecordPassStarted() {
	if m.passesStarted == nil {
		return
	}
	m.passesStarted.Inc()
}

// RecordPassCompleted records a completed pass with its status and duration.
func (m *Metrics) RecordPassCompleted(status string, duration time.Duration) {
	if m.passesCompleted == nil {
		return
	}
	m.passesCompleted.WithLabelValues(status).Inc()
	m.passDuration.WithLabelValues(status).Observe(duration.Seconds())
	m.lastPassTimestamp.SetToCurrentTime()
}

// RecordStep records the execution of a configurator step.
func (m *Metrics) RecordStep(step, status string, duration time.Duration) {
	if m.stepsExecuted == nil {
		return
	}
	m.stepsExecuted.WithLabelValues(step, status).Inc()
	m.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordPluginApplied records a plugin application.
func (m *Metrics) RecordPluginApplied(plugin, status string) {
	if m.pluginsApplied == nil {
		return
	}
	m.pluginsApplied.WithLabelValues(plugin, status).Inc()
}

// RecordChangelogEdge records whether the changelog edge was added.
func (m *Metrics) RecordChangelogEdge(added bool) {
	if m.changelogEdges == nil {
		return
	}
	outcome := "skipped"
	if added {
		outcome = "added"
	}
	m.changelogEdges.WithLabelValues(outcome).Inc()
}

// RecordError records a failure by code.
func (m *Metrics) RecordError(code string) {
	if m.errorsByCode == nil {
		return
	}
	if code == "" {
		code = "UNKNOWN"
	}
	m.errorsByCode.WithLabelValues(code).Inc()
}

// WriteTextfile writes the registry to the configured textfile path, for
// the node exporter textfile collector. It is a no-op without a path.
func (m *Metrics) WriteTextfile() error {
	if m.registry == nil || m.config.TextfilePath == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(m.config.TextfilePath, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// NewMetricsServer returns an HTTP server exposing the metrics, or nil when
// no listen address is configured.
func (m *Metrics) NewMetricsServer() *http.Server {
	if m.registry == nil || m.config.ListenAddress == "" {
		return nil
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	return &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
