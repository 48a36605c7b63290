package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/projconf/pkg/config"
	"github.com/openfroyo/projconf/pkg/orchestrator"
	"github.com/openfroyo/projconf/pkg/telemetry"
)

var (
	// Global flags
	projectDir      string
	defaultsPath    string
	scriptPath      string
	hostVersion     string
	jsonOutput      bool
	metricsTextfile string
	traceExporter   string
	traceEndpoint   string
	scriptTimeout   time.Duration
	historyPath     string
	historyKeep     int
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "projconf",
		Short: "projconf - project configuration orchestrator",
		Long: `projconf applies the organization plugin set to a project and configures
the plugins' extensions from organization defaults and environment secrets.

A pass:
  - checks the host version
  - applies the plugin-development, module, publish, release,
    expired-branch and build-monitoring plugins in a fixed order
  - configures release, wrapper, repositories, dependency checks and IDE
    settings
  - makes build depend on checkChangelog outside release branches`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "d", ".", "project directory")
	rootCmd.PersistentFlags().StringVar(&defaultsPath, "defaults", "", "organization defaults file (.yaml or .cue)")
	rootCmd.PersistentFlags().StringVar(&scriptPath, "script", "", "Starlark build script (default: <dir>/build.star if present)")
	rootCmd.PersistentFlags().StringVar(&hostVersion, "host-version", "6.4.1", "version reported by the build host")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&metricsTextfile, "metrics-textfile", "", "write metrics in node exporter textfile format after each pass")
	rootCmd.PersistentFlags().StringVar(&traceExporter, "trace", "", "trace exporter (stdout, otlp)")
	rootCmd.PersistentFlags().StringVar(&traceEndpoint, "trace-endpoint", "localhost:4317", "OTLP collector endpoint")
	rootCmd.PersistentFlags().DurationVar(&scriptTimeout, "script-timeout", 0, "build script timeout")
	rootCmd.PersistentFlags().StringVar(&historyPath, "history", "", "SQLite database that records every pass")
	rootCmd.PersistentFlags().IntVar(&historyKeep, "history-keep", 100, "passes kept per project in the history (0 keeps all)")

	rootCmd.AddCommand(newConfigureCommand())
	rootCmd.AddCommand(newGraphCommand())
	rootCmd.AddCommand(newDoctorCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newPluginsCommand())
	rootCmd.AddCommand(newBranchCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}

// loadDefaults returns the built-in defaults, overlaid with --defaults.
func loadDefaults() (*config.Defaults, error) {
	if defaultsPath == "" {
		return config.DefaultDefaults(), nil
	}
	defaults, err := config.NewLoader().Load(defaultsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	return defaults, nil
}

// newTelemetry builds telemetry from the global flags. Pass logs go through
// the CLI logger. A non-empty metricsAddress enables the metrics server.
func newTelemetry(version, metricsAddress string) (*telemetry.Telemetry, error) {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = version
	cfg.Metrics.TextfilePath = metricsTextfile
	cfg.Metrics.ListenAddress = metricsAddress
	if traceExporter != "" {
		cfg.Tracing.Enabled = true
		cfg.Tracing.Exporter = traceExporter
		cfg.Tracing.Endpoint = traceEndpoint
		cfg.Tracing.Writer = os.Stderr
	}

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	tel.Logger = telemetry.FromZerolog(log.Logger)
	return tel, nil
}

// resolveScript returns --script, or build.star in the project directory
// when it exists.
func resolveScript() string {
	if scriptPath != "" {
		return scriptPath
	}
	candidate := filepath.Join(projectDir, "build.star")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

// runPass runs one configuration pass with the global flags and records it
// when --history is set. A history failure is logged, not returned.
func runPass(ctx context.Context, tel *telemetry.Telemetry) (*orchestrator.Report, error) {
	defaults, err := loadDefaults()
	if err != nil {
		return nil, err
	}
	started := time.Now()
	report, err := orchestrator.Run(ctx, orchestrator.Options{
		Dir:           projectDir,
		HostVersion:   hostVersion,
		Defaults:      defaults,
		Script:        resolveScript(),
		ScriptTimeout: scriptTimeout,
		Telemetry:     tel,
	})
	if historyPath != "" {
		if herr := recordHistory(ctx, started, report, err); herr != nil {
			log.Warn().Err(herr).Str("history", historyPath).Msg("Failed to record pass")
		}
	}
	return report, err
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
