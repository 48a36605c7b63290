package commands

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/projconf/pkg/telemetry"
)

func newWatchCommand() *cobra.Command {
	var (
		metricsListen string
		debounce      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run configuration passes on change",
		Long: `Run a configuration pass, then run another one whenever the project
directory, the defaults file or the build script changes. Switching branches
changes .git/HEAD and also triggers a pass.

Metrics of every pass can be scraped from --metrics-listen.`,
		Example: `  # Watch the current project and expose metrics
  projconf watch --metrics-listen :9464`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			tel, err := newTelemetry(cmd.Root().Version, metricsListen)
			if err != nil {
				return err
			}
			defer shutdownTelemetry(tel)

			if server := tel.Metrics.NewMetricsServer(); server != nil {
				go func() {
					if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Error().Err(err).Msg("Metrics server failed")
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = server.Shutdown(shutdownCtx)
				}()
				log.Info().Str("address", metricsListen).Msg("Serving metrics")
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer watcher.Close()

			for _, path := range watchedPaths() {
				if err := watcher.Add(path); err != nil {
					log.Warn().Err(err).Str("path", path).Msg("Cannot watch path")
				}
			}

			runWatchedPass(ctx, tel)

			timer := time.NewTimer(debounce)
			timer.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
						continue
					}
					log.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("Change detected")
					timer.Reset(debounce)
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					log.Warn().Err(err).Msg("Watcher error")
				case <-timer.C:
					runWatchedPass(ctx, tel)
				}
			}
		},
	}

	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "address to serve Prometheus metrics on")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "quiet period before a pass runs")

	return cmd
}

func watchedPaths() []string {
	paths := []string{projectDir, filepath.Join(projectDir, ".git")}
	if defaultsPath != "" {
		paths = append(paths, defaultsPath)
	}
	if script := resolveScript(); script != "" {
		paths = append(paths, script)
	}
	return paths
}

// runWatchedPass runs a pass and logs its outcome. Failures do not stop
// watching.
func runWatchedPass(ctx context.Context, tel *telemetry.Telemetry) {
	report, err := runPass(ctx, tel)
	if err != nil {
		log.Error().Err(err).Msg("Configuration pass failed")
	} else {
		log.Info().
			Str("pass_id", report.PassID).
			Str("branch", report.Branch.Branch).
			Bool("release", report.Branch.Release).
			Dur("duration", report.Duration).
			Msg("Configuration pass completed")
	}

	if err := tel.Tracer.ForceFlush(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to flush spans")
	}
	if err := tel.Metrics.WriteTextfile(); err != nil {
		log.Warn().Err(err).Msg("Failed to write metrics textfile")
	}
}
