package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/projconf/pkg/orchestrator"
	"github.com/openfroyo/projconf/pkg/telemetry"
)

func newConfigureCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Run a configuration pass",
		Long: `Run one configuration pass on the project and print what it configured.

Secrets are read from MAIL_USER, MAIL_PASSWORD, GIT_PRIVATE_SSH_KEY_PATH,
BITBUCKET_USER, BITBUCKET_PASSWORD, NEXUS_USER and NEXUS_PASSWORD.`,
		Example: `  # Configure the project in the current directory
  projconf configure

  # Use organization defaults from a CUE file and print JSON
  projconf configure --defaults org.cue --json

  # Check against an older host
  projconf configure --host-version 6.3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tel, err := newTelemetry(cmd.Root().Version, "")
			if err != nil {
				return err
			}
			defer shutdownTelemetry(tel)

			report, err := runPass(cmd.Context(), tel)
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	return cmd
}

func printReport(w io.Writer, r *orchestrator.Report) {
	fmt.Fprintf(w, "Project:  %s (%s)\n", r.Project, r.Dir)
	fmt.Fprintf(w, "Pass:     %s\n", r.PassID)
	fmt.Fprintf(w, "Branch:   %s (release: %t, development: %t)\n", r.Branch.Branch, r.Branch.Release, r.Branch.Development)
	fmt.Fprintf(w, "Plugins:  %s\n", strings.Join(r.Applied, ", "))
	fmt.Fprintf(w, "Steps:    %s\n", strings.Join(r.Steps, ", "))
	if r.Script != nil {
		fmt.Fprintf(w, "Script:   %s\n", strings.Join(r.Script.Properties, ", "))
	}
	fmt.Fprintf(w, "Tasks:    %d levels, %d edges\n", len(r.Levels), len(r.Edges))
	fmt.Fprintf(w, "Duration: %s\n", r.Duration)
}

func shutdownTelemetry(tel *telemetry.Telemetry) {
	if err := tel.Shutdown(context.Background()); err != nil {
		log.Warn().Err(err).Msg("Failed to flush telemetry")
	}
}
