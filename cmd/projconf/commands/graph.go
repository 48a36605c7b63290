package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGraphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the configured task graph",
		Long: `Run a configuration pass and print the resulting task graph in DOT format,
or as execution levels and edges with --json.`,
		Example: `  # Render the task graph
  projconf graph | dot -Tsvg > tasks.svg`,
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
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"levels": report.Levels,
					"edges":  report.Edges,
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), report.Graph.ToDOT(report.Project))
			return nil
		},
	}

	return cmd
}
