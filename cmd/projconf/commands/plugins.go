package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfroyo/projconf/pkg/orchestrator"
	"github.com/openfroyo/projconf/pkg/plugins"
)

func newPluginsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List the builtin plugin catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := plugins.NewRegistry()
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"catalog": registry.IDs(),
					"applied": orchestrator.DefaultPluginIDs,
				})
			}

			applied := make(map[string]bool)
			applied[plugins.PluginDevelopmentPluginID] = true
			for _, id := range orchestrator.DefaultPluginIDs {
				applied[id] = true
			}
			for _, id := range registry.IDs() {
				marker := " "
				if applied[id] {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, id)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "\n* applied directly by the project plugin")
			return nil
		},
	}

	return cmd
}
