package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/projconf/pkg/branch"
	"github.com/openfroyo/projconf/pkg/orchestrator"
)

func newBranchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branch [name]",
		Short: "Classify a branch",
		Long: `Classify the branch checked out in the project directory, or the given
branch name, with the branch policy from the organization defaults.`,
		Example: `  # Classify the current branch
  projconf branch

  # Classify a name without a repository
  projconf branch release/2.1`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults, err := loadDefaults()
			if err != nil {
				return err
			}

			p, err := orchestrator.ResolvePolicy(cmd.Context(), nil, defaults, log.Logger)
			if err != nil {
				return err
			}
			classifier := branch.NewClassifier(p, log.Logger)

			var state branch.State
			if len(args) == 1 {
				state, err = classifier.ClassifyName(cmd.Context(), args[0])
			} else {
				state, err = classifier.Classify(cmd.Context(), projectDir)
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), state)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "branch:      %s\nrelease:     %t\ndevelopment: %t\n",
				state.Branch, state.Release, state.Development)
			if !state.Release {
				fmt.Fprintln(cmd.OutOrStdout(), "build will depend on checkChangelog")
			}
			return nil
		},
	}

	return cmd
}
