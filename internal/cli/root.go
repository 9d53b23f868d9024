package cli

import (
	"github.com/spf13/cobra"

	"github.com/reify-io/reify/internal/logging"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "reify",
	Short: "Declarative configuration reconciliation",
	Long: `Reify reconciles a declared desired-state configuration against a
persisted state snapshot. It diffs the two, orders the resulting changes
into a dependency-safe plan, and applies the plan through pluggable
providers:

  • plan     calculate the operations needed to reach the desired state
  • apply    execute a plan and record the results
  • destroy  remove everything the state knows about`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logLevel)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(outputCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(taintCmd)
	rootCmd.AddCommand(untaintCmd)
	rootCmd.AddCommand(workspaceCmd)
	rootCmd.AddCommand(versionCmd)
}
