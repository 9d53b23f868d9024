package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reify-io/reify/internal/engine"
	"github.com/reify-io/reify/internal/loader"
)

var (
	planOutFile  string
	planVarFiles []string
	planVars     []string
)

var planCmd = &cobra.Command{
	Use:   "plan [config]",
	Short: "Generate an execution plan",
	Long: `Generates an execution plan showing what actions reify will take to
reach the desired state defined in your configuration.

The plan shows:
  • Resources to be created
  • Resources to be updated (with diff)
  • Resources to be replaced or destroyed`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planOutFile, "out", "o", "", "Write plan to file")
	planCmd.Flags().StringSliceVar(&planVarFiles, "var-file", nil, "Variable values file (repeatable)")
	planCmd.Flags().StringSliceVar(&planVars, "var", nil, "Variable value as name=value (repeatable)")
}

func runPlan(cmd *cobra.Command, args []string) error {
	dir, configPath, err := resolveConfig(args)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	cfg, err := loader.LoadConfig(configPath)
	if err != nil {
		return err
	}
	variables, err := loadVarFiles(planVarFiles, planVars)
	if err != nil {
		return err
	}

	store := newStore(dir)
	prior, err := store.Load(ctx)
	if err != nil {
		return err
	}

	eng := engine.New(newRegistry())
	plan, err := eng.Plan(ctx, cfg, variables, prior)
	if err != nil {
		return err
	}

	if plan.Empty() || plan.Summary.NoOp == len(plan.Operations) {
		fmt.Println("No changes. The desired state matches the recorded state.")
	} else {
		renderPlan(plan)
	}

	if planOutFile != "" {
		if err := loader.SavePlan(planOutFile, plan); err != nil {
			return err
		}
		fmt.Printf("\nPlan written to %s\n", planOutFile)
	}
	return nil
}
