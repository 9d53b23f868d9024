package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reify-io/reify/internal/engine"
	"github.com/reify-io/reify/internal/ir"
	"github.com/reify-io/reify/internal/loader"
	"github.com/reify-io/reify/internal/state"
)

var (
	applyAutoApprove     bool
	applyPlanFile        string
	applyContinueOnError bool
	applyVarFiles        []string
	applyVars            []string
)

var applyCmd = &cobra.Command{
	Use:   "apply [config]",
	Short: "Apply the changes required to reach the desired state",
	Long: `Calculates an execution plan (or loads one written by "plan -out") and
executes it, recording the results into a new state snapshot.

Independent operations run in parallel; a failure stops dependent
operations from starting while independent branches finish. Completed
work is always recorded.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().BoolVar(&applyAutoApprove, "auto-approve", false, "Skip interactive approval")
	applyCmd.Flags().StringVar(&applyPlanFile, "plan", "", "Apply a previously saved plan file")
	applyCmd.Flags().BoolVar(&applyContinueOnError, "continue-on-error", false, "Continue past individual resource failures")
	applyCmd.Flags().StringSliceVar(&applyVarFiles, "var-file", nil, "Variable values file (repeatable)")
	applyCmd.Flags().StringSliceVar(&applyVars, "var", nil, "Variable value as name=value (repeatable)")
}

func runApply(cmd *cobra.Command, args []string) error {
	dir, configPath, err := resolveConfig(args)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	cfg, err := loader.LoadConfig(configPath)
	if err != nil {
		return err
	}
	variables, err := loadVarFiles(applyVarFiles, applyVars)
	if err != nil {
		return err
	}

	store := newStore(dir)
	if err := store.Lock(); err != nil {
		return err
	}
	defer store.Unlock()

	prior, err := store.Load(ctx)
	if err != nil {
		return err
	}

	eng := engine.New(newRegistry())
	eng.ContinueOnError = applyContinueOnError

	var plan *ir.Plan
	if applyPlanFile != "" {
		plan, err = loader.LoadPlan(applyPlanFile)
		if err != nil {
			return err
		}
		if plan.Metadata.PriorSerial != prior.Serial {
			return fmt.Errorf("saved plan is stale: it was calculated against state serial %d but the store holds %d; run plan again",
				plan.Metadata.PriorSerial, prior.Serial)
		}
	} else {
		plan, err = eng.Plan(ctx, cfg, variables, prior)
		if err != nil {
			return err
		}
	}

	pending := len(plan.Operations) - plan.Summary.NoOp
	if pending == 0 {
		fmt.Println("No changes. The desired state matches the recorded state.")
		return nil
	}

	renderPlan(plan)
	if !applyAutoApprove {
		if !confirm("\nDo you want to perform these actions?") {
			fmt.Println("Apply cancelled.")
			return nil
		}
	}

	fmt.Println()
	results := eng.Apply(ctx, plan, prior, func(event engine.ApplyEvent) {
		switch event.Status {
		case "completed":
			fmt.Printf("%s: %s complete (%s)\n", event.Address, event.Kind, event.Duration.Round(1e6))
		case "failed":
			fmt.Printf("%s: %s FAILED: %v\n", event.Address, event.Kind, event.Error)
		case "skipped":
			fmt.Printf("%s: skipped (dependency failed)\n", event.Address)
		}
	})

	next := state.Record(prior, results)
	next.Outputs = engine.ResolveOutputs(plan.Outputs, prior, results)
	if err := store.Swap(ctx, prior.Serial, next); err != nil {
		var conflict *state.ConflictError
		if errors.As(err, &conflict) {
			return fmt.Errorf("%w; re-run apply against the current state", conflict)
		}
		return err
	}

	succeeded, failedCount := 0, 0
	for _, result := range results {
		if result.Succeeded() {
			succeeded++
		} else {
			failedCount++
		}
	}

	fmt.Printf("\nApply complete. %d succeeded, %d failed. State serial is now %d.\n", succeeded, failedCount, next.Serial)
	if failedCount > 0 {
		return fmt.Errorf("%d operation(s) failed", failedCount)
	}
	return nil
}

func confirm(prompt string) bool {
	fmt.Printf("%s Only 'yes' will be accepted: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(line) == "yes"
}
