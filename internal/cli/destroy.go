package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reify-io/reify/internal/engine"
	"github.com/reify-io/reify/internal/ir"
	"github.com/reify-io/reify/internal/state"
)

var destroyAutoApprove bool

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Destroy all recorded resources",
	Long: `Plans and applies the destruction of every resource in the state,
in reverse dependency order.`,
	Args: cobra.NoArgs,
	RunE: runDestroy,
}

func init() {
	destroyCmd.Flags().BoolVar(&destroyAutoApprove, "auto-approve", false, "Skip interactive approval")
}

func runDestroy(cmd *cobra.Command, args []string) error {
	dir, _, err := resolveConfig(nil)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	store := newStore(dir)
	if err := store.Lock(); err != nil {
		return err
	}
	defer store.Unlock()

	prior, err := store.Load(ctx)
	if err != nil {
		return err
	}
	if len(prior.Resources) == 0 {
		fmt.Println("Nothing to destroy: the state records no resources.")
		return nil
	}

	// An empty configuration schedules a destroy for everything in state.
	empty := &ir.Config{}
	eng := engine.New(newRegistry())
	plan, err := eng.Plan(ctx, empty, nil, prior)
	if err != nil {
		return err
	}

	renderPlan(plan)
	if !destroyAutoApprove {
		if !confirm("\nDo you really want to destroy all resources?") {
			fmt.Println("Destroy cancelled.")
			return nil
		}
	}

	fmt.Println()
	results := eng.Apply(ctx, plan, prior, func(event engine.ApplyEvent) {
		switch event.Status {
		case "completed":
			fmt.Printf("%s: destroyed (%s)\n", event.Address, event.Duration.Round(1e6))
		case "failed":
			fmt.Printf("%s: destroy FAILED: %v\n", event.Address, event.Error)
		case "skipped":
			fmt.Printf("%s: skipped (dependency failed)\n", event.Address)
		}
	})

	next := state.Record(prior, results)
	next.Outputs = nil
	if err := store.Swap(ctx, prior.Serial, next); err != nil {
		return err
	}

	fmt.Printf("\nDestroy complete. %d resource(s) remain in state, serial %d.\n", len(next.Resources), next.Serial)
	return nil
}
