package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reify-io/reify/internal/loader"
)

var showCmd = &cobra.Command{
	Use:   "show <planfile>",
	Short: "Show a saved plan",
	Long:  `Renders a plan file written by "plan -out" in human-readable form.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	plan, err := loader.LoadPlan(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Plan calculated %s against state serial %d\n", plan.Metadata.Timestamp, plan.Metadata.PriorSerial)
	renderPlan(plan)
	return nil
}
