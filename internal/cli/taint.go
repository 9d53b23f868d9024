package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reify-io/reify/internal/ir"
)

var taintCmd = &cobra.Command{
	Use:   "taint <address>",
	Short: "Mark a resource for recreation",
	Long: `Marks a resource as tainted, forcing it to be destroyed and recreated
on the next apply.`,
	Args: cobra.ExactArgs(1),
	RunE: runTaint,
}

var untaintCmd = &cobra.Command{
	Use:   "untaint <address>",
	Short: "Remove taint from a resource",
	Long:  `Removes the taint mark from a resource, preventing forced recreation.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runUntaint,
}

func runTaint(cmd *cobra.Command, args []string) error {
	if err := mutateRecord(cmd, args[0], func(rec *ir.ResourceState) {
		rec.Tainted = true
	}); err != nil {
		return err
	}
	fmt.Printf("Resource %s has been tainted. It will be recreated on next apply.\n", args[0])
	return nil
}

func runUntaint(cmd *cobra.Command, args []string) error {
	if err := mutateRecord(cmd, args[0], func(rec *ir.ResourceState) {
		rec.Tainted = false
	}); err != nil {
		return err
	}
	fmt.Printf("Resource %s is no longer tainted.\n", args[0])
	return nil
}
