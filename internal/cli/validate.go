package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reify-io/reify/internal/engine"
	"github.com/reify-io/reify/internal/loader"
)

var validateCmd = &cobra.Command{
	Use:   "validate [config]",
	Short: "Validate the configuration",
	Long: `Checks the configuration for structural errors: duplicate identities,
references to undeclared resources or variables, and dependency cycles.
Nothing is planned or applied.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	_, configPath, err := resolveConfig(args)
	if err != nil {
		return err
	}

	cfg, err := loader.LoadConfig(configPath)
	if err != nil {
		return err
	}

	eng := engine.New(newRegistry())
	if _, err := eng.Graph(cfg); err != nil {
		return err
	}

	fmt.Printf("Configuration is valid: %d resource(s), %d variable(s).\n", len(cfg.Resources), len(cfg.Variables))
	return nil
}
