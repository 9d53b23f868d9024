package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reify-io/reify/internal/engine"
	"github.com/reify-io/reify/internal/loader"
)

var graphCmd = &cobra.Command{
	Use:   "graph [config]",
	Short: "Output the dependency graph in DOT format",
	Long: `Builds the resource dependency graph and prints it in Graphviz DOT
format, suitable for rendering with dot(1).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGraph,
}

func runGraph(cmd *cobra.Command, args []string) error {
	_, configPath, err := resolveConfig(args)
	if err != nil {
		return err
	}

	cfg, err := loader.LoadConfig(configPath)
	if err != nil {
		return err
	}

	eng := engine.New(newRegistry())
	dag, err := eng.Graph(cfg)
	if err != nil {
		return err
	}

	fmt.Print(dag.ToDOT())
	return nil
}
