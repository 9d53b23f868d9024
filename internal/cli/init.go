package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new configuration directory",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

const starterConfig = `# Declared desired state. Run "reify plan" to see what would change.
variables:
  - name: environment
    type: string
    default: dev

resources:
  - type: null.resource
    name: example
    attributes:
      environment: var://environment
`

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	configPath := filepath.Join(dir, defaultConfigFile)
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("%s already exists, leaving it untouched.\n", defaultConfigFile)
	} else {
		if err := os.WriteFile(configPath, []byte(starterConfig), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", defaultConfigFile, err)
		}
		fmt.Printf("Created %s.\n", defaultConfigFile)
	}

	if err := os.MkdirAll(filepath.Join(dir, dataDirName), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	fmt.Printf("Initialized %s/ for state storage.\n", dataDirName)
	return nil
}
