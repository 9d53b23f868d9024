package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Manage state workspaces",
	Long: `Workspaces keep independent state snapshots for the same
configuration, for example one per environment.`,
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces",
	Args:  cobra.NoArgs,
	RunE:  runWorkspaceList,
}

var workspaceNewCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create and select a new workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkspaceNew,
}

var workspaceSelectCmd = &cobra.Command{
	Use:   "select <name>",
	Short: "Select a workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkspaceSelect,
}

func init() {
	workspaceCmd.AddCommand(workspaceListCmd)
	workspaceCmd.AddCommand(workspaceNewCmd)
	workspaceCmd.AddCommand(workspaceSelectCmd)
}

func runWorkspaceList(cmd *cobra.Command, args []string) error {
	dir, _, err := resolveConfig(nil)
	if err != nil {
		return err
	}
	current := currentWorkspace(dir)

	names := []string{defaultWorkspace}
	entries, err := os.ReadDir(filepath.Join(dir, dataDirName, "workspaces"))
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				names = append(names, entry.Name())
			}
		}
	}

	for _, name := range names {
		marker := "  "
		if name == current {
			marker = "* "
		}
		fmt.Printf("%s%s\n", marker, name)
	}
	return nil
}

func runWorkspaceNew(cmd *cobra.Command, args []string) error {
	dir, _, err := resolveConfig(nil)
	if err != nil {
		return err
	}
	name := args[0]

	if name != defaultWorkspace {
		wsDir := filepath.Join(dir, dataDirName, "workspaces", name)
		if _, err := os.Stat(wsDir); err == nil {
			return fmt.Errorf("workspace %q already exists", name)
		}
		if err := os.MkdirAll(wsDir, 0755); err != nil {
			return fmt.Errorf("failed to create workspace: %w", err)
		}
	}

	if err := selectWorkspace(dir, name); err != nil {
		return err
	}
	fmt.Printf("Created and switched to workspace %q.\n", name)
	return nil
}

func runWorkspaceSelect(cmd *cobra.Command, args []string) error {
	dir, _, err := resolveConfig(nil)
	if err != nil {
		return err
	}
	name := args[0]

	if name != defaultWorkspace {
		wsDir := filepath.Join(dir, dataDirName, "workspaces", name)
		if _, err := os.Stat(wsDir); err != nil {
			return fmt.Errorf("workspace %q does not exist", name)
		}
	}

	if err := selectWorkspace(dir, name); err != nil {
		return err
	}
	fmt.Printf("Switched to workspace %q.\n", name)
	return nil
}

func selectWorkspace(dir, name string) error {
	if err := os.MkdirAll(filepath.Join(dir, dataDirName), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, dataDirName, "workspace"), []byte(name+"\n"), 0644)
}
