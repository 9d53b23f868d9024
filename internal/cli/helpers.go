package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/reify-io/reify/internal/ir"
	"github.com/reify-io/reify/internal/loader"
	"github.com/reify-io/reify/internal/provider"
	"github.com/reify-io/reify/internal/state"
	"github.com/reify-io/reify/providers/null"
)

const (
	defaultConfigFile = "reify.yaml"
	dataDirName       = ".reify"
	defaultWorkspace  = "default"
)

// resolveConfig turns an optional positional argument into a working
// directory and configuration file path.
func resolveConfig(args []string) (dir, file string, err error) {
	dir, err = os.Getwd()
	if err != nil {
		return "", "", fmt.Errorf("failed to get working directory: %w", err)
	}
	file = defaultConfigFile

	if len(args) > 0 {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return "", "", fmt.Errorf("failed to resolve path %s: %w", args[0], err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", "", fmt.Errorf("failed to stat path %s: %w", args[0], err)
		}
		if info.IsDir() {
			dir = abs
		} else {
			dir = filepath.Dir(abs)
			file = filepath.Base(abs)
		}
	}
	return dir, filepath.Join(dir, file), nil
}

// currentWorkspace reads the selected workspace name, defaulting to
// "default".
func currentWorkspace(dir string) string {
	raw, err := os.ReadFile(filepath.Join(dir, dataDirName, "workspace"))
	if err != nil {
		return defaultWorkspace
	}
	name := strings.TrimSpace(string(raw))
	if name == "" {
		return defaultWorkspace
	}
	return name
}

// statePath returns the state file location for the selected workspace.
func statePath(dir string) string {
	ws := currentWorkspace(dir)
	if ws == defaultWorkspace {
		return filepath.Join(dir, dataDirName, "state.json")
	}
	return filepath.Join(dir, dataDirName, "workspaces", ws, "state.json")
}

// newStore opens the file store for the working directory's workspace.
func newStore(dir string) *state.FileStore {
	return state.NewFileStore(statePath(dir))
}

// newRegistry returns a provider registry with the builtin providers
// registered.
func newRegistry() *provider.Registry {
	registry := provider.NewRegistry()
	registry.Register("null", null.New)
	return registry
}

// loadVarFiles merges variable files and -var flags, later entries
// winning.
func loadVarFiles(files []string, flags []string) (map[string]any, error) {
	values := make(map[string]any)
	for _, file := range files {
		loaded, err := loader.LoadVariables(file)
		if err != nil {
			return nil, err
		}
		for k, v := range loaded {
			values[k] = v
		}
	}
	for _, flag := range flags {
		name, value, found := strings.Cut(flag, "=")
		if !found {
			return nil, fmt.Errorf("invalid -var value %q, expected name=value", flag)
		}
		values[name] = value
	}
	return values, nil
}

func actionSymbol(kind ir.Action) string {
	switch kind {
	case ir.ActionCreate:
		return "+"
	case ir.ActionDestroy:
		return "-"
	case ir.ActionUpdate:
		return "~"
	default:
		return " "
	}
}

// renderPlan prints the plan's operations with per-attribute diffs.
// Sensitive values are redacted.
func renderPlan(plan *ir.Plan) {
	for _, op := range plan.Operations {
		if op.Kind == ir.ActionNoop {
			continue
		}
		fmt.Printf("\n  %s %s (%s)\n", actionSymbol(op.Kind), op.Address, op.Kind)
		renderOperationDiff(op)
	}

	fmt.Println("\nPlan summary:")
	fmt.Printf("  Create:  %d\n", plan.Summary.Create)
	fmt.Printf("  Update:  %d\n", plan.Summary.Update)
	fmt.Printf("  Destroy: %d\n", plan.Summary.Destroy)
	fmt.Printf("  Replace: %d\n", plan.Summary.Replace)
	fmt.Printf("  No-op:   %d\n", plan.Summary.NoOp)
}

func renderOperationDiff(op *ir.Operation) {
	if len(op.Diff) == 0 {
		return
	}
	keys := make([]string, 0, len(op.Diff))
	for k := range op.Diff {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		d := op.Diff[key]
		before := renderValue(d.Before, d.Sensitive)
		after := renderValue(d.After, d.Sensitive)
		switch d.Action {
		case ir.ActionCreate:
			fmt.Printf("      %s = %s\n", key, after)
		case ir.ActionDestroy:
			fmt.Printf("      %s = %s -> (removed)\n", key, before)
		default:
			suffix := ""
			if d.ForcesReplacement {
				suffix = " # forces replacement"
			}
			fmt.Printf("      %s = %s -> %s%s\n", key, before, after, suffix)
		}
	}
}

func renderValue(v any, sensitive bool) string {
	if sensitive {
		return "(sensitive)"
	}
	if ir.IsUnknown(v) {
		return "(known after apply)"
	}
	return fmt.Sprintf("%v", v)
}
