// Package loader reads desired-state documents. Configurations and
// variable files are YAML (or JSON, being a YAML subset); how those
// documents are authored is not the engine's concern.
package loader

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/reify-io/reify/internal/ir"
)

// LoadConfig reads and normalizes a configuration document.
func LoadConfig(path string) (*ir.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration %s: %w", path, err)
	}

	var cfg ir.Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration %s: %w", path, err)
	}

	for _, res := range cfg.Resources {
		if res.Name == "" {
			return nil, fmt.Errorf("configuration %s: resource of type %q has no name", path, res.Type)
		}
		if res.Attributes != nil {
			res.Attributes = normalizeMap(res.Attributes)
		}
		if res.ForEach != nil {
			res.ForEach = normalizeMap(res.ForEach)
		}
	}
	for _, v := range cfg.Variables {
		if v.Name == "" {
			return nil, fmt.Errorf("configuration %s: variable with no name", path)
		}
		v.Default = ir.NormalizeValue(v.Default)
	}
	if cfg.Outputs != nil {
		cfg.Outputs = normalizeMap(cfg.Outputs)
	}

	return &cfg, nil
}

// LoadVariables reads a variable-values document (flat name -> value map).
func LoadVariables(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read variables %s: %w", path, err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("failed to parse variables %s: %w", path, err)
	}
	return normalizeMap(values), nil
}

// SavePlan writes a plan document for a later apply.
func SavePlan(path string, plan *ir.Plan) error {
	raw, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize plan: %w", err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write plan %s: %w", path, err)
	}
	return nil
}

// LoadPlan reads a plan document produced by SavePlan.
func LoadPlan(path string) (*ir.Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan %s: %w", path, err)
	}
	var plan ir.Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan %s: %w", path, err)
	}
	return &plan, nil
}

func normalizeMap(m map[string]any) map[string]any {
	out, _ := ir.NormalizeValue(m).(map[string]any)
	return out
}
