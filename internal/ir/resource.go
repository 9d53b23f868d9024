package ir

import "fmt"

// Resource represents a single declared resource.
type Resource struct {
	Type       string         `yaml:"type" json:"type"` // e.g. "compute.Instance"
	Name       string         `yaml:"name" json:"name"`
	Provider   string         `yaml:"provider,omitempty" json:"provider,omitempty"`
	Lifecycle  *Lifecycle     `yaml:"lifecycle,omitempty" json:"lifecycle,omitempty"`
	DependsOn  []string       `yaml:"dependsOn,omitempty" json:"dependsOn,omitempty"`
	Replace    []string       `yaml:"replace,omitempty" json:"replace,omitempty"` // attributes that force replacement when changed
	Count      int            `yaml:"count,omitempty" json:"count,omitempty"`
	ForEach    map[string]any `yaml:"forEach,omitempty" json:"forEach,omitempty"`
	Attributes map[string]any `yaml:"attributes,omitempty" json:"attributes,omitempty"` // dynamic attribute values
}

// Lifecycle carries per-resource planning policies.
type Lifecycle struct {
	CreateBeforeDestroy bool     `yaml:"createBeforeDestroy,omitempty" json:"createBeforeDestroy,omitempty"`
	PreventDestroy      bool     `yaml:"preventDestroy,omitempty" json:"preventDestroy,omitempty"`
	IgnoreChanges       []string `yaml:"ignoreChanges,omitempty" json:"ignoreChanges,omitempty"`
}

// Addr returns the resource address (type.name), unique within a configuration.
func (r *Resource) Addr() string {
	t := r.Type
	if t == "" {
		t = "null"
	}
	return fmt.Sprintf("%s.%s", t, r.Name)
}

// ReplaceForced reports whether a change to attribute key forces replacement.
func (r *Resource) ReplaceForced(key string) bool {
	for _, attr := range r.Replace {
		if attr == key {
			return true
		}
	}
	return false
}
