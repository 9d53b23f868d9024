package ir

// Config represents the top-level desired-state document.
type Config struct {
	Variables []*Variable    `yaml:"variables,omitempty" json:"variables,omitempty"`
	Resources []*Resource    `yaml:"resources" json:"resources"`
	Outputs   map[string]any `yaml:"outputs,omitempty" json:"outputs,omitempty"`
}
