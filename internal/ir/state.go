package ir

import "fmt"

// State represents a persisted snapshot of applied resources. Snapshots are
// immutable: the recorder produces a new State rather than mutating the
// prior one, and Serial is the compare-and-swap token for publishing.
type State struct {
	Version   int              `yaml:"version" json:"version"`
	Serial    uint64           `yaml:"serial" json:"serial"`
	Lineage   string           `yaml:"lineage,omitempty" json:"lineage,omitempty"`
	Resources []*ResourceState `yaml:"resources,omitempty" json:"resources,omitempty"`
	Outputs   map[string]any   `yaml:"outputs,omitempty" json:"outputs,omitempty"`
}

// StateVersion is the current state document format version.
const StateVersion = 1

// ResourceState is the persisted record for one resource.
type ResourceState struct {
	Type         string         `yaml:"type" json:"type"`
	Name         string         `yaml:"name" json:"name"`
	Provider     string         `yaml:"provider,omitempty" json:"provider,omitempty"`
	ID           string         `yaml:"id,omitempty" json:"id,omitempty"` // provider-assigned identifier
	Serial       uint64         `yaml:"serial" json:"serial"`             // incremented on every successful write
	Attributes   map[string]any `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	Dependencies []string       `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Tainted      bool           `yaml:"tainted,omitempty" json:"tainted,omitempty"`
}

// Addr returns the resource address (type.name).
func (r *ResourceState) Addr() string {
	return fmt.Sprintf("%s.%s", r.Type, r.Name)
}

// NewState returns an empty state snapshot.
func NewState() *State {
	return &State{Version: StateVersion}
}

// Resource returns the record for addr, or nil.
func (s *State) Resource(addr string) *ResourceState {
	for _, res := range s.Resources {
		if res.Addr() == addr {
			return res
		}
	}
	return nil
}

// Index returns the state records keyed by address.
func (s *State) Index() map[string]*ResourceState {
	idx := make(map[string]*ResourceState, len(s.Resources))
	for _, res := range s.Resources {
		idx[res.Addr()] = res
	}
	return idx
}

// DeepCopy returns an independent copy of the snapshot.
func (s *State) DeepCopy() *State {
	out := &State{
		Version: s.Version,
		Serial:  s.Serial,
		Lineage: s.Lineage,
		Outputs: copyMap(s.Outputs),
	}
	for _, res := range s.Resources {
		out.Resources = append(out.Resources, res.DeepCopy())
	}
	return out
}

// DeepCopy returns an independent copy of the record.
func (r *ResourceState) DeepCopy() *ResourceState {
	return &ResourceState{
		Type:         r.Type,
		Name:         r.Name,
		Provider:     r.Provider,
		ID:           r.ID,
		Serial:       r.Serial,
		Attributes:   copyMap(r.Attributes),
		Dependencies: append([]string(nil), r.Dependencies...),
		Tainted:      r.Tainted,
	}
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return val
	}
}
