package ir

// Action classifies the operation a plan schedules for a resource.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDestroy Action = "destroy"
	ActionNoop    Action = "noop"

	// ActionReplace only appears in change sets; the planner splits it
	// into a destroy operation and a create operation.
	ActionReplace Action = "replace"
)

// Plan represents a calculated execution plan. Operations form a partial
// order: each operation names the operations it depends on, so an executor
// may run mutually independent operations concurrently.
type Plan struct {
	Metadata   *PlanMetadata  `yaml:"metadata" json:"metadata"`
	Operations []*Operation   `yaml:"operations" json:"operations"`
	Summary    *PlanSummary   `yaml:"summary" json:"summary"`
	Outputs    map[string]any `yaml:"outputs,omitempty" json:"outputs,omitempty"`
}

type PlanMetadata struct {
	Timestamp   string `yaml:"timestamp" json:"timestamp"`
	Lineage     string `yaml:"lineage,omitempty" json:"lineage,omitempty"`
	PriorSerial uint64 `yaml:"priorSerial" json:"priorSerial"`
	ConfigHash  string `yaml:"configHash,omitempty" json:"configHash,omitempty"`
}

// Operation is a single scheduled step. A replacement is represented as a
// destroy operation and a create operation for the same address, linked
// through DependsOn.
type Operation struct {
	ID       string         `yaml:"id" json:"id"`
	Address  string         `yaml:"address" json:"address"`
	Kind     Action         `yaml:"kind" json:"kind"`
	Provider string         `yaml:"provider,omitempty" json:"provider,omitempty"`
	Before   map[string]any `yaml:"before,omitempty" json:"before,omitempty"`
	After    map[string]any `yaml:"after,omitempty" json:"after,omitempty"`

	// Config holds the desired attributes with variable references already
	// substituted but resource references intact; the executor resolves
	// those against live attribute values as dependencies complete.
	Config map[string]any `yaml:"config,omitempty" json:"config,omitempty"`

	// Sensitive lists attribute keys whose values are redacted from
	// rendered output.
	Sensitive []string                  `yaml:"sensitive,omitempty" json:"sensitive,omitempty"`
	Diff      map[string]*AttributeDiff `yaml:"diff,omitempty" json:"diff,omitempty"`
	DependsOn []string                  `yaml:"dependsOn,omitempty" json:"dependsOn,omitempty"` // operation IDs

	// Dependencies are the resource addresses this resource depends on,
	// persisted into state for destroy ordering on later cycles.
	Dependencies []string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`

	// CreateBeforeDestroy is set on replacement halves when the resource's
	// lifecycle reverses the default destroy-then-create order.
	CreateBeforeDestroy bool `yaml:"createBeforeDestroy,omitempty" json:"createBeforeDestroy,omitempty"`
}

// AttributeDiff describes one changed attribute.
type AttributeDiff struct {
	Before            any    `yaml:"before,omitempty" json:"before,omitempty"`
	After             any    `yaml:"after,omitempty" json:"after,omitempty"`
	Action            Action `yaml:"action" json:"action"`
	Sensitive         bool   `yaml:"sensitive,omitempty" json:"sensitive,omitempty"`
	ForcesReplacement bool   `yaml:"forcesReplacement,omitempty" json:"forcesReplacement,omitempty"`
}

type PlanSummary struct {
	Create  int `yaml:"create" json:"create"`
	Update  int `yaml:"update" json:"update"`
	Destroy int `yaml:"destroy" json:"destroy"`
	Replace int `yaml:"replace" json:"replace"`
	NoOp    int `yaml:"noop" json:"noop"`
}

// Empty reports whether the plan schedules no work.
func (p *Plan) Empty() bool {
	return len(p.Operations) == 0
}

// Operation returns the operation with the given ID, or nil.
func (p *Plan) Operation(id string) *Operation {
	for _, op := range p.Operations {
		if op.ID == id {
			return op
		}
	}
	return nil
}
