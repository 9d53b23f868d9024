package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/reify-io/reify/internal/ir"
)

// BuildPlan orders a change set into an execution plan. The plan is a
// partial order: each operation carries the set of operation IDs it depends
// on, so an executor may run independent operations concurrently while
// same-identity operations stay serialized.
//
// Replacements are split into a destroy half and a create half. By default
// the destroy half is sequenced immediately before the create half; a
// createBeforeDestroy lifecycle reverses the pair. Pure destroys wait for
// every operation of their dependents (reverse of creation order). A change
// set whose operations cannot be ordered fails with PlanningError.
func BuildPlan(prior *ir.State, changes []*Change, resolver *Resolver) (*ir.Plan, error) {
	plan := &ir.Plan{
		Metadata: &ir.PlanMetadata{
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
			Lineage:     prior.Lineage,
			PriorSerial: prior.Serial,
		},
		Summary: &ir.PlanSummary{},
	}

	// Reverse dependency map over every change, including state-only
	// destroys whose edges come from recorded dependencies.
	dependents := make(map[string][]string)
	for _, change := range changes {
		for _, dep := range change.Dependencies {
			dependents[dep] = append(dependents[dep], change.Address)
		}
	}

	byAddr := make(map[string]*Change, len(changes))
	for _, change := range changes {
		byAddr[change.Address] = change
	}

	// opsFor maps a resource address to the operations scheduled for it.
	opsFor := make(map[string][]*ir.Operation)

	addOp := func(op *ir.Operation) {
		plan.Operations = append(plan.Operations, op)
		opsFor[op.Address] = append(opsFor[op.Address], op)
	}

	for _, change := range changes {
		switch change.Action {
		case ir.ActionNoop:
			plan.Summary.NoOp++
			addOp(&ir.Operation{
				ID:      opID(change.Address, ir.ActionNoop),
				Address: change.Address,
				Kind:    ir.ActionNoop,
			})
		case ir.ActionCreate:
			plan.Summary.Create++
			addOp(newForwardOp(change, ir.ActionCreate, resolver))
		case ir.ActionUpdate:
			plan.Summary.Update++
			addOp(newForwardOp(change, ir.ActionUpdate, resolver))
		case ir.ActionDestroy:
			plan.Summary.Destroy++
			addOp(newDestroyOp(change))
		case ir.ActionReplace:
			plan.Summary.Replace++
			cbd := change.Desired.Lifecycle != nil && change.Desired.Lifecycle.CreateBeforeDestroy
			destroy := newDestroyOp(change)
			destroy.CreateBeforeDestroy = cbd
			create := newForwardOp(change, ir.ActionCreate, resolver)
			create.CreateBeforeDestroy = cbd
			if cbd {
				addOp(create)
				addOp(destroy)
			} else {
				addOp(destroy)
				addOp(create)
			}
		default:
			return nil, &PlanningError{Addresses: []string{change.Address}, Reason: fmt.Sprintf("unknown change action %q", change.Action)}
		}
	}

	// Wire dependency edges between operations.
	for _, change := range changes {
		ops := opsFor[change.Address]

		for _, op := range ops {
			switch op.Kind {
			case ir.ActionCreate, ir.ActionUpdate:
				// Forward operations wait for the forward operations of
				// every dependency.
				for _, dep := range change.Dependencies {
					for _, depOp := range opsFor[dep] {
						if depOp.Kind == ir.ActionCreate || depOp.Kind == ir.ActionUpdate {
							op.DependsOn = append(op.DependsOn, depOp.ID)
						}
					}
				}
			case ir.ActionDestroy:
				if change.Action == ir.ActionReplace {
					// Replacement halves are sequenced against each other
					// only; the destroy half does not wait for dependents.
					continue
				}
				// Pure destroys wait for every operation of every
				// dependent.
				for _, dependent := range sortedUnique(dependents[change.Address]) {
					for _, depOp := range opsFor[dependent] {
						if depOp.Kind != ir.ActionNoop {
							op.DependsOn = append(op.DependsOn, depOp.ID)
						}
					}
				}
			}
		}

		// Sequence replacement halves.
		if change.Action == ir.ActionReplace {
			destroy, create := splitReplace(ops)
			if change.Desired.Lifecycle != nil && change.Desired.Lifecycle.CreateBeforeDestroy {
				destroy.DependsOn = append(destroy.DependsOn, create.ID)
				// The old instance outlives its dependents' updates.
				for _, dependent := range sortedUnique(dependents[change.Address]) {
					for _, depOp := range opsFor[dependent] {
						if depOp.Kind != ir.ActionNoop {
							destroy.DependsOn = append(destroy.DependsOn, depOp.ID)
						}
					}
				}
			} else {
				create.DependsOn = append(create.DependsOn, destroy.ID)
			}
		}
	}

	for _, op := range plan.Operations {
		op.DependsOn = sortedUnique(op.DependsOn)
	}

	if err := checkOrderable(plan.Operations); err != nil {
		return nil, err
	}

	return plan, nil
}

func opID(addr string, kind ir.Action) string {
	return fmt.Sprintf("%s:%s", addr, kind)
}

func newForwardOp(change *Change, kind ir.Action, resolver *Resolver) *ir.Operation {
	op := &ir.Operation{
		ID:           opID(change.Address, kind),
		Address:      change.Address,
		Kind:         kind,
		Provider:     providerFor(change),
		After:        change.Resolved,
		Diff:         change.Diff,
		Dependencies: append([]string(nil), change.Dependencies...),
	}
	if change.Prior != nil {
		op.Before = change.Prior.Attributes
	}
	if change.Desired != nil && resolver != nil {
		if cfg, err := resolver.ResolveVars(ir.NormalizeValue(change.Desired.Attributes)); err == nil {
			op.Config, _ = cfg.(map[string]any)
		}
	}
	for key, marked := range change.Sensitive {
		if marked {
			op.Sensitive = append(op.Sensitive, key)
		}
	}
	sort.Strings(op.Sensitive)
	return op
}

func newDestroyOp(change *Change) *ir.Operation {
	op := &ir.Operation{
		ID:       opID(change.Address, ir.ActionDestroy),
		Address:  change.Address,
		Kind:     ir.ActionDestroy,
		Provider: providerFor(change),
	}
	if change.Prior != nil {
		op.Before = change.Prior.Attributes
	}
	if change.Action == ir.ActionDestroy {
		op.Diff = change.Diff
	}
	return op
}

func providerFor(change *Change) string {
	if change.Desired != nil && change.Desired.Provider != "" {
		return change.Desired.Provider
	}
	if change.Prior != nil && change.Prior.Provider != "" {
		return change.Prior.Provider
	}
	return "null"
}

func splitReplace(ops []*ir.Operation) (destroy, create *ir.Operation) {
	for _, op := range ops {
		switch op.Kind {
		case ir.ActionDestroy:
			destroy = op
		case ir.ActionCreate:
			create = op
		}
	}
	return destroy, create
}

// checkOrderable verifies the operation graph is acyclic. A residual cycle
// after a replacement split is a configuration defect, not something to
// guess an ordering for.
func checkOrderable(ops []*ir.Operation) error {
	index := make(map[string]*ir.Operation, len(ops))
	for _, op := range ops {
		index[op.ID] = op
	}

	const (
		unvisited = iota
		visiting
		done
	)
	marks := make(map[string]int, len(ops))
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		marks[id] = visiting
		stack = append(stack, id)
		for _, dep := range index[id].DependsOn {
			if _, ok := index[dep]; !ok {
				continue
			}
			switch marks[dep] {
			case visiting:
				for i, s := range stack {
					if s == dep {
						cycle = append([]string(nil), stack[i:]...)
						return true
					}
				}
			case unvisited:
				if visit(dep) {
					return true
				}
			}
		}
		marks[id] = done
		stack = stack[:len(stack)-1]
		return false
	}

	for _, op := range ops {
		if marks[op.ID] == unvisited && visit(op.ID) {
			addrs := make([]string, 0, len(cycle))
			seen := make(map[string]bool)
			for _, id := range cycle {
				addr := index[id].Address
				if !seen[addr] {
					seen[addr] = true
					addrs = append(addrs, addr)
				}
			}
			return &PlanningError{Addresses: addrs, Reason: "residual dependency cycle between scheduled operations"}
		}
	}
	return nil
}

// ConfigHash returns a stable fingerprint of a configuration document,
// recorded in plan metadata.
func ConfigHash(cfg *ir.Config) string {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func sortedUnique(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
