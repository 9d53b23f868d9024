package engine

import (
	"sort"

	"github.com/google/go-cmp/cmp"

	"github.com/reify-io/reify/internal/ir"
)

// Change classifies one resource present in the declared configuration, the
// prior state, or both.
type Change struct {
	Address      string
	Action       ir.Action
	Desired      *ir.Resource
	Prior        *ir.ResourceState
	Resolved     map[string]any // resolved desired attribute values
	Sensitive    map[string]bool
	Diff         map[string]*ir.AttributeDiff
	Dependencies []string
}

// Diff compares declared resources against the prior state and classifies
// every resource identity present in either. Equality is decided on
// resolved concrete values, never on reference expression text, so a
// reference whose resolved value is unchanged yields a no-op. Resources
// absent from the configuration but present in state are always scheduled
// for destruction.
func Diff(dag *DAG, resources []*ir.Resource, resolver *Resolver, prior *ir.State) ([]*Change, error) {
	priorIdx := prior.Index()
	desiredIdx := make(map[string]*ir.Resource, len(resources))
	for _, res := range resources {
		desiredIdx[res.Addr()] = res
	}

	actions := make(map[string]ir.Action)
	resolvedDesired := make(map[string]map[string]any)

	lookup := func(ref ir.Ref) (any, bool) {
		// A value fixed by the configuration is known regardless of the
		// referenced resource's pending action.
		if attrs, ok := resolvedDesired[ref.Addr]; ok {
			if v, ok := attrs[ref.Attribute]; ok && !ir.IsUnknown(v) {
				return v, true
			}
		}
		// Computed attributes keep their recorded value unless the
		// resource is being created or replaced.
		if rec, ok := priorIdx[ref.Addr]; ok {
			switch actions[ref.Addr] {
			case ir.ActionNoop, ir.ActionUpdate:
				if v, ok := rec.Attributes[ref.Attribute]; ok {
					return v, true
				}
			}
		}
		return nil, false
	}

	var changes []*Change

	// Declared resources, in creation order so that every dependency is
	// classified before its dependents resolve references to it.
	for _, addr := range dag.CreationOrder() {
		res, ok := desiredIdx[addr]
		if !ok {
			continue
		}

		resolved, sensitive, err := resolver.ResolveAttributes(res.Attributes, lookup)
		if err != nil {
			return nil, &ValidationError{Subject: addr, Reason: err.Error()}
		}

		change := &Change{
			Address:      addr,
			Desired:      res,
			Resolved:     resolved,
			Sensitive:    sensitive,
			Dependencies: append([]string(nil), dag.Dependencies(addr)...),
		}

		rec := priorIdx[addr]
		switch {
		case rec == nil:
			change.Action = ir.ActionCreate
			change.Diff = createDiff(resolved, sensitive)
		case rec.Tainted:
			// A tainted record is a forced destroy-then-create.
			change.Action = ir.ActionReplace
			change.Prior = rec
			change.Diff = updateDiff(rec.Attributes, resolved, sensitive, res)
		default:
			change.Prior = rec
			diff := updateDiff(rec.Attributes, resolved, sensitive, res)
			if res.Lifecycle != nil {
				diff = dropIgnoredChanges(diff, res.Lifecycle.IgnoreChanges)
			}
			switch {
			case len(diff) == 0:
				change.Action = ir.ActionNoop
			case forcesReplacement(diff):
				change.Action = ir.ActionReplace
				change.Diff = diff
			default:
				change.Action = ir.ActionUpdate
				change.Diff = diff
			}
		}

		if change.Action == ir.ActionReplace && res.Lifecycle != nil && res.Lifecycle.PreventDestroy {
			return nil, &ValidationError{Subject: addr, Reason: "preventDestroy is set but the plan requires replacement"}
		}

		actions[addr] = change.Action
		resolvedDesired[addr] = resolved
		changes = append(changes, change)
	}

	// State-only resources are never silently dropped.
	stateOnly := make([]string, 0)
	for addr := range priorIdx {
		if _, ok := desiredIdx[addr]; !ok {
			stateOnly = append(stateOnly, addr)
		}
	}
	sort.Strings(stateOnly)
	for _, addr := range stateOnly {
		rec := priorIdx[addr]
		changes = append(changes, &Change{
			Address:      addr,
			Action:       ir.ActionDestroy,
			Prior:        rec,
			Diff:         destroyDiff(rec.Attributes),
			Dependencies: append([]string(nil), rec.Dependencies...),
		})
	}

	return changes, nil
}

// valuesEqual compares two resolved attribute values. Unknown values are
// never equal to anything: a value that cannot be known until apply always
// counts as a change.
func valuesEqual(prior, desired any) bool {
	if ir.IsUnknown(desired) || ir.IsUnknown(prior) {
		return false
	}
	return cmp.Equal(ir.NormalizeValue(prior), ir.NormalizeValue(desired))
}

func createDiff(resolved map[string]any, sensitive map[string]bool) map[string]*ir.AttributeDiff {
	diff := make(map[string]*ir.AttributeDiff, len(resolved))
	for k, v := range resolved {
		diff[k] = &ir.AttributeDiff{After: v, Action: ir.ActionCreate, Sensitive: sensitive[k]}
	}
	return diff
}

func destroyDiff(attrs map[string]any) map[string]*ir.AttributeDiff {
	diff := make(map[string]*ir.AttributeDiff, len(attrs))
	for k, v := range attrs {
		diff[k] = &ir.AttributeDiff{Before: v, Action: ir.ActionDestroy}
	}
	return diff
}

func updateDiff(prior, desired map[string]any, sensitive map[string]bool, res *ir.Resource) map[string]*ir.AttributeDiff {
	diff := make(map[string]*ir.AttributeDiff)

	keys := make(map[string]bool, len(prior)+len(desired))
	for k := range prior {
		keys[k] = true
	}
	for k := range desired {
		keys[k] = true
	}

	for k := range keys {
		priorVal, inPrior := prior[k]
		desiredVal, inDesired := desired[k]

		switch {
		case !inPrior:
			diff[k] = &ir.AttributeDiff{After: desiredVal, Action: ir.ActionCreate, Sensitive: sensitive[k]}
		case !inDesired:
			// Attributes the provider computed are not part of the desired
			// document; their absence is not a change.
			continue
		case !valuesEqual(priorVal, desiredVal):
			diff[k] = &ir.AttributeDiff{
				Before:            priorVal,
				After:             desiredVal,
				Action:            ir.ActionUpdate,
				Sensitive:         sensitive[k],
				ForcesReplacement: res.ReplaceForced(k),
			}
		}
	}

	return diff
}

func dropIgnoredChanges(diff map[string]*ir.AttributeDiff, ignore []string) map[string]*ir.AttributeDiff {
	if len(ignore) == 0 {
		return diff
	}
	ignored := make(map[string]bool, len(ignore))
	for _, attr := range ignore {
		ignored[attr] = true
	}
	out := make(map[string]*ir.AttributeDiff, len(diff))
	for k, d := range diff {
		if !ignored[k] {
			out[k] = d
		}
	}
	return out
}

func forcesReplacement(diff map[string]*ir.AttributeDiff) bool {
	for _, d := range diff {
		if d.ForcesReplacement {
			return true
		}
	}
	return false
}
