// Package engine implements the reconciliation kernel: it diffs a declared
// configuration against a persisted state snapshot and orders the resulting
// changes into a dependency-safe execution plan.
package engine

import (
	"context"

	"github.com/reify-io/reify/internal/ir"
	"github.com/reify-io/reify/internal/logging"
	"github.com/reify-io/reify/internal/provider"
)

// Engine orchestrates the planning and execution of a reconciliation
// cycle. It holds no mutable state between cycles; the state snapshot is
// passed in and a new one is produced by the recorder.
type Engine struct {
	registry *provider.Registry

	// ContinueOnError makes apply continue past failures instead of
	// halting dependent branches.
	ContinueOnError bool
}

func New(registry *provider.Registry) *Engine {
	return &Engine{registry: registry}
}

// Plan validates the configuration, builds the dependency graph, diffs it
// against the prior state, and orders the change set into a plan. All
// structural errors (validation, unresolved references, cycles, unorderable
// change sets) surface here, before any side effect is attempted.
func (e *Engine) Plan(ctx context.Context, cfg *ir.Config, variables map[string]any, prior *ir.State) (*ir.Plan, error) {
	resources := ExpandResources(cfg.Resources)

	resolver, err := NewResolver(cfg.Variables, variables)
	if err != nil {
		return nil, err
	}

	dag, err := BuildDAG(resources, cfg.Variables)
	if err != nil {
		return nil, err
	}

	changes, err := Diff(dag, resources, resolver, prior)
	if err != nil {
		return nil, err
	}

	plan, err := BuildPlan(prior, changes, resolver)
	if err != nil {
		return nil, err
	}
	plan.Metadata.ConfigHash = ConfigHash(cfg)
	if len(cfg.Outputs) > 0 {
		outputs, err := resolver.ResolveVars(cfg.Outputs)
		if err != nil {
			return nil, err
		}
		plan.Outputs, _ = outputs.(map[string]any)
	}

	logging.Debug("plan calculated",
		"create", plan.Summary.Create,
		"update", plan.Summary.Update,
		"destroy", plan.Summary.Destroy,
		"replace", plan.Summary.Replace,
		"noop", plan.Summary.NoOp)

	return plan, nil
}

// Graph builds the dependency graph for a configuration without planning,
// for validation and visualization.
func (e *Engine) Graph(cfg *ir.Config) (*DAG, error) {
	return BuildDAG(ExpandResources(cfg.Resources), cfg.Variables)
}

// Apply executes a plan against the registered providers and returns the
// per-operation results for the state recorder. The prior snapshot is
// never mutated. Plans carry their variable values pre-substituted, so a
// saved plan applies without re-reading variable inputs.
func (e *Engine) Apply(ctx context.Context, plan *ir.Plan, prior *ir.State, callback ApplyCallback) []*ir.Result {
	exec := NewExecutor(e.registry)
	exec.ContinueOnError = e.ContinueOnError
	exec.Callback = callback
	return exec.Execute(ctx, plan, prior)
}
