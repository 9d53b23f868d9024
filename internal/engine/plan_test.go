package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reify-io/reify/internal/ir"
)

func TestBuildPlan_CreateOrdering(t *testing.T) {
	changes := []*Change{
		{Address: "null.a", Action: ir.ActionCreate, Desired: &ir.Resource{Type: "null", Name: "a"}},
		{Address: "null.b", Action: ir.ActionCreate, Desired: &ir.Resource{Type: "null", Name: "b"}, Dependencies: []string{"null.a"}},
	}

	plan, err := BuildPlan(ir.NewState(), changes, nil)
	require.NoError(t, err)
	require.Len(t, plan.Operations, 2)
	assert.Equal(t, 2, plan.Summary.Create)

	b := plan.Operation("null.b:create")
	require.NotNil(t, b)
	assert.Equal(t, []string{"null.a:create"}, b.DependsOn)

	a := plan.Operation("null.a:create")
	require.NotNil(t, a)
	assert.Empty(t, a.DependsOn)
}

func TestBuildPlan_DestroyReversesOrder(t *testing.T) {
	// b depended on a when created, so a's destroy waits for b's.
	changes := []*Change{
		{Address: "null.a", Action: ir.ActionDestroy, Prior: &ir.ResourceState{Type: "null", Name: "a"}},
		{Address: "null.b", Action: ir.ActionDestroy, Prior: &ir.ResourceState{Type: "null", Name: "b"}, Dependencies: []string{"null.a"}},
	}

	plan, err := BuildPlan(&ir.State{Serial: 2}, changes, nil)
	require.NoError(t, err)

	a := plan.Operation("null.a:destroy")
	require.NotNil(t, a)
	assert.Equal(t, []string{"null.b:destroy"}, a.DependsOn)

	b := plan.Operation("null.b:destroy")
	require.NotNil(t, b)
	assert.Empty(t, b.DependsOn)
}

func TestBuildPlan_ReplaceSplitsDestroyThenCreate(t *testing.T) {
	changes := []*Change{
		{
			Address: "db.main",
			Action:  ir.ActionReplace,
			Desired: &ir.Resource{Type: "db", Name: "main"},
			Prior:   &ir.ResourceState{Type: "db", Name: "main", Attributes: map[string]any{"zone": "a"}},
		},
	}

	plan, err := BuildPlan(&ir.State{Serial: 1}, changes, nil)
	require.NoError(t, err)
	require.Len(t, plan.Operations, 2)
	assert.Equal(t, 1, plan.Summary.Replace)

	destroy := plan.Operation("db.main:destroy")
	create := plan.Operation("db.main:create")
	require.NotNil(t, destroy)
	require.NotNil(t, create)

	assert.Equal(t, []string{"db.main:destroy"}, create.DependsOn)
	assert.Empty(t, destroy.DependsOn)
	assert.Equal(t, map[string]any{"zone": "a"}, destroy.Before)
}

func TestBuildPlan_ReplaceCreateBeforeDestroy(t *testing.T) {
	cbd := &ir.Lifecycle{CreateBeforeDestroy: true}
	changes := []*Change{
		{
			Address: "db.main",
			Action:  ir.ActionReplace,
			Desired: &ir.Resource{Type: "db", Name: "main", Lifecycle: cbd},
			Prior:   &ir.ResourceState{Type: "db", Name: "main"},
		},
		{
			Address:      "app.web",
			Action:       ir.ActionUpdate,
			Desired:      &ir.Resource{Type: "app", Name: "web"},
			Prior:        &ir.ResourceState{Type: "app", Name: "web"},
			Dependencies: []string{"db.main"},
		},
	}

	plan, err := BuildPlan(&ir.State{Serial: 1}, changes, nil)
	require.NoError(t, err)

	destroy := plan.Operation("db.main:destroy")
	create := plan.Operation("db.main:create")
	update := plan.Operation("app.web:update")
	require.NotNil(t, destroy)
	require.NotNil(t, create)
	require.NotNil(t, update)

	// New instance first, then dependents move over, then the old
	// instance goes away.
	assert.Empty(t, create.DependsOn)
	assert.Equal(t, []string{"db.main:create"}, update.DependsOn)
	assert.ElementsMatch(t, []string{"db.main:create", "app.web:update"}, destroy.DependsOn)
	assert.True(t, destroy.CreateBeforeDestroy)
}

func TestBuildPlan_ReplaceDestroyDoesNotWaitForDependents(t *testing.T) {
	// Default destroy-then-create: sequencing the destroy half after the
	// dependents' operations would deadlock the pair.
	changes := []*Change{
		{
			Address: "db.main",
			Action:  ir.ActionReplace,
			Desired: &ir.Resource{Type: "db", Name: "main"},
			Prior:   &ir.ResourceState{Type: "db", Name: "main"},
		},
		{
			Address:      "app.web",
			Action:       ir.ActionUpdate,
			Desired:      &ir.Resource{Type: "app", Name: "web"},
			Prior:        &ir.ResourceState{Type: "app", Name: "web"},
			Dependencies: []string{"db.main"},
		},
	}

	plan, err := BuildPlan(&ir.State{Serial: 1}, changes, nil)
	require.NoError(t, err)

	destroy := plan.Operation("db.main:destroy")
	require.NotNil(t, destroy)
	assert.Empty(t, destroy.DependsOn)

	update := plan.Operation("app.web:update")
	require.NotNil(t, update)
	assert.Equal(t, []string{"db.main:create"}, update.DependsOn)
}

func TestBuildPlan_NoopOperationsIncluded(t *testing.T) {
	changes := []*Change{
		{Address: "null.a", Action: ir.ActionNoop, Desired: &ir.Resource{Type: "null", Name: "a"}},
		{Address: "null.b", Action: ir.ActionCreate, Desired: &ir.Resource{Type: "null", Name: "b"}, Dependencies: []string{"null.a"}},
	}

	plan, err := BuildPlan(ir.NewState(), changes, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, plan.Summary.NoOp)
	assert.Equal(t, 1, plan.Summary.Create)

	// Forward operations never wait on no-ops.
	b := plan.Operation("null.b:create")
	require.NotNil(t, b)
	assert.Empty(t, b.DependsOn)
}

func TestBuildPlan_UnorderableChangeSet(t *testing.T) {
	changes := []*Change{
		{Address: "null.x", Action: ir.ActionCreate, Desired: &ir.Resource{Type: "null", Name: "x"}, Dependencies: []string{"null.y"}},
		{Address: "null.y", Action: ir.ActionCreate, Desired: &ir.Resource{Type: "null", Name: "y"}, Dependencies: []string{"null.x"}},
	}

	_, err := BuildPlan(ir.NewState(), changes, nil)
	var perr *PlanningError
	require.ErrorAs(t, err, &perr)
	assert.ElementsMatch(t, []string{"null.x", "null.y"}, perr.Addresses)
}

func TestBuildPlan_Deterministic(t *testing.T) {
	changes := []*Change{
		{Address: "null.a", Action: ir.ActionCreate, Desired: &ir.Resource{Type: "null", Name: "a"}},
		{Address: "null.b", Action: ir.ActionCreate, Desired: &ir.Resource{Type: "null", Name: "b"}, Dependencies: []string{"null.a"}},
		{Address: "null.c", Action: ir.ActionCreate, Desired: &ir.Resource{Type: "null", Name: "c"}, Dependencies: []string{"null.a", "null.b"}},
	}

	first, err := BuildPlan(ir.NewState(), changes, nil)
	require.NoError(t, err)
	second, err := BuildPlan(ir.NewState(), changes, nil)
	require.NoError(t, err)

	require.Len(t, second.Operations, len(first.Operations))
	for i := range first.Operations {
		assert.Equal(t, first.Operations[i].ID, second.Operations[i].ID)
		assert.Equal(t, first.Operations[i].DependsOn, second.Operations[i].DependsOn)
	}

	c := first.Operation("null.c:create")
	require.NotNil(t, c)
	assert.Equal(t, []string{"null.a:create", "null.b:create"}, c.DependsOn)
}

func TestBuildPlan_MetadataCarriesPriorSerial(t *testing.T) {
	prior := &ir.State{Serial: 7, Lineage: "lin"}
	plan, err := BuildPlan(prior, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), plan.Metadata.PriorSerial)
	assert.Equal(t, "lin", plan.Metadata.Lineage)
	assert.True(t, plan.Empty())
}

func TestBuildPlan_SensitiveKeysSorted(t *testing.T) {
	changes := []*Change{
		{
			Address:   "null.a",
			Action:    ir.ActionCreate,
			Desired:   &ir.Resource{Type: "null", Name: "a"},
			Resolved:  map[string]any{"b": 1, "a": 2},
			Sensitive: map[string]bool{"b": true, "a": true},
		},
	}

	plan, err := BuildPlan(ir.NewState(), changes, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, plan.Operations[0].Sensitive)
}

func TestConfigHash_Stable(t *testing.T) {
	cfg := &ir.Config{Resources: []*ir.Resource{{Type: "null", Name: "a"}}}
	assert.Equal(t, ConfigHash(cfg), ConfigHash(cfg))
	assert.NotEmpty(t, ConfigHash(cfg))

	other := &ir.Config{Resources: []*ir.Resource{{Type: "null", Name: "b"}}}
	assert.NotEqual(t, ConfigHash(cfg), ConfigHash(other))
}
