package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reify-io/reify/internal/ir"
	"github.com/reify-io/reify/internal/state"
)

func testConfig() *ir.Config {
	return &ir.Config{
		Variables: []*ir.Variable{
			{Name: "env", Type: "string", Default: "dev"},
		},
		Resources: []*ir.Resource{
			{Type: "null", Name: "a", Attributes: map[string]any{"name": "alpha", "environment": "var://env"}},
			{Type: "null", Name: "b", Attributes: map[string]any{"upstream": "ref://null.a/id"}},
		},
		Outputs: map[string]any{"endpoint": "ref://null.a/id"},
	}
}

func runCycle(t *testing.T, eng *Engine, cfg *ir.Config, variables map[string]any, prior *ir.State) (*ir.Plan, *ir.State) {
	t.Helper()
	ctx := context.Background()

	plan, err := eng.Plan(ctx, cfg, variables, prior)
	require.NoError(t, err)

	results := eng.Apply(ctx, plan, prior, nil)
	for _, result := range results {
		require.True(t, result.Succeeded(), "%s: %s", result.Address, result.Error)
	}

	next := state.Record(prior, results)
	next.Outputs = ResolveOutputs(plan.Outputs, prior, results)
	return plan, next
}

func TestEngine_ConvergesToNoop(t *testing.T) {
	eng := New(registryWith(&fakeProvider{}))
	cfg := testConfig()

	plan, next := runCycle(t, eng, cfg, nil, ir.NewState())
	assert.Equal(t, 2, plan.Summary.Create)
	assert.Equal(t, uint64(1), next.Serial)
	assert.Equal(t, "id-a", next.Outputs["endpoint"])

	rec := next.Resource("null.b")
	require.NotNil(t, rec)
	assert.Equal(t, "id-a", rec.Attributes["upstream"])
	assert.Equal(t, []string{"null.a"}, rec.Dependencies)

	// Re-planning the same configuration against the new snapshot
	// schedules nothing.
	second, err := eng.Plan(context.Background(), cfg, nil, next)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Summary.Create+second.Summary.Update+second.Summary.Destroy+second.Summary.Replace)
	assert.Equal(t, 2, second.Summary.NoOp)
}

func TestEngine_UpdateCycle(t *testing.T) {
	eng := New(registryWith(&fakeProvider{}))
	cfg := testConfig()

	_, st := runCycle(t, eng, cfg, nil, ir.NewState())

	// A changed variable value updates only the resource it feeds; b's
	// reference still resolves to the same identifier.
	plan, err := eng.Plan(context.Background(), cfg, map[string]any{"env": "prod"}, st)
	require.NoError(t, err)
	assert.Equal(t, 1, plan.Summary.Update)
	assert.Equal(t, 1, plan.Summary.NoOp)

	op := plan.Operation("null.a:update")
	require.NotNil(t, op)
	assert.Equal(t, "dev", op.Diff["environment"].Before)
	assert.Equal(t, "prod", op.Diff["environment"].After)

	_, st2 := runCycle(t, eng, cfg, map[string]any{"env": "prod"}, st)
	assert.Equal(t, uint64(2), st2.Serial)

	rec := st2.Resource("null.a")
	require.NotNil(t, rec)
	assert.Equal(t, uint64(2), rec.Serial)
	assert.Equal(t, "prod", rec.Attributes["environment"])

	// b was untouched; its record keeps serial 1.
	assert.Equal(t, uint64(1), st2.Resource("null.b").Serial)
}

func TestEngine_RemovalSchedulesDestroy(t *testing.T) {
	eng := New(registryWith(&fakeProvider{}))
	cfg := testConfig()

	_, st := runCycle(t, eng, cfg, nil, ir.NewState())

	trimmed := &ir.Config{
		Variables: cfg.Variables,
		Resources: cfg.Resources[:1],
		Outputs:   cfg.Outputs,
	}
	plan, err := eng.Plan(context.Background(), trimmed, nil, st)
	require.NoError(t, err)
	assert.Equal(t, 1, plan.Summary.Destroy)
	assert.Equal(t, 1, plan.Summary.NoOp)

	_, st2 := runCycle(t, eng, trimmed, nil, st)
	assert.Nil(t, st2.Resource("null.b"))
	require.NotNil(t, st2.Resource("null.a"))
}

func TestEngine_DestroyEverything(t *testing.T) {
	eng := New(registryWith(&fakeProvider{}))
	cfg := testConfig()

	_, st := runCycle(t, eng, cfg, nil, ir.NewState())

	plan, err := eng.Plan(context.Background(), &ir.Config{}, nil, st)
	require.NoError(t, err)
	assert.Equal(t, 2, plan.Summary.Destroy)

	// b depended on a, so a's destroy waits for b's.
	a := plan.Operation("null.a:destroy")
	require.NotNil(t, a)
	assert.Contains(t, a.DependsOn, "null.b:destroy")

	_, st2 := runCycle(t, eng, &ir.Config{}, nil, st)
	assert.Empty(t, st2.Resources)
}

func TestEngine_ReplaceCycle(t *testing.T) {
	eng := New(registryWith(&fakeProvider{}))
	cfg := &ir.Config{Resources: []*ir.Resource{
		{Type: "db", Name: "main", Provider: "null", Replace: []string{"zone"}, Attributes: map[string]any{"zone": "a"}},
	}}

	_, st := runCycle(t, eng, cfg, nil, ir.NewState())

	cfg.Resources[0].Attributes["zone"] = "b"
	plan, err := eng.Plan(context.Background(), cfg, nil, st)
	require.NoError(t, err)
	assert.Equal(t, 1, plan.Summary.Replace)

	create := plan.Operation("db.main:create")
	require.NotNil(t, create)
	assert.Equal(t, []string{"db.main:destroy"}, create.DependsOn)

	_, st2 := runCycle(t, eng, cfg, nil, st)
	rec := st2.Resource("db.main")
	require.NotNil(t, rec)
	assert.Equal(t, "b", rec.Attributes["zone"])
	assert.False(t, rec.Tainted)
}

func TestEngine_GraphExport(t *testing.T) {
	eng := New(registryWith(&fakeProvider{}))
	dag, err := eng.Graph(testConfig())
	require.NoError(t, err)
	assert.Contains(t, dag.ToDOT(), `"null.a" -> "null.b";`)
}
