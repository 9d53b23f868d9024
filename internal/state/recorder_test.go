package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reify-io/reify/internal/ir"
)

func priorState() *ir.State {
	return &ir.State{
		Version: ir.StateVersion,
		Serial:  3,
		Lineage: "lineage-1",
		Resources: []*ir.ResourceState{
			{Type: "null", Name: "a", ID: "id-a", Serial: 2, Attributes: map[string]any{"name": "alpha"}},
			{Type: "null", Name: "b", ID: "id-b", Serial: 1, Attributes: map[string]any{"name": "beta"}, Dependencies: []string{"null.a"}},
		},
	}
}

func TestRecord_SuccessfulUpdate(t *testing.T) {
	prior := priorState()
	results := []*ir.Result{
		{
			Address:    "null.a",
			Kind:       ir.ActionUpdate,
			Status:     ir.ResultSuccess,
			ProviderID: "id-a",
			Attributes: map[string]any{"name": "alpha-v2"},
		},
	}

	next := Record(prior, results)

	assert.Equal(t, uint64(4), next.Serial)
	assert.Equal(t, "lineage-1", next.Lineage)

	rec := next.Resource("null.a")
	require.NotNil(t, rec)
	assert.Equal(t, uint64(3), rec.Serial, "exactly one increment per successful write")
	assert.Equal(t, "alpha-v2", rec.Attributes["name"])

	// Untouched resources keep their record verbatim.
	b := next.Resource("null.b")
	require.NotNil(t, b)
	assert.Equal(t, uint64(1), b.Serial)
}

func TestRecord_PriorIsNeverMutated(t *testing.T) {
	prior := priorState()
	results := []*ir.Result{
		{Address: "null.a", Kind: ir.ActionDestroy, Status: ir.ResultSuccess},
		{Address: "null.b", Kind: ir.ActionUpdate, Status: ir.ResultSuccess, Attributes: map[string]any{"name": "changed"}},
	}

	_ = Record(prior, results)

	assert.Equal(t, uint64(3), prior.Serial)
	require.NotNil(t, prior.Resource("null.a"))
	assert.Equal(t, "beta", prior.Resource("null.b").Attributes["name"])
}

func TestRecord_Create(t *testing.T) {
	prior := ir.NewState()
	results := []*ir.Result{
		{
			Address:      "null.c",
			Kind:         ir.ActionCreate,
			Status:       ir.ResultSuccess,
			Provider:     "null",
			ProviderID:   "id-c",
			Attributes:   map[string]any{"name": "gamma"},
			Dependencies: []string{"null.a"},
		},
	}

	next := Record(prior, results)

	assert.Equal(t, uint64(1), next.Serial)
	assert.Equal(t, ir.StateVersion, next.Version)
	assert.NotEmpty(t, next.Lineage, "a fresh snapshot gets a lineage")

	rec := next.Resource("null.c")
	require.NotNil(t, rec)
	assert.Equal(t, "null", rec.Type)
	assert.Equal(t, "c", rec.Name)
	assert.Equal(t, uint64(1), rec.Serial)
	assert.Equal(t, "id-c", rec.ID)
	assert.Equal(t, []string{"null.a"}, rec.Dependencies)
}

func TestRecord_DestroyRemovesRecord(t *testing.T) {
	prior := priorState()
	results := []*ir.Result{
		{Address: "null.b", Kind: ir.ActionDestroy, Status: ir.ResultSuccess},
	}

	next := Record(prior, results)
	assert.Nil(t, next.Resource("null.b"))
	assert.NotNil(t, next.Resource("null.a"))
	assert.Len(t, next.Resources, 1)
}

func TestRecord_FailureKeepsPriorRecord(t *testing.T) {
	prior := priorState()
	results := []*ir.Result{
		{Address: "null.a", Kind: ir.ActionUpdate, Status: ir.ResultFailure, Error: "boom"},
	}

	next := Record(prior, results)

	rec := next.Resource("null.a")
	require.NotNil(t, rec)
	assert.Equal(t, uint64(2), rec.Serial)
	assert.Equal(t, "alpha", rec.Attributes["name"])

	// The snapshot itself still advances; partial progress is progress.
	assert.Equal(t, uint64(4), next.Serial)
}

func TestRecord_PartialCreateIsTainted(t *testing.T) {
	prior := ir.NewState()
	results := []*ir.Result{
		{
			Address:    "null.a",
			Kind:       ir.ActionCreate,
			Status:     ir.ResultFailure,
			ProviderID: "half-made",
			Partial:    true,
			Error:      "attributes lost",
		},
	}

	next := Record(prior, results)

	rec := next.Resource("null.a")
	require.NotNil(t, rec, "a create that obtained an identifier must be recorded")
	assert.True(t, rec.Tainted)
	assert.Equal(t, "half-made", rec.ID)
}

func TestRecord_ResourcesSortedByAddress(t *testing.T) {
	prior := ir.NewState()
	results := []*ir.Result{
		{Address: "null.z", Kind: ir.ActionCreate, Status: ir.ResultSuccess, ProviderID: "z"},
		{Address: "null.a", Kind: ir.ActionCreate, Status: ir.ResultSuccess, ProviderID: "a"},
	}

	next := Record(prior, results)
	require.Len(t, next.Resources, 2)
	assert.Equal(t, "null.a", next.Resources[0].Addr())
	assert.Equal(t, "null.z", next.Resources[1].Addr())
}

func TestCommit_PublishesThroughStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	prior, err := store.Load(ctx)
	require.NoError(t, err)

	results := []*ir.Result{
		{Address: "null.a", Kind: ir.ActionCreate, Status: ir.ResultSuccess, ProviderID: "id-a"},
	}

	next, err := Commit(ctx, store, prior, results)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), next.Serial)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), loaded.Serial)
	assert.NotNil(t, loaded.Resource("null.a"))
}

func TestCommit_ConflictLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	prior, err := store.Load(ctx)
	require.NoError(t, err)

	// A concurrent cycle publishes first.
	_, err = Commit(ctx, store, prior, []*ir.Result{
		{Address: "null.first", Kind: ir.ActionCreate, Status: ir.ResultSuccess},
	})
	require.NoError(t, err)

	_, err = Commit(ctx, store, prior, []*ir.Result{
		{Address: "null.second", Kind: ir.ActionCreate, Status: ir.ResultSuccess},
	})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, uint64(0), conflict.Expected)
	assert.Equal(t, uint64(1), conflict.Found)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.NotNil(t, loaded.Resource("null.first"))
	assert.Nil(t, loaded.Resource("null.second"))
}
