package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reify-io/reify/internal/ir"
)

func TestFileStore_LoadMissingReturnsEmptyState(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "state.json"))

	st, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), st.Serial)
	assert.Empty(t, st.Resources)
}

func TestFileStore_SwapRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "nested", "state.json"))

	next := &ir.State{
		Version: ir.StateVersion,
		Serial:  1,
		Lineage: "lin",
		Resources: []*ir.ResourceState{
			{Type: "null", Name: "a", ID: "id-a", Serial: 1, Attributes: map[string]any{"name": "alpha", "size": float64(2)}},
		},
	}
	require.NoError(t, store.Swap(ctx, 0, next))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), loaded.Serial)
	assert.Equal(t, "lin", loaded.Lineage)

	rec := loaded.Resource("null.a")
	require.NotNil(t, rec)
	assert.Equal(t, "alpha", rec.Attributes["name"])
	assert.Equal(t, float64(2), rec.Attributes["size"])
}

func TestFileStore_SwapConflict(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "state.json"))

	first := &ir.State{Version: ir.StateVersion, Serial: 1, Lineage: "lin"}
	require.NoError(t, store.Swap(ctx, 0, first))

	stale := &ir.State{Version: ir.StateVersion, Serial: 1, Lineage: "other"}
	err := store.Swap(ctx, 0, stale)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, uint64(0), conflict.Expected)
	assert.Equal(t, uint64(1), conflict.Found)

	// The persisted snapshot is untouched.
	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "lin", loaded.Lineage)
}

func TestFileStore_Lock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path)

	require.NoError(t, store.Lock())

	other := NewFileStore(path)
	err := other.Lock()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")

	require.NoError(t, store.Unlock())
	require.NoError(t, other.Lock())
	require.NoError(t, other.Unlock())

	// Unlocking without a lock held is not an error.
	assert.NoError(t, store.Unlock())
}

func TestFileStore_StaleLockTakeover(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path)

	lockPath := path + ".lock"
	require.NoError(t, os.WriteFile(lockPath, []byte("pid=0\n"), 0644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(lockPath, old, old))

	assert.NoError(t, store.Lock())
	require.NoError(t, store.Unlock())
}

func TestMemStore_SwapIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	next := &ir.State{Version: ir.StateVersion, Serial: 1, Resources: []*ir.ResourceState{
		{Type: "null", Name: "a", Serial: 1, Attributes: map[string]any{"name": "alpha"}},
	}}
	require.NoError(t, store.Swap(ctx, 0, next))

	// Mutating the caller's copy after publishing must not leak in.
	next.Resources[0].Attributes["name"] = "mutated"

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alpha", loaded.Resource("null.a").Attributes["name"])

	// Nor may mutating a loaded copy change the stored snapshot.
	loaded.Resource("null.a").Attributes["name"] = "also mutated"
	reloaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alpha", reloaded.Resource("null.a").Attributes["name"])
}

func TestMemStore_SwapConflict(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	require.NoError(t, store.Swap(ctx, 0, &ir.State{Serial: 1}))

	err := store.Swap(ctx, 0, &ir.State{Serial: 1})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, uint64(1), conflict.Found)
}
