package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/reify-io/reify/internal/ir"
)

// Store is the seam between the engine and a state storage backend. The
// engine only requires compare-and-swap-on-serial semantics from Swap;
// locking or transport needed to make that atomic across distributed
// callers is the backend's responsibility.
type Store interface {
	// Load reads the current snapshot, returning an empty state when none
	// has been persisted yet.
	Load(ctx context.Context) (*ir.State, error)

	// Swap publishes next if and only if the persisted snapshot still has
	// priorSerial; otherwise it fails with ConflictError and leaves the
	// persisted state untouched.
	Swap(ctx context.Context, priorSerial uint64, next *ir.State) error

	// Lock acquires an exclusive lock on the state.
	Lock() error

	// Unlock releases the lock on the state.
	Unlock() error
}

// FileStore persists snapshots as a JSON document on the local filesystem.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(ctx context.Context) (*ir.State, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return ir.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", s.path, err)
	}

	var st ir.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", s.path, err)
	}
	return &st, nil
}

func (s *FileStore) Swap(ctx context.Context, priorSerial uint64, next *ir.State) error {
	current, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if current.Serial != priorSerial {
		return &ConflictError{Expected: priorSerial, Found: current.Serial}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	raw, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize state: %w", err)
	}

	// Write-then-rename so a reader never observes a half-written
	// snapshot.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to publish state file: %w", err)
	}
	return nil
}

// MemStore is an in-memory store for tests and embedding.
type MemStore struct {
	mu    sync.Mutex
	state *ir.State
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Load(ctx context.Context) (*ir.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return ir.NewState(), nil
	}
	return s.state.DeepCopy(), nil
}

func (s *MemStore) Swap(ctx context.Context, priorSerial uint64, next *ir.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current uint64
	if s.state != nil {
		current = s.state.Serial
	}
	if current != priorSerial {
		return &ConflictError{Expected: priorSerial, Found: current}
	}
	s.state = next.DeepCopy()
	return nil
}

func (s *MemStore) Lock() error   { return nil }
func (s *MemStore) Unlock() error { return nil }
