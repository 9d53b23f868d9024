package provider

import (
	"fmt"
	"sync"
)

// Factory constructs a provider instance.
type Factory func() Interface

// Registry manages the lifecycle of providers.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	providers map[string]Interface
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		providers: make(map[string]Interface),
	}
}

// Register makes a provider constructor available under name.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Load initializes and caches the named provider.
func (r *Registry) Load(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return nil
	}
	factory, ok := r.factories[name]
	if !ok {
		return fmt.Errorf("unknown provider: %s", name)
	}
	r.providers[name] = factory()
	return nil
}

// Get returns a loaded provider, loading it on first use.
func (r *Registry) Get(name string) (Interface, error) {
	r.mu.RLock()
	p, ok := r.providers[name]
	r.mu.RUnlock()
	if ok {
		return p, nil
	}

	if err := r.Load(name); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[name], nil
}
