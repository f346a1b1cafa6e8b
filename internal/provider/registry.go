package provider

import (
	"fmt"
	"sync"

	"github.com/retag-io/retag/internal/ir"
)

// Registry holds the loaded tagging providers, one per resource kind.
type Registry struct {
	mu        sync.RWMutex
	providers map[ir.Kind]TaggingProvider
}

func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[ir.Kind]TaggingProvider),
	}
}

// Register installs a provider for its kind. Registering the same kind
// twice replaces the earlier provider.
func (r *Registry) Register(p TaggingProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Kind()] = p
}

// Get returns the provider for a kind.
func (r *Registry) Get(kind ir.Kind) (TaggingProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[kind]
	if !ok {
		return nil, fmt.Errorf("no provider loaded for kind: %s", kind)
	}
	return p, nil
}

// Kinds returns every kind with a loaded provider.
func (r *Registry) Kinds() []ir.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]ir.Kind, 0, len(r.providers))
	for k := range r.providers {
		kinds = append(kinds, k)
	}
	return kinds
}
