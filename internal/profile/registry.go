package profile

import (
	"sort"
	"sync"

	"github.com/hubwrap/hubwrap/internal/errors"
	"github.com/hubwrap/hubwrap/internal/spawner"
)

// Registry maps spawner type names to factories. It replaces direct type
// references in the catalog: a profile names its implementation, and the
// registry re-derives the factory from that name — including after a process
// restart, when only the name survived in persisted state.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]spawner.Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]spawner.Factory)}
}

// Register adds a factory under the given type name.
// Registering a duplicate name is an error.
func (r *Registry) Register(typeName string, factory spawner.Factory) error {
	if typeName == "" {
		return errors.NewValidationError("type name cannot be empty").WithField("typeName")
	}
	if factory == nil {
		return errors.NewValidationError("factory cannot be nil").WithField("factory").WithValue(typeName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[typeName]; exists {
		return errors.NewValidationError("type already registered").
			WithField("typeName").
			WithValue(typeName)
	}
	r.factories[typeName] = factory
	return nil
}

// Lookup returns the factory registered under typeName.
// Implements spawner.Resolver.
func (r *Registry) Lookup(typeName string) (spawner.Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[typeName]
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnknownSpawnerType, "no factory for %q", typeName)
	}
	return factory, nil
}

// Names returns the registered type names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
