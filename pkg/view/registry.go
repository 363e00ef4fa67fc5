package view

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrEngineNotFound is returned when no engine is registered under a name.
var ErrEngineNotFound = errors.New("view: engine not found")

// Registry stores engine factories by name.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]EngineFactory
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]EngineFactory),
	}
}

// Register adds a factory under name. Duplicate names return an error.
func (r *Registry) Register(name string, factory EngineFactory) error {
	if factory == nil {
		return fmt.Errorf("view: engine factory is required")
	}
	if name == "" {
		return fmt.Errorf("view: engine name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("view: engine %q already registered", name)
	}

	r.factories[name] = factory
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(name string, factory EngineFactory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Replace registers factory under name, overwriting any existing entry.
func (r *Registry) Replace(name string, factory EngineFactory) error {
	if factory == nil || name == "" {
		return fmt.Errorf("view: engine name and factory are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[name] = factory
	return nil
}

// Get retrieves a factory by name.
func (r *Registry) Get(name string) (EngineFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrEngineNotFound, name)
	}
	return factory, nil
}

// List returns a sorted list of engine names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether an engine is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.factories[name]
	return ok
}
