package graph

import (
	"context"
	"sync"

	"github.com/wippyai/module-bridge/errors"
)

// Resolver maps a module request to a module record.
type Resolver interface {
	Resolve(ctx context.Context, referrer *Module, specifier string) (*Module, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, referrer *Module, specifier string) (*Module, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, referrer *Module, specifier string) (*Module, error) {
	return f(ctx, referrer, specifier)
}

// Static returns a resolver that answers every request with m.
func Static(m *Module) Resolver {
	return ResolverFunc(func(context.Context, *Module, string) (*Module, error) {
		return m, nil
	})
}

// Registry resolves specifiers from a table of registered modules.
// Thread-safe.
type Registry struct {
	modules map[string]*Module
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]*Module)}
}

// Register binds specifier to m. A specifier can be registered once.
func (r *Registry) Register(specifier string, m *Module) error {
	if m == nil {
		return errors.InvalidInput(errors.PhaseLink, "cannot register a nil module")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.modules[specifier]; exists {
		return errors.New(errors.PhaseLink, errors.KindInvalidInput).
			Detail("specifier %q already registered", specifier).
			Build()
	}
	r.modules[specifier] = m
	return nil
}

// Lookup returns the module registered for specifier.
func (r *Registry) Lookup(specifier string) (*Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[specifier]
	return m, ok
}

// Resolve implements Resolver.
func (r *Registry) Resolve(_ context.Context, _ *Module, specifier string) (*Module, error) {
	if m, ok := r.Lookup(specifier); ok {
		return m, nil
	}
	return nil, errors.NotFound(errors.PhaseLink, "module", specifier)
}
