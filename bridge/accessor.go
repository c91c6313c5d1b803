package bridge

import (
	"github.com/wippyai/module-bridge/errors"
	"github.com/wippyai/module-bridge/graph"
)

// Reflector reads and writes a bridge's bindings by export name. Evaluators
// receive one so they can populate the facade's exports.
type Reflector interface {
	Names() []string
	Has(name string) bool
	Get(name string) (any, error)
	Set(name string, v any) error
}

// Accessor is the host's handle on a bridge's bindings. Writes go through
// the reflective module's environment and are observed immediately by every
// module that imports the facade.
type Accessor struct {
	table  *Table
	env    *graph.Env
	facade *graph.Module
}

var _ Reflector = (*Accessor)(nil)

func newAccessor(table *Table, env *graph.Env) *Accessor {
	return &Accessor{table: table, env: env}
}

// Names returns the binding names in request order.
func (a *Accessor) Names() []string {
	return a.table.Names()
}

// Has reports whether name is a binding.
func (a *Accessor) Has(name string) bool {
	return a.table.Has(name)
}

// Get returns the current value of name, graph.Uninitialized if never set.
func (a *Accessor) Get(name string) (any, error) {
	if !a.table.Has(name) {
		return nil, errors.UnknownBinding(a.table.ownerID(), name)
	}
	return a.env.Get(localName(name))
}

// MustGet is like Get but panics on an unknown name.
func (a *Accessor) MustGet(name string) any {
	v, err := a.Get(name)
	if err != nil {
		panic(err)
	}
	return v
}

// Set stores v as the value of name.
func (a *Accessor) Set(name string, v any) error {
	if !a.table.Has(name) {
		return errors.UnknownBinding(a.table.ownerID(), name)
	}
	return a.env.Set(localName(name), v)
}

// Module returns the reflective module the accessor writes through.
func (a *Accessor) Module() *graph.Module {
	return a.env.Module()
}

// Namespace returns the facade's namespace. It is nil until the facade has
// been synthesized.
func (a *Accessor) Namespace() *graph.Namespace {
	if a.facade == nil {
		return nil
	}
	return a.facade.Namespace()
}
