package wasmbridge

import (
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/module-bridge/bridge"
	"github.com/wippyai/module-bridge/errors"
	"github.com/wippyai/module-bridge/graph"
)

// Binding declares one typed export of a global bridge.
type Binding struct {
	Type wit.Type
	Name string
}

// cells tracks which globals of the reflective module hold a stored value.
// The wasm globals themselves always read as zero until set.
type cells struct {
	index    map[string]int
	set      []bool
	owner    string
	bindings []Binding
	mu       sync.RWMutex
}

func newCells(owner string, bindings []Binding) *cells {
	c := &cells{
		index:    make(map[string]int, len(bindings)),
		set:      make([]bool, len(bindings)),
		owner:    owner,
		bindings: bindings,
	}
	for i, b := range bindings {
		c.index[b.Name] = i
	}
	return c
}

func (c *cells) lookup(name string) (Binding, int, error) {
	i, ok := c.index[name]
	if !ok {
		return Binding{}, 0, errors.UnknownBinding(c.owner, name)
	}
	return c.bindings[i], i, nil
}

func (c *cells) initialized(i int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.set[i]
}

func (c *cells) markSet(i int) {
	c.mu.Lock()
	c.set[i] = true
	c.mu.Unlock()
}

func (c *cells) names() []string {
	names := make([]string, len(c.bindings))
	for i, b := range c.bindings {
		names[i] = b.Name
	}
	return names
}

// Accessor reads and writes the globals of a reflective wasm module.
// Values are converted according to each binding's wit type.
type Accessor struct {
	cells  *cells
	module api.Module
}

var _ bridge.Reflector = (*Accessor)(nil)

// Names returns the binding names in request order.
func (a *Accessor) Names() []string {
	return a.cells.names()
}

// Has reports whether name is a binding.
func (a *Accessor) Has(name string) bool {
	_, ok := a.cells.index[name]
	return ok
}

// Type returns the wit type of name.
func (a *Accessor) Type(name string) (wit.Type, bool) {
	b, _, err := a.cells.lookup(name)
	return b.Type, err == nil
}

// Get decodes the current value of name. A binding that was never set
// reads as graph.Uninitialized.
func (a *Accessor) Get(name string) (any, error) {
	b, i, err := a.cells.lookup(name)
	if err != nil {
		return nil, err
	}
	if !a.cells.initialized(i) {
		return graph.Uninitialized, nil
	}
	return decodeValue(b.Type, a.module.ExportedGlobal(localName(name)).Get()), nil
}

// Set encodes v and stores it in the global behind name.
func (a *Accessor) Set(name string, v any) error {
	b, i, err := a.cells.lookup(name)
	if err != nil {
		return err
	}
	bits, err := encodeValue(name, b.Type, v)
	if err != nil {
		return err
	}
	g, ok := a.module.ExportedGlobal(localName(name)).(api.MutableGlobal)
	if !ok {
		return errors.InvalidState(errors.PhaseAccess, a.module.Name(), "missing mutable global "+localName(name))
	}
	g.Set(bits)
	a.cells.markSet(i)
	return nil
}

// Module returns the reflective module instance.
func (a *Accessor) Module() api.Module {
	return a.module
}

func localName(name string) string {
	return "$" + name
}
