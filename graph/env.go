package graph

import "github.com/wippyai/module-bridge/errors"

// Env gives a module body access to its bindings. It stays valid after
// evaluation, so bodies may hand it out as a capability.
type Env struct {
	module *Module
}

// Module returns the module being evaluated.
func (e *Env) Module() *Module {
	return e.module
}

// Get reads a local or imported binding.
func (e *Env) Get(local string) (any, error) {
	c, ok := e.module.cell(local)
	if !ok {
		return nil, errors.UnknownBinding(e.module.ID(), local)
	}
	return c.Load(), nil
}

// Set assigns a binding declared by the module. Imported bindings are
// read-only to the importer.
func (e *Env) Set(local string, v any) error {
	if e.module.isImport(local) {
		return errors.New(errors.PhaseAccess, errors.KindInvalidState).
			Module(e.module.ID()).
			Path(local).
			Detail("assignment to imported binding").
			Build()
	}
	c, ok := e.module.cell(local)
	if !ok {
		return errors.UnknownBinding(e.module.ID(), local)
	}
	c.Store(v)
	return nil
}

// Cell returns the cell behind a local or imported binding.
func (e *Env) Cell(local string) (*Cell, bool) {
	return e.module.cell(local)
}
