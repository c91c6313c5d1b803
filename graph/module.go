package graph

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/module-bridge/errors"
)

type importRef struct {
	specifier string
	imported  string
}

// Module is a module record: a compiled descriptor moving through
// link, instantiate and evaluate. Thread-safe.
type Module struct {
	desc       *Descriptor
	deps       map[string]*Module
	depOrder   []*Module
	locals     map[string]*Cell
	imports    map[string]*Cell
	importRefs map[string]importRef
	exports    map[string]string
	evaluation *Evaluation
	namespace  *Namespace
	status     Status
	mu         sync.RWMutex
}

func newModule(desc *Descriptor) *Module {
	m := &Module{
		desc:       desc,
		importRefs: make(map[string]importRef),
		exports:    make(map[string]string, len(desc.Exports)),
	}
	for _, imp := range desc.Imports {
		for _, n := range imp.Names {
			m.importRefs[n.Local] = importRef{specifier: imp.Specifier, imported: n.Imported}
		}
	}
	for _, ex := range desc.Exports {
		m.exports[ex.Name] = ex.Local
	}
	m.namespace = &Namespace{module: m}
	return m
}

// ID returns the module identity.
func (m *Module) ID() string {
	return m.desc.ID
}

// Status returns the current lifecycle state.
func (m *Module) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Module) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

// ExportNames returns the exported names in declaration order.
func (m *Module) ExportNames() []string {
	names := make([]string, len(m.desc.Exports))
	for i, ex := range m.desc.Exports {
		names[i] = ex.Name
	}
	return names
}

// Requests returns the module's import requests.
func (m *Module) Requests() []Import {
	out := make([]Import, len(m.desc.Imports))
	for i, imp := range m.desc.Imports {
		out[i] = Import{Specifier: imp.Specifier, Names: append([]ImportName(nil), imp.Names...)}
	}
	return out
}

// Namespace returns the live view of the module's exports.
func (m *Module) Namespace() *Namespace {
	return m.namespace
}

func (m *Module) hasExport(name string) bool {
	_, ok := m.exports[name]
	return ok
}

// Link resolves every import request through r and links the resolved
// modules with the same resolver. Linking an already linked module is a no-op.
func (m *Module) Link(ctx context.Context, r Resolver) error {
	if r == nil && len(m.desc.Imports) > 0 {
		return errors.InvalidInput(errors.PhaseLink, "nil resolver for a module with imports")
	}
	return m.link(ctx, r)
}

func (m *Module) link(ctx context.Context, r Resolver) error {
	m.mu.Lock()
	if m.status != StatusUnlinked {
		m.mu.Unlock()
		return nil
	}
	m.status = StatusLinking
	m.mu.Unlock()

	deps, order, err := m.resolveRequests(ctx, r)
	if err == nil {
		for _, dep := range order {
			if err = dep.link(ctx, r); err != nil {
				break
			}
		}
	}
	if err != nil {
		m.setStatus(StatusUnlinked)
		Logger().Debug("link failed", zap.String("module", m.ID()), zap.Error(err))
		return err
	}

	m.mu.Lock()
	m.deps = deps
	m.depOrder = order
	m.status = StatusLinked
	m.mu.Unlock()
	Logger().Debug("module linked", zap.String("module", m.ID()), zap.Int("dependencies", len(order)))
	return nil
}

func (m *Module) resolveRequests(ctx context.Context, r Resolver) (map[string]*Module, []*Module, error) {
	deps := make(map[string]*Module)
	var order []*Module
	seen := make(map[*Module]bool)

	for _, imp := range m.desc.Imports {
		if _, ok := deps[imp.Specifier]; ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, nil, errors.Link(m.ID(), imp.Specifier, err)
		}
		dep, err := r.Resolve(ctx, m, imp.Specifier)
		if err != nil {
			return nil, nil, errors.Link(m.ID(), imp.Specifier, err)
		}
		if dep == nil {
			return nil, nil, errors.Link(m.ID(), imp.Specifier,
				errors.NotFound(errors.PhaseLink, "module", imp.Specifier))
		}
		deps[imp.Specifier] = dep
		if !seen[dep] {
			seen[dep] = true
			order = append(order, dep)
		}
	}

	var missing []string
	for _, imp := range m.desc.Imports {
		dep := deps[imp.Specifier]
		for _, n := range imp.Names {
			if !dep.hasExport(n.Imported) {
				missing = append(missing, imp.Specifier+"#"+n.Imported)
			}
		}
	}
	if len(missing) > 0 {
		return nil, nil, errors.New(errors.PhaseLink, errors.KindLinkFailure).
			Module(m.ID()).
			Detail("requested names are not exported").
			Cause(errors.NewUnresolvedImportsError(missing)).
			Build()
	}
	return deps, order, nil
}

// Instantiate creates the module environment: cells for its own bindings and
// shared cells for its imports, recursively for linked dependencies.
func (m *Module) Instantiate(ctx context.Context) error {
	if st := m.Status(); st != StatusLinked {
		return errors.InvalidState(errors.PhaseInstantiate, m.ID(), st.String())
	}

	var order []*Module
	m.collectLinked(make(map[*Module]bool), &order)

	for _, mod := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		mod.allocateLocals()
	}
	for _, mod := range order {
		if err := mod.bindImports(); err != nil {
			for _, undo := range order {
				undo.clearEnvironment()
			}
			return err
		}
	}
	for _, mod := range order {
		mod.setStatus(StatusInstantiated)
		Logger().Debug("module instantiated", zap.String("module", mod.ID()))
	}
	return nil
}

// collectLinked gathers m and every reachable dependency still in Linked,
// dependencies first.
func (m *Module) collectLinked(seen map[*Module]bool, out *[]*Module) {
	if seen[m] {
		return
	}
	seen[m] = true
	if m.Status() != StatusLinked {
		return
	}
	m.mu.RLock()
	deps := m.depOrder
	m.mu.RUnlock()
	for _, dep := range deps {
		dep.collectLinked(seen, out)
	}
	*out = append(*out, m)
}

func (m *Module) allocateLocals() {
	locals := make(map[string]*Cell, len(m.desc.Locals))
	for _, l := range m.desc.Locals {
		c := l.Cell
		if c == nil {
			c = NewCell()
		}
		locals[l.Name] = c
	}
	m.mu.Lock()
	m.locals = locals
	m.mu.Unlock()
}

func (m *Module) bindImports() error {
	imports := make(map[string]*Cell, len(m.importRefs))
	for local, ref := range m.importRefs {
		dep := m.deps[ref.specifier]
		c, err := dep.resolveExport(ref.imported, nil)
		if err != nil {
			return errors.Link(m.ID(), ref.specifier, err)
		}
		imports[local] = c
	}
	m.mu.Lock()
	m.imports = imports
	m.mu.Unlock()
	return nil
}

func (m *Module) clearEnvironment() {
	m.mu.Lock()
	m.locals = nil
	m.imports = nil
	m.mu.Unlock()
}

type exportKey struct {
	module *Module
	name   string
}

// resolveExport follows re-exports to the cell that backs name.
func (m *Module) resolveExport(name string, seen map[exportKey]bool) (*Cell, error) {
	local, ok := m.exports[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseInstantiate, "export", name)
	}

	m.mu.RLock()
	c, isLocal := m.locals[local]
	deps := m.deps
	m.mu.RUnlock()

	if !m.isImport(local) {
		if !isLocal {
			return nil, errors.InvalidState(errors.PhaseInstantiate, m.ID(), m.Status().String())
		}
		return c, nil
	}

	if seen == nil {
		seen = make(map[exportKey]bool)
	}
	key := exportKey{module: m, name: name}
	if seen[key] {
		return nil, errors.New(errors.PhaseInstantiate, errors.KindLinkFailure).
			Module(m.ID()).
			Detail("circular re-export of %q", name).
			Build()
	}
	seen[key] = true

	ref := m.importRefs[local]
	dep := deps[ref.specifier]
	if dep == nil {
		return nil, errors.InvalidState(errors.PhaseInstantiate, m.ID(), m.Status().String())
	}
	return dep.resolveExport(ref.imported, seen)
}

// Binding returns the cell behind the exported name. The module must be
// instantiated.
func (m *Module) Binding(name string) (*Cell, error) {
	if !m.hasExport(name) {
		return nil, errors.UnknownBinding(m.ID(), name)
	}
	if st := m.Status(); !st.AtLeast(StatusInstantiated) {
		return nil, errors.InvalidState(errors.PhaseAccess, m.ID(), st.String())
	}
	return m.resolveExport(name, nil)
}

// cell returns the environment cell for a local or imported binding.
func (m *Module) cell(local string) (*Cell, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.locals[local]; ok {
		return c, true
	}
	c, ok := m.imports[local]
	return c, ok
}

func (m *Module) isImport(local string) bool {
	_, ok := m.importRefs[local]
	return ok
}
