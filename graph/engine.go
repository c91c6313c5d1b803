package graph

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/module-bridge/errors"
)

// Engine compiles descriptors into module records. Thread-safe.
type Engine struct {
	compiled atomic.Uint64
}

// NewEngine creates an engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Compiled returns the number of modules the engine has compiled.
func (e *Engine) Compiled() uint64 {
	return e.compiled.Load()
}

// Compile validates desc and returns an unlinked module record.
// Invalid descriptors fail with a synthesis error carrying the rendered source.
func (e *Engine) Compile(desc *Descriptor) (*Module, error) {
	if desc == nil {
		return nil, errors.InvalidInput(errors.PhaseSynthesize, "nil descriptor")
	}
	if err := validate(desc); err != nil {
		return nil, errors.Synthesis(desc.ID, Source(desc), err)
	}

	m := newModule(desc)
	e.compiled.Add(1)
	Logger().Debug("module compiled",
		zap.String("module", desc.ID),
		zap.Int("locals", len(desc.Locals)),
		zap.Int("imports", len(desc.Imports)),
		zap.Int("exports", len(desc.Exports)))
	return m, nil
}

func validate(desc *Descriptor) error {
	if desc.ID == "" {
		return fmt.Errorf("module identity is empty")
	}

	bound := make(map[string]string)
	for _, l := range desc.Locals {
		if l.Name == "" {
			return fmt.Errorf("local with empty name")
		}
		if _, dup := bound[l.Name]; dup {
			return fmt.Errorf("local %q declared twice", l.Name)
		}
		bound[l.Name] = "local"
	}
	for _, imp := range desc.Imports {
		if len(imp.Names) == 0 {
			return fmt.Errorf("import from %q requests no names", imp.Specifier)
		}
		for _, n := range imp.Names {
			if n.Imported == "" || n.Local == "" {
				return fmt.Errorf("import from %q has an empty name", imp.Specifier)
			}
			if kind, dup := bound[n.Local]; dup {
				return fmt.Errorf("import %q collides with %s binding", n.Local, kind)
			}
			bound[n.Local] = "imported"
		}
	}

	exported := make(map[string]bool)
	for _, ex := range desc.Exports {
		if ex.Name == "" {
			return fmt.Errorf("export of %q has an empty name", ex.Local)
		}
		if exported[ex.Name] {
			return fmt.Errorf("duplicate export name %q", ex.Name)
		}
		if _, ok := bound[ex.Local]; !ok {
			return fmt.Errorf("export %q refers to undeclared binding %q", ex.Name, ex.Local)
		}
		exported[ex.Name] = true
	}
	return nil
}
