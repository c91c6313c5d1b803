package bridge

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/module-bridge/graph"
)

// Evaluator populates a bridge's bindings when its facade is evaluated.
// Returning a graph.Awaitable makes the facade evaluation asynchronous.
type Evaluator func(ctx context.Context, reflect Reflector) (any, error)

// Bridge is a facade module whose exports are driven by host code.
type Bridge struct {
	// Module is the facade: instantiated, not yet evaluated.
	Module *graph.Module
	// Reflect reads and writes the bindings behind the facade's exports.
	Reflect *Accessor

	identity   Identity
	reflective *graph.Module
	table      *Table
}

// New creates a bridge exporting names. label only decorates the module
// identity. When evaluator is non-nil it runs, exactly once, the first time
// the facade is evaluated; otherwise evaluating the facade does nothing.
func New(ctx context.Context, names []string, label string, evaluator Evaluator, opts ...Option) (*Bridge, error) {
	table, err := NewTable(names)
	if err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	id := o.Counter.Next(label)
	table.setOwner(id.Facade())

	reflective, r, err := synthesizeReflective(ctx, o, table, id.Reflective())
	if err != nil {
		return nil, err
	}

	if evaluator != nil {
		accessor := r.accessor
		if err := r.setExecutor(func(ctx context.Context) (any, error) {
			return evaluator(ctx, accessor)
		}); err != nil {
			return nil, err
		}
	}

	facade, err := synthesizeFacade(ctx, o, reflective, table, id.Facade())
	if err != nil {
		return nil, err
	}
	r.accessor.facade = facade

	o.Logger.Debug("bridge created",
		zap.String("module", id.Facade()),
		zap.Strings("exports", table.Names()),
		zap.Bool("evaluator", evaluator != nil))

	return &Bridge{
		Module:     facade,
		Reflect:    r.accessor,
		identity:   id,
		reflective: reflective,
		table:      table,
	}, nil
}

// Create is New returning the facade module and accessor directly.
func Create(ctx context.Context, names []string, label string, evaluator Evaluator, opts ...Option) (*graph.Module, *Accessor, error) {
	b, err := New(ctx, names, label, evaluator, opts...)
	if err != nil {
		return nil, nil, err
	}
	return b.Module, b.Reflect, nil
}

// Identity returns the bridge identity.
func (b *Bridge) Identity() Identity {
	return b.identity
}

// Reflective returns the module that owns the bindings.
func (b *Bridge) Reflective() *graph.Module {
	return b.reflective
}

// Table returns the binding table.
func (b *Bridge) Table() *Table {
	return b.table
}

// Evaluate evaluates the facade. It is shorthand for b.Module.Evaluate.
func (b *Bridge) Evaluate(ctx context.Context) *graph.Evaluation {
	return b.Module.Evaluate(ctx)
}
