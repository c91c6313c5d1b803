package bridge

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/module-bridge/errors"
	"github.com/wippyai/module-bridge/graph"
)

// reflection is the reflective module's completion value.
type reflection struct {
	setExecutor func(Executor) error
	accessor    *Accessor
}

// synthesizeReflective builds, instantiates and evaluates the module that
// owns the bindings. Each binding is exported as its '$'-prefixed local
// together with the executor, so the facade can import all of them.
func synthesizeReflective(ctx context.Context, o Options, table *Table, id string) (*graph.Module, reflection, error) {
	b := graph.NewBuilder(id)
	for _, name := range table.names {
		local := localName(name)
		b.Bind(local, table.cells[name]).Export(local, local)
	}
	b.Bind(executorLocal, table.executor).Export(executorLocal, executorLocal)
	b.Body(func(_ context.Context, env *graph.Env) (any, error) {
		return reflection{
			setExecutor: func(fn Executor) error { return env.Set(executorLocal, fn) },
			accessor:    newAccessor(table, env),
		}, nil
	})

	desc := b.Build()
	mod, err := o.Engine.Compile(desc)
	if err != nil {
		o.Logger.Error("reflective module rejected",
			zap.String("module", id),
			zap.String("source", graph.Source(desc)),
			zap.Error(err))
		return nil, reflection{}, err
	}

	if err := mod.Link(ctx, nil); err != nil {
		return nil, reflection{}, err
	}
	if err := mod.Instantiate(ctx); err != nil {
		return nil, reflection{}, err
	}

	ev := mod.Evaluate(ctx)
	if !ev.Settled() {
		return nil, reflection{}, errors.InvalidState(errors.PhaseEvaluate, id, mod.Status().String())
	}
	if err := ev.Err(); err != nil {
		return nil, reflection{}, err
	}
	r, ok := ev.Value().(reflection)
	if !ok {
		return nil, reflection{}, errors.New(errors.PhaseEvaluate, errors.KindInvalidState).
			Module(id).
			Detail("unexpected completion value %T", ev.Value()).
			Build()
	}
	return mod, r, nil
}
