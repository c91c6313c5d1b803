package bridge

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/module-bridge/graph"
)

// synthesizeFacade builds the module the host hands out. It imports every
// binding and the executor from the placeholder specifier, re-exports the
// bindings under their requested names and leaves the executor private.
// It is linked against the reflective module and instantiated, but never
// evaluated here.
func synthesizeFacade(ctx context.Context, o Options, reflective *graph.Module, table *Table, id string) (*graph.Module, error) {
	imports := make([]graph.ImportName, 0, len(table.names)+1)
	imports = append(imports, graph.Name(executorLocal))
	for _, name := range table.names {
		imports = append(imports, graph.Name(localName(name)))
	}

	b := graph.NewBuilder(id).Import(o.Placeholder, imports...)
	for _, name := range table.names {
		b.Export(localName(name), name)
	}
	b.Body(func(ctx context.Context, env *graph.Env) (any, error) {
		v, err := env.Get(executorLocal)
		if err != nil {
			return nil, err
		}
		fn, ok := v.(Executor)
		if !ok || fn == nil {
			return nil, nil
		}
		return fn(ctx)
	})

	desc := b.Build()
	mod, err := o.Engine.Compile(desc)
	if err != nil {
		o.Logger.Error("facade module rejected",
			zap.String("module", id),
			zap.String("source", graph.Source(desc)),
			zap.Error(err))
		return nil, err
	}

	if err := mod.Link(ctx, graph.Static(reflective)); err != nil {
		return nil, err
	}
	if err := mod.Instantiate(ctx); err != nil {
		return nil, err
	}
	return mod, nil
}
