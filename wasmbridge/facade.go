package wasmbridge

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"go.uber.org/zap"

	"github.com/wippyai/module-bridge/errors"
	"github.com/wippyai/module-bridge/graph"
)

// Facade is the wasm module a global bridge hands out. It is compiled and
// checked against the reflective module when the bridge is created; wazero
// binds its imports and runs its start function, which calls the executor,
// on the first Evaluate.
type Facade struct {
	runtime    wazero.Runtime
	compiled   wazero.CompiledModule
	reflective api.Module
	instance   api.Module
	err        error
	cells      *cells
	executor   *executorCell
	logger     *zap.Logger
	id         string
	status     graph.Status
	once       sync.Once
	mu         sync.RWMutex
}

// ID returns the facade identity, also its module name in the runtime.
func (f *Facade) ID() string {
	return f.id
}

// Status returns the facade lifecycle state.
func (f *Facade) Status() graph.Status {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.status
}

func (f *Facade) setStatus(s graph.Status) {
	f.mu.Lock()
	f.status = s
	f.mu.Unlock()
}

// ExportNames returns the exported names in request order.
func (f *Facade) ExportNames() []string {
	return f.cells.names()
}

// Compiled returns the compiled facade module.
func (f *Facade) Compiled() wazero.CompiledModule {
	return f.compiled
}

// Instance returns the facade module instance, nil before evaluation.
func (f *Facade) Instance() api.Module {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.instance
}

// Value returns the executor's completion value after a successful
// evaluation.
func (f *Facade) Value() any {
	return f.executor.result()
}

// Evaluate instantiates the facade, which runs the executor. Only the first
// call does any work; later calls return the first result.
func (f *Facade) Evaluate(ctx context.Context) error {
	f.once.Do(func() {
		f.setStatus(graph.StatusEvaluating)
		rctx := experimental.WithImportResolver(ctx, func(string) api.Module {
			return f.reflective
		})
		mod, err := f.runtime.InstantiateModule(rctx, f.compiled, wazero.NewModuleConfig().WithName(f.id))
		if err != nil {
			f.mu.Lock()
			f.err = errors.Evaluation(f.id, err)
			f.status = graph.StatusErrored
			f.mu.Unlock()
			f.logger.Debug("facade evaluation failed", zap.String("module", f.id), zap.Error(err))
			return
		}
		f.mu.Lock()
		f.instance = mod
		f.status = graph.StatusEvaluated
		f.mu.Unlock()
		f.logger.Debug("facade evaluated", zap.String("module", f.id))
	})
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.err
}

// Get reads an export. The facade's globals are the reflective module's
// globals, so before evaluation the value is read through the reflective
// module and matches what an importer will observe. Bindings never set read
// as graph.Uninitialized.
func (f *Facade) Get(name string) (any, error) {
	b, i, err := f.cells.lookup(name)
	if err != nil {
		return nil, err
	}
	if !f.cells.initialized(i) {
		return graph.Uninitialized, nil
	}
	g := f.reflective.ExportedGlobal(localName(name))
	if inst := f.Instance(); inst != nil {
		g = inst.ExportedGlobal(name)
	}
	return decodeValue(b.Type, g.Get()), nil
}

// Close releases the facade instance and its compiled code.
func (f *Facade) Close(ctx context.Context) error {
	var first error
	if inst := f.Instance(); inst != nil {
		first = inst.Close(ctx)
	}
	if err := f.compiled.Close(ctx); err != nil && first == nil {
		first = err
	}
	return first
}
