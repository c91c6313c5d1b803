package wasmbridge

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/module-bridge/bridge"
	"github.com/wippyai/module-bridge/errors"
	"github.com/wippyai/module-bridge/internal/wasm"
)

// Translation is a bridge over the exports of a core wasm module. Evaluating
// its facade instantiates the module and stores each exported function,
// memory and global in the binding of the same name.
type Translation struct {
	*bridge.Bridge

	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	exports  []wasm.Export
	instance api.Module
	mu       sync.Mutex
}

// Translate compiles wasmBytes in rt and creates a bridge exporting the
// module's functions, memories and globals. Tables have no host
// representation and are not exported. Export names must be IdentifierNames.
func Translate(ctx context.Context, rt wazero.Runtime, wasmBytes []byte, label string, opts ...bridge.Option) (*Translation, error) {
	exports, err := wasm.ParseExports(wasmBytes)
	if err != nil {
		return nil, errors.New(errors.PhaseValidate, errors.KindInvalidInput).
			Detail("read exports of %q", label).
			Cause(err).
			Build()
	}
	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.New(errors.PhaseValidate, errors.KindInvalidInput).
			Detail("compile %q", label).
			Cause(err).
			Build()
	}

	t := &Translation{runtime: rt, compiled: compiled}
	var names []string
	for _, ex := range exports {
		if ex.Kind == wasm.KindTable {
			continue
		}
		t.exports = append(t.exports, ex)
		names = append(names, ex.Name)
	}

	b, err := bridge.New(ctx, names, label, t.evaluate, opts...)
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}
	t.Bridge = b
	return t, nil
}

func (t *Translation) evaluate(ctx context.Context, reflect bridge.Reflector) (any, error) {
	mod, err := t.runtime.InstantiateModule(ctx, t.compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, err
	}

	for _, ex := range t.exports {
		var v any
		switch ex.Kind {
		case wasm.KindFunc:
			fn := t.exportedFunction(mod, ex.Name)
			if fn == nil {
				_ = mod.Close(ctx)
				return nil, errors.NotFound(errors.PhaseEvaluate, "function", ex.Name)
			}
			v = fn
		case wasm.KindMemory:
			v = mod.ExportedMemory(ex.Name)
		case wasm.KindGlobal:
			v = mod.ExportedGlobal(ex.Name)
		}
		if err := reflect.Set(ex.Name, v); err != nil {
			_ = mod.Close(ctx)
			return nil, err
		}
	}

	t.mu.Lock()
	t.instance = mod
	t.mu.Unlock()
	Logger().Debug("wasm module translated",
		zap.String("module", t.Module.ID()),
		zap.Int("exports", len(t.exports)))
	return mod, nil
}

// exportedFunction resolves a function export. A re-exported import is
// followed to the module that defines it, since the compiler backend cannot
// build a callable for an imported index.
func (t *Translation) exportedFunction(mod api.Module, name string) api.Function {
	for range 8 {
		def, ok := mod.ExportedFunctionDefinitions()[name]
		if !ok {
			return nil
		}
		from, imported, isImport := def.Import()
		if !isImport {
			return mod.ExportedFunction(name)
		}
		src := t.runtime.Module(from)
		if src == nil || src == mod {
			return nil
		}
		mod, name = src, imported
	}
	return nil
}

// Instance returns the wasm module instance once the facade has been
// evaluated.
func (t *Translation) Instance() api.Module {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.instance
}

// Close releases the instance and compiled module.
func (t *Translation) Close(ctx context.Context) error {
	var first error
	if inst := t.Instance(); inst != nil {
		first = inst.Close(ctx)
	}
	if err := t.compiled.Close(ctx); err != nil && first == nil {
		first = err
	}
	return first
}
