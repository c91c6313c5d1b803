package wasmbridge

import (
	"context"
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/module-bridge/bridge"
	"github.com/wippyai/module-bridge/errors"
	"github.com/wippyai/module-bridge/graph"
	"github.com/wippyai/module-bridge/internal/wasm"
)

const executorExport = "executor"

// Globals is a bridge whose bindings are mutable wasm globals. Other wasm
// modules can import the facade's exports by the facade's ID.
type Globals struct {
	// Facade is the module handed out: linked, not yet evaluated.
	Facade *Facade
	// Reflect reads and writes the globals behind the facade's exports.
	Reflect *Accessor

	identity   bridge.Identity
	host       api.Module
	reflective api.Module
}

// NewGlobals creates a global bridge in rt. Every binding type must have a
// wasm global representation (bool, integers, floats, char). The evaluator,
// when non-nil, runs exactly once, from the facade's start function.
func NewGlobals(ctx context.Context, rt wazero.Runtime, bindings []Binding, label string, evaluator bridge.Evaluator, opts ...Option) (*Globals, error) {
	names := make([]string, len(bindings))
	for i, b := range bindings {
		names[i] = b.Name
	}
	if err := bridge.ValidateNames(names); err != nil {
		return nil, err
	}
	valTypes := make([]api.ValueType, len(bindings))
	for i, b := range bindings {
		vt, err := ValueType(b.Type)
		if err != nil {
			return nil, errors.New(errors.PhaseValidate, errors.KindInvalidInput).
				Path(b.Name).
				Detail("binding type").
				Cause(err).
				Build()
		}
		valTypes[i] = vt
	}

	o := buildOptions(opts)
	id := o.Counter.Next(label)
	reflectiveID := id.Reflective()
	hostName := reflectiveID + "$host"
	bindings = append([]Binding(nil), bindings...)
	state := newCells(id.Facade(), bindings)

	exec := &executorCell{}
	host, err := rt.NewHostModuleBuilder(hostName).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(exec.call), nil, nil).
		Export(executorExport).
		Instantiate(ctx)
	if err != nil {
		return nil, errors.New(errors.PhaseSynthesize, errors.KindSynthesisFailure).
			Module(hostName).
			Detail("instantiate executor host module").
			Cause(err).
			Build()
	}

	rb := wasm.NewModuleBuilder()
	rb.ImportFunc(hostName, executorExport, executorExport, nil, nil)
	for i, b := range bindings {
		rb.DefineGlobal(localName(b.Name), valTypes[i], true, 0)
	}
	reflective, err := rt.InstantiateWithConfig(ctx, rb.Build(), wazero.NewModuleConfig().WithName(reflectiveID))
	if err != nil {
		_ = host.Close(ctx)
		src := reflectiveListing(reflectiveID, hostName, bindings, valTypes)
		o.Logger.Error("reflective module rejected",
			zap.String("module", reflectiveID),
			zap.String("source", src),
			zap.Error(err))
		return nil, errors.Synthesis(reflectiveID, src, err)
	}

	accessor := &Accessor{cells: state, module: reflective}
	if evaluator != nil {
		exec.store(func(ctx context.Context) (any, error) {
			return evaluator(ctx, accessor)
		})
	}

	facade, err := newFacade(ctx, rt, o, id.Facade(), reflective, state, valTypes, exec)
	if err != nil {
		_ = reflective.Close(ctx)
		_ = host.Close(ctx)
		return nil, err
	}

	o.Logger.Debug("global bridge created",
		zap.String("module", id.Facade()),
		zap.Strings("exports", names),
		zap.Bool("evaluator", evaluator != nil))

	return &Globals{
		Facade:     facade,
		Reflect:    accessor,
		identity:   id,
		host:       host,
		reflective: reflective,
	}, nil
}

func newFacade(ctx context.Context, rt wazero.Runtime, o Options, id string, reflective api.Module, state *cells, valTypes []api.ValueType, exec *executorCell) (*Facade, error) {
	fb := wasm.NewModuleBuilder()
	run := fb.ImportFunc(o.Placeholder, executorExport, "", nil, nil)
	for i, b := range state.bindings {
		fb.ImportGlobal(o.Placeholder, localName(b.Name), b.Name, valTypes[i], true)
	}
	fb.StartWith(run)

	compiled, err := rt.CompileModule(ctx, fb.Build())
	if err != nil {
		src := facadeListing(id, o.Placeholder, state.bindings, valTypes)
		o.Logger.Error("facade module rejected",
			zap.String("module", id),
			zap.String("source", src),
			zap.Error(err))
		return nil, errors.Synthesis(id, src, err)
	}

	// Link: every import must be satisfied by the reflective module. The
	// executor is a re-exported import, so only its definition is checked.
	var missing []string
	if _, ok := reflective.ExportedFunctionDefinitions()[executorExport]; !ok {
		missing = append(missing, o.Placeholder+"#"+executorExport)
	}
	for _, b := range state.bindings {
		if reflective.ExportedGlobal(localName(b.Name)) == nil {
			missing = append(missing, o.Placeholder+"#"+localName(b.Name))
		}
	}
	if len(missing) > 0 {
		_ = compiled.Close(ctx)
		return nil, errors.Link(id, o.Placeholder, errors.NewUnresolvedImportsError(missing))
	}

	return &Facade{
		runtime:    rt,
		compiled:   compiled,
		reflective: reflective,
		cells:      state,
		executor:   exec,
		logger:     o.Logger,
		id:         id,
		status:     graph.StatusInstantiated,
	}, nil
}

// Identity returns the bridge identity.
func (g *Globals) Identity() bridge.Identity {
	return g.identity
}

// Reflective returns the reflective module instance.
func (g *Globals) Reflective() api.Module {
	return g.reflective
}

// Close releases the facade, reflective and host modules.
func (g *Globals) Close(ctx context.Context) error {
	var first error
	for _, closer := range []func(context.Context) error{g.Facade.Close, g.reflective.Close, g.host.Close} {
		if err := closer(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func reflectiveListing(id, host string, bindings []Binding, valTypes []api.ValueType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "(module $%s\n", id)
	fmt.Fprintf(&b, "  (import %q %q (func (export %q)))\n", host, executorExport, executorExport)
	for i, bd := range bindings {
		fmt.Fprintf(&b, "  (global (export %q) (mut %s) (%s.const 0))\n",
			localName(bd.Name), api.ValueTypeName(valTypes[i]), api.ValueTypeName(valTypes[i]))
	}
	b.WriteString(")")
	return b.String()
}

func facadeListing(id, placeholder string, bindings []Binding, valTypes []api.ValueType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "(module $%s\n", id)
	fmt.Fprintf(&b, "  (import %q %q (func $executor))\n", placeholder, executorExport)
	for i, bd := range bindings {
		fmt.Fprintf(&b, "  (import %q %q (global (export %q) (mut %s)))\n",
			placeholder, localName(bd.Name), bd.Name, api.ValueTypeName(valTypes[i]))
	}
	b.WriteString("  (start $executor))")
	return b.String()
}
