package wasmbridge

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/module-bridge/bridge"
	"github.com/wippyai/module-bridge/errors"
	"github.com/wippyai/module-bridge/graph"
	"github.com/wippyai/module-bridge/internal/wasm"
)

func newRuntime(t *testing.T) (context.Context, wazero.Runtime) {
	t.Helper()
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { rt.Close(ctx) })
	return ctx, rt
}

func TestNewGlobals_Scenario(t *testing.T) {
	ctx, rt := newRuntime(t)

	g, err := NewGlobals(ctx, rt, []Binding{{Name: "value", Type: wit.S64{}}}, "demo", nil)
	if err != nil {
		t.Fatalf("NewGlobals: %v", err)
	}
	defer g.Close(ctx)

	if g.Facade.Status() != graph.StatusInstantiated {
		t.Errorf("facade status = %s", g.Facade.Status())
	}
	if err := g.Reflect.Set("value", 42); err != nil {
		t.Fatal(err)
	}
	if v, _ := g.Facade.Get("value"); v != int64(42) {
		t.Errorf("facade value before evaluation = %v (%T), want 42", v, v)
	}
	if err := g.Facade.Evaluate(ctx); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if v, _ := g.Facade.Get("value"); v != int64(42) {
		t.Errorf("facade value = %v (%T), want 42", v, v)
	}
	if raw := g.Facade.Instance().ExportedGlobal("value").Get(); raw != 42 {
		t.Errorf("raw facade global = %d", raw)
	}
}

func TestNewGlobals_RuntimeConfigs(t *testing.T) {
	tests := []struct {
		name   string
		config wazero.RuntimeConfig
	}{
		{"default", wazero.NewRuntimeConfig()},
		{"interpreter", wazero.NewRuntimeConfigInterpreter()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			rt := wazero.NewRuntimeWithConfig(ctx, tt.config)
			defer rt.Close(ctx)

			g, err := NewGlobals(ctx, rt, []Binding{{Name: "value", Type: wit.S32{}}}, "cfg",
				func(_ context.Context, r bridge.Reflector) (any, error) {
					return nil, r.Set("value", 42)
				})
			if err != nil {
				t.Fatalf("NewGlobals: %v", err)
			}
			defer g.Close(ctx)

			if err := g.Facade.Evaluate(ctx); err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if v, _ := g.Facade.Get("value"); v != int32(42) {
				t.Errorf("value = %v (%T)", v, v)
			}
		})
	}
}

func TestNewGlobals_Placeholder(t *testing.T) {
	ctx, rt := newRuntime(t)

	tests := []struct {
		name string
		opts []Option
		want string
	}{
		{"default", nil, DefaultPlaceholder},
		{"empty", []Option{WithPlaceholder("")}, DefaultPlaceholder},
		{"custom", []Option{WithPlaceholder("env")}, "env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGlobals(ctx, rt, []Binding{{Name: "x", Type: wit.S32{}}}, tt.name, nil, tt.opts...)
			if err != nil {
				t.Fatalf("NewGlobals: %v", err)
			}
			defer g.Close(ctx)

			imports := g.Facade.Compiled().ImportedFunctions()
			if len(imports) != 1 {
				t.Fatalf("imported functions = %d", len(imports))
			}
			if mod, _, _ := imports[0].Import(); mod != tt.want {
				t.Errorf("facade imports from %q, want %q", mod, tt.want)
			}
			if err := g.Facade.Evaluate(ctx); err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
		})
	}
}

func TestAccessor_CharScalarValues(t *testing.T) {
	ctx, rt := newRuntime(t)

	g, err := NewGlobals(ctx, rt, []Binding{{Name: "c", Type: wit.Char{}}}, "chars", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close(ctx)

	for _, bad := range []any{rune(0xD800), rune(0xDFFF), rune(0x110000), "\xff", "ab"} {
		if err := g.Reflect.Set("c", bad); !stderrors.Is(err, errors.ErrTypeMismatch) {
			t.Errorf("Set(%q): %v, want type mismatch", bad, err)
		}
	}
	if v, _ := g.Reflect.Get("c"); v != graph.Uninitialized {
		t.Errorf("rejected writes stored %v", v)
	}

	if err := g.Reflect.Set("c", "é"); err != nil {
		t.Fatal(err)
	}
	if v, _ := g.Reflect.Get("c"); v != 'é' {
		t.Errorf("c = %q", v)
	}
}

func TestNewGlobals_LiveBindings(t *testing.T) {
	ctx, rt := newRuntime(t)

	g, err := NewGlobals(ctx, rt, []Binding{
		{Name: "count", Type: wit.U32{}},
		{Name: "ratio", Type: wit.F64{}},
	}, "live", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Facade.Evaluate(ctx); err != nil {
		t.Fatal(err)
	}

	if v, _ := g.Facade.Get("count"); v != graph.Uninitialized {
		t.Errorf("unset binding reads %v", v)
	}
	if raw := g.Facade.Instance().ExportedGlobal("count").Get(); raw != 0 {
		t.Errorf("unset raw global = %d, want 0", raw)
	}

	// A module importing the facade sees later writes without re-linking.
	cb := wasm.NewModuleBuilder()
	cb.ImportGlobal(g.Facade.ID(), "count", "seen", api.ValueTypeI32, true)
	consumer, err := rt.InstantiateWithConfig(ctx, cb.Build(), wazero.NewModuleConfig().WithName("consumer"))
	if err != nil {
		t.Fatalf("consumer: %v", err)
	}

	for _, n := range []uint32{1, 7, 4000000000} {
		if err := g.Reflect.Set("count", n); err != nil {
			t.Fatal(err)
		}
		if v, _ := g.Facade.Get("count"); v != n {
			t.Errorf("facade count = %v, want %d", v, n)
		}
		if got := api.DecodeU32(consumer.ExportedGlobal("seen").Get()); got != n {
			t.Errorf("consumer count = %d, want %d", got, n)
		}
	}

	if err := g.Reflect.Set("ratio", 0.5); err != nil {
		t.Fatal(err)
	}
	if v, _ := g.Reflect.Get("ratio"); v != 0.5 {
		t.Errorf("ratio = %v", v)
	}
}

func TestNewGlobals_ExecutorRunsOnce(t *testing.T) {
	ctx, rt := newRuntime(t)
	var calls atomic.Int32

	g, err := NewGlobals(ctx, rt, []Binding{{Name: "value", Type: wit.S32{}}}, "once",
		func(_ context.Context, r bridge.Reflector) (any, error) {
			calls.Add(1)
			return "done", r.Set("value", int64(-3))
		})
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close(ctx)

	if calls.Load() != 0 {
		t.Fatal("executor ran before evaluation")
	}
	for i := 0; i < 3; i++ {
		if err := g.Facade.Evaluate(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("executor ran %d times, want 1", calls.Load())
	}
	if g.Facade.Value() != "done" {
		t.Errorf("completion = %v", g.Facade.Value())
	}
	if v, _ := g.Facade.Get("value"); v != int32(-3) {
		t.Errorf("value = %v", v)
	}
	if g.Facade.Status() != graph.StatusEvaluated {
		t.Errorf("status = %s", g.Facade.Status())
	}
}

func TestNewGlobals_ExecutorNotExported(t *testing.T) {
	ctx, rt := newRuntime(t)

	g, err := NewGlobals(ctx, rt, []Binding{{Name: "a", Type: wit.Bool{}}}, "private", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Facade.Evaluate(ctx); err != nil {
		t.Fatal(err)
	}
	inst := g.Facade.Instance()
	if len(inst.ExportedFunctionDefinitions()) != 0 {
		t.Errorf("facade exports functions: %v", inst.ExportedFunctionDefinitions())
	}
	if inst.ExportedGlobal("$a") != nil {
		t.Error("facade exports the reflective local name")
	}
	if inst.ExportedGlobal("a") == nil {
		t.Error("facade is missing its export")
	}
}

func TestNewGlobals_EvaluatorFailure(t *testing.T) {
	ctx, rt := newRuntime(t)
	boom := stderrors.New("boom")
	var calls atomic.Int32

	g, err := NewGlobals(ctx, rt, []Binding{{Name: "x", Type: wit.S64{}}}, "fail",
		func(context.Context, bridge.Reflector) (any, error) {
			calls.Add(1)
			return nil, boom
		})
	if err != nil {
		t.Fatal(err)
	}

	err = g.Facade.Evaluate(ctx)
	if !stderrors.Is(err, errors.ErrEvaluation) || !stderrors.Is(err, boom) {
		t.Fatalf("expected evaluation failure wrapping boom, got %v", err)
	}
	if g.Facade.Status() != graph.StatusErrored {
		t.Errorf("status = %s", g.Facade.Status())
	}
	if again := g.Facade.Evaluate(ctx); again != err || calls.Load() != 1 {
		t.Error("a failed evaluation must not be retried")
	}
	if g.Facade.Instance() != nil {
		t.Error("failed facade should have no instance")
	}
}

func TestNewGlobals_AsyncEvaluator(t *testing.T) {
	ctx, rt := newRuntime(t)

	g, err := NewGlobals(ctx, rt, []Binding{{Name: "v", Type: wit.F32{}}}, "async",
		func(ctx context.Context, r bridge.Reflector) (any, error) {
			return graph.Go(ctx, func(context.Context) (any, error) {
				return "async", r.Set("v", float32(2.5))
			}), nil
		})
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Facade.Evaluate(ctx); err != nil {
		t.Fatal(err)
	}
	if v, _ := g.Facade.Get("v"); v != float32(2.5) {
		t.Errorf("v = %v", v)
	}
	if g.Facade.Value() != "async" {
		t.Errorf("completion = %v", g.Facade.Value())
	}
}

func TestNewGlobals_Rejects(t *testing.T) {
	ctx, rt := newRuntime(t)

	tests := []struct {
		name     string
		bindings []Binding
		want     error
	}{
		{"duplicate", []Binding{{Name: "a", Type: wit.S32{}}, {Name: "a", Type: wit.S32{}}}, errors.ErrDuplicateExport},
		{"invalid name", []Binding{{Name: "no-dash", Type: wit.S32{}}}, errors.ErrInvalidName},
		{"empty", nil, errors.ErrInvalidInput},
		{"string type", []Binding{{Name: "s", Type: wit.String{}}}, errors.ErrInvalidInput},
		{"nil type", []Binding{{Name: "s"}}, errors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGlobals(ctx, rt, tt.bindings, "bad", nil)
			if !stderrors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAccessor_Errors(t *testing.T) {
	ctx, rt := newRuntime(t)

	g, err := NewGlobals(ctx, rt, []Binding{{Name: "small", Type: wit.U8{}}}, "acc", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Reflect.Set("small", 300); !stderrors.Is(err, errors.ErrTypeMismatch) {
		t.Errorf("overflow: %v", err)
	}
	if err := g.Reflect.Set("small", "x"); !stderrors.Is(err, errors.ErrTypeMismatch) {
		t.Errorf("wrong kind: %v", err)
	}
	if v, _ := g.Reflect.Get("small"); v != graph.Uninitialized {
		t.Error("failed sets must not initialize the binding")
	}
	if _, err := g.Reflect.Get("missing"); !stderrors.Is(err, errors.ErrUnknownBinding) {
		t.Errorf("unknown get: %v", err)
	}
	if _, err := g.Facade.Get("missing"); !stderrors.Is(err, errors.ErrUnknownBinding) {
		t.Errorf("unknown facade get: %v", err)
	}
	if typ, ok := g.Reflect.Type("small"); !ok || TypeName(typ) != "u8" {
		t.Errorf("Type = %v, %v", typ, ok)
	}
}

func TestNewGlobals_DistinctIdentities(t *testing.T) {
	ctx, rt := newRuntime(t)
	c := bridge.NewCounter()

	bindings := []Binding{{Name: "x", Type: wit.S32{}}}
	a, err := NewGlobals(ctx, rt, bindings, "same", nil, WithCounter(c))
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewGlobals(ctx, rt, bindings, "same", nil, WithCounter(c), WithPlaceholder("bridge"))
	if err != nil {
		t.Fatal(err)
	}
	if a.Facade.ID() == b.Facade.ID() {
		t.Fatal("identities collide")
	}
	for _, g := range []*Globals{a, b} {
		if err := g.Facade.Evaluate(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if a.Reflective().Name() != a.Identity().Reflective() {
		t.Errorf("reflective module name = %q", a.Reflective().Name())
	}

	if err := a.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if rt.Module(a.Facade.ID()) != nil || rt.Module(a.Identity().Reflective()) != nil {
		t.Error("Close should release the bridge modules")
	}
	if rt.Module(b.Facade.ID()) == nil {
		t.Error("closing one bridge must not affect another")
	}
}
