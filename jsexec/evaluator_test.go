package jsexec

import (
	"context"
	stderrors "errors"
	"sort"
	"testing"
	"time"

	"github.com/tetratelabs/wazero"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/module-bridge/bridge"
	"github.com/wippyai/module-bridge/errors"
	"github.com/wippyai/module-bridge/graph"
	"github.com/wippyai/module-bridge/wasmbridge"
)

// mapReflector is an in-memory Reflector over a fixed name set.
type mapReflector struct {
	values map[string]any
	names  []string
}

func newMapReflector(names ...string) *mapReflector {
	return &mapReflector{values: make(map[string]any), names: names}
}

func (m *mapReflector) Names() []string { return m.names }

func (m *mapReflector) Has(name string) bool {
	for _, n := range m.names {
		if n == name {
			return true
		}
	}
	return false
}

func (m *mapReflector) Get(name string) (any, error) {
	if !m.Has(name) {
		return nil, errors.UnknownBinding("map", name)
	}
	v, ok := m.values[name]
	if !ok {
		return graph.Uninitialized, nil
	}
	return v, nil
}

func (m *mapReflector) Set(name string, v any) error {
	if !m.Has(name) {
		return errors.UnknownBinding("map", name)
	}
	m.values[name] = v
	return nil
}

func mustCompile(t *testing.T, src string, opts ...Option) *Script {
	t.Helper()
	s, err := Compile(src, opts...)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return s
}

func TestScript_Run(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		preset map[string]any
		want   any
		check  map[string]any
	}{
		{
			name:  "integer write",
			src:   `reflect.value = 42;`,
			want:  int64(42),
			check: map[string]any{"value": int64(42)},
		},
		{
			name:  "float and string",
			src:   `reflect.value = 1.5; reflect.name = "x"; undefined`,
			check: map[string]any{"value": 1.5, "name": "x"},
		},
		{
			name:   "reads host values",
			src:    `reflect.name = "hello " + reflect.value; reflect.name`,
			preset: map[string]any{"value": "world"},
			want:   "hello world",
			check:  map[string]any{"name": "hello world"},
		},
		{
			name: "unset reads undefined",
			src:  `typeof reflect.value`,
			want: "undefined",
		},
		{
			name: "enumerates bindings",
			src:  `Object.keys(reflect).join(",")`,
			want: "value,name",
		},
		{
			name: "membership",
			src:  `("value" in reflect) && !("other" in reflect)`,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newMapReflector("value", "name")
			for k, v := range tt.preset {
				r.values[k] = v
			}
			got, err := mustCompile(t, tt.src).Run(context.Background(), r)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if got != tt.want {
				t.Errorf("completion = %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
			for k, want := range tt.check {
				if r.values[k] != want {
					t.Errorf("%s = %v (%T), want %v (%T)", k, r.values[k], r.values[k], want, want)
				}
			}
		})
	}
}

func TestScript_UnknownWriteThrows(t *testing.T) {
	r := newMapReflector("value")
	_, err := mustCompile(t, `reflect.other = 1;`).Run(context.Background(), r)
	if !stderrors.Is(err, errors.ErrUnknownBinding) {
		t.Fatalf("err = %v, want unknown binding", err)
	}
}

func TestScript_CaughtWriteFailure(t *testing.T) {
	r := newMapReflector("value")
	got, err := mustCompile(t, `
		let caught = false;
		try { reflect.other = 1; } catch (e) { caught = true; }
		caught;
	`).Run(context.Background(), r)
	if err != nil {
		t.Fatal(err)
	}
	if got != true {
		t.Errorf("script did not observe the failed write: %v", got)
	}
}

func TestScript_DeleteIsRefused(t *testing.T) {
	r := newMapReflector("value")
	r.values["value"] = "kept"
	got, err := mustCompile(t, `delete reflect.value`).Run(context.Background(), r)
	if err != nil {
		t.Fatal(err)
	}
	if got != false {
		t.Errorf("delete returned %v", got)
	}
	if r.values["value"] != "kept" {
		t.Error("binding was removed")
	}
}

func TestScript_Promises(t *testing.T) {
	ctx := context.Background()

	t.Run("fulfilled", func(t *testing.T) {
		r := newMapReflector("value")
		got, err := mustCompile(t, `(async () => { reflect.value = 7; return "done"; })()`).Run(ctx, r)
		if err != nil {
			t.Fatal(err)
		}
		aw, ok := got.(graph.Awaitable)
		if !ok {
			t.Fatalf("completion %T is not awaitable", got)
		}
		<-aw.Done()
		if v, err := aw.Result(); err != nil || v != "done" {
			t.Errorf("result = %v, %v", v, err)
		}
		if r.values["value"] != int64(7) {
			t.Errorf("value = %v", r.values["value"])
		}
	})

	t.Run("rejected", func(t *testing.T) {
		got, err := mustCompile(t, `Promise.reject(new Error("nope"))`).Run(ctx, newMapReflector())
		if err != nil {
			t.Fatal(err)
		}
		aw := got.(graph.Awaitable)
		<-aw.Done()
		_, err = aw.Result()
		var rej *RejectionError
		if !stderrors.As(err, &rej) {
			t.Fatalf("err = %v, want RejectionError", err)
		}
		if rej.Message != "Error: nope" {
			t.Errorf("message = %q", rej.Message)
		}
	})

	t.Run("never settles", func(t *testing.T) {
		_, err := mustCompile(t, `new Promise(() => {})`).Run(ctx, newMapReflector())
		if !stderrors.Is(err, errors.ErrInvalidState) {
			t.Errorf("err = %v, want invalid state", err)
		}
	})
}

func TestScript_Interrupt(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := mustCompile(t, `for (;;) {}`).Run(ctx, newMapReflector())
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestScript_CancelledBeforeRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newMapReflector("value")
	_, err := mustCompile(t, `reflect.value = 1;`).Run(ctx, r)
	if !stderrors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if _, ok := r.values["value"]; ok {
		t.Error("script ran on a cancelled context")
	}
}

func TestCompile_Errors(t *testing.T) {
	_, err := Evaluator(`reflect.value = ;`, WithName("broken.js"))
	if !stderrors.Is(err, errors.ErrInvalidInput) {
		t.Fatalf("err = %v, want invalid input", err)
	}
	var e *errors.Error
	if stderrors.As(err, &e) && e.Source != `reflect.value = ;` {
		t.Errorf("source = %q", e.Source)
	}

	if _, err := Compile(`with (reflect) { value = 1 }`, WithStrict()); err == nil {
		t.Error("strict mode accepted a with statement")
	}
}

func TestOptions(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := newMapReflector("value")

	s := mustCompile(t, `console.log("seeded", seed); bindings.value = seed * 2;`,
		WithName("opts.js"),
		WithGlobal("seed", 21),
		WithObject("bindings"),
		WithLogger(zap.New(core)))

	if s.Name() != "opts.js" {
		t.Errorf("Name = %q", s.Name())
	}
	if _, err := s.Evaluator()(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	if r.values["value"] != int64(42) {
		t.Errorf("value = %v (%T)", r.values["value"], r.values["value"])
	}
	if n := logs.FilterMessage("seeded 21").Len(); n != 1 {
		t.Errorf("console.log entries = %d", n)
	}
}

func TestEvaluator_GraphBridge(t *testing.T) {
	ctx := context.Background()
	eval, err := Evaluator(`reflect.value = 42; reflect.label = "answer"; "ok"`)
	if err != nil {
		t.Fatal(err)
	}

	b, err := bridge.New(ctx, []string{"value", "label"}, "js", eval)
	if err != nil {
		t.Fatal(err)
	}
	got, err := b.Evaluate(ctx).Wait(ctx)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got != "ok" {
		t.Errorf("completion = %v", got)
	}

	ns := b.Module.Namespace()
	if v, _ := ns.Get("value"); v != int64(42) {
		t.Errorf("facade value = %v (%T)", v, v)
	}
	names := ns.Names()
	sort.Strings(names)
	if len(names) != 2 || names[0] != "label" || names[1] != "value" {
		t.Errorf("facade names = %v", names)
	}
}

func TestEvaluator_GraphBridgeThrow(t *testing.T) {
	ctx := context.Background()
	eval, err := Evaluator(`throw new Error("boom")`)
	if err != nil {
		t.Fatal(err)
	}
	b, err := bridge.New(ctx, []string{"value"}, "js", eval)
	if err != nil {
		t.Fatal(err)
	}

	_, err = b.Evaluate(ctx).Wait(ctx)
	if !stderrors.Is(err, errors.ErrEvaluation) {
		t.Fatalf("err = %v, want evaluation failure", err)
	}
	if b.Module.Status() != graph.StatusErrored {
		t.Errorf("status = %s", b.Module.Status())
	}
}

func TestEvaluator_WasmBridge(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	eval, err := Evaluator(`reflect.value = 42; reflect.ratio = 0.5;`)
	if err != nil {
		t.Fatal(err)
	}
	g, err := wasmbridge.NewGlobals(ctx, rt, []wasmbridge.Binding{
		{Name: "value", Type: wit.S64{}},
		{Name: "ratio", Type: wit.F32{}},
	}, "js", eval)
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close(ctx)

	if err := g.Facade.Evaluate(ctx); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if v, _ := g.Facade.Get("value"); v != int64(42) {
		t.Errorf("value = %v (%T)", v, v)
	}
	if v, _ := g.Facade.Get("ratio"); v != float32(0.5) {
		t.Errorf("ratio = %v (%T)", v, v)
	}
}

func TestEvaluator_WasmBridgeTypeMismatch(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	eval, err := Evaluator(`reflect.value = "not a number";`)
	if err != nil {
		t.Fatal(err)
	}
	g, err := wasmbridge.NewGlobals(ctx, rt, []wasmbridge.Binding{{Name: "value", Type: wit.S32{}}}, "js", eval)
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close(ctx)

	err = g.Facade.Evaluate(ctx)
	if !stderrors.Is(err, errors.ErrTypeMismatch) {
		t.Fatalf("err = %v, want type mismatch", err)
	}
	if g.Facade.Status() != graph.StatusErrored {
		t.Errorf("status = %s", g.Facade.Status())
	}
}
