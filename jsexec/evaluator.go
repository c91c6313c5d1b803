package jsexec

import (
	"context"
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/module-bridge/bridge"
	"github.com/wippyai/module-bridge/errors"
	"github.com/wippyai/module-bridge/graph"
)

// Script is a compiled evaluator script. A Script is immutable and may back
// any number of bridges; every run gets its own runtime.
type Script struct {
	program *goja.Program
	source  string
	opts    Options
}

// Compile parses src. Syntax errors are reported as invalid input carrying
// the source.
func Compile(src string, opts ...Option) (*Script, error) {
	o := buildOptions(opts)
	prg, err := goja.Compile(o.Name, src, o.Strict)
	if err != nil {
		return nil, errors.New(errors.PhaseSynthesize, errors.KindInvalidInput).
			Source(src).
			Detail("compile %s", o.Name).
			Cause(err).
			Build()
	}
	return &Script{program: prg, source: src, opts: o}, nil
}

// Evaluator compiles src and returns an evaluator running it.
func Evaluator(src string, opts ...Option) (bridge.Evaluator, error) {
	s, err := Compile(src, opts...)
	if err != nil {
		return nil, err
	}
	return s.Run, nil
}

// Name returns the script name.
func (s *Script) Name() string {
	return s.opts.Name
}

// Source returns the script text.
func (s *Script) Source() string {
	return s.source
}

// Evaluator returns the script as a bridge evaluator.
func (s *Script) Evaluator() bridge.Evaluator {
	return s.Run
}

// Run executes the script with r exposed as the bindings object. A promise
// completion is returned as a graph.Awaitable.
func (s *Script) Run(ctx context.Context, r bridge.Reflector) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vm := goja.New()
	if err := s.setup(vm, r); err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(context.Cause(ctx))
	})
	defer stop()

	s.opts.Logger.Debug("running script",
		zap.String("script", s.opts.Name),
		zap.Strings("bindings", r.Names()))

	v, err := vm.RunProgram(s.program)
	if err != nil {
		return nil, err
	}
	return s.completion(v)
}

func (s *Script) setup(vm *goja.Runtime, r bridge.Reflector) error {
	for name, v := range s.opts.Globals {
		if err := vm.Set(name, v); err != nil {
			return errors.InvalidInput(errors.PhaseEvaluate, "define global "+name+": "+err.Error())
		}
	}
	if err := vm.Set("console", s.console(vm)); err != nil {
		return err
	}
	return vm.Set(s.opts.Object, vm.NewDynamicObject(&reflectObject{vm: vm, r: r}))
}

func (s *Script) completion(v goja.Value) (any, error) {
	if v == nil || goja.IsUndefined(v) {
		return nil, nil
	}
	p, ok := v.Export().(*goja.Promise)
	if !ok {
		return v.Export(), nil
	}
	switch p.State() {
	case goja.PromiseStateFulfilled:
		return graph.Resolved(exportValue(p.Result())), nil
	case goja.PromiseStateRejected:
		return graph.Rejected(rejection(p.Result())), nil
	default:
		return nil, errors.New(errors.PhaseEvaluate, errors.KindInvalidState).
			Detail("%s completed with a promise that never settles", s.opts.Name).
			Build()
	}
}

func (s *Script) console(vm *goja.Runtime) *goja.Object {
	c := vm.NewObject()
	logAt := func(level zapcore.Level) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				parts[i] = arg.String()
			}
			if ce := s.opts.Logger.Check(level, strings.Join(parts, " ")); ce != nil {
				ce.Write(zap.String("script", s.opts.Name))
			}
			return goja.Undefined()
		}
	}
	_ = c.Set("debug", logAt(zapcore.DebugLevel))
	_ = c.Set("log", logAt(zapcore.InfoLevel))
	_ = c.Set("info", logAt(zapcore.InfoLevel))
	_ = c.Set("warn", logAt(zapcore.WarnLevel))
	_ = c.Set("error", logAt(zapcore.ErrorLevel))
	return c
}

// RejectionError is the failure of a script whose promise was rejected.
type RejectionError struct {
	// Reason is the exported rejection value.
	Reason  any
	Message string
}

func (e *RejectionError) Error() string {
	return "promise rejected: " + e.Message
}

func rejection(v goja.Value) error {
	if v == nil {
		return &RejectionError{Message: "undefined"}
	}
	if err, ok := v.Export().(error); ok {
		return err
	}
	return &RejectionError{Reason: v.Export(), Message: v.String()}
}

func exportValue(v goja.Value) any {
	if v == nil {
		return nil
	}
	return v.Export()
}

// reflectObject exposes a Reflector as a script object. Unknown keys read as
// missing properties; writes to them throw.
type reflectObject struct {
	vm *goja.Runtime
	r  bridge.Reflector
}

func (o *reflectObject) Get(key string) goja.Value {
	if !o.r.Has(key) {
		return nil
	}
	v, err := o.r.Get(key)
	if err != nil {
		panic(o.vm.NewGoError(err))
	}
	if v == graph.Uninitialized {
		return goja.Undefined()
	}
	return o.vm.ToValue(v)
}

func (o *reflectObject) Set(key string, val goja.Value) bool {
	if err := o.r.Set(key, exportValue(val)); err != nil {
		panic(o.vm.NewGoError(err))
	}
	return true
}

func (o *reflectObject) Has(key string) bool {
	return o.r.Has(key)
}

// Bindings cannot be removed.
func (o *reflectObject) Delete(string) bool {
	return false
}

func (o *reflectObject) Keys() []string {
	return o.r.Names()
}
