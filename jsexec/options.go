package jsexec

import (
	"go.uber.org/zap"
)

// Options configures a script evaluator.
type Options struct {
	// Globals are defined on the global object before the script runs.
	Globals map[string]any
	Logger  *zap.Logger
	// Name is the script name used in stack traces.
	Name string
	// Object is the global name the bindings are exposed under.
	Object string
	// Strict compiles the script in strict mode.
	Strict bool
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Name:   "evaluator.js",
		Object: "reflect",
	}
}

// Option mutates Options.
type Option func(*Options)

// WithName sets the script name reported in stack traces.
func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

// WithGlobal defines a global value visible to the script.
func WithGlobal(name string, v any) Option {
	return func(o *Options) {
		if o.Globals == nil {
			o.Globals = make(map[string]any)
		}
		o.Globals[name] = v
	}
}

// WithObject renames the global the bindings are exposed under.
func WithObject(name string) Option {
	return func(o *Options) { o.Object = name }
}

// WithStrict compiles the script in strict mode.
func WithStrict() Option {
	return func(o *Options) { o.Strict = true }
}

// WithLogger sets the logger for script output and lifecycle messages.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = Logger()
	}
	return o
}
