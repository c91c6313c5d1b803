package bridge

import (
	"go.uber.org/zap"

	"github.com/wippyai/module-bridge/graph"
)

// Options configures bridge creation.
type Options struct {
	// Engine compiles the synthesized modules. Nil uses a shared engine.
	Engine *graph.Engine
	// Counter issues identities. Nil uses DefaultCounter.
	Counter *Counter
	// Logger overrides the package logger for this bridge.
	Logger *zap.Logger
	// Placeholder is the specifier the facade imports from. The resolver
	// override answers it with the reflective module, so its value is only
	// visible in diagnostics. Empty uses DefaultPlaceholder.
	Placeholder string
}

// DefaultPlaceholder is the specifier facades import from unless configured
// otherwise.
const DefaultPlaceholder = "bridge"

// DefaultOptions returns default bridge configuration.
func DefaultOptions() Options {
	return Options{Placeholder: DefaultPlaceholder}
}

// Option adjusts Options.
type Option func(*Options)

// WithEngine compiles the bridge's modules with e.
func WithEngine(e *graph.Engine) Option {
	return func(o *Options) { o.Engine = e }
}

// WithCounter issues the bridge identity from c.
func WithCounter(c *Counter) Option {
	return func(o *Options) { o.Counter = c }
}

// WithLogger logs bridge creation to l.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithPlaceholder sets the specifier the facade imports from.
func WithPlaceholder(spec string) Option {
	return func(o *Options) { o.Placeholder = spec }
}

var sharedEngine = graph.NewEngine()

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Placeholder == "" {
		o.Placeholder = DefaultPlaceholder
	}
	if o.Engine == nil {
		o.Engine = sharedEngine
	}
	if o.Counter == nil {
		o.Counter = DefaultCounter()
	}
	if o.Logger == nil {
		o.Logger = Logger()
	}
	return o
}
