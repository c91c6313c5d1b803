package wasmbridge

import (
	"go.uber.org/zap"

	"github.com/wippyai/module-bridge/bridge"
)

// Options configures global bridge creation.
type Options struct {
	// Counter issues identities. Nil uses bridge.DefaultCounter.
	Counter *bridge.Counter
	// Logger overrides the package logger for this bridge.
	Logger *zap.Logger
	// Placeholder is the module name the facade imports from. Empty uses
	// DefaultPlaceholder.
	Placeholder string
}

// DefaultPlaceholder is the module name facades import from unless
// configured otherwise. Wasm rejects an empty import module name.
const DefaultPlaceholder = "bridge"

// DefaultOptions returns default configuration.
func DefaultOptions() Options {
	return Options{Placeholder: DefaultPlaceholder}
}

// Option adjusts Options.
type Option func(*Options)

// WithCounter issues the bridge identity from c.
func WithCounter(c *bridge.Counter) Option {
	return func(o *Options) { o.Counter = c }
}

// WithLogger logs bridge creation to l.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithPlaceholder sets the module name the facade imports from.
func WithPlaceholder(name string) Option {
	return func(o *Options) { o.Placeholder = name }
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Placeholder == "" {
		o.Placeholder = DefaultPlaceholder
	}
	if o.Counter == nil {
		o.Counter = bridge.DefaultCounter()
	}
	if o.Logger == nil {
		o.Logger = Logger()
	}
	return o
}
