package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/module-bridge/bridge"
	"github.com/wippyai/module-bridge/errors"
	"github.com/wippyai/module-bridge/graph"
	"github.com/wippyai/module-bridge/jsexec"
	"github.com/wippyai/module-bridge/manifest"
	"github.com/wippyai/module-bridge/wasmbridge"
)

// backend is the part of a bridge the viewer drives.
type backend interface {
	ID() string
	Reflect() bridge.Reflector
	Export(name string) (any, error)
	Evaluate(ctx context.Context) error
	Status() graph.Status
	Close(ctx context.Context) error
}

// session is a bridge built from a manifest.
type session struct {
	backend
	manifest *manifest.Manifest
	bindings map[string]manifest.Binding
}

func openSession(ctx context.Context, m *manifest.Manifest, logger *zap.Logger) (*session, error) {
	var eval bridge.Evaluator
	if m.Evaluator.Script != "" {
		opts := []jsexec.Option{jsexec.WithName(scriptName(m)), jsexec.WithLogger(logger)}
		if m.Evaluator.Strict {
			opts = append(opts, jsexec.WithStrict())
		}
		s, err := jsexec.Compile(m.Evaluator.Script, opts...)
		if err != nil {
			return nil, err
		}
		eval = s.Evaluator()
	}

	var (
		be  backend
		err error
	)
	switch m.Bridge.Backend {
	case manifest.BackendWasm:
		be, err = openWasm(ctx, m, eval, logger)
	default:
		be, err = openGraph(ctx, m, eval, logger)
	}
	if err != nil {
		return nil, err
	}

	s := &session{
		backend:  be,
		manifest: m,
		bindings: make(map[string]manifest.Binding, len(m.Bindings)),
	}
	for _, b := range m.Bindings {
		s.bindings[b.Name] = b
	}

	initial, err := m.Initial()
	if err != nil {
		be.Close(ctx)
		return nil, err
	}
	for _, name := range m.Names() {
		if v, ok := initial[name]; ok {
			if err := be.Reflect().Set(name, v); err != nil {
				be.Close(ctx)
				return nil, err
			}
		}
	}
	return s, nil
}

func scriptName(m *manifest.Manifest) string {
	if m.Evaluator.File != "" {
		return filepath.Base(m.Evaluator.File)
	}
	return m.Bridge.Label + ".js"
}

// Names returns the exported names in manifest order.
func (s *session) Names() []string {
	return s.manifest.Names()
}

// TypeOf returns the declared type of name, or "any".
func (s *session) TypeOf(name string) string {
	if b, ok := s.bindings[name]; ok && b.Type != "" {
		return b.Type
	}
	return "any"
}

// Set parses text per the binding's type and stores it.
func (s *session) Set(name, text string) error {
	b, ok := s.bindings[name]
	if !ok {
		return errors.UnknownBinding(s.ID(), name)
	}
	v, err := b.Parse(text)
	if err != nil {
		return err
	}
	return s.Reflect().Set(name, v)
}

// Backend returns the manifest's backend name.
func (s *session) Backend() string {
	return s.manifest.Bridge.Backend
}

// Format renders a binding value for display.
func (s *session) Format(name string, v any) string {
	if v == graph.Uninitialized {
		return "<uninitialized>"
	}
	if r, ok := v.(rune); ok && s.TypeOf(name) == "char" {
		return fmt.Sprintf("%q", r)
	}
	if str, ok := v.(string); ok {
		return fmt.Sprintf("%q", str)
	}
	return fmt.Sprintf("%v", v)
}

type graphBackend struct {
	b *bridge.Bridge
}

func openGraph(ctx context.Context, m *manifest.Manifest, eval bridge.Evaluator, logger *zap.Logger) (*graphBackend, error) {
	b, err := bridge.New(ctx, m.Names(), m.Bridge.Label, eval,
		bridge.WithLogger(logger),
		bridge.WithPlaceholder(m.Bridge.Placeholder))
	if err != nil {
		return nil, err
	}
	return &graphBackend{b: b}, nil
}

func (g *graphBackend) ID() string                { return g.b.Identity().Facade() }
func (g *graphBackend) Reflect() bridge.Reflector { return g.b.Reflect }
func (g *graphBackend) Status() graph.Status      { return g.b.Module.Status() }

func (g *graphBackend) Export(name string) (any, error) {
	return g.b.Module.Namespace().Get(name)
}

func (g *graphBackend) Evaluate(ctx context.Context) error {
	_, err := g.b.Evaluate(ctx).Wait(ctx)
	return err
}

func (g *graphBackend) Close(context.Context) error { return nil }

type wasmBackend struct {
	rt wazero.Runtime
	g  *wasmbridge.Globals
}

func openWasm(ctx context.Context, m *manifest.Manifest, eval bridge.Evaluator, logger *zap.Logger) (*wasmBackend, error) {
	bindings := make([]wasmbridge.Binding, len(m.Bindings))
	for i, b := range m.Bindings {
		t, err := manifest.WitType(b.Type)
		if err != nil {
			return nil, err
		}
		bindings[i] = wasmbridge.Binding{Name: b.Name, Type: t}
	}

	rt := wazero.NewRuntime(ctx)
	g, err := wasmbridge.NewGlobals(ctx, rt, bindings, m.Bridge.Label, eval,
		wasmbridge.WithLogger(logger),
		wasmbridge.WithPlaceholder(m.Bridge.Placeholder))
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}
	return &wasmBackend{rt: rt, g: g}, nil
}

func (w *wasmBackend) ID() string                         { return w.g.Identity().Facade() }
func (w *wasmBackend) Reflect() bridge.Reflector          { return w.g.Reflect }
func (w *wasmBackend) Status() graph.Status               { return w.g.Facade.Status() }
func (w *wasmBackend) Export(name string) (any, error)    { return w.g.Facade.Get(name) }
func (w *wasmBackend) Evaluate(ctx context.Context) error { return w.g.Facade.Evaluate(ctx) }

func (w *wasmBackend) Close(ctx context.Context) error {
	if err := w.g.Close(ctx); err != nil {
		w.rt.Close(ctx)
		return err
	}
	return w.rt.Close(ctx)
}
