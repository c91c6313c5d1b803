// Package manifest handles bridge.toml configuration.
package manifest

import (
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/module-bridge/bridge"
	"github.com/wippyai/module-bridge/errors"
)

// FileName is the manifest name FindAndLoad looks for.
const FileName = "bridge.toml"

// Backends a manifest can select.
const (
	BackendGraph = "graph"
	BackendWasm  = "wasm"
)

// Manifest describes one bridge: its exports, backend and evaluator.
type Manifest struct {
	Bridge    Bridge    `toml:"bridge"`
	Evaluator Evaluator `toml:"evaluator"`
	Bindings  []Binding `toml:"binding"`

	// Path is the file the manifest was loaded from (set at load time).
	Path string `toml:"-"`
}

// Bridge configures the bridge identity and backend.
type Bridge struct {
	Label       string `toml:"label"`
	Backend     string `toml:"backend"`
	Placeholder string `toml:"placeholder"`
}

// Binding is one exported name.
type Binding struct {
	// Init is the initial value in text form, applied before evaluation.
	Init *string `toml:"init"`
	Name string  `toml:"name"`
	// Type is a wit primitive name. Required by the wasm backend.
	Type string `toml:"type"`
}

// Evaluator configures the JavaScript evaluator. Script and File are
// mutually exclusive; File is relative to the manifest.
type Evaluator struct {
	Script string `toml:"script"`
	File   string `toml:"file"`
	Strict bool   `toml:"strict"`
}

// Load reads and validates the manifest at path.
func Load(fs afero.Fs, path string) (*Manifest, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Load("read "+path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, errors.Load("parse "+path, err)
	}
	m.Path = path

	if m.Bridge.Label == "" {
		m.Bridge.Label = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if m.Evaluator.File != "" {
		if m.Evaluator.Script != "" {
			return nil, errors.Load("evaluator sets both script and file", nil)
		}
		file := m.Evaluator.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(filepath.Dir(path), file)
		}
		src, err := afero.ReadFile(fs, file)
		if err != nil {
			return nil, errors.Load("read evaluator "+file, err)
		}
		m.Evaluator.Script = string(src)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Parse decodes manifest text and applies defaults that do not depend on
// the file location. It does not validate.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.Bridge.Backend == "" {
		m.Bridge.Backend = BackendGraph
	}
	return &m, nil
}

// FindAndLoad walks up from startDir looking for bridge.toml and loads the
// first one found. It returns nil, nil when there is none.
func FindAndLoad(fs afero.Fs, startDir string) (*Manifest, error) {
	dir := filepath.Clean(startDir)
	for {
		path := filepath.Join(dir, FileName)
		ok, err := afero.Exists(fs, path)
		if err != nil {
			return nil, errors.Load("stat "+path, err)
		}
		if ok {
			return Load(fs, path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks the backend, the binding names and types, and that every
// initial value parses.
func (m *Manifest) Validate() error {
	switch m.Bridge.Backend {
	case BackendGraph, BackendWasm:
	default:
		return errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Value(m.Bridge.Backend).
			Detail("unknown backend %q", m.Bridge.Backend).
			Build()
	}

	if err := bridge.ValidateNames(m.Names()); err != nil {
		return err
	}

	for _, b := range m.Bindings {
		if b.Type == "" {
			if m.Bridge.Backend == BackendWasm {
				return errors.New(errors.PhaseLoad, errors.KindInvalidInput).
					Path(b.Name).
					Detail("wasm bindings need a type").
					Build()
			}
		} else if _, err := WitType(b.Type); err != nil {
			return err
		}
		if _, _, err := b.Initial(); err != nil {
			return err
		}
	}
	return nil
}

// Names returns the binding names in declaration order.
func (m *Manifest) Names() []string {
	names := make([]string, len(m.Bindings))
	for i, b := range m.Bindings {
		names[i] = b.Name
	}
	return names
}

// Initial returns the parsed initial values of bindings that declare one.
func (m *Manifest) Initial() (map[string]any, error) {
	values := make(map[string]any)
	for _, b := range m.Bindings {
		v, ok, err := b.Initial()
		if err != nil {
			return nil, err
		}
		if ok {
			values[b.Name] = v
		}
	}
	return values, nil
}

// Initial parses the binding's initial value. ok is false when none is set.
func (b Binding) Initial() (v any, ok bool, err error) {
	if b.Init == nil {
		return nil, false, nil
	}
	v, err = b.Parse(*b.Init)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Parse converts text to a value of the binding's type.
func (b Binding) Parse(text string) (any, error) {
	var t wit.Type
	if b.Type != "" {
		var err error
		if t, err = WitType(b.Type); err != nil {
			return nil, err
		}
	}
	v, err := ParseValue(t, text)
	if err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindTypeMismatch).
			Path(b.Name).
			Value(text).
			Detail("parse %q as %s", text, typeName(b.Type)).
			Cause(err).
			Build()
	}
	return v, nil
}
