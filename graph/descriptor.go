package graph

import "context"

// Body is a module's evaluation code. Its return value is the module's
// completion value; returning an Awaitable suspends the module until the
// awaitable settles.
type Body func(ctx context.Context, env *Env) (any, error)

// ImportName maps an exported name of the requested module to a local name.
type ImportName struct {
	Imported string
	Local    string
}

// Name imports name under the same local name.
func Name(name string) ImportName {
	return ImportName{Imported: name, Local: name}
}

// As imports name under a different local name.
func As(imported, local string) ImportName {
	return ImportName{Imported: imported, Local: local}
}

// Import is one module request.
type Import struct {
	Specifier string
	Names     []ImportName
}

// Local is a binding declared by the module itself.
// A nil Cell is allocated at instantiation.
type Local struct {
	Cell *Cell
	Name string
}

// Export publishes a local (declared or imported) under an exported name.
type Export struct {
	Local string
	Name  string
}

// Descriptor is the structured description of a module that the engine
// compiles into a module record.
type Descriptor struct {
	Body    Body
	ID      string
	Locals  []Local
	Imports []Import
	Exports []Export
}

// Builder assembles a Descriptor.
type Builder struct {
	desc Descriptor
}

// NewBuilder starts a descriptor for the module identity id.
func NewBuilder(id string) *Builder {
	return &Builder{desc: Descriptor{ID: id}}
}

// Let declares a local binding backed by a fresh cell.
func (b *Builder) Let(local string) *Builder {
	b.desc.Locals = append(b.desc.Locals, Local{Name: local})
	return b
}

// Bind declares a local binding backed by a caller-owned cell.
func (b *Builder) Bind(local string, c *Cell) *Builder {
	b.desc.Locals = append(b.desc.Locals, Local{Name: local, Cell: c})
	return b
}

// Import requests names from the module resolved for specifier.
func (b *Builder) Import(specifier string, names ...ImportName) *Builder {
	b.desc.Imports = append(b.desc.Imports, Import{Specifier: specifier, Names: names})
	return b
}

// Export publishes local under name.
func (b *Builder) Export(local, name string) *Builder {
	b.desc.Exports = append(b.desc.Exports, Export{Local: local, Name: name})
	return b
}

// Body sets the evaluation code.
func (b *Builder) Body(fn Body) *Builder {
	b.desc.Body = fn
	return b
}

// Build returns the assembled descriptor.
func (b *Builder) Build() *Descriptor {
	d := b.desc
	return &d
}
