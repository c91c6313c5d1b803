package graph

// Namespace is a read-only live view of a module's exports.
type Namespace struct {
	module *Module
}

// Module returns the module the namespace belongs to.
func (n *Namespace) Module() *Module {
	return n.module
}

// Names returns the exported names in declaration order.
func (n *Namespace) Names() []string {
	return n.module.ExportNames()
}

// Has reports whether name is exported.
func (n *Namespace) Has(name string) bool {
	return n.module.hasExport(name)
}

// Get reads the current value of an export.
func (n *Namespace) Get(name string) (any, error) {
	c, err := n.module.Binding(name)
	if err != nil {
		return nil, err
	}
	return c.Load(), nil
}

// Snapshot returns the current value of every export.
// Exports that cannot be read are omitted.
func (n *Namespace) Snapshot() map[string]any {
	out := make(map[string]any)
	for _, name := range n.Names() {
		if v, err := n.Get(name); err == nil {
			out[name] = v
		}
	}
	return out
}
