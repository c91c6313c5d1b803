package graph

import (
	"fmt"
	"strings"
)

// Source renders desc as an ECMAScript-like listing. It is diagnostic only;
// the engine never parses it.
func Source(desc *Descriptor) string {
	if desc == nil {
		return ""
	}
	var b strings.Builder
	if desc.ID != "" {
		fmt.Fprintf(&b, "// %s\n", desc.ID)
	}

	for _, imp := range desc.Imports {
		parts := make([]string, len(imp.Names))
		for i, n := range imp.Names {
			parts[i] = aliased(n.Imported, n.Local)
		}
		fmt.Fprintf(&b, "import { %s } from %q;\n", strings.Join(parts, ", "), imp.Specifier)
	}

	exported := make(map[string][]string)
	for _, e := range desc.Exports {
		exported[e.Local] = append(exported[e.Local], e.Name)
	}

	// Locals exported under their own name render inline.
	inline := make(map[string]bool)
	for _, l := range desc.Locals {
		names := exported[l.Name]
		if len(names) > 0 && names[0] == l.Name {
			inline[l.Name] = true
			b.WriteString("export ")
		}
		b.WriteString("let ")
		b.WriteString(l.Name)
		b.WriteByte(';')
		if l.Cell != nil {
			b.WriteString(" // host cell")
		}
		b.WriteByte('\n')
	}

	var rest []string
	for _, e := range desc.Exports {
		if inline[e.Local] && e.Local == e.Name {
			continue
		}
		rest = append(rest, aliased(e.Local, e.Name))
	}
	if len(rest) > 0 {
		fmt.Fprintf(&b, "export { %s };\n", strings.Join(rest, ", "))
	}

	if desc.Body != nil {
		b.WriteString("/* body */\n")
	}
	return b.String()
}

func aliased(from, to string) string {
	if from == to {
		return from
	}
	return from + " as " + to
}
