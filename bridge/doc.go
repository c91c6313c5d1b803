// Package bridge exposes host-chosen values as a module of a graph engine.
//
// A bridge is made of two synthesized modules. The reflective module owns
// one mutable binding per export name plus an executor binding and is
// evaluated immediately; its completion hands the host an Accessor. The
// facade module imports every binding from the reflective module, exports
// them under the requested names and, when evaluated, runs the evaluator
// once. Because importers share the reflective module's cells, every
// Accessor.Set is visible through the facade without re-linking.
//
//	b, err := bridge.New(ctx, []string{"value"}, "demo", nil)
//	if err != nil {
//		return err
//	}
//	b.Reflect.Set("value", 42)
//	b.Module.Evaluate(ctx)
//	v, _ := b.Module.Namespace().Get("value") // 42
package bridge
