// Package modbridge synthesizes facade modules whose exports are driven by
// host code.
//
// A bridge is created from a list of export names. It consists of a
// reflective module that owns one live binding per name plus an executor
// slot, and a facade module that re-exports those bindings under the
// requested names. Other modules import the facade like any other module;
// the host populates it through an accessor, and every write is visible to
// importers without re-linking.
//
// # Architecture Overview
//
//	modbridge/
//	├── graph/           Module graph engine: descriptors, link, instantiate, evaluate
//	├── bridge/          Binding table, reflective and facade synthesis, accessor
//	├── wasmbridge/      The same bridge realized as wazero modules with typed globals
//	├── jsexec/          JavaScript evaluators on goja
//	├── manifest/        bridge.toml loading through afero
//	├── errors/          Structured error types
//	├── internal/wasm/   Core wasm binary builder and export parser
//	└── cmd/bridgeview/  CLI and terminal inspector
//
// # Quick Start
//
// Create a bridge and drive it from the host:
//
//	facade, reflect, err := bridge.Create(ctx, []string{"value"}, "demo", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	reflect.Set("value", 42)
//	facade.Evaluate(ctx)
//
//	v, _ := facade.Namespace().Get("value")
//	fmt.Println(v) // 42
//
// Populate the bindings lazily with an evaluator that runs the first time
// the facade is evaluated:
//
//	eval, err := jsexec.Evaluator(`reflect.value = 42`)
//	b, err := bridge.New(ctx, []string{"value"}, "demo", eval)
//
// # Backends
//
// The graph backend stores arbitrary Go values in cells shared between the
// reflective and facade modules. The wasm backend builds real WebAssembly
// modules on a wazero runtime: bindings are mutable globals typed with wit
// primitives, the facade imports them, and its start function calls the
// executor.
//
// # Thread Safety
//
// Accessors, cells and module records are safe for concurrent use.
// Evaluation runs the evaluator at most once no matter how many callers
// evaluate the facade.
package modbridge
