// Package wasm builds and inspects core WebAssembly binaries for the
// wazero-backed bridges.
//
// ModuleBuilder emits small modules whose shape is only known at run time:
// mutable globals, imported functions and globals that may be re-exported
// under new names, and an optional start function that calls an import.
// ParseExports reads the export section of an existing module.
package wasm
