// Package wasmbridge realizes bridges on a wazero runtime.
//
// NewGlobals synthesizes two core modules. The reflective module defines
// one mutable global per binding and re-exports an "executor" function
// backed by Go. The facade imports every global and the executor, exports
// the globals under the requested names and calls the executor from its
// start function. Imported globals share storage with the exporter, so
// values written through the Accessor are what any importer of the facade
// reads.
//
// Translate goes the other way: it turns the exports of an existing core
// module into a graph bridge, populated when the facade is evaluated.
package wasmbridge
