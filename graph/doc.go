// Package graph is an in-process module graph engine.
//
// Modules are described with a Builder, compiled by an Engine into module
// records and then driven through a fixed lifecycle:
//
//	Compile -> Link(resolver) -> Instantiate -> Evaluate
//
// Every binding lives in a Cell. Instantiation binds each imported name to
// the exporter's cell, so stores made through any module are observed by
// every importer (live bindings). Evaluation runs each body once; a body
// may complete with an Awaitable to suspend its module.
//
//	desc := graph.NewBuilder("counter").
//		Let("count").
//		Export("count", "count").
//		Body(func(ctx context.Context, env *graph.Env) (any, error) {
//			return nil, env.Set("count", 0)
//		}).
//		Build()
//	mod, err := graph.NewEngine().Compile(desc)
package graph
