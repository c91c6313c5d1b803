// Package jsexec runs JavaScript evaluators for bridges.
//
// An evaluator script runs in a fresh goja runtime the first time a facade
// is evaluated. The bridge's bindings are visible to the script as the
// global object "reflect":
//
//	reflect.value = 42;
//	reflect.greeting = "hello " + reflect.name;
//
// The completion value of the script becomes the evaluation result. A
// script that completes with a promise makes the evaluation asynchronous;
// the promise must be settled by the time the script's job queue drains.
//
// Cancelling the evaluation context interrupts a running script.
package jsexec
