// Package errors provides structured error types for the module bridge.
//
// Errors are categorized by Phase (where in the bridge lifecycle the error
// occurred) and Kind (error category). The Error type carries the synthetic
// module identity, the offending binding path, and the cause chain. Synthesis
// failures also carry the generated source listing.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLink, errors.KindLinkFailure).
//		Module("reflect:demo#1").
//		Detail("resolver rejected %q", spec).
//		Cause(cause).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidName("1bad", "must not start with a digit")
//	err := errors.UnknownBinding(id, "missing")
//
// Sentinels (ErrInvalidName, ErrDuplicateExport, ...) match any error of the
// same Kind through the standard errors.Is.
package errors
