package errors

import (
	"fmt"
	"sort"
	"strings"
)

// Phase indicates where in the bridge lifecycle the error occurred
type Phase string

const (
	PhaseValidate    Phase = "validate"    // name list checks
	PhaseSynthesize  Phase = "synthesize"  // module descriptor / binary generation
	PhaseLink        Phase = "link"        // import resolution
	PhaseInstantiate Phase = "instantiate" // binding environment setup
	PhaseEvaluate    Phase = "evaluate"    // module body execution
	PhaseAccess      Phase = "access"      // accessor get/set
	PhaseLoad        Phase = "load"        // manifest loading
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidName      Kind = "invalid_name"
	KindDuplicateExport  Kind = "duplicate_export"
	KindUnknownBinding   Kind = "unknown_binding"
	KindSynthesisFailure Kind = "synthesis_failure"
	KindLinkFailure      Kind = "link_failure"
	KindEvaluation       Kind = "evaluation_failure"
	KindInvalidState     Kind = "invalid_state"
	KindInvalidInput     Kind = "invalid_input"
	KindTypeMismatch     Kind = "type_mismatch"
	KindNotFound         Kind = "not_found"
)

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrInvalidName     = &Error{Kind: KindInvalidName}
	ErrDuplicateExport = &Error{Kind: KindDuplicateExport}
	ErrUnknownBinding  = &Error{Kind: KindUnknownBinding}
	ErrSynthesis       = &Error{Kind: KindSynthesisFailure}
	ErrLink            = &Error{Kind: KindLinkFailure}
	ErrEvaluation      = &Error{Kind: KindEvaluation}
	ErrInvalidState    = &Error{Kind: KindInvalidState}
	ErrInvalidInput    = &Error{Kind: KindInvalidInput}
	ErrTypeMismatch    = &Error{Kind: KindTypeMismatch}
	ErrNotFound        = &Error{Kind: KindNotFound}
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Module string // synthetic identity of the module involved
	Detail string
	Source string // generated source listing, set for synthesis failures
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Module != "" {
		b.WriteString(" in ")
		b.WriteString(e.Module)
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// Kind must match; Phase only when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return t.Phase == "" || e.Phase == t.Phase
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the binding path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Module sets the module identity
func (b *Builder) Module(id string) *Builder {
	b.err.Module = id
	return b
}

// Source attaches generated source text
func (b *Builder) Source(src string) *Builder {
	b.err.Source = src
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// InvalidName reports a requested export name that cannot be bound
func InvalidName(name, reason string) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindInvalidName,
		Value:  name,
		Detail: fmt.Sprintf("%q is not a valid binding name: %s", name, reason),
	}
}

// DuplicateExport reports a name requested more than once
func DuplicateExport(name string) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindDuplicateExport,
		Value:  name,
		Detail: fmt.Sprintf("export %q requested more than once", name),
	}
}

// UnknownBinding reports access to a name outside the binding table
func UnknownBinding(module, name string) *Error {
	return &Error{
		Phase:  PhaseAccess,
		Kind:   KindUnknownBinding,
		Module: module,
		Value:  name,
		Detail: fmt.Sprintf("no binding named %q", name),
	}
}

// Synthesis wraps a failure to build a synthetic module.
// src is the generated listing that failed.
func Synthesis(module, src string, cause error) *Error {
	return &Error{
		Phase:  PhaseSynthesize,
		Kind:   KindSynthesisFailure,
		Module: module,
		Source: src,
		Detail: "generated module rejected",
		Cause:  cause,
	}
}

// Link wraps an import resolution failure
func Link(module, specifier string, cause error) *Error {
	return &Error{
		Phase:  PhaseLink,
		Kind:   KindLinkFailure,
		Module: module,
		Detail: fmt.Sprintf("resolve %q", specifier),
		Cause:  cause,
	}
}

// Evaluation wraps a failed module body
func Evaluation(module string, cause error) *Error {
	return &Error{
		Phase:  PhaseEvaluate,
		Kind:   KindEvaluation,
		Module: module,
		Detail: "module body failed",
		Cause:  cause,
	}
}

// InvalidState reports a lifecycle operation in the wrong state
func InvalidState(phase Phase, module, status string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidState,
		Module: module,
		Detail: fmt.Sprintf("module is %s", status),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// TypeMismatch reports a value that does not fit a typed binding
func TypeMismatch(phase Phase, name string, value any, want string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   []string{name},
		Value:  value,
		Detail: fmt.Sprintf("cannot store %T as %s", value, want),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Load creates a manifest loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidInput,
		Detail: detail,
		Cause:  cause,
	}
}

// UnresolvedImport is a single import a link step could not satisfy
type UnresolvedImport struct {
	Specifier string
	Name      string
}

// UnresolvedImportsError lists every import missing from the resolved module
type UnresolvedImportsError struct {
	Imports []UnresolvedImport
}

// NewUnresolvedImportsError creates an error from "specifier#name" keys
func NewUnresolvedImportsError(keys []string) *UnresolvedImportsError {
	result := &UnresolvedImportsError{
		Imports: make([]UnresolvedImport, 0, len(keys)),
	}
	for _, key := range keys {
		spec, name := parseImportKey(key)
		result.Imports = append(result.Imports, UnresolvedImport{
			Specifier: spec,
			Name:      name,
		})
	}
	return result
}

func parseImportKey(key string) (specifier, name string) {
	i := strings.LastIndexByte(key, '#')
	if i < 0 {
		return key, ""
	}
	return key[:i], key[i+1:]
}

func (e *UnresolvedImportsError) Error() string {
	if len(e.Imports) == 0 {
		return "[link] link_failure: no imports specified"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d unresolved import(s):\n", len(e.Imports))

	bySpec := make(map[string][]string)
	var specOrder []string
	for _, imp := range e.Imports {
		if _, exists := bySpec[imp.Specifier]; !exists {
			specOrder = append(specOrder, imp.Specifier)
		}
		bySpec[imp.Specifier] = append(bySpec[imp.Specifier], imp.Name)
	}

	for _, spec := range specOrder {
		names := bySpec[spec]
		sort.Strings(names)
		b.WriteString("\n  ")
		fmt.Fprintf(&b, "%q", spec)
		b.WriteString(":\n")
		for _, n := range names {
			b.WriteString("    - ")
			b.WriteString(n)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *UnresolvedImportsError) Is(target error) bool {
	_, ok := target.(*UnresolvedImportsError)
	return ok
}
