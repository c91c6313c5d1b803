package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseLink,
				Kind:   KindLinkFailure,
				Module: "demo#1",
				Path:   []string{"value"},
				Detail: "resolver rejected",
			},
			contains: []string{"[link]", "link_failure", "in demo#1", "at value", "resolver rejected"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseValidate,
				Kind:  KindInvalidName,
			},
			contains: []string{"[validate]", "invalid_name"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseEvaluate,
				Kind:   KindEvaluation,
				Detail: "module body failed",
				Cause:  errors.New("executor exploded"),
			},
			contains: []string{"[evaluate]", "evaluation_failure", "caused by", "executor exploded"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Evaluation("demo#1", cause)

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not follow the cause chain")
	}
}

func TestError_Is(t *testing.T) {
	err := DuplicateExport("a")

	if !errors.Is(err, ErrDuplicateExport) {
		t.Error("expected sentinel match on kind")
	}
	if errors.Is(err, ErrInvalidName) {
		t.Error("unexpected match on different kind")
	}
	if !errors.Is(err, &Error{Phase: PhaseValidate, Kind: KindDuplicateExport}) {
		t.Error("expected match on phase and kind")
	}
	if errors.Is(err, &Error{Phase: PhaseLink, Kind: KindDuplicateExport}) {
		t.Error("unexpected match on different phase")
	}
}

func TestError_IsThroughWrapping(t *testing.T) {
	inner := Synthesis("reflect:x#1", "export let $x;", errors.New("bad"))
	outer := Link("x#1", "", inner)

	if !errors.Is(outer, ErrLink) {
		t.Error("expected outer link failure")
	}
	if !errors.Is(outer, ErrSynthesis) {
		t.Error("expected wrapped synthesis failure")
	}

	var target *Error
	if !errors.As(outer, &target) {
		t.Fatal("errors.As failed")
	}
	if target.Kind != KindLinkFailure {
		t.Errorf("As returned %s, want outermost link_failure", target.Kind)
	}
}

func TestBuilder(t *testing.T) {
	err := New(PhaseSynthesize, KindSynthesisFailure).
		Module("reflect:demo#3").
		Path("value").
		Source("export let $value;").
		Value(42).
		Detail("local %q declared twice", "$value").
		Cause(errors.New("dup")).
		Build()

	if err.Module != "reflect:demo#3" {
		t.Errorf("Module = %q", err.Module)
	}
	if err.Source != "export let $value;" {
		t.Errorf("Source = %q", err.Source)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v", err.Value)
	}
	if err.Detail != `local "$value" declared twice` {
		t.Errorf("Detail = %q", err.Detail)
	}
	if err.Cause == nil {
		t.Error("expected cause")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   *Error
		phase Phase
		kind  Kind
	}{
		{"InvalidName", InvalidName("1bad", "starts with a digit"), PhaseValidate, KindInvalidName},
		{"DuplicateExport", DuplicateExport("a"), PhaseValidate, KindDuplicateExport},
		{"UnknownBinding", UnknownBinding("m", "x"), PhaseAccess, KindUnknownBinding},
		{"Synthesis", Synthesis("m", "src", nil), PhaseSynthesize, KindSynthesisFailure},
		{"Link", Link("m", "spec", nil), PhaseLink, KindLinkFailure},
		{"Evaluation", Evaluation("m", nil), PhaseEvaluate, KindEvaluation},
		{"InvalidState", InvalidState(PhaseInstantiate, "m", "unlinked"), PhaseInstantiate, KindInvalidState},
		{"InvalidInput", InvalidInput(PhaseValidate, "empty"), PhaseValidate, KindInvalidInput},
		{"TypeMismatch", TypeMismatch(PhaseAccess, "x", "s", "s64"), PhaseAccess, KindTypeMismatch},
		{"NotFound", NotFound(PhaseLoad, "binding", "x"), PhaseLoad, KindNotFound},
		{"Load", Load("read manifest", nil), PhaseLoad, KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Phase != tt.phase {
				t.Errorf("Phase = %s, want %s", tt.err.Phase, tt.phase)
			}
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %s, want %s", tt.err.Kind, tt.kind)
			}
		})
	}
}

func TestUnresolvedImportsError(t *testing.T) {
	err := NewUnresolvedImportsError([]string{
		"#$b",
		"#$a",
		"env#executor",
	})

	if len(err.Imports) != 3 {
		t.Fatalf("expected 3 imports, got %d", len(err.Imports))
	}
	if err.Imports[0].Specifier != "" || err.Imports[0].Name != "$b" {
		t.Errorf("unexpected first import %+v", err.Imports[0])
	}

	msg := err.Error()
	for _, want := range []string{"3 unresolved import(s)", `""`, "- $a", "- $b", `"env"`, "- executor"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
	if strings.Index(msg, "$a") > strings.Index(msg, "$b") {
		t.Error("expected names sorted within a specifier")
	}

	if !errors.Is(Link("m", "", err), &UnresolvedImportsError{}) {
		t.Error("expected errors.Is to find UnresolvedImportsError")
	}
}

func TestUnresolvedImportsError_Empty(t *testing.T) {
	err := &UnresolvedImportsError{}
	if !strings.Contains(err.Error(), "no imports") {
		t.Errorf("unexpected message %q", err.Error())
	}
}
