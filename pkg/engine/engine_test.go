package engine

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestEvaluateEmpty(t *testing.T) {
	eng := NewEngine()

	values, evalErrs, err := eng.Evaluate(nil)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if values == nil || len(values) != 0 {
		t.Errorf("expected empty non-nil map, got %v", values)
	}
}

func TestEvaluateLiterals(t *testing.T) {
	eng := NewEngine()

	values, evalErrs, err := eng.Evaluate([]Binding{
		{Name: "Pitch", Expr: "0.1"},
		{Name: "ThreadOffset", Expr: "0"},
		{Name: "Count", Expr: "3"},
	})
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	want := map[string]float64{"Pitch": 0.1, "ThreadOffset": 0, "Count": 3}
	for name, w := range want {
		if got, ok := values[name]; !ok || !approx(got, w) {
			t.Errorf("%s = %v (present=%v), want %v", name, got, ok, w)
		}
	}
}

func TestEvaluateForwardReference(t *testing.T) {
	eng := NewEngine()

	// MinorRadius refers to parameters defined after it.
	values, evalErrs, err := eng.Evaluate([]Binding{
		{Name: "MinorRadius", Expr: "(- MajorRadius (* 0.6134 Pitch))"},
		{Name: "MajorRadius", Expr: "0.5"},
		{Name: "Pitch", Expr: "0.1"},
	})
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if got, want := values["MinorRadius"], 0.5-0.06134; !approx(got, want) {
		t.Errorf("MinorRadius = %v, want %v", got, want)
	}
}

func TestEvaluateUnits(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"(mm 5)", 0.5},
		{"(cm 2)", 2},
		{"(inch 1)", 2.54},
		{"(deg 180)", math.Pi},
		{"(abs (- 0.0 0.25))", 0.25},
	}

	eng := NewEngine()
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			values, evalErrs, err := eng.Evaluate([]Binding{{Name: "v", Expr: tt.expr}})
			if err != nil {
				t.Fatalf("unexpected fatal error: %v", err)
			}
			if len(evalErrs) > 0 {
				t.Fatalf("unexpected eval errors: %v", evalErrs)
			}
			if !approx(values["v"], tt.want) {
				t.Errorf("v = %v, want %v", values["v"], tt.want)
			}
		})
	}
}

func TestEvaluateComment(t *testing.T) {
	eng := NewEngine()

	values, evalErrs, err := eng.Evaluate([]Binding{
		{Name: "Depth", Expr: "; ISO basic depth\n(* 0.6134\n   2.0)"},
	})
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if !approx(values["Depth"], 1.2268) {
		t.Errorf("Depth = %v, want 1.2268", values["Depth"])
	}
}

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		name     string
		bindings []Binding
		wantMsg  string
	}{
		{
			name:     "cycle",
			bindings: []Binding{{Name: "a", Expr: "(+ b 1)"}, {Name: "b", Expr: "(+ a 1)"}},
			wantMsg:  "circular",
		},
		{
			name:     "self reference",
			bindings: []Binding{{Name: "a", Expr: "(* a 2)"}},
			wantMsg:  "circular",
		},
		{
			name:     "duplicate",
			bindings: []Binding{{Name: "a", Expr: "1"}, {Name: "a", Expr: "2"}},
			wantMsg:  "duplicate",
		},
		{
			name:     "empty expression",
			bindings: []Binding{{Name: "a", Expr: "   "}},
			wantMsg:  "empty",
		},
		{
			name:     "invalid name",
			bindings: []Binding{{Name: "1abc", Expr: "1"}},
			wantMsg:  "invalid",
		},
		{
			name:     "unmatched paren",
			bindings: []Binding{{Name: "a", Expr: "(+ 1 2"}},
		},
		{
			name:     "undefined symbol",
			bindings: []Binding{{Name: "a", Expr: "(+ 1 missing)"}},
		},
	}

	eng := NewEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, evalErrs, err := eng.Evaluate(tt.bindings)
			if err != nil {
				t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
			}
			if values != nil {
				t.Errorf("expected nil values, got %v", values)
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected at least one eval error")
			}
			if evalErrs[0].Message == "" {
				t.Error("eval error message should not be empty")
			}
			if tt.wantMsg != "" && !strings.Contains(evalErrs[0].Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", evalErrs[0].Message, tt.wantMsg)
			}
		})
	}
}

func TestEvalErrorString(t *testing.T) {
	tests := []struct {
		err     EvalError
		want    []string
		notWant string
	}{
		{EvalError{Line: 5, Message: "unbalanced parens"}, []string{"line 5", "unbalanced parens"}, ""},
		{EvalError{Message: "no location"}, []string{"no location"}, "line"},
		{EvalError{Line: 2, Parameter: "Pitch", Message: "bad"}, []string{"parameter Pitch", "bad"}, ""},
	}
	for _, tt := range tests {
		var err error = tt.err
		s := err.Error()
		for _, w := range tt.want {
			if !strings.Contains(s, w) {
				t.Errorf("%q does not contain %q", s, w)
			}
		}
		if tt.notWant != "" && strings.Contains(s, tt.notWant) {
			t.Errorf("%q should not contain %q", s, tt.notWant)
		}
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	eng := NewEngine()
	bindings := []Binding{
		{Name: "Pitch", Expr: "0.15"},
		{Name: "Depth", Expr: "(* 0.6134 Pitch)"},
	}

	for i := 0; i < 5; i++ {
		values, evalErrs, err := eng.Evaluate(bindings)
		if err != nil {
			t.Fatalf("iteration %d: unexpected fatal error: %v", i, err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("iteration %d: unexpected eval errors: %v", i, evalErrs)
		}
		if !approx(values["Depth"], 0.6134*0.15) {
			t.Errorf("iteration %d: Depth = %v", i, values["Depth"])
		}
	}
}

func TestAwaitTimeout(t *testing.T) {
	// A channel that never sends stands in for a runaway expression.
	ch := make(chan evalResult, 1)

	start := time.Now()
	_, _, err := await(ch, 20*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("await took %s", elapsed)
	}
}

func TestAwaitResult(t *testing.T) {
	ch := make(chan evalResult, 1)
	ch <- evalResult{values: map[string]float64{"Pitch": 0.1}}

	values, evalErrs, err := await(ch, time.Second)
	if err != nil || len(evalErrs) > 0 {
		t.Fatalf("unexpected errors: %v %v", err, evalErrs)
	}
	if values["Pitch"] != 0.1 {
		t.Errorf("Pitch = %v", values["Pitch"])
	}
}

func TestWithTimeout(t *testing.T) {
	if e := NewEngine(); e.timeout != DefaultTimeout {
		t.Errorf("default timeout = %s", e.timeout)
	}
	if e := NewEngine(WithTimeout(time.Second)); e.timeout != time.Second {
		t.Errorf("timeout = %s, want 1s", e.timeout)
	}
	if e := NewEngine(WithTimeout(-1)); e.timeout != DefaultTimeout {
		t.Errorf("negative timeout should keep the default, got %s", e.timeout)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{
			name:     "error on line format",
			msg:      "Error on line 5: unexpected token\n",
			wantLine: 5,
			wantMsg:  "unexpected token",
		},
		{
			name:     "no line info",
			msg:      "some generic error",
			wantLine: 0,
			wantMsg:  "some generic error",
		},
		{
			name:     "short line format",
			msg:      "line 12: missing paren",
			wantLine: 12,
			wantMsg:  "missing paren",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

// errString is a simple error type for testing.
type errString string

func (e errString) Error() string { return string(e) }
