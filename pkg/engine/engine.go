// Package engine evaluates model parameter expressions. Each evaluation
// runs in a fresh zygomys sandbox so that one document's parameters can
// never observe another's, and a runaway expression is cut off by a hard
// timeout instead of hanging the caller.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in an expression.
type EvalError struct {
	Line      int
	Col       int
	Message   string
	Parameter string // parameter whose definition is on Line, if known
}

func (e EvalError) Error() string {
	switch {
	case e.Parameter != "":
		return fmt.Sprintf("parameter %s: %s", e.Parameter, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Binding is one named parameter and the expression that defines it.
// Expressions are Lisp forms ("(* 0.6134 Pitch)") or plain numbers and may
// refer to other bindings by name.
type Binding struct {
	Name string
	Expr string
}

// Engine wraps the zygomys interpreter for parameter recompute.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	timeout time.Duration
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: DefaultTimeout}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Evaluate computes the value of every binding. Bindings are evaluated in
// dependency order, so an expression may refer to a parameter defined
// later in the slice.
//
// Return semantics:
//   - On success: returns values + nil errors + nil error
//   - On parse/eval failure (including reference cycles): returns nil values + eval errors + nil error
//   - On fatal failure (ErrTimeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(bindings []Binding) (map[string]float64, []EvalError, error) {
	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		values, evalErrs, err := e.evaluate(bindings)
		ch <- evalResult{values: values, errors: evalErrs, err: err}
	}()

	return await(ch, e.timeout)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(bindings []Binding) (map[string]float64, []EvalError, error) {
	if len(bindings) == 0 {
		return map[string]float64{}, nil, nil
	}

	prog, evalErrs := compile(bindings)
	if len(evalErrs) > 0 {
		return nil, evalErrs, nil
	}

	// Sandbox mode prevents expressions from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env)

	if err := env.LoadString(prog.source); err != nil {
		return nil, prog.attribute(parseZygomysError(err)), nil
	}

	out, err := env.Run()
	if err != nil {
		return nil, prog.attribute(parseZygomysError(err)), nil
	}

	items, err := sexpListToSlice(out)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: unexpected program result: %w", err)
	}
	if len(items) != len(prog.order) {
		return nil, nil, fmt.Errorf("engine: expected %d values, got %d", len(prog.order), len(items))
	}

	values := make(map[string]float64, len(items))
	for i, item := range items {
		f, err := toFloat64(item)
		if err != nil {
			name := prog.order[i]
			return nil, []EvalError{{Line: i + 1, Parameter: name, Message: err.Error()}}, nil
		}
		values[prog.order[i]] = f
	}
	return values, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
