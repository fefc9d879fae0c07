package engine

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Program assembly
// ---------------------------------------------------------------------------

// symbolPrefix names the sandbox symbols parameters are bound to. Parameter
// names are rewritten so a name can never shadow a zygomys builtin.
const symbolPrefix = "prm_"

type program struct {
	source string
	order  []string // parameter name defined on line i+1
}

// attribute tags eval errors with the parameter defined on their line.
func (p *program) attribute(errs []EvalError) []EvalError {
	for i := range errs {
		if l := errs[i].Line; l > 0 && l <= len(p.order) {
			errs[i].Parameter = p.order[l-1]
		}
	}
	return errs
}

// compile rewrites each binding into a (def ...) form, orders them so
// every parameter is defined before use and appends a final (list ...)
// collecting the values in that order.
func compile(bindings []Binding) (*program, []EvalError) {
	symbols := make(map[string]string, len(bindings))
	for i, b := range bindings {
		if !isIdentifier(b.Name) {
			return nil, []EvalError{{Parameter: b.Name, Message: "invalid parameter name"}}
		}
		if _, dup := symbols[b.Name]; dup {
			return nil, []EvalError{{Parameter: b.Name, Message: "duplicate parameter name"}}
		}
		symbols[b.Name] = symbolPrefix + strconv.Itoa(i)
	}

	forms := make([]string, len(bindings))
	deps := make([][]int, len(bindings))
	index := make(map[string]int, len(bindings))
	for i, b := range bindings {
		index[b.Name] = i
	}
	for i, b := range bindings {
		expr := strings.TrimSpace(preprocessSource(b.Expr))
		if expr == "" {
			return nil, []EvalError{{Parameter: b.Name, Message: "empty expression"}}
		}
		rewritten, refs := rewriteIdentifiers(expr, symbols)
		forms[i] = rewritten
		for _, r := range refs {
			deps[i] = append(deps[i], index[r])
		}
	}

	order, cycle := topoOrder(deps)
	if cycle != nil {
		names := make([]string, len(cycle))
		for i, c := range cycle {
			names[i] = bindings[c].Name
		}
		return nil, []EvalError{{
			Parameter: names[0],
			Message:   "circular reference between " + strings.Join(names, ", "),
		}}
	}

	var sb strings.Builder
	p := &program{order: make([]string, 0, len(order))}
	list := make([]string, 0, len(order))
	for _, i := range order {
		sym := symbols[bindings[i].Name]
		fmt.Fprintf(&sb, "(def %s %s)\n", sym, forms[i])
		p.order = append(p.order, bindings[i].Name)
		list = append(list, sym)
	}
	fmt.Fprintf(&sb, "(list %s)\n", strings.Join(list, " "))
	p.source = sb.String()
	return p, nil
}

// topoOrder returns a stable topological order of the dependency lists
// (lowest index first among ready nodes). If a cycle exists it returns the
// indexes that could not be ordered instead.
func topoOrder(deps [][]int) ([]int, []int) {
	n := len(deps)
	indegree := make([]int, n)
	users := make([][]int, n)
	for i, ds := range deps {
		seen := map[int]bool{}
		for _, d := range ds {
			if seen[d] {
				continue
			}
			seen[d] = true
			indegree[i]++
			users[d] = append(users[d], i)
		}
	}

	var ready []int
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, n)
	for len(ready) > 0 {
		sort.Ints(ready)
		cur := ready[0]
		ready = ready[1:]
		order = append(order, cur)
		for _, u := range users[cur] {
			indegree[u]--
			if indegree[u] == 0 {
				ready = append(ready, u)
			}
		}
	}

	if len(order) == n {
		return order, nil
	}
	var stuck []int
	for i := 0; i < n; i++ {
		if indegree[i] > 0 {
			stuck = append(stuck, i)
		}
	}
	return nil, stuck
}

// rewriteIdentifiers replaces every identifier token found in symbols
// with its sandbox symbol. It returns the rewritten expression and the
// names referenced, in order of first appearance. Number literals such as
// 1e-3 and string literals are left untouched.
func rewriteIdentifiers(expr string, symbols map[string]string) (string, []string) {
	var out strings.Builder
	var refs []string
	seen := map[string]bool{}
	b := []byte(expr)
	i := 0
	for i < len(b) {
		c := b[i]
		switch {
		case c == '"':
			j := i + 1
			for j < len(b) && b[j] != '"' {
				if b[j] == '\\' {
					j++
				}
				j++
			}
			if j < len(b) {
				j++
			}
			if j > len(b) {
				j = len(b)
			}
			out.Write(b[i:j])
			i = j
		case isDigit(c) || (c == '.' && i+1 < len(b) && isDigit(b[i+1])):
			j := i
			for j < len(b) && (isIdentChar(b[j]) || b[j] == '.' ||
				((b[j] == '-' || b[j] == '+') && (b[j-1] == 'e' || b[j-1] == 'E'))) {
				j++
			}
			out.Write(b[i:j])
			i = j
		case isIdentStartChar(c):
			j := i
			for j < len(b) && isIdentChar(b[j]) {
				j++
			}
			tok := string(b[i:j])
			if sym, ok := symbols[tok]; ok {
				out.WriteString(sym)
				if !seen[tok] {
					seen[tok] = true
					refs = append(refs, tok)
				}
			} else {
				out.WriteString(tok)
			}
			i = j
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String(), refs
}

// ValidName reports whether s can name a parameter.
func ValidName(s string) bool {
	return isIdentifier(s)
}

// RenameSymbols rewrites references in expr according to renames in a
// single pass, so chained renames (a->b, b->c) never compound.
func RenameSymbols(expr string, renames map[string]string) string {
	if len(renames) == 0 {
		return expr
	}
	out, _ := rewriteIdentifiers(expr, renames)
	return out
}

// FormatNumber renders v as a Lisp float literal. Negative values are
// written as a subtraction so the reader never sees a leading minus.
func FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.0"
	}
	if v < 0 {
		return "(- 0.0 " + FormatNumber(-v) + ")"
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource converts ; line comments to the // form zygomys reads
// and folds the expression onto one line so line numbers stay aligned
// with parameters. String literals are left untouched.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source))
	b := []byte(source)
	i := 0
	for i < len(b) {
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// A comment runs to the end of its line; since the result is a
		// single line it is dropped rather than converted.
		if b[i] == ';' || (b[i] == '/' && i+1 < len(b) && b[i+1] == '/') {
			for i < len(b) && b[i] != '\n' {
				i++
			}
			continue
		}
		if b[i] == '\n' || b[i] == '\r' || b[i] == '\t' {
			result = append(result, ' ')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c) || c == '_'
}

func isIdentifier(s string) bool {
	if s == "" || !isIdentStartChar(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentChar(s[i]) {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// unaryBuiltins are the one-argument numeric functions available to
// expressions. Lengths are kernel units (cm); angles are radians.
var unaryBuiltins = map[string]func(float64) float64{
	"mm":   func(v float64) float64 { return v * 0.1 },
	"cm":   func(v float64) float64 { return v },
	"inch": func(v float64) float64 { return v * 2.54 },
	"deg":  func(v float64) float64 { return v * math.Pi / 180 },
	"abs":  math.Abs,
	"sqrt": math.Sqrt,
	"sin":  math.Sin,
	"cos":  math.Cos,
	"tan":  math.Tan,
}

// registerBuiltins installs the unit and math helpers into a zygomys
// environment.
func registerBuiltins(env *zygo.Zlisp) {
	for name, fn := range unaryBuiltins {
		fn := fn
		env.AddFunction(name, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires exactly 1 argument, got %d", name, len(args))
			}
			v, err := toFloat64(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			return &zygo.SexpFloat{Val: fn(v)}, nil
		})
	}
}
