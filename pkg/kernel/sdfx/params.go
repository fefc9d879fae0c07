package sdfx

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/engine"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel"
)

// pointPrefix names the engine bindings used for sketch point coordinates.
// Parameter names may not start with it.
const pointPrefix = "skpt_"

// Parameters returns the document's parameters in document order.
func (k *Kernel) Parameters(doc kernel.DocumentID) ([]kernel.Parameter, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	d, err := k.doc(doc)
	if err != nil {
		return nil, err
	}
	out := make([]kernel.Parameter, len(d.params))
	for i, p := range d.params {
		out[i] = p.Parameter
	}
	return out, nil
}

// SetParameterValue replaces the parameter's expression with a constant.
// Dependent parameters keep their old values until Update.
func (k *Kernel) SetParameterValue(doc kernel.DocumentID, id kernel.ParameterID, v float64) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.inject("SetParameterValue"); err != nil {
		return err
	}
	d, err := k.doc(doc)
	if err != nil {
		return err
	}
	p := d.param(id)
	if p == nil {
		return fmt.Errorf("sdfx: parameter %s: %w", id, kernel.ErrNotFound)
	}
	p.Expression = engine.FormatNumber(v)
	p.Value = v
	return nil
}

// RenameParameter changes a parameter's name and comment. Expressions that
// referenced the old name are rewritten to the new one.
func (k *Kernel) RenameParameter(doc kernel.DocumentID, id kernel.ParameterID, name, comment string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.inject("RenameParameter"); err != nil {
		return err
	}
	d, err := k.doc(doc)
	if err != nil {
		return err
	}
	p := d.param(id)
	if p == nil {
		return fmt.Errorf("sdfx: parameter %s: %w", id, kernel.ErrNotFound)
	}
	if name != p.Name {
		if !validParamName(name) {
			return fmt.Errorf("sdfx: invalid parameter name %q", name)
		}
		if d.paramByName(name) != nil {
			return fmt.Errorf("sdfx: parameter %q already exists", name)
		}
		d.renameRefs(map[string]string{p.Name: name})
		p.Name = name
	}
	p.Comment = comment
	return nil
}

func validParamName(name string) bool {
	return engine.ValidName(name) && !strings.HasPrefix(name, pointPrefix)
}

// renameRefs rewrites parameter references in every expression of d.
func (d *document) renameRefs(renames map[string]string) {
	for _, p := range d.params {
		p.Expression = engine.RenameSymbols(p.Expression, renames)
	}
	for _, s := range d.sketches {
		for i := range s.points {
			s.points[i].XExpr = engine.RenameSymbols(s.points[i].XExpr, renames)
			s.points[i].YExpr = engine.RenameSymbols(s.points[i].YExpr, renames)
		}
	}
}

// Update recomputes every parameter and sketch point, then replays the
// feature history.
func (k *Kernel) Update(doc kernel.DocumentID) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.inject("Update"); err != nil {
		return err
	}
	d, err := k.doc(doc)
	if err != nil {
		return err
	}
	return k.update(d)
}

func (k *Kernel) update(d *document) error {
	bindings := make([]engine.Binding, 0, len(d.params))
	for _, p := range d.params {
		bindings = append(bindings, engine.Binding{Name: p.Name, Expr: p.Expression})
	}

	// Literal coordinates are set directly; the rest become bindings.
	refs := map[string]coord{}
	for _, s := range d.sketches {
		for i := range s.points {
			pt := &s.points[i]
			for _, c := range []struct {
				expr string
				dst  coord
			}{{pt.XExpr, coord{&pt.X, false}}, {pt.YExpr, coord{&pt.Y, pt.distance}}} {
				e := strings.TrimSpace(c.expr)
				if e == "" {
					c.dst.set(0)
					continue
				}
				if v, err := strconv.ParseFloat(e, 64); err == nil {
					c.dst.set(v)
					continue
				}
				name := fmt.Sprintf("%s%d", pointPrefix, len(refs))
				refs[name] = c.dst
				bindings = append(bindings, engine.Binding{Name: name, Expr: e})
			}
		}
	}

	values, evalErrs, err := k.eng.Evaluate(bindings)
	if err != nil {
		return fmt.Errorf("sdfx: update %s: %w", d.name, err)
	}
	if len(evalErrs) > 0 {
		return fmt.Errorf("sdfx: update %s: %w", d.name, evalErrs[0])
	}

	for _, p := range d.params {
		p.Value = values[p.Name]
	}
	for name, dst := range refs {
		dst.set(values[name])
	}
	d.recompute()
	return nil
}

// coord is a sketch coordinate being recomputed. Dimension coordinates
// keep only the magnitude of their value.
type coord struct {
	dst       *float64
	dimension bool
}

func (c coord) set(v float64) {
	if c.dimension {
		v = math.Abs(v)
	}
	*c.dst = v
}
