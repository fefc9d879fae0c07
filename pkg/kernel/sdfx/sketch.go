package sdfx

import (
	"fmt"
	"strconv"

	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/engine"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/geom"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// findSketch looks a sketch up in every document.
func (k *Kernel) findSketch(id kernel.SketchID) (*document, *sketch) {
	for _, docID := range k.order {
		d := k.docs[docID]
		if d == nil {
			continue
		}
		if s := d.sketch(id); s != nil {
			return d, s
		}
	}
	return nil, nil
}

// InsertSketch copies a sketch, possibly from another document, into doc
// at the given placement. The source document's parameters are copied
// along with it; a copy whose name is already taken gets a numeric suffix
// and every copied expression is rewritten to match.
func (k *Kernel) InsertSketch(doc kernel.DocumentID, template kernel.SketchID, placement geom.Frame) (kernel.SketchID, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.inject("InsertSketch"); err != nil {
		return "", err
	}
	d, err := k.doc(doc)
	if err != nil {
		return "", err
	}
	td, ts := k.findSketch(template)
	if ts == nil {
		return "", fmt.Errorf("sdfx: template sketch %s: %w", template, kernel.ErrNotFound)
	}

	renames := map[string]string{}
	taken := func(n string) bool {
		if d.paramByName(n) != nil {
			return true
		}
		for _, v := range renames {
			if v == n {
				return true
			}
		}
		return false
	}
	for _, tp := range td.params {
		name := tp.Name
		for i := 1; taken(name); i++ {
			name = fmt.Sprintf("%s_%d", tp.Name, i)
		}
		renames[tp.Name] = name
	}
	for _, tp := range td.params {
		p := tp.Parameter
		p.ID = kernel.ParameterID(k.nextID("par"))
		p.Name = renames[tp.Name]
		p.Expression = engine.RenameSymbols(tp.Expression, renames)
		d.params = append(d.params, &parameter{p})
	}

	s := k.newSketch(d, placement)
	for _, pt := range ts.points {
		s.points = append(s.points, sketchPoint{
			XExpr:    engine.RenameSymbols(pt.XExpr, renames),
			YExpr:    engine.RenameSymbols(pt.YExpr, renames),
			X:        pt.X,
			Y:        pt.Y,
			distance: pt.distance,
		})
	}
	s.lines = append(s.lines, ts.lines...)
	return s.id, nil
}

// AddSketch adds an empty sketch on the given placement.
func (k *Kernel) AddSketch(doc kernel.DocumentID, placement geom.Frame) (kernel.SketchID, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.inject("AddSketch"); err != nil {
		return "", err
	}
	d, err := k.doc(doc)
	if err != nil {
		return "", err
	}
	return k.newSketch(d, placement).id, nil
}

func (k *Kernel) sketchOf(doc kernel.DocumentID, id kernel.SketchID) (*document, *sketch, error) {
	d, err := k.doc(doc)
	if err != nil {
		return nil, nil, err
	}
	s := d.sketch(id)
	if s == nil {
		return nil, nil, fmt.Errorf("sdfx: sketch %s: %w", id, kernel.ErrNotFound)
	}
	return d, s, nil
}

// AddSketchPoint projects a model point onto the sketch plane and adds it
// as a fixed sketch point. It returns the point's index.
func (k *Kernel) AddSketchPoint(doc kernel.DocumentID, id kernel.SketchID, p r3.Vec) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.inject("AddSketchPoint"); err != nil {
		return 0, err
	}
	_, s, err := k.sketchOf(doc, id)
	if err != nil {
		return 0, err
	}
	u, v := s.frame.ToSketch(p)
	s.points = append(s.points, sketchPoint{
		XExpr: strconv.FormatFloat(u, 'g', -1, 64),
		YExpr: strconv.FormatFloat(v, 'g', -1, 64),
		X:     u,
		Y:     v,
	})
	return len(s.points) - 1, nil
}

// AddSketchLine joins two sketch points.
func (k *Kernel) AddSketchLine(doc kernel.DocumentID, id kernel.SketchID, from, to int) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, s, err := k.sketchOf(doc, id)
	if err != nil {
		return err
	}
	if from < 0 || to < 0 || from >= len(s.points) || to >= len(s.points) || from == to {
		return fmt.Errorf("sdfx: sketch line %d-%d: bad point index", from, to)
	}
	s.lines = append(s.lines, [2]int{from, to})
	return nil
}

// SketchName returns the sketch's display name.
func (k *Kernel) SketchName(doc kernel.DocumentID, id kernel.SketchID) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, s, err := k.sketchOf(doc, id)
	if err != nil {
		return "", err
	}
	return s.name, nil
}

// SetSketchShared toggles whether the sketch is visible to other features.
func (k *Kernel) SetSketchShared(doc kernel.DocumentID, id kernel.SketchID, shared bool) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, s, err := k.sketchOf(doc, id)
	if err != nil {
		return err
	}
	s.shared = shared
	return nil
}

// SketchShared reports the sketch's shared flag.
func (k *Kernel) SketchShared(doc kernel.DocumentID, id kernel.SketchID) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, s, err := k.sketchOf(doc, id)
	if err != nil {
		return false, err
	}
	return s.shared, nil
}

// AddProfile builds a solid profile from the sketch's lines. The lines must
// form exactly one closed loop.
func (k *Kernel) AddProfile(doc kernel.DocumentID, id kernel.SketchID) (kernel.ProfileID, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.inject("AddProfile"); err != nil {
		return "", err
	}
	d, s, err := k.sketchOf(doc, id)
	if err != nil {
		return "", err
	}
	loop, err := closedLoop(s.lines)
	if err != nil {
		return "", fmt.Errorf("sdfx: profile of %s: %w", s.name, err)
	}
	p := &profile{id: kernel.ProfileID(k.nextID("prof")), sketch: s.id, loop: loop}
	d.profiles = append(d.profiles, p)
	return p.id, nil
}

// closedLoop orders the endpoints of lines into a single closed loop.
func closedLoop(lines [][2]int) ([]int, error) {
	if len(lines) < 3 {
		return nil, kernel.ErrDegenerateProfile
	}
	adj := map[int][]int{}
	for i, l := range lines {
		adj[l[0]] = append(adj[l[0]], i)
		adj[l[1]] = append(adj[l[1]], i)
	}
	for _, ls := range adj {
		if len(ls) != 2 {
			return nil, kernel.ErrDegenerateProfile
		}
	}

	used := make([]bool, len(lines))
	start := lines[0][0]
	loop := []int{start}
	cur, line := lines[0][1], 0
	used[0] = true
	for cur != start {
		loop = append(loop, cur)
		next := -1
		for _, li := range adj[cur] {
			if !used[li] {
				next = li
				break
			}
		}
		if next < 0 {
			return nil, kernel.ErrDegenerateProfile
		}
		used[next] = true
		line = next
		if lines[line][0] == cur {
			cur = lines[line][1]
		} else {
			cur = lines[line][0]
		}
	}
	for _, u := range used {
		if !u {
			return nil, kernel.ErrDegenerateProfile
		}
	}
	return loop, nil
}

// profilePoints returns the profile's loop in model space, using the
// sketch point values of the last update.
func (d *document) profilePoints(id kernel.ProfileID) ([]r3.Vec, error) {
	p := d.profile(id)
	if p == nil {
		return nil, fmt.Errorf("profile %s: %w", id, kernel.ErrNotFound)
	}
	s := d.sketch(p.sketch)
	if s == nil {
		return nil, fmt.Errorf("sketch %s: %w", p.sketch, kernel.ErrNotFound)
	}
	pts := make([]r3.Vec, len(p.loop))
	for i, idx := range p.loop {
		sp := s.points[idx]
		pts[i] = s.frame.ToModel(sp.X, sp.Y)
	}
	return pts, nil
}
