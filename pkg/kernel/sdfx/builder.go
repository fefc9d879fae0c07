package sdfx

import (
	"fmt"
	"math"

	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/geom"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// This file holds the document construction API used to set up parts and
// templates. None of it is part of kernel.GeometryKernel.

// NewDocument creates an empty part document.
func (k *Kernel) NewDocument(name string, units kernel.LengthUnit) kernel.DocumentID {
	k.mu.Lock()
	defer k.mu.Unlock()

	id := kernel.DocumentID(uuid.NewString())
	k.docs[id] = &document{
		id:        id,
		name:      name,
		units:     units,
		solids:    map[kernel.BodyID]sdf.SDF3{},
		bodyNames: map[kernel.BodyID]string{},
	}
	k.order = append(k.order, id)
	return id
}

// DocumentName returns the name a document was created with.
func (k *Kernel) DocumentName(doc kernel.DocumentID) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	d, err := k.doc(doc)
	if err != nil {
		return "", err
	}
	return d.name, nil
}

// AddParameter appends a model parameter. The expression may reference
// other parameters by name; values are computed on the next Update.
func (k *Kernel) AddParameter(doc kernel.DocumentID, name, comment, expr string) (kernel.ParameterID, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	d, err := k.doc(doc)
	if err != nil {
		return "", err
	}
	if !validParamName(name) {
		return "", fmt.Errorf("sdfx: invalid parameter name %q", name)
	}
	if d.paramByName(name) != nil {
		return "", fmt.Errorf("sdfx: parameter %q already exists", name)
	}
	id := kernel.ParameterID(k.nextID("par"))
	d.params = append(d.params, &parameter{kernel.Parameter{
		ID: id, Name: name, Comment: comment, Expression: expr,
	}})
	return id, nil
}

// ExprPoint is a sketch point whose coordinates are parameter expressions.
// X is a signed offset along the sketch X axis. Y is a dimension: the
// point's distance from the X axis, on the side the sketch Y axis points
// to. A negative Y value is taken as its magnitude.
type ExprPoint struct {
	X, Y string
}

// AddExprSketch adds a parametric sketch. Lines join points by index.
func (k *Kernel) AddExprSketch(doc kernel.DocumentID, placement geom.Frame, pts []ExprPoint, lines [][2]int) (kernel.SketchID, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	d, err := k.doc(doc)
	if err != nil {
		return "", err
	}
	for _, l := range lines {
		if l[0] < 0 || l[1] < 0 || l[0] >= len(pts) || l[1] >= len(pts) || l[0] == l[1] {
			return "", fmt.Errorf("sdfx: sketch line %v: bad point index", l)
		}
	}
	s := k.newSketch(d, placement)
	for _, p := range pts {
		s.points = append(s.points, sketchPoint{XExpr: p.X, YExpr: p.Y, distance: true})
	}
	s.lines = append(s.lines, lines...)
	return s.id, nil
}

func (k *Kernel) newSketch(d *document, placement geom.Frame) *sketch {
	d.sketchSeq++
	s := &sketch{
		id:     kernel.SketchID(k.nextID("sk")),
		name:   fmt.Sprintf("Sketch%d", d.sketchSeq),
		frame:  placement,
		shared: true,
	}
	d.sketches = append(d.sketches, s)
	return s
}

func (k *Kernel) addBody(d *document, name string, s sdf.SDF3) *body {
	d.bodySeq++
	if name == "" {
		name = fmt.Sprintf("Solid%d", d.bodySeq)
	}
	b := &body{id: kernel.BodyID(k.nextID("body")), name: name, solid: s}
	d.bodies = append(d.bodies, b)
	return b
}

func (k *Kernel) addFace(d *document, b kernel.BodyID, s kernel.Surface, p r3.Vec, reversed bool) kernel.FaceID {
	f := &face{
		id:       kernel.FaceID(k.nextID("face")),
		body:     b,
		surface:  s,
		point:    p,
		reversed: reversed,
	}
	d.faces = append(d.faces, f)
	return f.id
}

// AddShaft adds a solid cylinder of the given length starting at base and
// running along axis. It returns the body and its outer cylindrical face.
func (k *Kernel) AddShaft(doc kernel.DocumentID, name string, base, axis r3.Vec, radius, length float64) (kernel.BodyID, kernel.FaceID, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	d, err := k.doc(doc)
	if err != nil {
		return "", "", err
	}
	c, err := sdf.Cylinder3D(length, radius, 0)
	if err != nil {
		return "", "", fmt.Errorf("sdfx: shaft: %w", err)
	}
	a := geom.Unit(axis)
	b := k.addBody(d, name, place(c, geom.Translate(base, a, length/2), a))
	surf := kernel.Cylinder{Base: base, AxisVector: a, Radius: radius}
	p := geom.Translate(geom.Translate(base, a, length/2), geom.OrthogonalVector(a), radius)
	f := k.addFace(d, b.id, surf, p, false)
	d.recompute()
	return b.id, f, nil
}

// AddBore adds a tube: a cylinder of outerRadius with a coaxial hole of
// boreRadius. It returns the body and the hole's cylindrical face.
func (k *Kernel) AddBore(doc kernel.DocumentID, name string, base, axis r3.Vec, boreRadius, outerRadius, length float64) (kernel.BodyID, kernel.FaceID, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	d, err := k.doc(doc)
	if err != nil {
		return "", "", err
	}
	if boreRadius >= outerRadius {
		return "", "", fmt.Errorf("sdfx: bore radius %g must be below outer radius %g", boreRadius, outerRadius)
	}
	outer, err := sdf.Cylinder3D(length, outerRadius, 0)
	if err != nil {
		return "", "", fmt.Errorf("sdfx: bore: %w", err)
	}
	hole, err := sdf.Cylinder3D(length*1.01, boreRadius, 0)
	if err != nil {
		return "", "", fmt.Errorf("sdfx: bore: %w", err)
	}
	a := geom.Unit(axis)
	b := k.addBody(d, name, place(sdf.Difference3D(outer, hole), geom.Translate(base, a, length/2), a))
	surf := kernel.Cylinder{Base: base, AxisVector: a, Radius: boreRadius}
	p := geom.Translate(geom.Translate(base, a, length/2), geom.OrthogonalVector(a), boreRadius)
	f := k.addFace(d, b.id, surf, p, true)
	d.recompute()
	return b.id, f, nil
}

// cone returns a Z-aligned truncated cone of the given length whose radius
// is r0 at local z = -length/2, plus the radius at the far end.
func cone(length, r0, halfAngle float64, expanding bool) (sdf.SDF3, float64, error) {
	dr := length * math.Tan(halfAngle)
	if !expanding {
		dr = -dr
	}
	r1 := r0 + dr
	if r1 <= 0 {
		return nil, 0, fmt.Errorf("cone closes before its far end (r=%g)", r1)
	}
	s, err := sdf.Cone3D(length, r0, r1, 0)
	return s, r1, err
}

// AddTaperedShaft adds a truncated cone starting at base with radius
// baseRadius. It returns the body and its conical face.
func (k *Kernel) AddTaperedShaft(doc kernel.DocumentID, name string, base, axis r3.Vec, baseRadius, halfAngle, length float64, expanding bool) (kernel.BodyID, kernel.FaceID, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	d, err := k.doc(doc)
	if err != nil {
		return "", "", err
	}
	c, r1, err := cone(length, baseRadius, halfAngle, expanding)
	if err != nil {
		return "", "", fmt.Errorf("sdfx: tapered shaft: %w", err)
	}
	a := geom.Unit(axis)
	b := k.addBody(d, name, place(c, geom.Translate(base, a, length/2), a))
	surf := kernel.Cone{Base: base, AxisVector: a, Radius: baseRadius, HalfAngle: halfAngle, IsExpanding: expanding}
	p := geom.Translate(geom.Translate(base, a, length/2), geom.OrthogonalVector(a), (baseRadius+r1)/2)
	f := k.addFace(d, b.id, surf, p, false)
	d.recompute()
	return b.id, f, nil
}

// AddTaperedBore adds a cylinder of outerRadius with a conical hole whose
// radius is baseRadius at base. It returns the body and the hole's face.
func (k *Kernel) AddTaperedBore(doc kernel.DocumentID, name string, base, axis r3.Vec, baseRadius, halfAngle, outerRadius, length float64, expanding bool) (kernel.BodyID, kernel.FaceID, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	d, err := k.doc(doc)
	if err != nil {
		return "", "", err
	}
	hole, r1, err := cone(length, baseRadius, halfAngle, expanding)
	if err != nil {
		return "", "", fmt.Errorf("sdfx: tapered bore: %w", err)
	}
	if math.Max(baseRadius, r1) >= outerRadius {
		return "", "", fmt.Errorf("sdfx: tapered bore: hole reaches the outer radius %g", outerRadius)
	}
	outer, err := sdf.Cylinder3D(length, outerRadius, 0)
	if err != nil {
		return "", "", fmt.Errorf("sdfx: tapered bore: %w", err)
	}
	a := geom.Unit(axis)
	b := k.addBody(d, name, place(sdf.Difference3D(outer, hole), geom.Translate(base, a, length/2), a))
	surf := kernel.Cone{Base: base, AxisVector: a, Radius: baseRadius, HalfAngle: halfAngle, IsExpanding: expanding}
	p := geom.Translate(geom.Translate(base, a, length/2), geom.OrthogonalVector(a), (baseRadius+r1)/2)
	f := k.addFace(d, b.id, surf, p, true)
	d.recompute()
	return b.id, f, nil
}

// AddPlanarFace attaches a face with a fixed normal and no axis to a body.
// Such faces classify as kernel.OtherSurface.
func (k *Kernel) AddPlanarFace(doc kernel.DocumentID, b kernel.BodyID, point, normal r3.Vec) (kernel.FaceID, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	d, err := k.doc(doc)
	if err != nil {
		return "", err
	}
	if d.solids[b] == nil {
		return "", fmt.Errorf("sdfx: body %s: %w", b, kernel.ErrNotFound)
	}
	id := k.addFace(d, b, kernel.OtherSurface{}, point, false)
	d.face(id).normal = geom.Unit(normal)
	return id, nil
}

// AddThreadFeature records a thread annotation on a face. ID is assigned
// by the kernel; Name defaults to "Thread<n>".
func (k *Kernel) AddThreadFeature(doc kernel.DocumentID, tf kernel.ThreadFeature) (kernel.FeatureID, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	d, err := k.doc(doc)
	if err != nil {
		return "", err
	}
	if d.face(tf.Face) == nil {
		return "", fmt.Errorf("sdfx: thread face %s: %w", tf.Face, kernel.ErrNotFound)
	}
	tf.ID = kernel.FeatureID(k.nextID("thread"))
	if tf.Name == "" {
		tf.Name = fmt.Sprintf("Thread%d", len(d.threads)+1)
	}
	d.threads = append(d.threads, &tf)
	return tf.ID, nil
}

// AddIMate attaches a named iMate to a face, or to one of its edges.
func (k *Kernel) AddIMate(doc kernel.DocumentID, name string, f kernel.FaceID, onEdge bool) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	d, err := k.doc(doc)
	if err != nil {
		return err
	}
	if d.face(f) == nil {
		return fmt.Errorf("sdfx: imate face %s: %w", f, kernel.ErrNotFound)
	}
	d.imates = append(d.imates, imate{name: name, face: f, onEdge: onEdge})
	return nil
}
