package sdfx

import (
	"fmt"
	"math"

	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/geom"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	"gonum.org/v1/gonum/spatial/r3"
)

// ---------------------------------------------------------------------------
// Faces
// ---------------------------------------------------------------------------

// Face returns a face's surface description.
func (k *Kernel) Face(doc kernel.DocumentID, id kernel.FaceID) (kernel.Face, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.inject("Face"); err != nil {
		return kernel.Face{}, err
	}
	d, err := k.doc(doc)
	if err != nil {
		return kernel.Face{}, err
	}
	f := d.face(id)
	if f == nil {
		return kernel.Face{}, fmt.Errorf("sdfx: face %s: %w", id, kernel.ErrNotFound)
	}
	return kernel.Face{ID: f.id, Body: f.body, Surface: f.surface, PointOnFace: f.point}, nil
}

// FaceNormal returns the face's outward unit normal at p.
func (k *Kernel) FaceNormal(doc kernel.DocumentID, id kernel.FaceID, p r3.Vec) (r3.Vec, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.inject("FaceNormal"); err != nil {
		return r3.Vec{}, err
	}
	d, err := k.doc(doc)
	if err != nil {
		return r3.Vec{}, err
	}
	f := d.face(id)
	if f == nil {
		return r3.Vec{}, fmt.Errorf("sdfx: face %s: %w", id, kernel.ErrNotFound)
	}
	n, err := f.normalAt(p)
	if err != nil {
		return r3.Vec{}, fmt.Errorf("sdfx: face %s: %w", id, err)
	}
	return n, nil
}

func (f *face) normalAt(p r3.Vec) (r3.Vec, error) {
	var n r3.Vec
	switch s := f.surface.(type) {
	case kernel.Cylinder:
		radial, dist, _ := radialAt(s.Base, s.AxisVector, p)
		if dist < geom.Tolerance || math.Abs(dist-s.Radius) > geom.Tolerance {
			return r3.Vec{}, kernel.ErrNoProjection
		}
		n = radial
	case kernel.Cone:
		radial, dist, t := radialAt(s.Base, s.AxisVector, p)
		slope := math.Tan(s.HalfAngle)
		if !s.IsExpanding {
			slope = -slope
		}
		if dist < geom.Tolerance || math.Abs(dist-(s.Radius+t*slope)) > geom.Tolerance {
			return r3.Vec{}, kernel.ErrNoProjection
		}
		a := geom.Unit(s.AxisVector)
		sin, cos := math.Sincos(s.HalfAngle)
		if s.IsExpanding {
			sin = -sin
		}
		n = r3.Add(r3.Scale(cos, radial), r3.Scale(sin, a))
	default:
		if math.Abs(r3.Dot(r3.Sub(p, f.point), f.normal)) > geom.Tolerance {
			return r3.Vec{}, kernel.ErrNoProjection
		}
		return f.normal, nil
	}
	if f.reversed {
		n = r3.Scale(-1, n)
	}
	return geom.Unit(n), nil
}

// radialAt splits p relative to an axis into the unit radial direction,
// the distance from the axis and the axial offset from base.
func radialAt(base, axis, p r3.Vec) (r3.Vec, float64, float64) {
	a := geom.Unit(axis)
	d := r3.Sub(p, base)
	t := r3.Dot(d, a)
	off := r3.Sub(d, r3.Scale(t, a))
	dist := r3.Norm(off)
	if dist == 0 {
		return r3.Vec{}, 0, t
	}
	return r3.Scale(1/dist, off), dist, t
}

// ---------------------------------------------------------------------------
// Solid features
// ---------------------------------------------------------------------------

// Revolve sweeps a profile a full turn around axis. The profile must not
// cross the axis.
func (k *Kernel) Revolve(doc kernel.DocumentID, prof kernel.ProfileID, axis geom.Line, op kernel.Operation) (kernel.FeatureID, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.inject("Revolve"); err != nil {
		return "", err
	}
	d, err := k.doc(doc)
	if err != nil {
		return "", err
	}
	pts, err := d.profilePoints(prof)
	if err != nil {
		return "", fmt.Errorf("sdfx: revolve: %w", err)
	}
	if _, err := revolveSolid(pts, axis); err != nil {
		return "", fmt.Errorf("sdfx: revolve: %w", err)
	}
	f := k.addFeature(d, featureRevolve, op)
	f.profile = prof
	f.axis = axis
	d.recompute()
	return f.id, nil
}

// AddCoil sweeps a profile along a helix. The feature is always created;
// a coil that cannot be built reports HealthError.
func (k *Kernel) AddCoil(doc kernel.DocumentID, spec kernel.CoilSpec) (kernel.FeatureID, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.inject("AddCoil"); err != nil {
		return "", err
	}
	d, err := k.doc(doc)
	if err != nil {
		return "", err
	}
	if d.profile(spec.Profile) == nil {
		return "", fmt.Errorf("sdfx: coil profile %s: %w", spec.Profile, kernel.ErrNotFound)
	}
	f := k.addFeature(d, featureCoil, spec.Operation)
	f.profile = spec.Profile
	f.axis = spec.Axis
	f.coil = spec
	d.recompute()
	return f.id, nil
}

func (k *Kernel) addFeature(d *document, kind featureKind, op kernel.Operation) *feature {
	n := 1
	for _, f := range d.features {
		if f.kind == kind {
			n++
		}
	}
	f := &feature{
		id:   kernel.FeatureID(k.nextID("feat")),
		name: fmt.Sprintf("%s%d", kind, n),
		kind: kind,
		op:   op,
	}
	if op == kernel.OperationNewBody {
		d.bodySeq++
		f.newBody = kernel.BodyID(k.nextID("body"))
		f.bodyName = fmt.Sprintf("Solid%d", d.bodySeq)
	}
	d.features = append(d.features, f)
	return f
}

// SetAffectedBodies restricts a cut or join feature to the given bodies.
func (k *Kernel) SetAffectedBodies(doc kernel.DocumentID, id kernel.FeatureID, bodies []kernel.BodyID) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.inject("SetAffectedBodies"); err != nil {
		return err
	}
	d, err := k.doc(doc)
	if err != nil {
		return err
	}
	f := d.feature(id)
	if f == nil {
		return fmt.Errorf("sdfx: feature %s: %w", id, kernel.ErrNotFound)
	}
	for _, b := range bodies {
		if _, ok := d.solids[b]; !ok {
			return fmt.Errorf("sdfx: body %s: %w", b, kernel.ErrNotFound)
		}
	}
	f.affected = append([]kernel.BodyID(nil), bodies...)
	d.recompute()
	return nil
}

// Health reports the state of a solid feature after the last recompute.
func (k *Kernel) Health(doc kernel.DocumentID, id kernel.FeatureID) (kernel.HealthStatus, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.inject("Health"); err != nil {
		return kernel.HealthUnknown, err
	}
	d, err := k.doc(doc)
	if err != nil {
		return kernel.HealthUnknown, err
	}
	f := d.feature(id)
	if f == nil {
		return kernel.HealthUnknown, fmt.Errorf("sdfx: feature %s: %w", id, kernel.ErrNotFound)
	}
	return f.health, nil
}

// HealthReason returns the error that put a feature into HealthError, or
// nil.
func (k *Kernel) HealthReason(doc kernel.DocumentID, id kernel.FeatureID) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	d, err := k.doc(doc)
	if err != nil {
		return err
	}
	f := d.feature(id)
	if f == nil {
		return fmt.Errorf("sdfx: feature %s: %w", id, kernel.ErrNotFound)
	}
	return f.reason
}

// CoilSpec returns the parameters a coil feature was created with.
func (k *Kernel) CoilSpec(doc kernel.DocumentID, id kernel.FeatureID) (kernel.CoilSpec, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	d, err := k.doc(doc)
	if err != nil {
		return kernel.CoilSpec{}, err
	}
	f := d.feature(id)
	if f == nil || f.kind != featureCoil {
		return kernel.CoilSpec{}, fmt.Errorf("sdfx: coil %s: %w", id, kernel.ErrNotFound)
	}
	return f.coil, nil
}

// FeatureName returns a solid feature's display name.
func (k *Kernel) FeatureName(doc kernel.DocumentID, id kernel.FeatureID) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	d, err := k.doc(doc)
	if err != nil {
		return "", err
	}
	f := d.feature(id)
	if f == nil {
		return "", fmt.Errorf("sdfx: feature %s: %w", id, kernel.ErrNotFound)
	}
	return f.name, nil
}

// Bodies lists the document's bodies: base bodies first, then bodies
// created by features in history order.
func (k *Kernel) Bodies(doc kernel.DocumentID) ([]kernel.BodyID, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.inject("Bodies"); err != nil {
		return nil, err
	}
	d, err := k.doc(doc)
	if err != nil {
		return nil, err
	}
	return append([]kernel.BodyID(nil), d.bodyOrder...), nil
}

// BodyName returns a body's display name.
func (k *Kernel) BodyName(doc kernel.DocumentID, id kernel.BodyID) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	d, err := k.doc(doc)
	if err != nil {
		return "", err
	}
	n, ok := d.bodyNames[id]
	if !ok {
		return "", fmt.Errorf("sdfx: body %s: %w", id, kernel.ErrNotFound)
	}
	return n, nil
}

// Contains reports whether p lies inside a body as of the last update.
func (k *Kernel) Contains(doc kernel.DocumentID, id kernel.BodyID, p r3.Vec) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	d, err := k.doc(doc)
	if err != nil {
		return false, err
	}
	s, ok := d.solids[id]
	if !ok {
		return false, fmt.Errorf("sdfx: body %s: %w", id, kernel.ErrNotFound)
	}
	return s.Evaluate(toV3(p)) < 0, nil
}

// Suppressed reports whether a thread annotation or solid feature is
// suppressed.
func (k *Kernel) Suppressed(doc kernel.DocumentID, id kernel.FeatureID) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	d, err := k.doc(doc)
	if err != nil {
		return false, err
	}
	if t := d.thread(id); t != nil {
		return t.Suppressed, nil
	}
	if f := d.feature(id); f != nil {
		return f.suppressed, nil
	}
	return false, fmt.Errorf("sdfx: feature %s: %w", id, kernel.ErrNotFound)
}

// SetSuppressed suppresses or unsuppresses a thread annotation or solid
// feature. Suppressed solid features are skipped on recompute.
func (k *Kernel) SetSuppressed(doc kernel.DocumentID, id kernel.FeatureID, suppressed bool) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.inject("SetSuppressed"); err != nil {
		return err
	}
	d, err := k.doc(doc)
	if err != nil {
		return err
	}
	if t := d.thread(id); t != nil {
		t.Suppressed = suppressed
		return nil
	}
	if f := d.feature(id); f != nil {
		f.suppressed = suppressed
		d.recompute()
		return nil
	}
	return fmt.Errorf("sdfx: feature %s: %w", id, kernel.ErrNotFound)
}

// ---------------------------------------------------------------------------
// Browser
// ---------------------------------------------------------------------------

// ThreadFeatures lists the document's thread annotations in creation
// order.
func (k *Kernel) ThreadFeatures(doc kernel.DocumentID) ([]kernel.ThreadFeature, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.inject("ThreadFeatures"); err != nil {
		return nil, err
	}
	d, err := k.doc(doc)
	if err != nil {
		return nil, err
	}
	out := make([]kernel.ThreadFeature, len(d.threads))
	for i, t := range d.threads {
		out[i] = *t
	}
	return out, nil
}

// FaceIMate returns the first iMate attached to the face or its edges.
func (k *Kernel) FaceIMate(doc kernel.DocumentID, id kernel.FaceID) (string, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	d, err := k.doc(doc)
	if err != nil {
		return "", false, err
	}
	if d.face(id) == nil {
		return "", false, fmt.Errorf("sdfx: face %s: %w", id, kernel.ErrNotFound)
	}
	for _, m := range d.imates {
		if m.face == id {
			return m.name, true, nil
		}
	}
	return "", false, nil
}

// LengthUnits returns the document's display length unit.
func (k *Kernel) LengthUnits(doc kernel.DocumentID) (kernel.LengthUnit, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	d, err := k.doc(doc)
	if err != nil {
		return 0, err
	}
	return d.units, nil
}

// ---------------------------------------------------------------------------
// History replay
// ---------------------------------------------------------------------------

// recompute rebuilds every body from the base bodies and the feature
// history, and records each feature's health.
func (d *document) recompute() {
	d.solids = make(map[kernel.BodyID]sdf.SDF3, len(d.bodies)+len(d.features))
	d.bodyNames = make(map[kernel.BodyID]string, len(d.bodies)+len(d.features))
	d.bodyOrder = d.bodyOrder[:0]
	for _, b := range d.bodies {
		d.solids[b.id] = b.solid
		d.bodyNames[b.id] = b.name
		d.bodyOrder = append(d.bodyOrder, b.id)
	}

	for _, f := range d.features {
		if f.suppressed {
			f.health, f.reason = kernel.HealthUpToDate, nil
			continue
		}
		if err := d.apply(f); err != nil {
			f.health, f.reason = kernel.HealthError, err
			continue
		}
		f.health, f.reason = kernel.HealthUpToDate, nil
	}
}

func (d *document) apply(f *feature) error {
	t, err := d.tool(f)
	if err != nil {
		return err
	}
	if f.op == kernel.OperationNewBody {
		d.solids[f.newBody] = t
		d.bodyNames[f.newBody] = f.bodyName
		d.bodyOrder = append(d.bodyOrder, f.newBody)
		return nil
	}

	// Without explicit bodies a cut reaches every body so far and a join
	// merges into the first one.
	targets := f.affected
	if len(targets) == 0 {
		if len(d.bodyOrder) == 0 {
			return errNoTargetBody
		}
		targets = d.bodyOrder[:1]
		if f.op == kernel.OperationCut {
			targets = append([]kernel.BodyID(nil), d.bodyOrder...)
		}
	}
	// Only bodies the tool reaches change. A tool that reaches none of
	// them leaves the model untouched and the feature fails.
	hit := 0
	for _, id := range targets {
		s, ok := d.solids[id]
		if !ok {
			return fmt.Errorf("body %s: %w", id, kernel.ErrNotFound)
		}
		if !reaches(s, t) {
			continue
		}
		hit++
		if f.op == kernel.OperationCut {
			d.solids[id] = sdf.Difference3D(s, t)
		} else {
			d.solids[id] = sdf.Union3D(s, t)
		}
	}
	if hit == 0 {
		return errMissesBodies
	}
	return nil
}

// tool builds the solid a feature adds or removes.
func (d *document) tool(f *feature) (sdf.SDF3, error) {
	pts, err := d.profilePoints(f.profile)
	if err != nil {
		return nil, err
	}
	if f.kind == featureCoil {
		return coilSolid(pts, f.coil)
	}
	return revolveSolid(pts, f.axis)
}
