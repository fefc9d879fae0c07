package thread

import (
	"fmt"
	"math"

	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/geom"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// FaceNormal returns the unit surface normal of face at p.
func FaceNormal(k kernel.GeometryKernel, doc kernel.DocumentID, face kernel.Face, p r3.Vec) (r3.Vec, error) {
	n, err := k.FaceNormal(doc, face.ID, p)
	if err != nil {
		return r3.Vec{}, fmt.Errorf("thread: normal of face %s: %w", face.ID, err)
	}
	return geom.Unit(n), nil
}

// IsInteriorFace reports whether face bounds a bore rather than a boss.
// Only surfaces carrying a base point can be classified.
func IsInteriorFace(k kernel.GeometryKernel, doc kernel.DocumentID, face kernel.Face) (bool, error) {
	bp, ok := face.Surface.(kernel.BasePointer)
	if !ok {
		return false, fmt.Errorf("%w (face %s is %s)", ErrNoBasePoint, face.ID, face.SurfaceType())
	}
	n, err := FaceNormal(k, doc, face, face.PointOnFace)
	if err != nil {
		return false, err
	}
	return normalFacesBase(n, face.PointOnFace, bp.BasePoint()), nil
}

// normalFacesBase reports whether normal n at p points toward base.
func normalFacesBase(n, p, base r3.Vec) bool {
	return r3.Dot(n, geom.Unit(r3.Sub(base, p))) > 0
}

// FaceSideDirection returns the slant line of a conical face in the plane
// spanned by the cone axis and xAxis. It runs from the cone's base circle
// toward its apex. For any other surface ok is false.
func FaceSideDirection(face kernel.Face, xAxis r3.Vec) (line geom.Line, ok bool) {
	cone, isCone := face.Surface.(kernel.Cone)
	if !isCone {
		return geom.Line{}, false
	}
	h := cone.Radius / math.Tan(cone.HalfAngle)
	if cone.IsExpanding {
		h = -h
	}
	p1 := geom.Translate(cone.Base, xAxis, cone.Radius)
	apex := geom.Translate(cone.Base, geom.Unit(cone.AxisVector), h)
	return geom.LineThrough(p1, apex), true
}

// FindNamedParameter returns the first parameter, in document order, whose
// comment equals tag.
func FindNamedParameter(k kernel.GeometryKernel, doc kernel.DocumentID, tag string) (kernel.Parameter, bool, error) {
	params, err := k.Parameters(doc)
	if err != nil {
		return kernel.Parameter{}, false, fmt.Errorf("thread: parameters: %w", err)
	}
	for _, p := range params {
		if p.Comment == tag {
			return p, true, nil
		}
	}
	return kernel.Parameter{}, false, nil
}

// RenameParameter finds the parameter tagged tag and renames it to
// "<sketchName>_<tag>" with comment "<sketchName> <tag>", so the tag no
// longer matches it.
func RenameParameter(k kernel.GeometryKernel, doc kernel.DocumentID, tag, sketchName string) (kernel.Parameter, error) {
	p, ok, err := FindNamedParameter(k, doc, tag)
	if err != nil {
		return kernel.Parameter{}, err
	}
	if !ok {
		return kernel.Parameter{}, fmt.Errorf("%w: %q", ErrMissingParameter, tag)
	}
	p.Name = sketchName + "_" + tag
	p.Comment = sketchName + " " + tag
	if err := k.RenameParameter(doc, p.ID, p.Name, p.Comment); err != nil {
		return kernel.Parameter{}, fmt.Errorf("thread: rename %q: %w", tag, err)
	}
	return p, nil
}

// parameterValue reads a parameter's current value.
func parameterValue(k kernel.GeometryKernel, doc kernel.DocumentID, id kernel.ParameterID) (float64, error) {
	params, err := k.Parameters(doc)
	if err != nil {
		return 0, fmt.Errorf("thread: parameters: %w", err)
	}
	for _, p := range params {
		if p.ID == id {
			return p.Value, nil
		}
	}
	return 0, fmt.Errorf("thread: parameter %s: %w", id, kernel.ErrNotFound)
}
