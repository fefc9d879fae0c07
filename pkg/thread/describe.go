package thread

import (
	"fmt"
	"strconv"

	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/geom"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// KindString returns the display name of a thread kind.
func KindString(kind kernel.ThreadKind) string {
	switch kind {
	case kernel.ThreadStandard:
		return "Standard"
	case kernel.ThreadTapered:
		return "Tapered"
	}
	return "Invalid Feature"
}

// FaceSideString returns "Interior" or "Exterior" for face, or "Unknown"
// when it cannot be classified.
func FaceSideString(k kernel.GeometryKernel, doc kernel.DocumentID, face kernel.Face) string {
	interior, err := IsInteriorFace(k, doc, face)
	switch {
	case err != nil:
		return "Unknown"
	case interior:
		return "Interior"
	}
	return "Exterior"
}

// PitchString formats the thread pitch in the document's display unit.
func PitchString(info kernel.ThreadInfo, unit kernel.LengthUnit) string {
	v := unit.FromInternal(info.Pitch())
	return strconv.FormatFloat(v, 'g', 6, 64) + " " + unit.String()
}

// coneSpan intersects the cone slant line with the cross lines through the
// thread's base and end points.
func coneSpan(info kernel.ThreadInfo, face kernel.Face, tol float64) (p1, p2 r3.Vec, err error) {
	y := geom.Unit(info.Direction)
	x := geom.OrthogonalVector(y)
	side, ok := FaceSideDirection(face, x)
	if !ok {
		return r3.Vec{}, r3.Vec{}, fmt.Errorf("%w: need a cone, got %s", ErrUnsupportedSurface, face.SurfaceType())
	}
	return spanSide(side, info.BasePoint, info.Direction, x, tol)
}

// SideDirection returns the cone slant line restricted to the thread: it
// starts on the surface level with the base point and points to the
// surface level with the end point.
func SideDirection(info kernel.ThreadInfo, face kernel.Face, tol float64) (geom.Line, error) {
	p1, p2, err := coneSpan(info, face, tol)
	if err != nil {
		return geom.Line{}, err
	}
	return geom.LineThrough(p1, p2), nil
}

// IsExpanding reports whether the cone widens along the thread direction.
func IsExpanding(info kernel.ThreadInfo, face kernel.Face, tol float64) (bool, error) {
	p1, p2, err := coneSpan(info, face, tol)
	if err != nil {
		return false, err
	}
	return geom.Distance(p1, info.BasePoint) < geom.Distance(p2, info.EndPoint()), nil
}

// TaperedMajorRadius returns the cone radius level with the thread's base
// point.
func TaperedMajorRadius(info kernel.ThreadInfo, face kernel.Face, tol float64) (float64, error) {
	p1, _, err := coneSpan(info, face, tol)
	if err != nil {
		return 0, err
	}
	return geom.Distance(p1, info.BasePoint), nil
}

// Taper returns the signed coil taper for a conical thread: the angle
// between the thread axis and the slant, positive when the cone expands.
func Taper(info kernel.ThreadInfo, face kernel.Face, tol float64) (float64, error) {
	side, err := SideDirection(info, face, tol)
	if err != nil {
		return 0, err
	}
	expanding, err := IsExpanding(info, face, tol)
	if err != nil {
		return 0, err
	}
	a := geom.AngleBetween(info.Direction, side.Direction)
	if !expanding {
		a = -a
	}
	return a, nil
}
