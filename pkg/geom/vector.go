// Package geom provides the vector, line and frame math used to place
// thread geometry. All vectors are gonum r3 vectors in kernel length units.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Tolerance is the component threshold used when picking an orthogonal
// axis and the default line intersection tolerance.
const Tolerance = 1e-4

// Unit returns v scaled to length 1. The zero vector is returned unchanged.
func Unit(v r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n == 0 {
		return v
	}
	return r3.Scale(1/n, v)
}

// OrthogonalVector returns a unit vector orthogonal to v.
//
// The coordinate axis least aligned with v is picked by comparing the
// components of unit(v) against Tolerance; the remaining component is
// then solved so that the dot product vanishes. The result is not
// unique: callers only get orthogonality, never a canonical rotation
// about v.
func OrthogonalVector(v r3.Vec) r3.Vec {
	u := Unit(v)
	var c r3.Vec
	switch {
	case math.Abs(u.Z) < Tolerance:
		c = r3.Vec{Z: 1}
	case math.Abs(u.Y) < Tolerance:
		c = r3.Vec{Y: 1}
	default:
		// x*1 + y*y' = 0  =>  y' = -x/y
		c = r3.Vec{X: 1, Y: -u.X / u.Y}
	}
	// Components below Tolerance are not exactly zero; remove what is
	// left of u so the result stays orthogonal.
	return Unit(r3.Sub(c, r3.Scale(r3.Dot(c, u), u)))
}

// AngleBetween returns the unsigned angle in radians between a and b.
// It returns 0 if either vector is zero.
func AngleBetween(a, b r3.Vec) float64 {
	na, nb := r3.Norm(a), r3.Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	c := r3.Dot(a, b) / (na * nb)
	return math.Acos(math.Max(-1, math.Min(1, c)))
}

// Distance returns the euclidean distance between two points.
func Distance(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(b, a))
}

// Translate returns p moved by d scaled by s.
func Translate(p, d r3.Vec, s float64) r3.Vec {
	return r3.Add(p, r3.Scale(s, d))
}

// EqualWithin reports whether every component of a and b differs by at
// most tol.
func EqualWithin(a, b r3.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol &&
		math.Abs(a.Y-b.Y) <= tol &&
		math.Abs(a.Z-b.Z) <= tol
}
