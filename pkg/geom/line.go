package geom

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrNoIntersection is returned when two lines are parallel or pass each
// other further apart than the requested tolerance.
var ErrNoIntersection = errors.New("geom: lines do not intersect")

// Line is an infinite line through RootPoint along Direction.
// Direction need not be normalized, but must not be zero.
type Line struct {
	RootPoint r3.Vec
	Direction r3.Vec
}

// NewLine returns the line through p along d.
func NewLine(p, d r3.Vec) Line {
	return Line{RootPoint: p, Direction: d}
}

// LineThrough returns the line from a towards b.
func LineThrough(a, b r3.Vec) Line {
	return Line{RootPoint: a, Direction: r3.Sub(b, a)}
}

// PointAt returns RootPoint + t*Direction.
func (l Line) PointAt(t float64) r3.Vec {
	return Translate(l.RootPoint, l.Direction, t)
}

// Project returns the point of l closest to p.
func (l Line) Project(p r3.Vec) r3.Vec {
	dd := r3.Dot(l.Direction, l.Direction)
	if dd == 0 {
		return l.RootPoint
	}
	t := r3.Dot(r3.Sub(p, l.RootPoint), l.Direction) / dd
	return l.PointAt(t)
}

// DistanceTo returns the shortest distance from p to l.
func (l Line) DistanceTo(p r3.Vec) float64 {
	return Distance(p, l.Project(p))
}

// Intersect returns the point where l meets m. Lines closer than tol at
// their closest approach are treated as intersecting and the point on l is
// returned. Parallel lines never intersect.
func (l Line) Intersect(m Line, tol float64) (r3.Vec, error) {
	d1, d2 := l.Direction, m.Direction
	w := r3.Sub(l.RootPoint, m.RootPoint)

	a := r3.Dot(d1, d1)
	b := r3.Dot(d1, d2)
	c := r3.Dot(d2, d2)
	if a == 0 || c == 0 {
		return r3.Vec{}, ErrNoIntersection
	}
	denom := a*c - b*b
	if denom <= 1e-12*a*c {
		return r3.Vec{}, ErrNoIntersection
	}

	d := r3.Dot(d1, w)
	e := r3.Dot(d2, w)
	s := (b*e - c*d) / denom
	t := (a*e - b*d) / denom

	p := l.PointAt(s)
	q := m.PointAt(t)
	if Distance(p, q) > tol || math.IsNaN(p.X) {
		return r3.Vec{}, ErrNoIntersection
	}
	return p, nil
}
