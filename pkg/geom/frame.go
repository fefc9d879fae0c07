package geom

import "gonum.org/v1/gonum/spatial/r3"

// Frame is a planar placement: an origin and two in-plane axes.
// Sketch coordinates (u, v) map to Origin + u*XAxis + v*YAxis.
type Frame struct {
	Origin r3.Vec
	XAxis  r3.Vec
	YAxis  r3.Vec
}

// NewFrame returns an orthonormal frame. XAxis is x normalized; YAxis is
// the part of y perpendicular to x, so y only picks the plane and the side
// of XAxis the second axis points to.
func NewFrame(origin, x, y r3.Vec) Frame {
	ux := Unit(x)
	uy := Unit(r3.Sub(y, r3.Scale(r3.Dot(y, ux), ux)))
	return Frame{Origin: origin, XAxis: ux, YAxis: uy}
}

// Normal returns the unit plane normal XAxis × YAxis.
func (f Frame) Normal() r3.Vec {
	return Unit(r3.Cross(f.XAxis, f.YAxis))
}

// ToModel maps sketch coordinates to model space.
func (f Frame) ToModel(u, v float64) r3.Vec {
	return r3.Add(f.Origin, r3.Add(r3.Scale(u, f.XAxis), r3.Scale(v, f.YAxis)))
}

// ToSketch maps a model point to sketch coordinates by projecting it onto
// the frame axes. The out-of-plane component is dropped.
func (f Frame) ToSketch(p r3.Vec) (u, v float64) {
	d := r3.Sub(p, f.Origin)
	return r3.Dot(d, f.XAxis), r3.Dot(d, f.YAxis)
}
