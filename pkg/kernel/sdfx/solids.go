package sdfx

import (
	"container/heap"
	"errors"
	"fmt"
	"math"

	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/geom"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	errCrossesAxis   = errors.New("profile crosses the axis")
	errTooWide       = errors.New("profile is not narrower than the coil pitch")
	errNoTargetBody  = errors.New("no body to operate on")
	errBadCoilPitch  = errors.New("coil pitch must be positive")
	errBadCoilHeight = errors.New("coil height must be positive")
	errBadTaper      = errors.New("coil taper must be within (-90, 90) degrees")
	errMissesBodies  = errors.New("tool does not reach any of its bodies")
)

// clearance is the minimum gap between two coil turns.
const clearance = 1e-9

const (
	// overlapDepth is how far a cut or join tool must reach into a body
	// to count as touching it.
	overlapDepth = geom.Tolerance
	// maxOverlapCells bounds the search in reaches.
	maxOverlapCells = 1 << 15
)

func toV3(v r3.Vec) v3.Vec {
	return v3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}

// alignZ returns the rotation taking +Z onto axis.
func alignZ(axis r3.Vec) sdf.M44 {
	a := geom.Unit(axis)
	z := r3.Vec{Z: 1}
	c := r3.Cross(z, a)
	if r3.Norm(c) < 1e-12 {
		if a.Z > 0 {
			return sdf.Identity3d()
		}
		return sdf.RotateX(math.Pi)
	}
	return sdf.Rotate3d(toV3(c), geom.AngleBetween(z, a))
}

// place moves a Z-aligned solid so its local origin sits at origin and its
// Z axis runs along axis.
func place(s sdf.SDF3, origin, axis r3.Vec) sdf.SDF3 {
	m := sdf.Translate3d(toV3(origin)).Mul(alignZ(axis))
	return sdf.Transform3D(s, m)
}

// radialCoords expresses model points as (axial, radial) pairs around
// axis. Radial values are signed against the direction of the first point
// that is off the axis, so a profile straddling the axis shows up as
// negative radii.
func radialCoords(pts []r3.Vec, axis geom.Line) (axial, radial []float64) {
	a := geom.Unit(axis.Direction)
	var ref r3.Vec
	for _, p := range pts {
		d := r3.Sub(p, axis.RootPoint)
		off := r3.Sub(d, r3.Scale(r3.Dot(d, a), a))
		if r3.Norm(off) > geom.Tolerance {
			ref = geom.Unit(off)
			break
		}
	}
	axial = make([]float64, len(pts))
	radial = make([]float64, len(pts))
	for i, p := range pts {
		d := r3.Sub(p, axis.RootPoint)
		axial[i] = r3.Dot(d, a)
		radial[i] = r3.Dot(d, ref)
	}
	return axial, radial
}

// revolveSolid revolves a closed model-space polygon a full turn around
// axis.
func revolveSolid(pts []r3.Vec, axis geom.Line) (sdf.SDF3, error) {
	axial, radial := radialCoords(pts, axis)
	poly := make([]v2.Vec, len(pts))
	for i := range pts {
		if radial[i] < -geom.Tolerance {
			return nil, errCrossesAxis
		}
		poly[i] = v2.Vec{X: math.Max(radial[i], 0), Y: axial[i]}
	}
	s2, err := sdf.Polygon2D(poly)
	if err != nil {
		return nil, fmt.Errorf("profile polygon: %w", err)
	}
	s3, err := sdf.Revolve3D(s2)
	if err != nil {
		return nil, fmt.Errorf("revolve: %w", err)
	}
	return place(s3, axis.RootPoint, axis.Direction), nil
}

// coilSolid sweeps a closed model-space polygon along a helix around
// spec.Axis. The sweep starts at the profile and runs spec.Height along the
// axis direction.
//
// The sdfx screw narrows along its own +Z when tapered, so a coil that
// widens along its axis is built on the reversed axis. Reversing the axis
// is a proper rotation and keeps the handedness.
func coilSolid(pts []r3.Vec, spec kernel.CoilSpec) (sdf.SDF3, error) {
	switch {
	case spec.Pitch <= 0:
		return nil, errBadCoilPitch
	case spec.Height <= 0:
		return nil, errBadCoilHeight
	case math.Abs(spec.Taper) >= math.Pi/2:
		return nil, errBadTaper
	}

	axial, radial := radialCoords(pts, spec.Axis)
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range pts {
		if radial[i] < -geom.Tolerance {
			return nil, errCrossesAxis
		}
		lo = math.Min(lo, axial[i])
		hi = math.Max(hi, axial[i])
	}
	if hi-lo >= spec.Pitch-clearance {
		return nil, fmt.Errorf("%w (%.6g >= %.6g)", errTooWide, hi-lo, spec.Pitch)
	}
	mid := (lo + hi) / 2

	sign := 1.0
	if spec.Taper > 0 {
		sign = -1
	}

	// Local frame: origin at the profile centre on the axis, +Z = sign*axis.
	poly := make([]v2.Vec, len(pts))
	for i := range pts {
		poly[i] = v2.Vec{X: sign * (axial[i] - mid), Y: math.Max(radial[i], 0)}
	}
	thread, err := sdf.Polygon2D(poly)
	if err != nil {
		return nil, fmt.Errorf("profile polygon: %w", err)
	}

	starts := 1
	if spec.Reversed {
		starts = -1
	}
	// The screw spans [-h, h] locally; the slab keeps the half on the
	// sweep side of the profile.
	h := spec.Height
	screw, err := sdf.Screw3D(thread, 2*h, math.Abs(spec.Taper), spec.Pitch, starts)
	if err != nil {
		return nil, fmt.Errorf("coil: %w", err)
	}
	bb := screw.BoundingBox()
	size := bb.Size()
	slab, err := sdf.Box3D(v3.Vec{X: size.X + 1, Y: size.Y + 1, Z: h}, 0)
	if err != nil {
		return nil, fmt.Errorf("coil bounds: %w", err)
	}
	slab = sdf.Transform3D(slab, sdf.Translate3d(v3.Vec{Z: sign * h / 2}))
	local := sdf.Intersect3D(screw, slab)

	a := geom.Unit(spec.Axis.Direction)
	origin := geom.Translate(spec.Axis.RootPoint, a, mid)
	return place(local, origin, r3.Scale(sign, a)), nil
}

// reaches reports whether tool and body share a point at least
// overlapDepth inside both. It searches the overlap of their bounding
// boxes best-first on max(body, tool), dropping cells the distance bound
// proves empty.
func reaches(body, tool sdf.SDF3) bool {
	bb, tb := body.BoundingBox(), tool.BoundingBox()
	lo, hi := bb.Min.Max(tb.Min), bb.Max.Min(tb.Max)
	if hi.Sub(lo).MinComponent() < 0 {
		return false
	}
	eval := func(p v3.Vec) float64 {
		return math.Max(body.Evaluate(p), tool.Evaluate(p))
	}

	half := hi.Sub(lo).MulScalar(0.5)
	c := lo.Add(half)
	q := &cellQueue{{center: c, half: half, value: eval(c)}}
	for n := 1; q.Len() > 0 && n < maxOverlapCells; {
		cell := heap.Pop(q).(overlapCell)
		if cell.value < -overlapDepth {
			return true
		}
		r := cell.half.Length()
		if cell.value-r >= -overlapDepth || r < overlapDepth {
			continue
		}
		h := cell.half.MulScalar(0.5)
		for i := 0; i < 8; i++ {
			off := h
			if i&1 == 0 {
				off.X = -off.X
			}
			if i&2 == 0 {
				off.Y = -off.Y
			}
			if i&4 == 0 {
				off.Z = -off.Z
			}
			cc := cell.center.Add(off)
			heap.Push(q, overlapCell{center: cc, half: h, value: eval(cc)})
			n++
		}
	}
	return false
}

type overlapCell struct {
	center, half v3.Vec
	value        float64
}

// cellQueue is a min-heap of cells by value.
type cellQueue []overlapCell

func (q cellQueue) Len() int           { return len(q) }
func (q cellQueue) Less(i, j int) bool { return q[i].value < q[j].value }
func (q cellQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *cellQueue) Push(x any) { *q = append(*q, x.(overlapCell)) }

func (q *cellQueue) Pop() any {
	old := *q
	c := old[len(old)-1]
	*q = old[:len(old)-1]
	return c
}
