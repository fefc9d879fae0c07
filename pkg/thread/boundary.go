package thread

import (
	"fmt"
	"math"

	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/geom"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// boundary is the rectangle, in the plane of the thread axis, that the
// boundary solids are revolved from.
type boundary struct {
	frame geom.Frame
	axis  geom.Line
	pts   [4]r3.Vec
}

// spanSide intersects side with the cross lines through base and
// base+dir, giving the two points that bound the thread axially.
func spanSide(side geom.Line, base, dir, x r3.Vec, tol float64) (p1, p2 r3.Vec, err error) {
	end := r3.Add(base, dir)
	p1, err = side.Intersect(geom.NewLine(base, x), tol)
	if err != nil {
		return r3.Vec{}, r3.Vec{}, fmt.Errorf("thread: side line at base: %w", err)
	}
	p2, err = side.Intersect(geom.NewLine(end, x), tol)
	if err != nil {
		return r3.Vec{}, r3.Vec{}, fmt.Errorf("thread: side line at end: %w", err)
	}
	return p1, p2, nil
}

func newBoundary(base, y, x, p1, p2 r3.Vec, revDepth float64) boundary {
	return boundary{
		frame: geom.NewFrame(base, x, y),
		axis:  geom.NewLine(base, y),
		pts: [4]r3.Vec{
			p1,
			p2,
			geom.Translate(p2, x, -revDepth),
			geom.Translate(p1, x, -revDepth),
		},
	}
}

// standardBoundary lays the rectangle out at the major radius and extends
// it inward by the groove depth.
func standardBoundary(info kernel.ThreadInfo, r radii, tol float64) (boundary, error) {
	y := geom.Unit(info.Direction)
	x := geom.OrthogonalVector(y)
	side := geom.NewLine(geom.Translate(info.BasePoint, x, r.major), y)
	p1, p2, err := spanSide(side, info.BasePoint, info.Direction, x, tol)
	if err != nil {
		return boundary{}, err
	}
	return newBoundary(info.BasePoint, y, x, p1, p2, r.depth()), nil
}

// taperedBoundary lays the rectangle out along the cone's slant line. The
// depth is measured normal to the slant, and grows outward for interior
// faces.
func taperedBoundary(info kernel.ThreadInfo, face kernel.Face, depth float64, interior bool, tol float64) (boundary, error) {
	cone, ok := face.Surface.(kernel.Cone)
	if !ok {
		return boundary{}, fmt.Errorf("%w: tapered boundary needs a cone, got %s", ErrUnsupportedSurface, face.SurfaceType())
	}
	y := geom.Unit(info.Direction)
	x := geom.OrthogonalVector(y)
	side, _ := FaceSideDirection(face, x)
	p1, p2, err := spanSide(side, info.BasePoint, info.Direction, x, tol)
	if err != nil {
		return boundary{}, err
	}
	revDepth := depth / math.Cos(cone.HalfAngle)
	if interior {
		revDepth = -revDepth
	}
	return newBoundary(info.BasePoint, y, x, p1, p2, revDepth), nil
}

// revolve sketches the rectangle on its own sketch and revolves it a full
// turn around the thread axis.
func (b boundary) revolve(k kernel.GeometryKernel, doc kernel.DocumentID, op kernel.Operation) error {
	sk, err := k.AddSketch(doc, b.frame)
	if err != nil {
		return fmt.Errorf("thread: boundary sketch: %w", err)
	}
	idx := make([]int, len(b.pts))
	for i, p := range b.pts {
		if idx[i], err = k.AddSketchPoint(doc, sk, p); err != nil {
			return fmt.Errorf("thread: boundary point: %w", err)
		}
	}
	for i := range idx {
		if err := k.AddSketchLine(doc, sk, idx[i], idx[(i+1)%len(idx)]); err != nil {
			return fmt.Errorf("thread: boundary line: %w", err)
		}
	}
	prof, err := k.AddProfile(doc, sk)
	if err != nil {
		return fmt.Errorf("thread: boundary profile: %w", err)
	}
	if _, err := k.Revolve(doc, prof, b.axis, op); err != nil {
		return fmt.Errorf("thread: boundary %s revolve: %w", op, err)
	}
	return nil
}

// buildStandardBoundary removes the thread envelope from the part for
// exterior faces, then adds it back as a new body for the coil to cut.
func buildStandardBoundary(k kernel.GeometryKernel, doc kernel.DocumentID, info kernel.ThreadInfo, r radii, interior bool, tol float64) error {
	b, err := standardBoundary(info, r, tol)
	if err != nil {
		return err
	}
	if !interior {
		if err := b.revolve(k, doc, kernel.OperationCut); err != nil {
			return err
		}
	}
	return b.revolve(k, doc, kernel.OperationNewBody)
}

// buildTaperedBoundary always cuts and re-adds the envelope.
func buildTaperedBoundary(k kernel.GeometryKernel, doc kernel.DocumentID, info kernel.ThreadInfo, face kernel.Face, r radii, interior bool, tol float64) error {
	b, err := taperedBoundary(info, face, r.depth(), interior, tol)
	if err != nil {
		return err
	}
	if err := b.revolve(k, doc, kernel.OperationCut); err != nil {
		return err
	}
	return b.revolve(k, doc, kernel.OperationNewBody)
}
