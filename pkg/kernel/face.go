package kernel

import "gonum.org/v1/gonum/spatial/r3"

// SurfaceType classifies the geometry under a face.
type SurfaceType int

const (
	SurfaceOther SurfaceType = iota
	SurfaceCylinder
	SurfaceCone
)

func (t SurfaceType) String() string {
	switch t {
	case SurfaceCylinder:
		return "cylinder"
	case SurfaceCone:
		return "cone"
	default:
		return "other"
	}
}

// Surface is the tagged union of face geometries: Cylinder, Cone or
// OtherSurface.
type Surface interface {
	Type() SurfaceType
}

// BasePointer is implemented by surfaces that carry an axis base point.
// Interior/exterior classification needs it.
type BasePointer interface {
	BasePoint() r3.Vec
}

// Cylinder is a circular cylinder around the axis through Base.
type Cylinder struct {
	Base       r3.Vec
	AxisVector r3.Vec
	Radius     float64
}

func (Cylinder) Type() SurfaceType { return SurfaceCylinder }
func (c Cylinder) BasePoint() r3.Vec { return c.Base }

// Cone is a circular cone. Radius is measured at Base; IsExpanding reports
// whether the radius grows along AxisVector.
type Cone struct {
	Base        r3.Vec
	AxisVector  r3.Vec
	Radius      float64
	HalfAngle   float64
	IsExpanding bool
}

func (Cone) Type() SurfaceType { return SurfaceCone }
func (c Cone) BasePoint() r3.Vec { return c.Base }

// OtherSurface stands for any geometry the thread modeler cannot use.
type OtherSurface struct{}

func (OtherSurface) Type() SurfaceType { return SurfaceOther }

// Face is a bounded region of a surface on a solid body.
type Face struct {
	ID          FaceID
	Body        BodyID
	Surface     Surface
	PointOnFace r3.Vec
}

// SurfaceType is shorthand for f.Surface.Type(), tolerating a nil surface.
func (f Face) SurfaceType() SurfaceType {
	if f.Surface == nil {
		return SurfaceOther
	}
	return f.Surface.Type()
}
