package sdfx

import (
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/geom"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	"gonum.org/v1/gonum/spatial/r3"
)

// document is the in-memory part model. Everything reachable from it is
// copied by clone, except SDF values, which are immutable and shared.
type document struct {
	id    kernel.DocumentID
	name  string
	units kernel.LengthUnit

	params   []*parameter
	sketches []*sketch
	profiles []*profile
	bodies   []*body // base bodies, created outside the feature history
	faces    []*face
	features []*feature // revolve and coil history, in creation order
	threads  []*kernel.ThreadFeature
	imates   []imate

	sketchSeq int
	bodySeq   int

	// Results of the last recompute.
	solids    map[kernel.BodyID]sdf.SDF3
	bodyOrder []kernel.BodyID
	bodyNames map[kernel.BodyID]string
}

type parameter struct {
	kernel.Parameter
}

// sketchPoint is a point of a sketch. When distance is set, Y is a driven
// dimension measured from the sketch X axis and only its magnitude counts.
type sketchPoint struct {
	XExpr, YExpr string
	X, Y         float64
	distance     bool
}

type sketch struct {
	id     kernel.SketchID
	name   string
	frame  geom.Frame
	shared bool
	points []sketchPoint
	lines  [][2]int
}

type profile struct {
	id     kernel.ProfileID
	sketch kernel.SketchID
	loop   []int // sketch point indexes in boundary order
}

type body struct {
	id    kernel.BodyID
	name  string
	solid sdf.SDF3
}

type face struct {
	id       kernel.FaceID
	body     kernel.BodyID
	surface  kernel.Surface
	point    r3.Vec
	reversed bool   // normal points toward the axis
	normal   r3.Vec // fixed normal for faces without an axis
}

type imate struct {
	name   string
	face   kernel.FaceID
	onEdge bool
}

type featureKind int

const (
	featureRevolve featureKind = iota
	featureCoil
)

func (k featureKind) String() string {
	if k == featureCoil {
		return "Coil"
	}
	return "Revolution"
}

type feature struct {
	id         kernel.FeatureID
	name       string
	kind       featureKind
	op         kernel.Operation
	profile    kernel.ProfileID
	axis       geom.Line
	coil       kernel.CoilSpec
	affected   []kernel.BodyID
	newBody    kernel.BodyID
	bodyName   string
	suppressed bool

	health kernel.HealthStatus
	reason error
}

func (d *document) clone() *document {
	c := *d

	c.params = make([]*parameter, len(d.params))
	for i, p := range d.params {
		cp := *p
		c.params[i] = &cp
	}

	c.sketches = make([]*sketch, len(d.sketches))
	for i, s := range d.sketches {
		cs := *s
		cs.points = append([]sketchPoint(nil), s.points...)
		cs.lines = append([][2]int(nil), s.lines...)
		c.sketches[i] = &cs
	}

	c.profiles = make([]*profile, len(d.profiles))
	for i, p := range d.profiles {
		cp := *p
		cp.loop = append([]int(nil), p.loop...)
		c.profiles[i] = &cp
	}

	c.bodies = make([]*body, len(d.bodies))
	for i, b := range d.bodies {
		cb := *b
		c.bodies[i] = &cb
	}

	c.faces = make([]*face, len(d.faces))
	for i, f := range d.faces {
		cf := *f
		c.faces[i] = &cf
	}

	c.features = make([]*feature, len(d.features))
	for i, f := range d.features {
		cf := *f
		cf.affected = append([]kernel.BodyID(nil), f.affected...)
		c.features[i] = &cf
	}

	c.threads = make([]*kernel.ThreadFeature, len(d.threads))
	for i, t := range d.threads {
		ct := *t
		c.threads[i] = &ct
	}

	c.imates = append([]imate(nil), d.imates...)

	c.solids = make(map[kernel.BodyID]sdf.SDF3, len(d.solids))
	for id, s := range d.solids {
		c.solids[id] = s
	}
	c.bodyOrder = append([]kernel.BodyID(nil), d.bodyOrder...)
	c.bodyNames = make(map[kernel.BodyID]string, len(d.bodyNames))
	for id, n := range d.bodyNames {
		c.bodyNames[id] = n
	}
	return &c
}

// --- lookups ---

func (d *document) param(id kernel.ParameterID) *parameter {
	for _, p := range d.params {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (d *document) paramByName(name string) *parameter {
	for _, p := range d.params {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (d *document) sketch(id kernel.SketchID) *sketch {
	for _, s := range d.sketches {
		if s.id == id {
			return s
		}
	}
	return nil
}

func (d *document) profile(id kernel.ProfileID) *profile {
	for _, p := range d.profiles {
		if p.id == id {
			return p
		}
	}
	return nil
}

func (d *document) face(id kernel.FaceID) *face {
	for _, f := range d.faces {
		if f.id == id {
			return f
		}
	}
	return nil
}

func (d *document) feature(id kernel.FeatureID) *feature {
	for _, f := range d.features {
		if f.id == id {
			return f
		}
	}
	return nil
}

func (d *document) thread(id kernel.FeatureID) *kernel.ThreadFeature {
	for _, t := range d.threads {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Counts reports how many objects of each kind a document holds.
type Counts struct {
	Bodies     int
	Sketches   int
	Parameters int
	Features   int
}

func (d *document) counts() Counts {
	return Counts{
		Bodies:     len(d.bodyOrder),
		Sketches:   len(d.sketches),
		Parameters: len(d.params),
		Features:   len(d.features),
	}
}
