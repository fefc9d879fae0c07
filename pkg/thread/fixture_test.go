package thread

import (
	"math"
	"testing"

	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/geom"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel/sdfx"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

var zAxis = r3.Vec{Z: 1}

// templateOpts shapes the test template. halfWidth is the groove's half
// width as a fraction of the pitch; skip omits one tagged parameter.
type templateOpts struct {
	halfWidth string
	skip      string
}

// isoTemplate builds an ISO-style template document: a 60 degree groove
// triangle whose base sits on MajorRadius and whose tip reaches
// MinorRadius.
func isoTemplate(t *testing.T, k *sdfx.Kernel, o templateOpts) kernel.SketchID {
	t.Helper()
	if o.halfWidth == "" {
		o.halfWidth = "0.5"
	}
	doc := k.NewDocument("ISO Metric Template", kernel.UnitMillimeter)
	for _, p := range [][2]string{
		{TagPitch, "0.1"},
		{TagThreadOffset, "0.0"},
		{TagMajorRadius, "1.0"},
		{TagMinorRadius, "(- MajorRadius (* 0.6134 Pitch))"},
	} {
		comment := p[0]
		if p[0] == o.skip {
			comment = "unused"
		}
		_, err := k.AddParameter(doc, p[0], comment, p[1])
		require.NoError(t, err)
	}
	hw := "(* " + o.halfWidth + " Pitch)"
	sk, err := k.AddExprSketch(doc, geom.NewFrame(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1}), []sdfx.ExprPoint{
		{X: "(- ThreadOffset " + hw + ")", Y: "MajorRadius"},
		{X: "(+ ThreadOffset " + hw + ")", Y: "MajorRadius"},
		{X: "ThreadOffset", Y: "MinorRadius"},
	}, [][2]int{{0, 1}, {1, 2}, {2, 0}})
	require.NoError(t, err)
	require.NoError(t, k.Update(doc))
	return sk
}

// metricThread is a right-handed M-style thread of pitch 0.1 cm along +Z,
// 2 cm long, starting 1 cm above base.
func metricThread(kind kernel.ThreadKind, face kernel.FaceID, base r3.Vec) kernel.ThreadFeature {
	return kernel.ThreadFeature{
		Kind: kind,
		Face: face,
		Info: kernel.ThreadInfo{
			Metric:      true,
			RawPitch:    1,
			Direction:   r3.Vec{Z: 2},
			BasePoint:   r3.Add(base, r3.Vec{Z: 1}),
			RightHanded: true,
		},
	}
}

// part is a document with thread features ready to modelize.
type part struct {
	k        *sdfx.Kernel
	doc      kernel.DocumentID
	template kernel.SketchID
	features []kernel.ThreadFeature
}

func (p *part) addThread(t *testing.T, tf kernel.ThreadFeature) {
	t.Helper()
	_, err := p.k.AddThreadFeature(p.doc, tf)
	require.NoError(t, err)
	p.features, err = p.k.ThreadFeatures(p.doc)
	require.NoError(t, err)
}

func (p *part) counts(t *testing.T) sdfx.Counts {
	t.Helper()
	c, err := p.k.Counts(p.doc)
	require.NoError(t, err)
	return c
}

func (p *part) context() *ModelizationContext {
	return &ModelizationContext{Kernel: p.k, TemplatePath: "ISO Metric Template.yaml"}
}

func newPart(t *testing.T, k *sdfx.Kernel, o templateOpts) *part {
	t.Helper()
	return &part{
		k:        k,
		doc:      k.NewDocument("Part1", kernel.UnitMillimeter),
		template: isoTemplate(t, k, o),
	}
}

// shaftPart has one exterior standard thread on a radius 1 cm shaft.
func shaftPart(t *testing.T, k *sdfx.Kernel, o templateOpts) *part {
	t.Helper()
	p := newPart(t, k, o)
	_, face, err := k.AddShaft(p.doc, "Shaft", r3.Vec{}, zAxis, 1, 4)
	require.NoError(t, err)
	p.addThread(t, metricThread(kernel.ThreadStandard, face, r3.Vec{}))
	return p
}

// ring samples a circle of radius r around the Z axis through center, at
// height z, and reports which of 360 angles lie inside any body of the part.
func (p *part) ring(t *testing.T, center r3.Vec, r, z float64) []bool {
	t.Helper()
	bodies, err := p.k.Bodies(p.doc)
	require.NoError(t, err)
	in := make([]bool, 360)
	for i := range in {
		a := 2 * math.Pi * float64(i) / float64(len(in))
		q := r3.Add(center, r3.Vec{X: r * math.Cos(a), Y: r * math.Sin(a), Z: z})
		for _, b := range bodies {
			ok, err := p.k.Contains(p.doc, b, q)
			require.NoError(t, err)
			if ok {
				in[i] = true
				break
			}
		}
	}
	return in
}

// requireHelicalGroove checks that the circle of radius r at mid thread
// crosses a groove that turns with height. A plain revolved envelope
// would give a full or an empty circle.
func (p *part) requireHelicalGroove(t *testing.T, center r3.Vec, r float64) {
	t.Helper()
	mid := p.ring(t, center, r, 2)
	filled := 0
	for _, in := range mid {
		if in {
			filled++
		}
	}
	require.Greater(t, filled, len(mid)/10, "groove swallows the circle at r=%g", r)
	require.Less(t, filled, len(mid)*9/10, "no groove at r=%g", r)

	// A quarter pitch higher the groove has turned a quarter turn.
	require.NotEqual(t, mid, p.ring(t, center, r, 2.025), "groove does not turn at r=%g", r)
}
