package thread

import (
	"math"
	"testing"

	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/geom"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel/sdfx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// The side of the base point relative to the normal decides.
func TestNormalFacesBase(t *testing.T) {
	p := r3.Vec{X: 1}
	n := r3.Vec{X: 1}
	tests := []struct {
		name string
		base r3.Vec
		want bool
	}{
		{"base behind the normal", r3.Vec{}, false},
		{"base in front of the normal", r3.Vec{X: 3}, true},
		{"base off to the side but ahead", r3.Vec{X: 2, Y: 5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalFacesBase(n, p, tt.base))
			assert.Equal(t, !tt.want, normalFacesBase(r3.Scale(-1, n), p, tt.base))
		})
	}
}

func TestIsInteriorFace(t *testing.T) {
	k := sdfx.New()
	doc := k.NewDocument("part", kernel.UnitMillimeter)
	_, shaft, err := k.AddShaft(doc, "", r3.Vec{}, zAxis, 1, 4)
	require.NoError(t, err)
	_, bore, err := k.AddBore(doc, "", r3.Vec{X: 10}, zAxis, 1, 2, 4)
	require.NoError(t, err)
	body, _, err := k.AddShaft(doc, "", r3.Vec{X: 20}, zAxis, 1, 4)
	require.NoError(t, err)
	plane, err := k.AddPlanarFace(doc, body, r3.Vec{X: 20, Z: 4}, zAxis)
	require.NoError(t, err)

	face := func(id kernel.FaceID) kernel.Face {
		f, err := k.Face(doc, id)
		require.NoError(t, err)
		return f
	}

	interior, err := IsInteriorFace(k, doc, face(shaft))
	require.NoError(t, err)
	assert.False(t, interior)
	assert.Equal(t, "Exterior", FaceSideString(k, doc, face(shaft)))

	interior, err = IsInteriorFace(k, doc, face(bore))
	require.NoError(t, err)
	assert.True(t, interior)
	assert.Equal(t, "Interior", FaceSideString(k, doc, face(bore)))

	_, err = IsInteriorFace(k, doc, face(plane))
	assert.ErrorIs(t, err, ErrNoBasePoint)
	assert.Equal(t, "Unknown", FaceSideString(k, doc, face(plane)))
}

func TestFaceSideDirection(t *testing.T) {
	cone := kernel.Face{Surface: kernel.Cone{
		Base: r3.Vec{}, AxisVector: zAxis, Radius: 1, HalfAngle: math.Pi / 4,
	}}
	x := r3.Vec{Y: 1}

	l, ok := FaceSideDirection(cone, x)
	require.True(t, ok)
	assert.True(t, geom.EqualWithin(l.RootPoint, r3.Vec{Y: 1}, 1e-12))
	// a 45 degree cone narrowing along +Z closes at z = 1
	assert.True(t, geom.EqualWithin(l.PointAt(1), r3.Vec{Z: 1}, 1e-12), "apex %v", l.PointAt(1))

	expanding := cone
	expanding.Surface = kernel.Cone{Base: r3.Vec{}, AxisVector: zAxis, Radius: 1, HalfAngle: math.Pi / 4, IsExpanding: true}
	l, ok = FaceSideDirection(expanding, x)
	require.True(t, ok)
	assert.True(t, geom.EqualWithin(l.PointAt(1), r3.Vec{Z: -1}, 1e-12))

	_, ok = FaceSideDirection(kernel.Face{Surface: kernel.Cylinder{Radius: 1}}, x)
	assert.False(t, ok)
}

func TestFindAndRenameParameter(t *testing.T) {
	k := sdfx.New()
	doc := k.NewDocument("part", kernel.UnitMillimeter)
	first, err := k.AddParameter(doc, "d0", TagPitch, "0.1")
	require.NoError(t, err)
	_, err = k.AddParameter(doc, "d1", TagPitch, "0.2")
	require.NoError(t, err)
	_, err = k.AddParameter(doc, "d2", "", "(* d0 2)")
	require.NoError(t, err)

	p, ok, err := FindNamedParameter(k, doc, TagPitch)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first, p.ID, "first match in document order")

	renamed, err := RenameParameter(k, doc, TagPitch, "Sketch3")
	require.NoError(t, err)
	assert.Equal(t, "Sketch3_Pitch", renamed.Name)
	assert.Equal(t, "Sketch3 Pitch", renamed.Comment)

	// the renamed parameter no longer carries the tag
	p, ok, err = FindNamedParameter(k, doc, TagPitch)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "d1", p.Name)

	params, err := k.Parameters(doc)
	require.NoError(t, err)
	assert.Equal(t, "(* Sketch3_Pitch 2)", params[2].Expression)

	_, err = RenameParameter(k, doc, TagMinorRadius, "Sketch3")
	assert.ErrorIs(t, err, ErrMissingParameter)
}
