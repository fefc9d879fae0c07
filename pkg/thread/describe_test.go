package thread

import (
	"math"
	"testing"

	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "Standard", KindString(kernel.ThreadStandard))
	assert.Equal(t, "Tapered", KindString(kernel.ThreadTapered))
	assert.Equal(t, "Invalid Feature", KindString(kernel.ThreadKind(7)))
}

func TestPitchString(t *testing.T) {
	tests := []struct {
		info kernel.ThreadInfo
		unit kernel.LengthUnit
		want string
	}{
		{kernel.ThreadInfo{Metric: true, RawPitch: 1.5}, kernel.UnitMillimeter, "1.5 mm"},
		{kernel.ThreadInfo{Metric: true, RawPitch: 2}, kernel.UnitCentimeter, "0.2 cm"},
		{kernel.ThreadInfo{RawPitch: 1.0 / 16}, kernel.UnitInch, "0.0625 in"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PitchString(tt.info, tt.unit))
	}
}

func TestEffectivePitchIncreasesWithExtra(t *testing.T) {
	assert.InDelta(t, 0.1001, EffectivePitch(0.1, 0.1), 1e-12)
	assert.InDelta(t, 0.11, EffectivePitch(0.1, 10), 1e-12)
	prev := 0.0
	for extra := 0.1; extra <= 10.0; extra += 0.1 {
		got := EffectivePitch(0.1, extra)
		assert.Greater(t, got, prev, "extra %g", extra)
		prev = got
	}
	assert.InDelta(t, 2.2, CoilHeight(r3.Vec{Z: 2}, 0.1), 1e-12)
}

func TestConeDescriptions(t *testing.T) {
	const h = 0.05
	narrowing := kernel.Face{Surface: kernel.Cone{AxisVector: zAxis, Radius: 1, HalfAngle: h}}
	info := kernel.ThreadInfo{Direction: r3.Vec{Z: 2}, BasePoint: r3.Vec{Z: 1}}

	r, err := TaperedMajorRadius(info, narrowing, 1e-4)
	require.NoError(t, err)
	assert.InDelta(t, 1-math.Tan(h), r, 1e-9)

	side, err := SideDirection(info, narrowing, 1e-4)
	require.NoError(t, err)
	assert.InDelta(t, 2, side.Direction.Z, 1e-9, "spans the thread")

	taper, err := Taper(info, narrowing, 1e-4)
	require.NoError(t, err)
	assert.InDelta(t, -h, taper, 1e-9)

	// Reversing the thread direction makes the same cone expand.
	up := kernel.ThreadInfo{Direction: r3.Vec{Z: -2}, BasePoint: r3.Vec{Z: 3}}
	taper, err = Taper(up, narrowing, 1e-4)
	require.NoError(t, err)
	assert.InDelta(t, h, taper, 1e-9)

	_, err = TaperedMajorRadius(info, kernel.Face{Surface: kernel.Cylinder{Radius: 1}}, 1e-4)
	assert.ErrorIs(t, err, ErrUnsupportedSurface)
}
