package geom

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestOrthogonalVector(t *testing.T) {
	tests := []struct {
		name string
		v    r3.Vec
		want r3.Vec
	}{
		{"x axis", r3.Vec{X: 1}, r3.Vec{Z: 1}},
		{"y axis", r3.Vec{Y: 1}, r3.Vec{Z: 1}},
		{"z axis", r3.Vec{Z: 1}, r3.Vec{Y: 1}},
		{"xz plane", r3.Vec{X: 1, Z: 1}, r3.Vec{Y: 1}},
		{"general", r3.Vec{X: 1, Y: 1, Z: 1}, Unit(r3.Vec{X: 1, Y: -1})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OrthogonalVector(tt.v)
			if !EqualWithin(got, tt.want, 1e-12) {
				t.Errorf("OrthogonalVector(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestOrthogonalVectorIsUnitAndOrthogonal(t *testing.T) {
	inputs := []r3.Vec{
		{X: 1}, {Y: -3}, {Z: 7},
		{X: 0.3, Y: -2, Z: 5},
		{X: -1e-5, Y: 4, Z: 1e-5},
		{X: 12, Y: 1e-3, Z: -0.5},
		{X: 2, Y: 0.00005, Z: 3},
		{X: -0.2, Y: 0.7, Z: -0.00002},
	}
	for _, v := range inputs {
		o := OrthogonalVector(v)
		if n := r3.Norm(o); math.Abs(n-1) > 1e-9 {
			t.Errorf("OrthogonalVector(%v) norm = %v, want 1", v, n)
		}
		if d := r3.Dot(o, v); math.Abs(d) > 1e-6 {
			t.Errorf("dot(OrthogonalVector(%v), v) = %v, want 0", v, d)
		}
	}
}

func TestAngleBetween(t *testing.T) {
	tests := []struct {
		name string
		a, b r3.Vec
		want float64
	}{
		{"same", r3.Vec{X: 1}, r3.Vec{X: 2}, 0},
		{"right", r3.Vec{X: 1}, r3.Vec{Y: 1}, math.Pi / 2},
		{"opposite", r3.Vec{Z: 1}, r3.Vec{Z: -3}, math.Pi},
		{"45", r3.Vec{X: 1}, r3.Vec{X: 1, Y: 1}, math.Pi / 4},
		{"zero", r3.Vec{}, r3.Vec{X: 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AngleBetween(tt.a, tt.b); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("AngleBetween = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnitZero(t *testing.T) {
	if got := Unit(r3.Vec{}); got != (r3.Vec{}) {
		t.Errorf("Unit(zero) = %v, want zero", got)
	}
}
