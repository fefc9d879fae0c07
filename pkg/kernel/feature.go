package kernel

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// ThreadKind distinguishes straight and tapered thread annotations.
type ThreadKind int

const (
	ThreadStandard ThreadKind = iota // cylindrical
	ThreadTapered                    // conical
)

func (k ThreadKind) String() string {
	switch k {
	case ThreadStandard:
		return "standard"
	case ThreadTapered:
		return "tapered"
	default:
		return fmt.Sprintf("ThreadKind(%d)", int(k))
	}
}

// ThreadInfo is the geometric payload of a thread annotation.
type ThreadInfo struct {
	Metric bool
	// RawPitch is in mm for metric threads and in inches otherwise.
	RawPitch float64
	// Direction runs along the thread axis; its length is the axial extent.
	Direction   r3.Vec
	BasePoint   r3.Vec
	RightHanded bool
}

// Pitch returns the thread pitch in kernel length units (cm).
func (ti ThreadInfo) Pitch() float64 {
	if ti.Metric {
		return ti.RawPitch * 0.1
	}
	return ti.RawPitch * 2.54
}

// EndPoint returns BasePoint + Direction.
func (ti ThreadInfo) EndPoint() r3.Vec {
	return r3.Add(ti.BasePoint, ti.Direction)
}

// ThreadFeature is a cosmetic thread annotation on a face. The face
// belongs to the body being modified; the feature only references it.
type ThreadFeature struct {
	ID         FeatureID
	Name       string
	Kind       ThreadKind
	Info       ThreadInfo
	Face       FaceID
	Suppressed bool
}

// LengthUnit is a document display unit for lengths.
type LengthUnit int

const (
	UnitCentimeter LengthUnit = iota
	UnitMillimeter
	UnitInch
)

// FromInternal converts a kernel length (cm) to this unit.
func (u LengthUnit) FromInternal(v float64) float64 {
	switch u {
	case UnitMillimeter:
		return v * 10
	case UnitInch:
		return v / 2.54
	default:
		return v
	}
}

func (u LengthUnit) String() string {
	switch u {
	case UnitMillimeter:
		return "mm"
	case UnitInch:
		return "in"
	default:
		return "cm"
	}
}

// ParseLengthUnit parses "cm", "mm" or "in"/"inch". The empty string is
// millimeters.
func ParseLengthUnit(s string) (LengthUnit, error) {
	switch strings.ToLower(s) {
	case "", "mm":
		return UnitMillimeter, nil
	case "cm":
		return UnitCentimeter, nil
	case "in", "inch":
		return UnitInch, nil
	}
	return 0, fmt.Errorf("kernel: unknown length unit %q", s)
}

// ParseThreadKind parses "standard" or "tapered".
func ParseThreadKind(s string) (ThreadKind, error) {
	switch strings.ToLower(s) {
	case "standard":
		return ThreadStandard, nil
	case "tapered":
		return ThreadTapered, nil
	}
	return 0, fmt.Errorf("kernel: unknown thread kind %q", s)
}
