package thread

import (
	"fmt"

	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/geom"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// CoilHeight is the sweep length for a thread: its axial extent padded by
// one pitch at each end.
func CoilHeight(direction r3.Vec, pitch float64) float64 {
	return r3.Norm(direction) + 2*pitch
}

// EffectivePitch widens pitch by extraPercent percent.
func EffectivePitch(pitch, extraPercent float64) float64 {
	return pitch * (100 + extraPercent) * 0.01
}

type coilParams struct {
	profile     kernel.ProfileID
	direction   r3.Vec
	base        r3.Vec
	rightHanded bool
	taper       float64
	pitch       float64
	extraPitch  float64
}

// createCoil sweeps the thread profile as a cut into the most recently
// created body. It fails unless the coil ends up healthy.
func createCoil(k kernel.GeometryKernel, doc kernel.DocumentID, c coilParams) (kernel.FeatureID, error) {
	spec := kernel.CoilSpec{
		Profile:   c.profile,
		Axis:      geom.NewLine(c.base, geom.Unit(c.direction)),
		Pitch:     EffectivePitch(c.pitch, c.extraPitch),
		Height:    CoilHeight(c.direction, c.pitch),
		Operation: kernel.OperationCut,
		Reversed:  !c.rightHanded,
		Taper:     c.taper,
	}
	id, err := k.AddCoil(doc, spec)
	if err != nil {
		return "", fmt.Errorf("thread: add coil: %w", err)
	}

	bodies, err := k.Bodies(doc)
	if err != nil {
		return "", fmt.Errorf("thread: bodies: %w", err)
	}
	if len(bodies) == 0 {
		return "", fmt.Errorf("thread: coil has no body to cut: %w", kernel.ErrNotFound)
	}
	if err := k.SetAffectedBodies(doc, id, bodies[len(bodies)-1:]); err != nil {
		return "", fmt.Errorf("thread: coil bodies: %w", err)
	}

	health, err := k.Health(doc, id)
	if err != nil {
		return "", fmt.Errorf("thread: coil health: %w", err)
	}
	if health != kernel.HealthUpToDate {
		return "", fmt.Errorf("%w (%s)", ErrUnhealthyCoil, health)
	}
	return id, nil
}
