package thread

import (
	"fmt"
	"math"

	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel"
)

// Template parameter tags. Parameters are matched by comment, not name.
const (
	TagPitch        = "Pitch"
	TagThreadOffset = "ThreadOffset"
	TagMajorRadius  = "MajorRadius"
	TagMinorRadius  = "MinorRadius"
)

// Tags lists the four template parameter tags in binding order.
var Tags = []string{TagPitch, TagThreadOffset, TagMajorRadius, TagMinorRadius}

// binding holds the renamed template parameters of one sketch instance.
type binding struct {
	pitch, offset, major, minor kernel.Parameter
}

// bindParameters locates and renames all four tagged parameters. Nothing is
// written unless all of them exist.
func bindParameters(k kernel.GeometryKernel, doc kernel.DocumentID, sketchName string) (*binding, error) {
	found := make([]kernel.Parameter, len(Tags))
	for i, tag := range Tags {
		p, err := RenameParameter(k, doc, tag, sketchName)
		if err != nil {
			return nil, err
		}
		found[i] = p
	}
	return &binding{pitch: found[0], offset: found[1], major: found[2], minor: found[3]}, nil
}

// radii is what the binder hands to the boundary builder.
type radii struct {
	major, minor float64
}

func (r radii) depth() float64 { return math.Abs(r.major - r.minor) }

// bindStandard writes the cylindrical thread parameters. The minor radius
// is read back after a recompute; for interior faces the major radius is
// then rewritten to the groove depth and the document recomputed again.
func bindStandard(k kernel.GeometryKernel, doc kernel.DocumentID, sketchName string, pitch, faceRadius float64, interior bool) (radii, error) {
	b, err := bindParameters(k, doc, sketchName)
	if err != nil {
		return radii{}, err
	}
	if err := b.writePitch(k, doc, pitch); err != nil {
		return radii{}, err
	}

	major := faceRadius
	if interior {
		major = 0
	}
	if err := set(k, doc, b.major, major); err != nil {
		return radii{}, err
	}
	if err := update(k, doc); err != nil {
		return radii{}, err
	}

	minorValue, err := parameterValue(k, doc, b.minor.ID)
	if err != nil {
		return radii{}, err
	}
	minor := math.Abs(minorValue)
	if interior {
		minor += faceRadius
		if err := set(k, doc, b.major, math.Abs(minorValue)); err != nil {
			return radii{}, err
		}
		if err := update(k, doc); err != nil {
			return radii{}, err
		}
	}
	return radii{major: faceRadius, minor: minor}, nil
}

// bindTapered writes the conical thread parameters. The cone itself
// carries the radius, so the major radius is always zero and only the
// groove depth matters.
func bindTapered(k kernel.GeometryKernel, doc kernel.DocumentID, sketchName string, pitch float64) (radii, error) {
	b, err := bindParameters(k, doc, sketchName)
	if err != nil {
		return radii{}, err
	}
	if err := b.writePitch(k, doc, pitch); err != nil {
		return radii{}, err
	}
	if err := set(k, doc, b.major, 0); err != nil {
		return radii{}, err
	}
	if err := update(k, doc); err != nil {
		return radii{}, err
	}
	minorValue, err := parameterValue(k, doc, b.minor.ID)
	if err != nil {
		return radii{}, err
	}
	return radii{major: 0, minor: math.Abs(minorValue)}, nil
}

func (b *binding) writePitch(k kernel.GeometryKernel, doc kernel.DocumentID, pitch float64) error {
	if err := set(k, doc, b.pitch, pitch); err != nil {
		return err
	}
	return set(k, doc, b.offset, 0)
}

func set(k kernel.GeometryKernel, doc kernel.DocumentID, p kernel.Parameter, v float64) error {
	if err := k.SetParameterValue(doc, p.ID, v); err != nil {
		return fmt.Errorf("thread: set %s: %w", p.Name, err)
	}
	return nil
}

func update(k kernel.GeometryKernel, doc kernel.DocumentID) error {
	if err := k.Update(doc); err != nil {
		return fmt.Errorf("thread: update: %w", err)
	}
	return nil
}
