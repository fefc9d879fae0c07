// Package selection screens thread features before they are handed to the
// modelization engine. It rejects features the engine would refuse or
// damage and reports why.
package selection

import (
	"errors"
	"fmt"

	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel"
)

// Accepted range for the extra pitch percentage.
const (
	MinExtraPitch = 0.1
	MaxExtraPitch = 10.0
)

// ThresholdPitchCm is the smallest pitch, in cm, that can be modeled.
const ThresholdPitchCm = 0.001778

// ErrExtraPitchRange is returned for an extra pitch outside
// [MinExtraPitch, MaxExtraPitch].
var ErrExtraPitchRange = errors.New("selection: extra pitch out of range")

// Severity indicates whether a finding rejects the feature or is merely
// informational.
type Severity int

const (
	SeverityError   Severity = iota // feature is rejected
	SeverityWarning                 // feature is kept
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Finding describes one problem with one feature.
type Finding struct {
	Feature  kernel.FeatureID
	Name     string
	Message  string
	Severity Severity
}

func (f Finding) Error() string {
	return fmt.Sprintf("[%s] %s: %s", f.Severity, f.Name, f.Message)
}

// Result bundles the features that passed, in input order, with every
// finding raised.
type Result struct {
	Accepted []kernel.ThreadFeature
	Findings []Finding
}

// Rejected returns the findings that rejected a feature.
func (r *Result) Rejected() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			out = append(out, f)
		}
	}
	return out
}

// Options tunes the checks.
type Options struct {
	// AllowIMateFaces keeps features whose face carries an iMate, reporting
	// a warning instead of rejecting them.
	AllowIMateFaces bool
}

// Kernel is the read-only capability set the checks need.
type Kernel interface {
	Face(doc kernel.DocumentID, id kernel.FaceID) (kernel.Face, error)
	Suppressed(doc kernel.DocumentID, feature kernel.FeatureID) (bool, error)
	FaceIMate(doc kernel.DocumentID, face kernel.FaceID) (string, bool, error)
}

// CheckExtraPitch validates the extra pitch percentage.
func CheckExtraPitch(v float64) error {
	if v < MinExtraPitch || v > MaxExtraPitch {
		return fmt.Errorf("%w: %g not in [%g, %g]", ErrExtraPitchRange, v, MinExtraPitch, MaxExtraPitch)
	}
	return nil
}

// Check runs every check on each feature. It never mutates the document.
func Check(k Kernel, doc kernel.DocumentID, features []kernel.ThreadFeature, opts Options) (*Result, error) {
	res := &Result{}
	for _, tf := range features {
		found, err := checkFeature(k, doc, tf, opts)
		if err != nil {
			return nil, err
		}
		rejected := false
		for _, f := range found {
			if f.Severity == SeverityError {
				rejected = true
			}
		}
		res.Findings = append(res.Findings, found...)
		if !rejected {
			res.Accepted = append(res.Accepted, tf)
		}
	}
	return res, nil
}

func checkFeature(k Kernel, doc kernel.DocumentID, tf kernel.ThreadFeature, opts Options) ([]Finding, error) {
	var out []Finding
	add := func(sev Severity, format string, args ...any) {
		out = append(out, Finding{
			Feature:  tf.ID,
			Name:     tf.Name,
			Message:  fmt.Sprintf(format, args...),
			Severity: sev,
		})
	}

	suppressed := tf.Suppressed
	if tf.ID != "" && !suppressed {
		s, err := k.Suppressed(doc, tf.ID)
		if err != nil {
			return nil, fmt.Errorf("selection: %s: %w", tf.Name, err)
		}
		suppressed = s
	}
	if suppressed {
		add(SeverityError, "feature is suppressed")
		return out, nil
	}

	face, err := k.Face(doc, tf.Face)
	if err != nil {
		if errors.Is(err, kernel.ErrNotFound) {
			add(SeverityError, "threaded face not found")
			return out, nil
		}
		return nil, fmt.Errorf("selection: %s: %w", tf.Name, err)
	}
	switch {
	case tf.Kind == kernel.ThreadTapered && face.SurfaceType() != kernel.SurfaceCone:
		add(SeverityError, "tapered thread on a %s face is not supported", face.SurfaceType())
	case tf.Kind == kernel.ThreadStandard && face.SurfaceType() != kernel.SurfaceCylinder:
		add(SeverityError, "standard thread on a %s face is not supported", face.SurfaceType())
	}

	if name, ok, err := k.FaceIMate(doc, tf.Face); err != nil {
		return nil, fmt.Errorf("selection: %s: %w", tf.Name, err)
	} else if ok {
		sev := SeverityError
		if opts.AllowIMateFaces {
			sev = SeverityWarning
		}
		add(sev, "threaded face carries iMate %q", name)
	}

	if p := tf.Info.Pitch(); p < ThresholdPitchCm {
		add(SeverityError, "pitch %g cm is below the %g cm threshold", p, ThresholdPitchCm)
	}
	return out, nil
}
