package thread

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/geom"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// ModelizationContext carries what a modelization run needs besides its
// inputs. It replaces process-wide state, so independent runs may use
// different kernels and loggers.
type ModelizationContext struct {
	Kernel kernel.GeometryKernel
	// TemplatePath records where the template sketch came from. It is only
	// logged.
	TemplatePath string
	// Tolerance for construction line intersections; zero means
	// geom.Tolerance.
	Tolerance float64
	Logger    *slog.Logger
	Metrics   *Metrics
}

func (mc *ModelizationContext) logger() *slog.Logger {
	if mc.Logger == nil {
		return slog.Default()
	}
	return mc.Logger
}

func (mc *ModelizationContext) tolerance() float64 {
	if mc.Tolerance <= 0 {
		return geom.Tolerance
	}
	return mc.Tolerance
}

// Outcome is what happened to one feature of a batch.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	}
	return "skipped"
}

// FeatureResult reports one feature of a batch. Coil is set on success.
// Err is a *FeatureError on failure, or the context error for features
// skipped by cancellation.
type FeatureResult struct {
	Feature kernel.FeatureID
	Name    string
	Outcome Outcome
	Coil    kernel.FeatureID
	Err     error
}

// ModelizeThreads modelizes features in order and reports whether all of
// them succeeded. A failed feature does not stop the batch.
func ModelizeThreads(ctx context.Context, mc *ModelizationContext, doc kernel.DocumentID, template kernel.SketchID, features []kernel.ThreadFeature, extraPitch float64) bool {
	ok := true
	for _, r := range ModelizeThreadsDetailed(ctx, mc, doc, template, features, extraPitch) {
		if r.Err != nil {
			ok = false
		}
	}
	return ok
}

// ModelizeThreadsDetailed is ModelizeThreads with one result per feature.
// Suppressed features are skipped without error. The context is checked
// between features only; once it is done the remaining features are
// skipped with the context's error.
func ModelizeThreadsDetailed(ctx context.Context, mc *ModelizationContext, doc kernel.DocumentID, template kernel.SketchID, features []kernel.ThreadFeature, extraPitch float64) []FeatureResult {
	log := mc.logger()
	results := make([]FeatureResult, 0, len(features))
	var failed int
	for _, f := range features {
		res := FeatureResult{Feature: f.ID, Name: f.Name}
		kind := f.Kind.String()

		if err := ctx.Err(); err != nil {
			res.Outcome, res.Err = OutcomeSkipped, err
			results = append(results, res)
			mc.Metrics.observe(kind, OutcomeSkipped, 0)
			continue
		}
		if suppressed(mc.Kernel, doc, f) {
			log.Debug("skipping suppressed thread", "feature", f.Name)
			res.Outcome = OutcomeSkipped
			results = append(results, res)
			mc.Metrics.observe(kind, OutcomeSkipped, 0)
			continue
		}

		start := time.Now()
		p := &pipeline{
			k:        mc.Kernel,
			doc:      doc,
			template: template,
			extra:    extraPitch,
			tol:      mc.tolerance(),
			f:        f,
			log:      log.With("feature", f.Name, "kind", kind),
		}
		coil, err := p.run()
		if err != nil {
			failed++
			res.Outcome, res.Err = OutcomeFailure, err
			p.log.Warn("thread modelization failed", "error", err)
		} else {
			res.Outcome, res.Coil = OutcomeSuccess, coil
			p.log.Info("thread modelized", "coil", string(coil))
		}
		mc.Metrics.observe(kind, res.Outcome, time.Since(start))
		results = append(results, res)
	}
	log.Info("thread batch done", "features", len(features), "failed", failed, "template", mc.TemplatePath)
	return results
}

// suppressed checks the feature's own flag and the document's current
// state, so a stale copy of a modelized feature is still skipped.
func suppressed(k kernel.GeometryKernel, doc kernel.DocumentID, f kernel.ThreadFeature) bool {
	if f.Suppressed {
		return true
	}
	s, err := k.Suppressed(doc, f.ID)
	return err == nil && s
}

// pipeline modelizes one feature. stage tracks the step in progress so
// errors and recovered panics can name it.
type pipeline struct {
	k        kernel.GeometryKernel
	doc      kernel.DocumentID
	template kernel.SketchID
	extra    float64
	tol      float64
	f        kernel.ThreadFeature
	log      *slog.Logger

	stage Stage
	tx    kernel.Transaction
}

func (p *pipeline) fail(err error) error {
	return &FeatureError{Feature: p.f.Name, Stage: p.stage, Err: err}
}

// run executes the pipeline for the feature's kind inside a transaction,
// committing on success and aborting on any error or panic.
func (p *pipeline) run() (coil kernel.FeatureID, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = p.fail(fmt.Errorf("panic: %v", r))
			coil = ""
		}
		if err != nil && p.tx != nil {
			p.abort()
		}
	}()

	scope, name := kernel.ScopeLocal, "Modelizing Thread "+p.f.Name
	if p.f.Kind == kernel.ThreadTapered {
		scope, name = kernel.ScopeGlobal, "Modelizing Thread "
	}
	p.stage = StageBegin
	tx, err := p.k.Begin(p.doc, name, scope)
	if err != nil {
		return "", p.fail(err)
	}
	p.tx = tx

	var sk kernel.SketchID
	switch p.f.Kind {
	case kernel.ThreadStandard:
		sk, coil, err = p.standard()
	case kernel.ThreadTapered:
		sk, coil, err = p.tapered()
	default:
		p.stage = StageClassify
		err = fmt.Errorf("%w: unknown thread kind %d", ErrUnsupportedSurface, int(p.f.Kind))
	}
	if err != nil {
		return "", p.fail(err)
	}

	p.stage = StageCommit
	if err := p.k.SetSketchShared(p.doc, sk, false); err != nil {
		return "", p.fail(err)
	}
	if err := p.k.SetSuppressed(p.doc, p.f.ID, true); err != nil {
		return "", p.fail(err)
	}
	if err := tx.Commit(); err != nil {
		return "", p.fail(err)
	}
	p.tx = nil
	return coil, nil
}

// abort rolls the transaction back. A panicking abort is logged and
// swallowed so the batch can go on.
func (p *pipeline) abort() {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("transaction abort panicked", "panic", fmt.Sprint(r))
		}
	}()
	if err := p.tx.Abort(); err != nil {
		p.log.Error("transaction abort failed", "error", err)
	}
	p.tx = nil
}

// face loads the threaded face and classifies it.
func (p *pipeline) face() (kernel.Face, bool, error) {
	p.stage = StageClassify
	face, err := p.k.Face(p.doc, p.f.Face)
	if err != nil {
		return kernel.Face{}, false, err
	}
	interior, err := IsInteriorFace(p.k, p.doc, face)
	if err != nil {
		return kernel.Face{}, false, err
	}
	return face, interior, nil
}

func (p *pipeline) insertSketch(frame geom.Frame) (kernel.SketchID, string, error) {
	p.stage = StageInsertSketch
	sk, err := p.k.InsertSketch(p.doc, p.template, frame)
	if err != nil {
		return "", "", err
	}
	name, err := p.k.SketchName(p.doc, sk)
	if err != nil {
		return "", "", err
	}
	return sk, name, nil
}

func (p *pipeline) coil(sk kernel.SketchID, taper, pitch float64) (kernel.FeatureID, error) {
	p.stage = StageProfile
	prof, err := p.k.AddProfile(p.doc, sk)
	if err != nil {
		return "", err
	}
	p.stage = StageCoil
	return createCoil(p.k, p.doc, coilParams{
		profile:     prof,
		direction:   p.f.Info.Direction,
		base:        p.f.Info.BasePoint,
		rightHanded: p.f.Info.RightHanded,
		taper:       taper,
		pitch:       pitch,
		extraPitch:  p.extra,
	})
}

// standard modelizes a thread on a cylindrical face. The template is
// authored for an exterior thread, so for a bore its origin is moved out
// to the bore surface and its second axis turned toward the thread axis.
func (p *pipeline) standard() (kernel.SketchID, kernel.FeatureID, error) {
	info := p.f.Info
	pitch := info.Pitch()
	face, interior, err := p.face()
	if err != nil {
		return "", "", err
	}
	cyl, ok := face.Surface.(kernel.Cylinder)
	if !ok {
		return "", "", fmt.Errorf("%w: standard thread on %s face", ErrUnsupportedSurface, face.SurfaceType())
	}
	p.log.Debug("classified thread face", "interior", interior, "pitch", pitch, "radius", cyl.Radius)

	y := geom.Unit(info.Direction)
	x := geom.OrthogonalVector(y)
	origin := info.BasePoint
	sy := x
	if interior {
		// Template radii grow away from the sketch X axis. In a bore the
		// sketch sits on the wall facing the axis so the teeth land in
		// the envelope inside the hole.
		origin = geom.Translate(origin, x, cyl.Radius)
		sy = r3.Scale(-1, x)
	}
	sk, name, err := p.insertSketch(geom.NewFrame(origin, y, sy))
	if err != nil {
		return "", "", err
	}

	p.stage = StageBind
	r, err := bindStandard(p.k, p.doc, name, pitch, cyl.Radius, interior)
	if err != nil {
		return "", "", err
	}
	p.stage = StageBoundary
	if err := buildStandardBoundary(p.k, p.doc, info, r, interior, p.tol); err != nil {
		return "", "", err
	}

	coil, err := p.coil(sk, 0, pitch)
	return sk, coil, err
}

// tapered modelizes a thread on a conical face. The template is placed on
// the cone's slant line with its second axis pointing at the thread axis,
// or away from it for a bore.
func (p *pipeline) tapered() (kernel.SketchID, kernel.FeatureID, error) {
	info := p.f.Info
	pitch := info.Pitch()
	face, interior, err := p.face()
	if err != nil {
		return "", "", err
	}
	side, err := SideDirection(info, face, p.tol)
	if err != nil {
		return "", "", err
	}
	taper, err := Taper(info, face, p.tol)
	if err != nil {
		return "", "", err
	}
	p.log.Debug("classified thread face", "interior", interior, "pitch", pitch, "taper", taper)

	y := r3.Sub(info.BasePoint, side.RootPoint)
	if interior {
		y = r3.Scale(-1, y)
	}
	sk, name, err := p.insertSketch(geom.NewFrame(side.RootPoint, side.Direction, y))
	if err != nil {
		return "", "", err
	}

	p.stage = StageBind
	r, err := bindTapered(p.k, p.doc, name, pitch)
	if err != nil {
		return "", "", err
	}
	p.stage = StageBoundary
	if err := buildTaperedBoundary(p.k, p.doc, info, face, r, interior, p.tol); err != nil {
		return "", "", err
	}

	coil, err := p.coil(sk, taper, pitch)
	return sk, coil, err
}
