package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/coolOrangeLabs/inventor-thread-modeler/internal/config"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/geom"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel/sdfx"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/selection"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/template"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/tessellate"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/thread"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gonum.org/v1/gonum/spatial/r3"
)

// errModelization is returned when at least one thread failed.
var errModelization = errors.New("thread modelization failed, try a bigger extra pitch value")

// App runs jobs against one sdfx kernel.
type App struct {
	kernel  *sdfx.Kernel
	logger  *slog.Logger
	runID   string
	reg     *prometheus.Registry
	metrics *thread.Metrics
}

// FeatureReport is the per-thread outcome of a run.
type FeatureReport struct {
	Name    string `json:"name"`
	Outcome string `json:"outcome"`
	Stage   string `json:"stage,omitempty"`
	Error   string `json:"error,omitempty"`
}

// MeshReport summarizes one exported body.
type MeshReport struct {
	Body      string      `json:"body"`
	Triangles int         `json:"triangles"`
	Min       *[3]float32 `json:"min,omitempty"`
	Max       *[3]float32 `json:"max,omitempty"`
}

// Report is the full result of a modelize run.
type Report struct {
	RunID    string          `json:"runId"`
	Template string          `json:"template"`
	Features []FeatureReport `json:"features"`
	Rejected []FeatureReport `json:"rejected"`
	Meshes   []MeshReport    `json:"meshes"`
	OK       bool            `json:"ok"`
}

// NewApp creates an App with a fresh kernel and metrics registry.
func NewApp(logger *slog.Logger, opts ...sdfx.Option) *App {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	reg := prometheus.NewRegistry()
	return &App{
		kernel:  sdfx.New(append([]sdfx.Option{sdfx.WithLogger(logger)}, opts...)...),
		logger:  logger.With("run", id),
		runID:   id,
		reg:     reg,
		metrics: thread.NewMetrics(reg),
	}
}

func vec(a [3]float64) r3.Vec { return r3.Vec{X: a[0], Y: a[1], Z: a[2]} }

// BuildPart creates the job's part document: one body per entry, its
// threaded face, iMates and thread annotations.
func (a *App) BuildPart(p config.Part) (kernel.DocumentID, error) {
	units, err := kernel.ParseLengthUnit(p.Units)
	if err != nil {
		return "", err
	}
	name := p.Name
	if name == "" {
		name = "Part1"
	}
	k := a.kernel
	doc := k.NewDocument(name, units)

	for i, b := range p.Bodies {
		base, axis := vec(b.Base), vec(b.Axis)
		half := b.HalfAngle * math.Pi / 180
		var face kernel.FaceID
		switch b.Kind {
		case config.BodyShaft:
			_, face, err = k.AddShaft(doc, b.Name, base, axis, b.Radius, b.Length)
		case config.BodyBore:
			_, face, err = k.AddBore(doc, b.Name, base, axis, b.Radius, b.OuterRadius, b.Length)
		case config.BodyTaperedShaft:
			_, face, err = k.AddTaperedShaft(doc, b.Name, base, axis, b.Radius, half, b.Length, b.Expanding)
		case config.BodyTaperedBore:
			_, face, err = k.AddTaperedBore(doc, b.Name, base, axis, b.Radius, half, b.OuterRadius, b.Length, b.Expanding)
		default:
			err = fmt.Errorf("unknown body kind %q", b.Kind)
		}
		if err != nil {
			return "", fmt.Errorf("body %d: %w", i, err)
		}

		for _, m := range b.IMates {
			if err := k.AddIMate(doc, m, face, false); err != nil {
				return "", fmt.Errorf("body %d: %w", i, err)
			}
		}
		for j, t := range b.Threads {
			kind, err := kernel.ParseThreadKind(t.Kind)
			if err != nil {
				return "", fmt.Errorf("body %d thread %d: %w", i, j, err)
			}
			_, err = k.AddThreadFeature(doc, kernel.ThreadFeature{
				Name: t.Name,
				Kind: kind,
				Face: face,
				Info: kernel.ThreadInfo{
					Metric:      t.Metric,
					RawPitch:    t.Pitch,
					Direction:   vec(t.Direction),
					BasePoint:   vec(t.Base),
					RightHanded: !t.LeftHanded,
				},
				Suppressed: t.Suppressed,
			})
			if err != nil {
				return "", fmt.Errorf("body %d thread %d: %w", i, j, err)
			}
		}
	}
	return doc, nil
}

// Modelize runs a whole job: template load, part build, selection checks,
// modelization, and the optional STL export.
func (a *App) Modelize(ctx context.Context, cfg *config.Config) (*Report, error) {
	rep := &Report{RunID: a.runID, Template: cfg.TemplatePath(), Features: []FeatureReport{}, Rejected: []FeatureReport{}}

	tpl, err := template.LoadFile(a.kernel, rep.Template)
	if err != nil {
		return rep, err
	}
	doc, err := a.BuildPart(cfg.Job.Part)
	if err != nil {
		return rep, err
	}
	features, err := a.kernel.ThreadFeatures(doc)
	if err != nil {
		return rep, err
	}

	sel, err := selection.Check(a.kernel, doc, features, selection.Options{AllowIMateFaces: cfg.Job.AllowIMateFaces})
	if err != nil {
		return rep, err
	}
	for _, f := range sel.Findings {
		if f.Severity == selection.SeverityError {
			a.logger.Warn("thread rejected", "feature", f.Name, "reason", f.Message)
			rep.Rejected = append(rep.Rejected, FeatureReport{Name: f.Name, Outcome: "rejected", Error: f.Message})
		} else {
			a.logger.Warn("thread accepted with warning", "feature", f.Name, "reason", f.Message)
		}
	}

	mc := &thread.ModelizationContext{
		Kernel:       a.kernel,
		TemplatePath: rep.Template,
		Logger:       a.logger,
		Metrics:      a.metrics,
	}
	results := thread.ModelizeThreadsDetailed(ctx, mc, doc, tpl.Sketch, sel.Accepted, cfg.Job.ExtraPitch)
	rep.OK = true
	for _, r := range results {
		fr := FeatureReport{Name: r.Name, Outcome: r.Outcome.String()}
		var fe *thread.FeatureError
		if errors.As(r.Err, &fe) {
			fr.Stage = string(fe.Stage)
		}
		if r.Err != nil {
			fr.Error = r.Err.Error()
		}
		if r.Outcome != thread.OutcomeSuccess {
			rep.OK = false
		}
		rep.Features = append(rep.Features, fr)
	}

	if err := a.export(doc, cfg.Output, rep); err != nil {
		return rep, err
	}
	if !rep.OK {
		return rep, errModelization
	}
	return rep, nil
}

func (a *App) export(doc kernel.DocumentID, out config.OutputConfig, rep *Report) error {
	if out.STL == "" {
		return nil
	}
	meshes, err := tessellate.Tessellate(a.kernel, doc)
	if err != nil {
		return err
	}
	for _, m := range meshes {
		mr := MeshReport{Body: m.BodyName, Triangles: m.TriangleCount()}
		if lo, hi, ok := m.Bounds(); ok {
			mr.Min, mr.Max = &lo, &hi
		}
		rep.Meshes = append(rep.Meshes, mr)
	}

	fh, err := os.Create(out.STL)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	name, err := a.kernel.DocumentName(doc)
	if err != nil {
		fh.Close()
		return err
	}
	if err := tessellate.WriteSTL(fh, name, meshes, out.ASCII); err != nil {
		fh.Close()
		return err
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	a.logger.Info("mesh exported", "path", out.STL, "bodies", len(meshes))
	return nil
}

// WriteMetrics writes the run's metrics to a node-exporter textfile.
func (a *App) WriteMetrics(path string) error {
	if err := prometheus.WriteToTextfile(path, a.reg); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}

// ThreadDescription is one row of the inspect listing.
type ThreadDescription struct {
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	Side        string   `json:"side"`
	Pitch       string   `json:"pitch"`
	Suppressed  bool     `json:"suppressed"`
	MajorRadius *float64 `json:"majorRadius,omitempty"`
	Taper       *float64 `json:"taper,omitempty"`
	Findings    []string `json:"findings,omitempty"`
}

// Inspect builds the job's part and describes every thread annotation
// without modifying anything.
func (a *App) Inspect(cfg *config.Config) ([]ThreadDescription, error) {
	doc, err := a.BuildPart(cfg.Job.Part)
	if err != nil {
		return nil, err
	}
	k := a.kernel
	features, err := k.ThreadFeatures(doc)
	if err != nil {
		return nil, err
	}
	units, err := k.LengthUnits(doc)
	if err != nil {
		return nil, err
	}
	sel, err := selection.Check(k, doc, features, selection.Options{AllowIMateFaces: cfg.Job.AllowIMateFaces})
	if err != nil {
		return nil, err
	}

	out := make([]ThreadDescription, 0, len(features))
	for _, tf := range features {
		d := ThreadDescription{
			Name:       tf.Name,
			Kind:       thread.KindString(tf.Kind),
			Side:       "Unknown",
			Pitch:      thread.PitchString(tf.Info, units),
			Suppressed: tf.Suppressed,
		}
		if face, err := k.Face(doc, tf.Face); err == nil {
			d.Side = thread.FaceSideString(k, doc, face)
			if tf.Kind == kernel.ThreadTapered && face.SurfaceType() == kernel.SurfaceCone {
				if r, err := thread.TaperedMajorRadius(tf.Info, face, geom.Tolerance); err == nil {
					r = units.FromInternal(r)
					d.MajorRadius = &r
				}
				if t, err := thread.Taper(tf.Info, face, geom.Tolerance); err == nil {
					d.Taper = &t
				}
			}
		}
		for _, f := range sel.Findings {
			if f.Feature == tf.ID {
				d.Findings = append(d.Findings, f.Error())
			}
		}
		out = append(out, d)
	}
	return out, nil
}
