package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coolOrangeLabs/inventor-thread-modeler/internal/config"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel/sdfx"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/template"
)

const exampleJob = "../../examples/threaded-parts.yaml"

func newTestApp(opts ...sdfx.Option) *App {
	return NewApp(slog.New(slog.DiscardHandler), append([]sdfx.Option{sdfx.WithMeshCells(24)}, opts...)...)
}

func loadExample(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(exampleJob)
	if err != nil {
		t.Fatalf("loading example job: %v", err)
	}
	return cfg
}

// wideJob writes a one-bolt job next to a template whose groove is 5%
// wider than the pitch, so it only modelizes with a large extra pitch.
func wideJob(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	src, err := os.ReadFile(filepath.Join("..", "..", "examples", template.Dir, template.DefaultName))
	if err != nil {
		t.Fatal(err)
	}
	wide := strings.Replace(string(src), `"(* 0.5 Pitch)"`, `"(* 0.525 Pitch)"`, 1)
	if wide == string(src) {
		t.Fatal("template flank width expression not found")
	}
	if err := os.MkdirAll(filepath.Join(dir, template.Dir), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, template.Dir, "Wide.yaml"), []byte(wide), 0o644); err != nil {
		t.Fatal(err)
	}
	job := `
job:
  part:
    bodies:
      - name: Bolt
        kind: shaft
        axis: [0, 0, 1]
        radius: 1
        length: 4
        threads:
          - kind: standard
            metric: true
            pitch: 1
            base: [0, 0, 1]
            direction: [0, 0, 2]
template:
  path: Wide.yaml
`
	path := filepath.Join(dir, "job.yaml")
	if err := os.WriteFile(path, []byte(job), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildPart(t *testing.T) {
	app := newTestApp()
	doc, err := app.BuildPart(loadExample(t).Job.Part)
	if err != nil {
		t.Fatalf("BuildPart: %v", err)
	}

	bodies, err := app.kernel.Bodies(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(bodies) != 3 {
		t.Fatalf("expected 3 bodies, got %d", len(bodies))
	}
	features, err := app.kernel.ThreadFeatures(doc)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"M20x1", "M20x1 LH", "Taper plug"}
	if len(features) != len(want) {
		t.Fatalf("expected %d threads, got %d", len(want), len(features))
	}
	for i, f := range features {
		if f.Name != want[i] {
			t.Errorf("thread %d name = %q, want %q", i, f.Name, want[i])
		}
	}
	if features[1].Info.RightHanded {
		t.Error("left_handed thread should not be right handed")
	}
}

func TestBuildPartErrors(t *testing.T) {
	app := newTestApp()
	if _, err := app.BuildPart(config.Part{Units: "ft"}); err == nil {
		t.Error("expected error for unknown units")
	}
	_, err := app.BuildPart(config.Part{Bodies: []config.Body{{Kind: "sphere"}}})
	if err == nil || !strings.Contains(err.Error(), "body 0") {
		t.Errorf("expected body 0 error, got %v", err)
	}
}

func TestModelizeExampleJob(t *testing.T) {
	app := newTestApp()
	cfg := loadExample(t)
	cfg.Output.STL = filepath.Join(t.TempDir(), "parts.stl")

	rep, err := app.Modelize(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Modelize: %v", err)
	}
	if !rep.OK {
		t.Fatal("report not OK")
	}
	if rep.RunID == "" {
		t.Error("missing run ID")
	}
	if len(rep.Features) != 3 || len(rep.Rejected) != 0 {
		t.Fatalf("features = %+v, rejected = %+v", rep.Features, rep.Rejected)
	}
	for _, f := range rep.Features {
		if f.Outcome != "success" {
			t.Errorf("%s: outcome %s (%s)", f.Name, f.Outcome, f.Error)
		}
	}

	// Every thread adds one body holding its modelized ring.
	if len(rep.Meshes) != 6 {
		t.Fatalf("expected 6 meshes, got %d", len(rep.Meshes))
	}
	if rep.Meshes[0].Body != "Bolt" || rep.Meshes[0].Triangles == 0 {
		t.Errorf("first mesh = %+v, want a non-empty Bolt", rep.Meshes[0])
	}
	if b := rep.Meshes[0]; b.Min == nil || b.Max == nil || b.Max[2] <= b.Min[2] {
		t.Errorf("Bolt bounds = %v..%v", b.Min, b.Max)
	}
	info, err := os.Stat(cfg.Output.STL)
	if err != nil {
		t.Fatalf("STL not written: %v", err)
	}
	if info.Size() <= 84 {
		t.Errorf("STL too small: %d bytes", info.Size())
	}

	metrics := filepath.Join(t.TempDir(), "threadmodeler.prom")
	if err := app.WriteMetrics(metrics); err != nil {
		t.Fatalf("WriteMetrics: %v", err)
	}
	data, err := os.ReadFile(metrics)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `threadmodeler_features_total{kind="standard",outcome="success"} 2`) {
		t.Errorf("unexpected metrics:\n%s", data)
	}
}

func TestModelizeFailureAndRetry(t *testing.T) {
	path := wideJob(t)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}

	rep, err := newTestApp().Modelize(context.Background(), cfg)
	if !errors.Is(err, errModelization) {
		t.Fatalf("expected errModelization, got %v", err)
	}
	if rep.OK || len(rep.Features) != 1 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if rep.Features[0].Stage != "coil" {
		t.Errorf("stage = %q, want coil", rep.Features[0].Stage)
	}

	cfg.Job.ExtraPitch = 10
	rep, err = newTestApp().Modelize(context.Background(), cfg)
	if err != nil {
		t.Fatalf("retry with extra pitch 10: %v", err)
	}
	if !rep.OK {
		t.Errorf("retry report not OK: %+v", rep.Features)
	}
}

func TestModelizeReportsRejections(t *testing.T) {
	cfg := loadExample(t)
	cfg.Job.Part.Bodies[0].IMates = []string{"iMate:1"}
	cfg.Job.Part.Bodies[1].Threads[0].Suppressed = true

	rep, err := newTestApp().Modelize(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Modelize: %v", err)
	}
	if len(rep.Rejected) != 2 || len(rep.Features) != 1 {
		t.Fatalf("rejected = %+v, features = %+v", rep.Rejected, rep.Features)
	}
	if rep.Features[0].Name != "Taper plug" {
		t.Errorf("modelized %q, want Taper plug", rep.Features[0].Name)
	}

	cfg.Job.AllowIMateFaces = true
	rep, err = newTestApp().Modelize(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Modelize: %v", err)
	}
	if len(rep.Rejected) != 1 || len(rep.Features) != 2 {
		t.Fatalf("rejected = %+v, features = %+v", rep.Rejected, rep.Features)
	}
}

func TestModelizeMissingTemplate(t *testing.T) {
	cfg := loadExample(t)
	cfg.Template.Path = "Missing.yaml"
	if _, err := newTestApp().Modelize(context.Background(), cfg); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestInspect(t *testing.T) {
	rows, err := newTestApp().Inspect(loadExample(t))
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	want := []struct{ kind, side string }{
		{"Standard", "Exterior"},
		{"Standard", "Interior"},
		{"Tapered", "Exterior"},
	}
	for i, w := range want {
		if rows[i].Kind != w.kind || rows[i].Side != w.side {
			t.Errorf("row %d = %s/%s, want %s/%s", i, rows[i].Kind, rows[i].Side, w.kind, w.side)
		}
		if rows[i].Pitch != "1 mm" {
			t.Errorf("row %d pitch = %q", i, rows[i].Pitch)
		}
	}
	if rows[0].MajorRadius != nil {
		t.Error("standard thread should not report a tapered major radius")
	}
	if rows[2].MajorRadius == nil || rows[2].Taper == nil {
		t.Fatal("tapered thread missing major radius or taper")
	}
	if *rows[2].Taper >= 0 {
		t.Errorf("narrowing plug taper = %g, want negative", *rows[2].Taper)
	}
}
