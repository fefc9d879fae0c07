// Package template loads thread template documents.
//
// A template is a YAML file describing one part document: its model
// parameters and a single parametric profile sketch. Four parameters are
// tagged by comment (Pitch, ThreadOffset, MajorRadius, MinorRadius); the
// sketch coordinates are expressions over those parameters.
//
//	name: ISO Metric Template
//	units: mm
//	parameters:
//	  - {name: Pitch, comment: Pitch, expression: "0.1"}
//	sketch:
//	  points:
//	    - {x: "(- ThreadOffset (* 0.5 Pitch))", y: MajorRadius}
//	  lines:
//	    - [0, 1]
package template

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/geom"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel/sdfx"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/thread"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

const (
	// Dir is the directory, next to a job file, holding thread templates.
	Dir = "Thread Templates"
	// DefaultName is the template used when a job names none.
	DefaultName = "ISO Metric Template.yaml"
)

// ErrNoSketch is returned when a template has no closed profile sketch.
var ErrNoSketch = errors.New("template: no profile sketch")

// File is the on-disk form of a template.
type File struct {
	Name       string      `yaml:"name"`
	Units      string      `yaml:"units"`
	Parameters []Parameter `yaml:"parameters"`
	Sketch     Sketch      `yaml:"sketch"`
}

// Parameter is one model parameter.
type Parameter struct {
	Name       string `yaml:"name"`
	Comment    string `yaml:"comment"`
	Expression string `yaml:"expression"`
}

// Sketch is the profile sketch. Lines join points by index.
type Sketch struct {
	Points []Point  `yaml:"points"`
	Lines  [][2]int `yaml:"lines"`
}

// Point holds sketch coordinates as parameter expressions.
type Point struct {
	X string `yaml:"x"`
	Y string `yaml:"y"`
}

// Template is a template loaded into a kernel document.
type Template struct {
	Name   string
	Doc    kernel.DocumentID
	Sketch kernel.SketchID
}

// Parse decodes a template file. Unknown fields are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("template: decoding: %w", err)
	}
	return &f, nil
}

// ReadFile parses the template at path. A template without a name takes
// the file's base name.
func ReadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}
	defer fh.Close()

	f, err := Parse(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if f.Name == "" {
		f.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return f, nil
}

// Validate checks that every tagged parameter is present, so a batch can
// be refused before any feature is touched.
func (f *File) Validate() error {
	var missing []string
	for _, tag := range thread.Tags {
		found := false
		for _, p := range f.Parameters {
			if p.Comment == tag {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, tag)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("template %q: %w: %s", f.Name, thread.ErrMissingParameter, strings.Join(missing, ", "))
	}
	if len(f.Sketch.Points) < 3 || len(f.Sketch.Lines) < 3 {
		return fmt.Errorf("template %q: %w", f.Name, ErrNoSketch)
	}
	return nil
}

// Load builds the template as a new document in k and recomputes it. The
// sketch is placed in the model XY plane.
func (f *File) Load(k *sdfx.Kernel) (*Template, error) {
	units, err := kernel.ParseLengthUnit(f.Units)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", f.Name, err)
	}
	doc := k.NewDocument(f.Name, units)
	for _, p := range f.Parameters {
		if _, err := k.AddParameter(doc, p.Name, p.Comment, p.Expression); err != nil {
			return nil, fmt.Errorf("template %q: %w", f.Name, err)
		}
	}

	pts := make([]sdfx.ExprPoint, len(f.Sketch.Points))
	for i, p := range f.Sketch.Points {
		pts[i] = sdfx.ExprPoint{X: p.X, Y: p.Y}
	}
	frame := geom.NewFrame(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1})
	sk, err := k.AddExprSketch(doc, frame, pts, f.Sketch.Lines)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", f.Name, err)
	}
	if err := k.Update(doc); err != nil {
		return nil, fmt.Errorf("template %q: %w", f.Name, err)
	}
	return &Template{Name: f.Name, Doc: doc, Sketch: sk}, nil
}

// LoadFile reads, validates and loads the template at path.
func LoadFile(k *sdfx.Kernel, path string) (*Template, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f.Load(k)
}

// ValidateDocument checks a loaded document for the tagged parameters.
func ValidateDocument(k kernel.GeometryKernel, doc kernel.DocumentID) error {
	for _, tag := range thread.Tags {
		_, ok, err := thread.FindNamedParameter(k, doc, tag)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("template: %w: %s", thread.ErrMissingParameter, tag)
		}
	}
	return nil
}

// FindThreadTemplate returns the path of the named template in the
// templates directory next to jobPath. An empty name selects DefaultName;
// absolute names are returned as is.
func FindThreadTemplate(jobPath, name string) string {
	if name == "" {
		name = DefaultName
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(filepath.Dir(jobPath), Dir, name)
}
