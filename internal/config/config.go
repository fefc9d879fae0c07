// Package config loads modelization jobs: the part to build, the thread
// template, and output settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/selection"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/template"
	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvExtraPitch = "THREADMODELER_EXTRA_PITCH"
	EnvTemplate   = "THREADMODELER_TEMPLATE"
	EnvLogLevel   = "THREADMODELER_LOG_LEVEL"
	EnvOutput     = "THREADMODELER_OUTPUT"
)

// DefaultExtraPitch is the extra coil pitch, in percent, used when a job
// sets none.
const DefaultExtraPitch = 0.1

// Config is one modelization job.
type Config struct {
	Job      Job            `yaml:"job"`
	Template TemplateConfig `yaml:"template"`
	Output   OutputConfig   `yaml:"output"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`

	// path is the file the job was read from; relative paths resolve
	// against its directory.
	path string
}

// Job describes the part and how its threads are modelized.
type Job struct {
	ExtraPitch float64 `yaml:"extra_pitch"`
	// AllowIMateFaces keeps threads on faces that carry an iMate.
	AllowIMateFaces bool `yaml:"allow_imate_faces"`
	Part            Part `yaml:"part"`
}

// Part is the document to build. Lengths are centimeters.
type Part struct {
	Name   string `yaml:"name"`
	Units  string `yaml:"units"`
	Bodies []Body `yaml:"bodies"`
}

// Body kinds.
const (
	BodyShaft        = "shaft"
	BodyBore         = "bore"
	BodyTaperedShaft = "tapered-shaft"
	BodyTaperedBore  = "tapered-bore"
)

// Body is one revolved solid with its threaded face.
type Body struct {
	Name        string     `yaml:"name"`
	Kind        string     `yaml:"kind"`
	Base        [3]float64 `yaml:"base"`
	Axis        [3]float64 `yaml:"axis"`
	Radius      float64    `yaml:"radius"`
	OuterRadius float64    `yaml:"outer_radius"`
	Length      float64    `yaml:"length"`
	// HalfAngle is the cone half angle in degrees.
	HalfAngle float64  `yaml:"half_angle"`
	Expanding bool     `yaml:"expanding"`
	IMates    []string `yaml:"imates"`
	Threads   []Thread `yaml:"threads"`
}

// Thread is a thread annotation on its body's face.
type Thread struct {
	Name string `yaml:"name"`
	// Kind is "standard" or "tapered".
	Kind   string `yaml:"kind"`
	Metric bool   `yaml:"metric"`
	// Pitch is in mm for metric threads and in inches otherwise.
	Pitch      float64    `yaml:"pitch"`
	Base       [3]float64 `yaml:"base"`
	Direction  [3]float64 `yaml:"direction"`
	LeftHanded bool       `yaml:"left_handed"`
	Suppressed bool       `yaml:"suppressed"`
}

// TemplateConfig names the thread template.
type TemplateConfig struct {
	// Path is a template file name inside the "Thread Templates" directory
	// next to the job file, or an absolute path.
	Path string `yaml:"path"`
}

// OutputConfig controls the mesh export.
type OutputConfig struct {
	STL   string `yaml:"stl"`
	ASCII bool   `yaml:"ascii"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the metrics textfile.
type MetricsConfig struct {
	File string `yaml:"file"`
}

// Default returns a job with every default applied and no part.
func Default() *Config {
	return &Config{
		Job:      Job{ExtraPitch: DefaultExtraPitch},
		Template: TemplateConfig{Path: template.DefaultName},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the job at path, then applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	c, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// LoadFromFile reads a job file over the defaults without validating it.
func LoadFromFile(path string) (*Config, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer fh.Close()

	c := Default()
	dec := yaml.NewDecoder(fh)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	c.path = path
	return c, nil
}

// ApplyEnv overrides fields from the THREADMODELER_* variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvExtraPitch); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvExtraPitch, err)
		}
		c.Job.ExtraPitch = f
	}
	if v := getenv(EnvTemplate); v != "" {
		c.Template.Path = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := getenv(EnvOutput); v != "" {
		c.Output.STL = v
	}
	return nil
}

// Path returns the file the job was loaded from.
func (c *Config) Path() string { return c.path }

// TemplatePath resolves the template location against the job file.
func (c *Config) TemplatePath() string {
	return template.FindThreadTemplate(c.path, c.Template.Path)
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs []error
	if err := selection.CheckExtraPitch(c.Job.ExtraPitch); err != nil {
		errs = append(errs, err)
	}
	if _, err := kernel.ParseLengthUnit(c.Job.Part.Units); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	if strings.TrimSpace(c.Template.Path) == "" {
		errs = append(errs, errors.New("config: template path is required"))
	}
	for i, b := range c.Job.Part.Bodies {
		if err := b.validate(); err != nil {
			errs = append(errs, fmt.Errorf("config: body %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (b Body) validate() error {
	switch b.Kind {
	case BodyShaft, BodyBore, BodyTaperedShaft, BodyTaperedBore:
	default:
		return fmt.Errorf("unknown kind %q", b.Kind)
	}
	if b.Radius <= 0 || b.Length <= 0 {
		return errors.New("radius and length must be positive")
	}
	if b.Axis == [3]float64{} {
		return errors.New("axis must be non-zero")
	}
	if (b.Kind == BodyBore || b.Kind == BodyTaperedBore) && b.OuterRadius <= b.Radius {
		return errors.New("outer_radius must exceed radius")
	}
	if (b.Kind == BodyTaperedShaft || b.Kind == BodyTaperedBore) && (b.HalfAngle <= 0 || b.HalfAngle >= 90) {
		return errors.New("half_angle must be in (0, 90) degrees")
	}
	for j, t := range b.Threads {
		if _, err := kernel.ParseThreadKind(t.Kind); err != nil {
			return fmt.Errorf("thread %d: %w", j, err)
		}
		if t.Direction == [3]float64{} {
			return fmt.Errorf("thread %d: direction must be non-zero", j)
		}
	}
	return nil
}
