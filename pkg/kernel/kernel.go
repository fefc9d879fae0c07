// Package kernel defines the abstract solid-modeling kernel the thread
// modeler drives. Implementations (the sdfx reference kernel, a host CAD
// bridge) provide face evaluation, sketches, revolve and coil features,
// parameters and transactions behind this interface. Every document
// object is addressed through an opaque handle so the rest of the system
// never holds kernel-owned pointers.
package kernel

import (
	"errors"

	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// Opaque handles. Their string form is only meaningful to the kernel that
// issued them.
type (
	DocumentID  string
	BodyID      string
	FaceID      string
	SketchID    string
	ProfileID   string
	ParameterID string
	FeatureID   string
)

var (
	ErrNotFound          = errors.New("kernel: object not found")
	ErrNoProjection      = errors.New("kernel: point cannot be projected onto face")
	ErrTransactionOpen   = errors.New("kernel: a transaction is already open on this document")
	ErrNoTransaction     = errors.New("kernel: transaction is not open")
	ErrDegenerateProfile = errors.New("kernel: profile is not a closed region")
)

// TransactionScope selects how much document state a transaction covers.
type TransactionScope int

const (
	ScopeLocal  TransactionScope = iota // edits to the document's model only
	ScopeGlobal                         // also covers auxiliary and shared state
)

func (s TransactionScope) String() string {
	switch s {
	case ScopeLocal:
		return "local"
	case ScopeGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// Transaction groups document edits so they can be kept or rolled back
// together. Exactly one of Commit or Abort must be called.
type Transaction interface {
	ID() string
	Commit() error
	Abort() error
}

// Operation is the boolean combination a solid feature applies.
type Operation int

const (
	OperationNewBody Operation = iota // create a separate solid body
	OperationCut                      // remove material
	OperationJoin                     // add material
)

func (o Operation) String() string {
	switch o {
	case OperationNewBody:
		return "new-body"
	case OperationCut:
		return "cut"
	case OperationJoin:
		return "join"
	default:
		return "unknown"
	}
}

// HealthStatus is the state a feature reports after recompute.
type HealthStatus int

const (
	HealthUnknown HealthStatus = iota
	HealthUpToDate
	HealthOutOfDate
	HealthError
)

func (h HealthStatus) String() string {
	switch h {
	case HealthUpToDate:
		return "up-to-date"
	case HealthOutOfDate:
		return "out-of-date"
	case HealthError:
		return "error"
	default:
		return "unknown"
	}
}

// Parameter is a named model parameter. Comment carries the stable tag
// templates use to identify their parameters.
type Parameter struct {
	ID         ParameterID
	Name       string
	Comment    string
	Expression string
	Value      float64
}

// CoilSpec describes a helical sweep of a profile around an axis.
type CoilSpec struct {
	Profile   ProfileID
	Axis      geom.Line // RootPoint is the coil base, Direction the axis
	Pitch     float64
	Height    float64
	Operation Operation
	// Reversed flips the kernel's default rotation sense.
	Reversed bool
	// Taper is the signed half-angle in radians; positive widens the
	// sweep along Axis.Direction.
	Taper float64
}

// GeometryKernel is the capability set the thread modeler needs from a
// solid-modeling kernel.
type GeometryKernel interface {
	// Faces
	Face(doc DocumentID, id FaceID) (Face, error)
	// FaceNormal evaluates the surface normal of the face at p. It returns
	// ErrNoProjection if p is not on the face within the evaluator tolerance.
	FaceNormal(doc DocumentID, id FaceID, p r3.Vec) (r3.Vec, error)

	// Transactions and recompute
	Begin(doc DocumentID, name string, scope TransactionScope) (Transaction, error)
	Update(doc DocumentID) error

	// Parameters, in document order
	Parameters(doc DocumentID) ([]Parameter, error)
	SetParameterValue(doc DocumentID, id ParameterID, v float64) error
	RenameParameter(doc DocumentID, id ParameterID, name, comment string) error

	// Sketches and profiles
	InsertSketch(doc DocumentID, template SketchID, placement geom.Frame) (SketchID, error)
	AddSketch(doc DocumentID, placement geom.Frame) (SketchID, error)
	AddSketchPoint(doc DocumentID, sketch SketchID, p r3.Vec) (int, error)
	AddSketchLine(doc DocumentID, sketch SketchID, from, to int) error
	SketchName(doc DocumentID, sketch SketchID) (string, error)
	SetSketchShared(doc DocumentID, sketch SketchID, shared bool) error
	AddProfile(doc DocumentID, sketch SketchID) (ProfileID, error)

	// Solid features
	Revolve(doc DocumentID, profile ProfileID, axis geom.Line, op Operation) (FeatureID, error)
	AddCoil(doc DocumentID, spec CoilSpec) (FeatureID, error)
	SetAffectedBodies(doc DocumentID, feature FeatureID, bodies []BodyID) error
	Health(doc DocumentID, feature FeatureID) (HealthStatus, error)
	Bodies(doc DocumentID) ([]BodyID, error)

	// Feature suppression
	Suppressed(doc DocumentID, feature FeatureID) (bool, error)
	SetSuppressed(doc DocumentID, feature FeatureID, suppressed bool) error
}

// Browser exposes the read-side lookups used around the core: listing
// thread annotations and checking face constraints.
type Browser interface {
	ThreadFeatures(doc DocumentID) ([]ThreadFeature, error)
	// FaceIMate returns the name of an iMate attached to the face or one of
	// its edges.
	FaceIMate(doc DocumentID, face FaceID) (string, bool, error)
	LengthUnits(doc DocumentID) (LengthUnit, error)
}

// Mesher converts solid bodies to triangle meshes.
type Mesher interface {
	ToMesh(doc DocumentID, body BodyID) (*Mesh, error)
}
