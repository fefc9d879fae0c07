package thread

import (
	"errors"
	"fmt"

	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/geom"
)

var (
	// ErrMissingParameter is returned when the template lacks one of the
	// tagged parameters.
	ErrMissingParameter = errors.New("thread: template parameter not found")
	// ErrUnsupportedSurface is returned when the threaded face has the wrong
	// surface type for the requested operation.
	ErrUnsupportedSurface = errors.New("thread: unsupported surface type")
	// ErrNoIntersection is returned when construction lines do not meet.
	ErrNoIntersection = geom.ErrNoIntersection
	// ErrUnhealthyCoil is returned when the coil feature is not up to date
	// after creation.
	ErrUnhealthyCoil = errors.New("thread: coil feature is not healthy")
	// ErrNoBasePoint is returned when interior/exterior classification is
	// asked of a face whose surface has no base point.
	ErrNoBasePoint = errors.New("thread: face surface has no base point")
)

// Stage names the pipeline step a feature failed in.
type Stage string

const (
	StageBegin        Stage = "begin"
	StageClassify     Stage = "classify"
	StageInsertSketch Stage = "insert-sketch"
	StageBind         Stage = "bind"
	StageBoundary     Stage = "boundary"
	StageProfile      Stage = "profile"
	StageCoil         Stage = "coil"
	StageCommit       Stage = "commit"
)

// FeatureError reports why one thread feature could not be modelized.
type FeatureError struct {
	Feature string
	Stage   Stage
	Err     error
}

func (e *FeatureError) Error() string {
	return fmt.Sprintf("thread: %s: %s: %v", e.Feature, e.Stage, e.Err)
}

func (e *FeatureError) Unwrap() error { return e.Err }
