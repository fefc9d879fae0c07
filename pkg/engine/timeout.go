package engine

import (
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout bounds one recompute of a document's parameters.
const DefaultTimeout = 5 * time.Second

// ErrTimeout is returned when an evaluation does not finish in time. The
// interpreter goroutine is abandoned and its result dropped.
var ErrTimeout = errors.New("engine: evaluation timed out")

type evalResult struct {
	values map[string]float64
	errors []EvalError
	err    error
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout sets the evaluation deadline. Non-positive values keep the
// default.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// await returns the result sent on ch, or ErrTimeout after d. ch must be
// buffered so an abandoned sender never blocks.
func await(ch <-chan evalResult, d time.Duration) (map[string]float64, []EvalError, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.values, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, d)
	}
}
