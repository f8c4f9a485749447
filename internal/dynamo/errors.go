package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidConfig indicates an engine or run configuration that cannot be simulated.
	ErrInvalidConfig = errors.New("dynamo: invalid configuration")

	// ErrUnbounded indicates a run with neither a duration nor a tick bound.
	ErrUnbounded = errors.New("dynamo: run has no duration or tick bound")

	// ErrSinkFailures indicates the sink failed too many consecutive ticks.
	ErrSinkFailures = errors.New("dynamo: too many consecutive sink failures")

	// ErrUnknownModule indicates a module name outside FL, FR, RL, RR.
	ErrUnknownModule = errors.New("dynamo: unknown module")

	// ErrRunNotFound indicates a stored run that does not exist.
	ErrRunNotFound = errors.New("dynamo: run not found")
)

// PersistError wraps a sink failure with the tick it happened on.
type PersistError struct {
	RunID   string
	Tick    int64
	Wrapped error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist tick %d of run %s: %v", e.Tick, e.RunID, e.Wrapped)
}

func (e *PersistError) Unwrap() error {
	return e.Wrapped
}
