package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for stepping operations.
var (
	// ErrInvalidState indicates a state vector with NaN or Inf values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrDiverged indicates an integration step produced a non-finite state.
	ErrDiverged = errors.New("dynamo: trajectory diverged (non-finite sample)")

	// ErrParameterBounds indicates a parameter name or value is not accepted.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrDimensionMismatch indicates mismatched state/system dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrInvalidTimestep indicates a non-positive or non-finite dt.
	ErrInvalidTimestep = errors.New("dynamo: timestep must be positive and finite")
)

// StepError wraps an error with stepping context.
type StepError struct {
	Step    uint64
	Time    float64
	State   State
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
