package match

import (
	"errors"
	"fmt"
)

// Sentinel kinds for match simulation errors.
var (
	// ErrInvalidJob marks a job rejected before admission.
	ErrInvalidJob = errors.New("invalid job")
	// ErrSimulationFault marks an internal invariant violation inside one
	// running match. It aborts only that match.
	ErrSimulationFault = errors.New("simulation fault")
)

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidJob, msg)
}

func fault(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSimulationFault, fmt.Sprintf(format, args...))
}
