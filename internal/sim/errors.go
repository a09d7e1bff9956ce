package sim

import (
	"errors"
	"fmt"

	"github.com/san-kum/ballsim/internal/ball"
)

var (
	// ErrUnknownEntity indicates the addressed ball is not live, usually
	// because it was deleted concurrently. Callers should drop the id.
	ErrUnknownEntity = errors.New("sim: unknown entity")

	// ErrInvalidTimeStep indicates a non-positive or non-finite time step.
	ErrInvalidTimeStep = errors.New("sim: time step must be positive and finite")
)

// EntityError wraps ErrUnknownEntity with the operation and id involved.
type EntityError struct {
	Op string
	ID ball.ID
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, ErrUnknownEntity)
}

func (e *EntityError) Unwrap() error {
	return ErrUnknownEntity
}
