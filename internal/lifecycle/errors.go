package lifecycle

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition indicates the target status is not reachable from the current one.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrValidation indicates the transition request failed input validation.
	ErrValidation = errors.New("validation failed")
	// ErrNotPermitted indicates the acting party may not perform the transition.
	ErrNotPermitted = errors.New("actor not permitted to perform transition")
)

// ValidationError describes one rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// TransitionError reports a request for a status outside the allowed table.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition application from %q to %q", e.From, e.To)
}

// Is matches ErrInvalidTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
