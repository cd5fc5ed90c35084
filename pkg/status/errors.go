package status

import (
	"errors"
	"fmt"
	"strings"
)

// Entities named in a TransitionError.
const (
	EntityOrder = "order"
	EntityStop  = "stop"
)

// ErrInvalidTransition matches every *TransitionError through errors.Is.
var ErrInvalidTransition = errors.New("invalid status transition")

// TransitionError rejects a status change. It names both states and the
// states that would have been accepted.
type TransitionError struct {
	Entity   string   `json:"entity"`
	Current  string   `json:"current"`
	Proposed string   `json:"proposed"`
	Allowed  []string `json:"allowed"`
}

func newTransitionError[S ~string](entity string, cur, next S, allowed []S) *TransitionError {
	names := make([]string, 0, len(allowed))
	for _, a := range allowed {
		names = append(names, string(a))
	}
	return &TransitionError{
		Entity:   entity,
		Current:  string(cur),
		Proposed: string(next),
		Allowed:  names,
	}
}

func (e *TransitionError) Error() string {
	allowed := "none"
	if len(e.Allowed) > 0 {
		allowed = strings.Join(e.Allowed, ", ")
	}
	return fmt.Sprintf("invalid %s transition from %q to %q (allowed: %s)", e.Entity, e.Current, e.Proposed, allowed)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
