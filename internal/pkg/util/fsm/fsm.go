package fsm

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
)

// WrapEvent adapts an error returning callback; the error surfaces from FSM.Event.
func WrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Err = err
		}
	}
}

// Arg returns the i-th event argument as T.
func Arg[T any](e *fsm.Event, i int) (T, error) {
	var zero T
	if i >= len(e.Args) {
		return zero, fmt.Errorf("event %s: missing argument %d", e.Event, i)
	}
	v, ok := e.Args[i].(T)
	if !ok {
		return zero, fmt.Errorf("event %s: argument %d is %T, want %T", e.Event, i, e.Args[i], zero)
	}
	return v, nil
}
