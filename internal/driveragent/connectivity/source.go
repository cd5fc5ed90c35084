// Package connectivity tells the driver agent whether the hub is reachable.
package connectivity

import (
	"context"
)

// Notify is called with the new state on every change. The first call
// reports the initial state.
type Notify func(online bool)

// Source watches one connectivity signal until ctx is done.
type Source interface {
	Run(ctx context.Context, notify Notify) error
}

// edge forwards only changes of state.
type edge struct {
	notify Notify
	known  bool
	last   bool
}

func (e *edge) set(online bool) {
	if e.known && e.last == online {
		return
	}
	e.known, e.last = true, online
	e.notify(online)
}
