// Package notifier announces committed status changes to listeners outside
// the hub.
package notifier

import (
	"context"
	"errors"

	"github.com/routepeer-io/routepeer/internal/hub/core"
	"github.com/routepeer-io/routepeer/internal/hub/core/model"
)

var (
	_ core.StatusNotifier = Nop{}
	_ core.StatusNotifier = Multi(nil)
)

// Nop drops every event. Used when no transport is enabled.
type Nop struct{}

func (Nop) Notify(context.Context, *model.StatusEvent) error { return nil }

// Multi sends each event to every notifier and joins their errors.
type Multi []core.StatusNotifier

func (m Multi) Notify(ctx context.Context, ev *model.StatusEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Combine returns Nop for no notifiers, the notifier itself for one, and a
// Multi otherwise.
func Combine(ns ...core.StatusNotifier) core.StatusNotifier {
	switch len(ns) {
	case 0:
		return Nop{}
	case 1:
		return ns[0]
	default:
		return Multi(ns)
	}
}
