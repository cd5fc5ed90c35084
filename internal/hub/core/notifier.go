package core

import (
	"context"

	"github.com/routepeer-io/routepeer/internal/hub/core/model"
)

// StatusNotifier announces committed status changes. In Routepeer, this is
// implemented by the MQTT or AMQP outbound adapter.
type StatusNotifier interface {
	Notify(ctx context.Context, ev *model.StatusEvent) error
}
