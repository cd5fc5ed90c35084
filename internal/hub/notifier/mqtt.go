package notifier

import (
	"context"
	"fmt"

	"github.com/routepeer-io/routepeer/internal/hub/core"
	"github.com/routepeer-io/routepeer/internal/hub/core/model"
	pkgmqtt "github.com/routepeer-io/routepeer/pkg/mqtt"
	"github.com/routepeer-io/routepeer/pkg/mqtt/topic"
	"github.com/routepeer-io/routepeer/pkg/options"
	"github.com/routepeer-io/routepeer/pkg/status"
)

var _ core.StatusNotifier = (*MQTTNotifier)(nil)

type MQTTNotifier struct {
	client pkgmqtt.Client
	topics *topic.TopicBuilder
}

// NewMQTTNotifier starts a dedicated egress client. Start does not wait for
// the broker, so the hub comes up while it is still unreachable.
func NewMQTTNotifier(ctx context.Context, opts *options.MqttOptions) (*MQTTNotifier, error) {
	cfg := opts.ToClientConfig()
	cfg.ClientID = opts.ClientID + "-notifier"

	client, err := pkgmqtt.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if err := client.Start(ctx); err != nil {
		return nil, err
	}
	return NewMQTTNotifierWithClient(client, opts.TopicRoot), nil
}

func NewMQTTNotifierWithClient(client pkgmqtt.Client, topicRoot string) *MQTTNotifier {
	return &MQTTNotifier{client: client, topics: topic.NewTopicBuilder(topicRoot)}
}

// Notify publishes stop events on the route topic and order events on the
// order topic, at QoS 1.
func (n *MQTTNotifier) Notify(ctx context.Context, ev *model.StatusEvent) error {
	var t string
	switch ev.Entity {
	case status.EntityStop:
		t = n.topics.RouteStatus(ev.RouteID)
	case status.EntityOrder:
		t = n.topics.OrderStatus(ev.ID)
	default:
		return fmt.Errorf("unknown entity %q", ev.Entity)
	}

	payload, err := Payload(ev)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, t, 1, false, payload)
}

func (n *MQTTNotifier) Close(ctx context.Context) {
	n.client.Disconnect(ctx)
}
