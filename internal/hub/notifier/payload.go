package notifier

import (
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/routepeer-io/routepeer/internal/hub/core/model"
)

// Payload encodes ev as protojson. Both transports publish the same bytes.
func Payload(ev *model.StatusEvent) ([]byte, error) {
	fields := map[string]any{
		"entity": ev.Entity,
		"id":     ev.ID,
		"from":   ev.From,
		"to":     ev.To,
		"actor":  ev.Actor,
		"at":     ev.At.UTC().Format(time.RFC3339Nano),
	}
	if ev.RouteID != "" {
		fields["routeId"] = ev.RouteID
	}
	if ev.OrderID != "" {
		fields["orderId"] = ev.OrderID
	}

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return protojson.Marshal(s)
}
