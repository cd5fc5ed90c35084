package connectivity

import (
	"context"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/routepeer-io/routepeer/pkg/log"
	"github.com/routepeer-io/routepeer/pkg/mqtt"
)

var _ Source = (*Broker)(nil)

// Broker follows the MQTT session of the agent. While connected it keeps a
// retained presence message for the driver; the client's will clears it
// when the session drops unexpectedly.
type Broker struct {
	client        mqtt.Client
	driverID      string
	presenceTopic string
}

func NewBroker(client mqtt.Client, driverID, presenceTopic string) *Broker {
	return &Broker{client: client, driverID: driverID, presenceTopic: presenceTopic}
}

func (b *Broker) Run(ctx context.Context, notify Notify) error {
	logger := log.WithName("mqtt-connectivity")

	if err := b.client.Start(ctx); err != nil {
		return err
	}

	// Called from paho callbacks, which must not block. A consumer that falls
	// behind sees only the newest state.
	latest := newLatestState()
	stop := b.client.WatchConnection(latest.set)
	defer stop()

	e := &edge{notify: notify}
	for {
		select {
		case <-ctx.Done():
			b.shutdown()
			return nil
		case <-latest.changed:
			up := latest.get()
			logger.Debug("MQTT session state", "connected", up)
			if up {
				b.publishPresence(ctx, true, "Connected")
			}
			e.set(up)
		}
	}
}

// latestState holds the last reported connection state and signals changes
// without queueing them.
type latestState struct {
	mu      sync.Mutex
	value   bool
	changed chan struct{}
}

func newLatestState() *latestState {
	return &latestState{changed: make(chan struct{}, 1)}
}

func (l *latestState) set(connected bool) {
	l.mu.Lock()
	l.value = connected
	l.mu.Unlock()

	select {
	case l.changed <- struct{}{}:
	default:
	}
}

func (l *latestState) get() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value
}

func (b *Broker) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if b.client.IsConnected() {
		b.publishPresence(ctx, false, "Shutdown")
	}
	b.client.Disconnect(ctx)
}

func (b *Broker) publishPresence(ctx context.Context, online bool, reason string) {
	if b.presenceTopic == "" {
		return
	}
	if err := b.client.Publish(ctx, b.presenceTopic, 1, true, PresencePayload(b.driverID, online, reason)); err != nil {
		log.Error(err, "Failed to publish presence", "online", online)
	}
}

// PresencePayload encodes the presence message. It carries no timestamp:
// listeners use the broker's receive time, which stays correct for a will.
func PresencePayload(driverID string, online bool, reason string) []byte {
	s, err := structpb.NewStruct(map[string]any{
		"driverId": driverID,
		"online":   online,
		"reason":   reason,
	})
	if err != nil {
		return nil
	}
	b, _ := protojson.Marshal(s)
	return b
}
