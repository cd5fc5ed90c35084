package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/routepeer-io/routepeer/internal/hub/core"
	"github.com/routepeer-io/routepeer/internal/hub/core/model"
	"github.com/routepeer-io/routepeer/pkg/log"
	"github.com/routepeer-io/routepeer/pkg/options"
)

var _ core.StatusNotifier = (*AMQPNotifier)(nil)

const publishTimeout = 5 * time.Second

// channel is the part of *amqp.Channel the notifier uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPNotifier publishes persistent messages on a topic exchange with the
// routing key "{entity}.{to}", e.g. "stop.delivered".
type AMQPNotifier struct {
	url      string
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   channel
}

// NewAMQPNotifier dials the broker and declares the exchange.
func NewAMQPNotifier(opts *options.AMQPOptions) (*AMQPNotifier, error) {
	n := &AMQPNotifier{url: opts.URL, exchange: opts.Exchange}
	if err := n.connect(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *AMQPNotifier) connect() error {
	conn, err := amqp.Dial(n.url)
	if err != nil {
		return fmt.Errorf("failed to dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(n.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", n.exchange, err)
	}
	n.conn, n.ch = conn, ch
	return nil
}

func RoutingKey(ev *model.StatusEvent) string {
	return ev.Entity + "." + ev.To
}

func (n *AMQPNotifier) Notify(ctx context.Context, ev *model.StatusEvent) error {
	body, err := Payload(ev)
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conn != nil && n.conn.IsClosed() {
		log.Warn("AMQP connection lost, redialing", "exchange", n.exchange)
		if err := n.connect(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return n.ch.PublishWithContext(ctx, n.exchange, RoutingKey(ev), false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    fmt.Sprintf("%s-%s-%s", ev.Entity, ev.ID, ev.To),
		Timestamp:    ev.At.UTC(),
		Body:         body,
		Headers: amqp.Table{
			"x-source": "rpeer-hub",
		},
	})
}

func (n *AMQPNotifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		_ = n.conn.Close()
	}
}
