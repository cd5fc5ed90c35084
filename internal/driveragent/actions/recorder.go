// Package actions records what the driver does. Every action is applied to
// a local projection of the route and queued for the hub, online or not.
package actions

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/routepeer-io/routepeer/internal/driveragent/queue"
	"github.com/routepeer-io/routepeer/internal/pkg/metrics"
	v1 "github.com/routepeer-io/routepeer/pkg/apis/delivery/v1"
	"github.com/routepeer-io/routepeer/pkg/log"
	"github.com/routepeer-io/routepeer/pkg/status"
)

// ErrInvalidInput is wrapped by errors about malformed actions.
var ErrInvalidInput = errors.New("invalid action")

// Queue is where actions wait for the hub.
type Queue interface {
	AddStatus(ctx context.Context, routeID, stopID string, u queue.StatusUpdate) (*queue.PendingItem, error)
	AddPhoto(ctx context.Context, routeID, stopID string, p queue.Photo) (*queue.PendingItem, error)
	AddLocation(ctx context.Context, routeID string, l queue.LocationPing) (*queue.PendingItem, error)
	GetAll(ctx context.Context, kinds ...queue.Kind) ([]*queue.PendingItem, error)
}

// StopLister reads the hub's view of a route.
type StopLister interface {
	ListStops(ctx context.Context, routeID string) (*v1.StopList, error)
}

// Nudger is told that something was queued.
type Nudger interface {
	Nudge()
}

type stopKey struct{ route, stop string }

// Recorder turns driver actions into queued items.
type Recorder struct {
	queue  Queue
	lister StopLister
	nudger Nudger
	log    log.Logger

	mu    sync.RWMutex
	stops map[stopKey]status.StopStatus
}

type Option func(*Recorder)

func WithNudger(n Nudger) Option {
	return func(r *Recorder) { r.nudger = n }
}

func WithStopLister(l StopLister) Option {
	return func(r *Recorder) { r.lister = l }
}

func WithLogger(l log.Logger) Option {
	return func(r *Recorder) { r.log = l }
}

func NewRecorder(q Queue, opts ...Option) *Recorder {
	r := &Recorder{
		queue: q,
		log:   log.WithName("actions"),
		stops: make(map[stopKey]status.StopStatus),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// MarkStop moves a stop to next. When the stop's current state is known the
// transition is checked first and a *status.TransitionError is returned for
// an illegal one. Queue failures are logged only.
func (r *Recorder) MarkStop(ctx context.Context, routeID, stopID string, next status.StopStatus, notes string) error {
	if routeID == "" || stopID == "" {
		return fmt.Errorf("%w: route and stop are required", ErrInvalidInput)
	}
	if !next.Valid() {
		return fmt.Errorf("%w: unknown stop status %q", ErrInvalidInput, next)
	}

	key := stopKey{routeID, stopID}
	r.mu.Lock()
	if cur, ok := r.stops[key]; ok {
		if err := status.ValidateStopTransition(cur, next); err != nil {
			r.mu.Unlock()
			return err
		}
	}
	r.stops[key] = next
	r.mu.Unlock()

	_, err := r.queue.AddStatus(ctx, routeID, stopID, queue.StatusUpdate{Status: next, DeliveryNotes: notes})
	r.enqueued(err, queue.KindStatus, "route", routeID, "stop", stopID, "status", next)
	return nil
}

// AttachPhoto queues a proof-of-delivery photo.
func (r *Recorder) AttachPhoto(ctx context.Context, routeID, stopID, contentType string, data []byte) error {
	if routeID == "" || stopID == "" {
		return fmt.Errorf("%w: route and stop are required", ErrInvalidInput)
	}
	if _, ok := v1.PhotoExtension(contentType); !ok {
		return fmt.Errorf("%w: unsupported photo content type %q", ErrInvalidInput, contentType)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: photo is empty", ErrInvalidInput)
	}

	_, err := r.queue.AddPhoto(ctx, routeID, stopID, queue.Photo{ContentType: contentType, Data: data})
	r.enqueued(err, queue.KindPhoto, "route", routeID, "stop", stopID, "bytes", len(data))
	return nil
}

// RecordLocation queues a position fix. routeID may be empty between routes.
func (r *Recorder) RecordLocation(ctx context.Context, routeID string, ping queue.LocationPing) error {
	if ping.Latitude < -90 || ping.Latitude > 90 || ping.Longitude < -180 || ping.Longitude > 180 {
		return fmt.Errorf("%w: coordinates out of range (%f, %f)", ErrInvalidInput, ping.Latitude, ping.Longitude)
	}
	if ping.Accuracy < 0 {
		return fmt.Errorf("%w: negative accuracy", ErrInvalidInput)
	}

	_, err := r.queue.AddLocation(ctx, routeID, ping)
	r.enqueued(err, queue.KindLocation, "route", routeID)
	return nil
}

func (r *Recorder) enqueued(err error, kind queue.Kind, keysAndValues ...any) {
	if err != nil {
		metrics.QueueWriteFailuresTotal.Inc()
		r.log.Error(err, "Failed to queue driver action, it will not reach the hub", append([]any{"kind", kind}, keysAndValues...)...)
		return
	}
	if r.nudger != nil {
		r.nudger.Nudge()
	}
}

// StopStatus returns the locally known state of a stop.
func (r *Recorder) StopStatus(routeID, stopID string) (status.StopStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.stops[stopKey{routeID, stopID}]
	return st, ok
}

// RefreshProjection loads the hub's stop states for routeID, then replays
// the status updates still queued for it so unsynced work is not undone.
// The queue is read first: an update synced while the hub is being asked is
// then either in the hub's list or replayed, never lost.
func (r *Recorder) RefreshProjection(ctx context.Context, routeID string) error {
	if r.lister == nil {
		return nil
	}

	pending, err := r.queue.GetAll(ctx, queue.KindStatus)
	if err != nil {
		return fmt.Errorf("list pending status updates: %w", err)
	}
	list, err := r.lister.ListStops(ctx, routeID)
	if err != nil {
		return fmt.Errorf("list stops of route %s: %w", routeID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range list.Stops {
		r.stops[stopKey{routeID, s.ID}] = s.Status
	}
	for _, it := range pending {
		if it.RouteID == routeID {
			r.stops[stopKey{routeID, it.StopID}] = it.Status.Status
		}
	}

	r.log.Debug("Route projection refreshed", "route", routeID, "stops", len(list.Stops))
	return nil
}
