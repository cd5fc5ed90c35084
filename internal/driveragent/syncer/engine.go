package syncer

import (
	"context"
	"fmt"
	"sync/atomic"

	"k8s.io/utils/clock"

	"github.com/routepeer-io/routepeer/internal/driveragent/queue"
	"github.com/routepeer-io/routepeer/internal/driveragent/remote"
	"github.com/routepeer-io/routepeer/internal/pkg/metrics"
	v1 "github.com/routepeer-io/routepeer/pkg/apis/delivery/v1"
	"github.com/routepeer-io/routepeer/pkg/log"
)

// Engine drains the pending queue into the hub.
type Engine struct {
	config Config
	store  Store
	remote Remote
	clock  clock.PassiveClock
	log    log.Logger

	running atomic.Bool
}

type Option func(*Engine)

func WithClock(c clock.PassiveClock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithLogger(l log.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates an engine with the specified configuration.
func NewEngine(config Config, store Store, r Remote, opts ...Option) (*Engine, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	if store == nil || r == nil {
		return nil, fmt.Errorf("sync engine needs a store and a remote")
	}

	e := &Engine{
		config: config,
		store:  store,
		remote: r,
		clock:  clock.RealClock{},
		log:    log.WithName("syncer"),
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Running reports whether a pass is in progress.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// SyncNow runs one pass: status updates, then photos, then locations, each
// kind in queue order. A failing item never stops the pass.
//
// A call made while another pass runs returns at once with Skipped set.
// The error is non-nil only when the queue cannot be listed.
func (e *Engine) SyncNow(ctx context.Context) (SyncResult, error) {
	if !e.running.CompareAndSwap(false, true) {
		metrics.SyncPassesTotal.WithLabelValues("skipped").Inc()
		return SyncResult{Skipped: true}, nil
	}
	defer e.running.Store(false)

	p := &pass{Engine: e, res: SyncResult{StartedAt: e.clock.Now()}}
	err := p.run(ctx)
	p.res.Duration = e.clock.Since(p.res.StartedAt)

	metrics.SyncDuration.Observe(p.res.Duration.Seconds())
	if p.res.Errors == nil && err == nil {
		metrics.SyncPassesTotal.WithLabelValues("clean").Inc()
	} else {
		metrics.SyncPassesTotal.WithLabelValues("partial").Inc()
	}

	e.log.Info("Sync pass finished",
		"status", p.res.StatusSynced,
		"photos", p.res.PhotosSynced,
		"locations", p.res.LocationsSynced,
		"dropped", p.res.LocationsDropped,
		"rejected", p.res.Rejected,
		"errors", len(p.res.Errors),
		"duration", p.res.Duration,
	)
	return p.res, err
}

// pass holds the state of one SyncNow call.
type pass struct {
	*Engine
	res SyncResult
}

func (p *pass) run(ctx context.Context) error {
	for _, kind := range queue.Kinds {
		if ctx.Err() != nil {
			p.log.Info("Sync pass interrupted, remaining items stay queued", "kind", kind)
			return nil
		}

		items, err := p.store.GetAll(ctx, kind)
		if err != nil {
			return fmt.Errorf("list pending %s items: %w", kind, err)
		}

		switch kind {
		case queue.KindStatus:
			p.syncStatus(ctx, items)
		case queue.KindPhoto:
			p.syncPhotos(ctx, items)
		case queue.KindLocation:
			p.syncLocations(ctx, items)
		}
	}
	return nil
}

func (p *pass) syncStatus(ctx context.Context, items []*queue.PendingItem) {
	for _, it := range items {
		if ctx.Err() != nil {
			return
		}
		_, err := p.remote.UpdateStopStatus(ctx, it.RouteID, it.StopID, it.Status.Status, it.Status.DeliveryNotes)
		if p.settle(ctx, it, err) {
			p.res.StatusSynced++
		}
	}
}

func (p *pass) syncPhotos(ctx context.Context, items []*queue.PendingItem) {
	for _, it := range items {
		if ctx.Err() != nil {
			return
		}
		_, err := p.remote.UploadPhoto(ctx, it.RouteID, it.StopID, it.Photo.ContentType, it.Photo.Data)
		if p.settle(ctx, it, err) {
			p.res.PhotosSynced++
		}
	}
}

func (p *pass) syncLocations(ctx context.Context, items []*queue.PendingItem) {
	now := p.clock.Now()
	for i, it := range items {
		if ctx.Err() != nil {
			return
		}

		if p.config.LocationMaxAge > 0 && it.Age(now) > p.config.LocationMaxAge {
			if err := p.store.Remove(ctx, it.Kind, it.ID); err != nil {
				p.log.Error(err, "Failed to drop stale location ping", "id", it.ID)
				continue
			}
			p.res.LocationsDropped++
			metrics.SyncItemsTotal.WithLabelValues(string(it.Kind), "dropped").Inc()
			continue
		}

		err := p.remote.SendLocation(ctx, v1.LocationPing{
			Latitude:   it.Location.Latitude,
			Longitude:  it.Location.Longitude,
			Accuracy:   it.Location.Accuracy,
			Heading:    it.Location.Heading,
			Speed:      it.Location.Speed,
			RouteID:    it.RouteID,
			RecordedAt: it.CreatedAt,
		})
		if remote.IsRateLimited(err) {
			// Pings behind this one would be refused too.
			left := len(items) - i
			p.res.Errors = append(p.res.Errors, fmt.Sprintf("location: hub rate limit reached, %d ping(s) left queued", left))
			metrics.SyncItemsTotal.WithLabelValues(string(it.Kind), "failed").Add(float64(left))
			return
		}
		if p.settle(ctx, it, err) {
			p.res.LocationsSynced++
		}
	}
}

// settle applies the outcome of one remote call to the queue and reports
// whether the item was synced.
func (p *pass) settle(ctx context.Context, it *queue.PendingItem, err error) bool {
	kind := string(it.Kind)

	switch {
	case err == nil:
		if rmErr := p.store.Remove(ctx, it.Kind, it.ID); rmErr != nil {
			// The hub has it; a resend is harmless.
			p.log.Error(rmErr, "Failed to remove synced item", "kind", kind, "id", it.ID)
		}
		metrics.SyncItemsTotal.WithLabelValues(kind, "synced").Inc()
		return true

	case remote.IsRejected(err):
		reason := err.Error()
		if rjErr := p.store.Reject(ctx, it, reason); rjErr != nil {
			p.log.Error(rjErr, "Failed to dead-letter rejected item", "kind", kind, "id", it.ID)
		}
		p.res.Rejected++
		p.res.Errors = append(p.res.Errors, fmt.Sprintf("rejected: %s: %s", describe(it), reason))
		metrics.SyncItemsTotal.WithLabelValues(kind, "rejected").Inc()
		return false

	default:
		p.res.Errors = append(p.res.Errors, fmt.Sprintf("%s: %v", describe(it), err))
		metrics.SyncItemsTotal.WithLabelValues(kind, "failed").Inc()
		p.log.Debug("Item left queued", "kind", kind, "id", it.ID, "err", err)
		return false
	}
}

func describe(it *queue.PendingItem) string {
	switch it.Kind {
	case queue.KindStatus:
		return fmt.Sprintf("status %s/%s -> %s", it.RouteID, it.StopID, it.Status.Status)
	case queue.KindPhoto:
		return fmt.Sprintf("photo %s/%s", it.RouteID, it.StopID)
	case queue.KindLocation:
		return fmt.Sprintf("location %s", it.ID)
	}
	return string(it.Kind) + " " + it.ID
}
