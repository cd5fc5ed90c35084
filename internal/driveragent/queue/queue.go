package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"k8s.io/utils/clock"

	"github.com/routepeer-io/routepeer/pkg/log"
)

// ErrClosed is returned by a backend after Close.
var ErrClosed = errors.New("queue backend is closed")

// Queue is the driver's pending item queue.
//
// An item leaves the queue only through Remove or Reject, both called after a
// hub response. A crash between Add and Remove leaves the item in place.
type Queue struct {
	backend Backend
	clock   clock.PassiveClock
	log     log.Logger
}

type Option func(*Queue)

func WithClock(c clock.PassiveClock) Option {
	return func(q *Queue) { q.clock = c }
}

func WithLogger(l log.Logger) Option {
	return func(q *Queue) { q.log = l }
}

func New(backend Backend, opts ...Option) *Queue {
	q := &Queue{
		backend: backend,
		clock:   clock.RealClock{},
		log:     log.WithName("queue"),
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Add persists item. A missing ID or CreatedAt is filled in.
func (q *Queue) Add(ctx context.Context, item *PendingItem) error {
	if item != nil {
		if item.ID == "" {
			id, err := NewID()
			if err != nil {
				return fmt.Errorf("generate item id: %w", err)
			}
			item.ID = id
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = q.clock.Now().UTC()
		}
	}
	if err := item.validate(); err != nil {
		return err
	}

	rec, err := encodeItem(item)
	if err != nil {
		return err
	}
	if err := q.backend.Put(ctx, item.Kind.Table(), rec); err != nil {
		return fmt.Errorf("enqueue %s item %s: %w", item.Kind, item.ID, err)
	}

	q.log.Debug("Queued item", "kind", item.Kind, "id", item.ID, "route", item.RouteID, "stop", item.StopID)
	return nil
}

// AddStatus queues a stop status change.
func (q *Queue) AddStatus(ctx context.Context, routeID, stopID string, u StatusUpdate) (*PendingItem, error) {
	it := &PendingItem{Kind: KindStatus, RouteID: routeID, StopID: stopID, Status: &u}
	return it, q.Add(ctx, it)
}

// AddPhoto queues a proof of delivery photo.
func (q *Queue) AddPhoto(ctx context.Context, routeID, stopID string, p Photo) (*PendingItem, error) {
	it := &PendingItem{Kind: KindPhoto, RouteID: routeID, StopID: stopID, Photo: &p}
	return it, q.Add(ctx, it)
}

// AddLocation queues a GPS fix. routeID may be empty.
func (q *Queue) AddLocation(ctx context.Context, routeID string, l LocationPing) (*PendingItem, error) {
	it := &PendingItem{Kind: KindLocation, RouteID: routeID, Location: &l}
	return it, q.Add(ctx, it)
}

// GetAll returns queued items of the given kinds (all kinds when none are given)
// by ascending CreatedAt.
func (q *Queue) GetAll(ctx context.Context, kinds ...Kind) ([]*PendingItem, error) {
	if len(kinds) == 0 {
		kinds = Kinds
	}

	var items []*PendingItem
	for _, k := range kinds {
		if !k.Valid() {
			return nil, fmt.Errorf("unknown pending item kind %q", k)
		}
		recs, err := q.backend.GetAll(ctx, k.Table())
		if err != nil {
			return nil, fmt.Errorf("list %s items: %w", k, err)
		}
		for _, rec := range recs {
			it, err := decodeItem(rec)
			if err != nil {
				return nil, fmt.Errorf("decode %s item %s: %w", k, rec.ID, err)
			}
			items = append(items, it)
		}
	}

	if len(kinds) > 1 {
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		})
	}
	return items, nil
}

// Remove deletes an item after the hub acknowledged it. Unknown ids are a no-op.
func (q *Queue) Remove(ctx context.Context, kind Kind, id string) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown pending item kind %q", kind)
	}
	return q.backend.Delete(ctx, kind.Table(), id)
}

// Count returns the pending items per kind.
func (q *Queue) Count(ctx context.Context) (Counts, error) {
	var c Counts
	for _, k := range Kinds {
		n, err := q.backend.Count(ctx, k.Table())
		if err != nil {
			return Counts{}, fmt.Errorf("count %s items: %w", k, err)
		}
		switch k {
		case KindStatus:
			c.Status = n
		case KindPhoto:
			c.Photo = n
		case KindLocation:
			c.Location = n
		}
	}
	return c, nil
}

// Reject moves item to the dead letter table. The dead letter is written
// before the pending row is deleted, so a crash in between duplicates rather
// than loses the item.
func (q *Queue) Reject(ctx context.Context, item *PendingItem, reason string) error {
	dl := &RejectedItem{Item: item, Reason: reason, RejectedAt: q.clock.Now().UTC()}
	rec, err := encodeRejected(dl)
	if err != nil {
		return err
	}
	if err := q.backend.Put(ctx, TableRejected, rec); err != nil {
		return fmt.Errorf("store rejected item %s: %w", item.ID, err)
	}
	if err := q.Remove(ctx, item.Kind, item.ID); err != nil {
		return fmt.Errorf("remove rejected item %s: %w", item.ID, err)
	}

	q.log.Warn("Item rejected by hub", "kind", item.Kind, "id", item.ID, "reason", reason)
	return nil
}

// Rejected lists dead letters, oldest rejection first.
func (q *Queue) Rejected(ctx context.Context) ([]*RejectedItem, error) {
	recs, err := q.backend.GetAll(ctx, TableRejected)
	if err != nil {
		return nil, err
	}
	out := make([]*RejectedItem, 0, len(recs))
	for _, rec := range recs {
		dl, err := decodeRejected(rec)
		if err != nil {
			return nil, fmt.Errorf("decode rejected item %s: %w", rec.ID, err)
		}
		out = append(out, dl)
	}
	return out, nil
}

// CountRejected returns the number of dead letters.
func (q *Queue) CountRejected(ctx context.Context) (int, error) {
	return q.backend.Count(ctx, TableRejected)
}

// Close releases the backend.
func (q *Queue) Close() error {
	return q.backend.Close()
}

func encodeItem(it *PendingItem) (Record, error) {
	meta, err := json.Marshal(it)
	if err != nil {
		return Record{}, err
	}
	rec := Record{ID: it.ID, CreatedAt: it.CreatedAt, Meta: meta}
	if it.Photo != nil {
		rec.Blob = it.Photo.Data
	}
	return rec, nil
}

func decodeItem(rec Record) (*PendingItem, error) {
	var it PendingItem
	if err := json.Unmarshal(rec.Meta, &it); err != nil {
		return nil, err
	}
	if it.Photo != nil {
		it.Photo.Data = rec.Blob
	}
	return &it, nil
}

// Dead letters are ordered by rejection time.
func encodeRejected(dl *RejectedItem) (Record, error) {
	meta, err := json.Marshal(dl)
	if err != nil {
		return Record{}, err
	}
	rec := Record{ID: dl.Item.ID, CreatedAt: dl.RejectedAt, Meta: meta}
	if dl.Item.Photo != nil {
		rec.Blob = dl.Item.Photo.Data
	}
	return rec, nil
}

func decodeRejected(rec Record) (*RejectedItem, error) {
	var dl RejectedItem
	if err := json.Unmarshal(rec.Meta, &dl); err != nil {
		return nil, err
	}
	if dl.Item == nil {
		return nil, errors.New("dead letter without item")
	}
	if dl.Item.Photo != nil {
		dl.Item.Photo.Data = rec.Blob
	}
	return &dl, nil
}

// Age returns how long ago the item was created.
func (it *PendingItem) Age(now time.Time) time.Duration {
	return now.Sub(it.CreatedAt)
}
