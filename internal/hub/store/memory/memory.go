// Package memory is an in-process core.Repository for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/routepeer-io/routepeer/internal/hub/core"
	"github.com/routepeer-io/routepeer/internal/hub/core/model"
	"github.com/routepeer-io/routepeer/pkg/status"
)

var _ core.Repository = (*Store)(nil)

type state struct {
	routes    map[string]model.Route
	stops     map[string]model.Stop // key: route/stop
	orders    map[string]model.Order
	latest    map[string]model.Location
	history   []model.Location
	statusLog []model.StatusEvent
}

func (s *state) clone() *state {
	c := &state{
		routes:    make(map[string]model.Route, len(s.routes)),
		stops:     make(map[string]model.Stop, len(s.stops)),
		orders:    make(map[string]model.Order, len(s.orders)),
		latest:    make(map[string]model.Location, len(s.latest)),
		history:   append([]model.Location(nil), s.history...),
		statusLog: append([]model.StatusEvent(nil), s.statusLog...),
	}
	for k, v := range s.routes {
		c.routes[k] = v
	}
	for k, v := range s.stops {
		c.stops[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.latest {
		c.latest[k] = v
	}
	return c
}

// Store keeps everything in maps guarded by one mutex. Atomic works on a
// copy that replaces the state only when fn succeeds.
type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: &state{
		routes: map[string]model.Route{},
		stops:  map[string]model.Stop{},
		orders: map[string]model.Order{},
		latest: map[string]model.Location{},
	}}
}

func stopKey(routeID, stopID string) string { return routeID + "/" + stopID }

// PutRoute seeds a route.
func (s *Store) PutRoute(r model.Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.routes[r.ID] = r
}

// PutStop seeds a stop.
func (s *Store) PutStop(st model.Stop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.stops[stopKey(st.RouteID, st.ID)] = st
}

// PutOrder seeds an order.
func (s *Store) PutOrder(o model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.orders[o.ID] = o
}

// LatestLocation returns the last saved position of a driver.
func (s *Store) LatestLocation(driverID string) (model.Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, ok := s.st.latest[driverID]
	return loc, ok
}

// History returns every saved location.
func (s *Store) History() []model.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Location(nil), s.st.history...)
}

// StatusLog returns the logged status events in order.
func (s *Store) StatusLog() []model.StatusEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.StatusEvent(nil), s.st.statusLog...)
}

func (s *Store) GetRoute(_ context.Context, routeID string) (*model.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.st.routes[routeID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &r, nil
}

func (s *Store) ListStops(_ context.Context, routeID string) ([]*model.Stop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stops []*model.Stop
	for _, st := range s.st.stops {
		if st.RouteID == routeID {
			st := st
			stops = append(stops, &st)
		}
	}
	sort.Slice(stops, func(i, j int) bool { return stops[i].Sequence < stops[j].Sequence })
	return stops, nil
}

func (s *Store) GetStop(_ context.Context, routeID, stopID string) (*model.Stop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.getStop(routeID, stopID)
}

func (s *Store) GetOrder(_ context.Context, orderID string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.getOrder(orderID)
}

func (s *Store) SetStopPhoto(_ context.Context, routeID, stopID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.st.stops[stopKey(routeID, stopID)]
	if !ok {
		return core.ErrNotFound
	}
	st.PhotoKey = key
	s.st.stops[stopKey(routeID, stopID)] = st
	return nil
}

func (s *Store) SaveLocation(_ context.Context, loc *model.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.latest[loc.DriverID] = *loc
	s.st.history = append(s.st.history, *loc)
	return nil
}

func (s *Store) Atomic(ctx context.Context, fn func(tx core.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(&tx{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (st *state) getStop(routeID, stopID string) (*model.Stop, error) {
	v, ok := st.stops[stopKey(routeID, stopID)]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &v, nil
}

func (st *state) getOrder(orderID string) (*model.Order, error) {
	v, ok := st.orders[orderID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &v, nil
}

type tx struct {
	st *state
}

func (t *tx) GetStop(_ context.Context, routeID, stopID string) (*model.Stop, error) {
	return t.st.getStop(routeID, stopID)
}

func (t *tx) GetOrder(_ context.Context, orderID string) (*model.Order, error) {
	return t.st.getOrder(orderID)
}

func (t *tx) UpdateStop(_ context.Context, s *model.Stop, from status.StopStatus) error {
	k := stopKey(s.RouteID, s.ID)
	cur, ok := t.st.stops[k]
	if !ok {
		return core.ErrNotFound
	}
	if cur.Status != from {
		return fmt.Errorf("%w: stop %s is %s, expected %s", core.ErrConflict, s.ID, cur.Status, from)
	}
	t.st.stops[k] = *s
	return nil
}

func (t *tx) UpdateOrder(_ context.Context, o *model.Order, from status.OrderStatus) error {
	cur, ok := t.st.orders[o.ID]
	if !ok {
		return core.ErrNotFound
	}
	if cur.Status != from {
		return fmt.Errorf("%w: order %s is %s, expected %s", core.ErrConflict, o.ID, cur.Status, from)
	}
	t.st.orders[o.ID] = *o
	return nil
}

func (t *tx) IncrementCompletedStops(_ context.Context, routeID string) error {
	r, ok := t.st.routes[routeID]
	if !ok {
		return core.ErrNotFound
	}
	r.CompletedStops++
	t.st.routes[routeID] = r
	return nil
}

func (t *tx) LogStatus(_ context.Context, ev *model.StatusEvent) error {
	t.st.statusLog = append(t.st.statusLog, *ev)
	return nil
}
