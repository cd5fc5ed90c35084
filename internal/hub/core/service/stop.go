package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/routepeer-io/routepeer/internal/hub/core"
	"github.com/routepeer-io/routepeer/internal/hub/core/model"
	"github.com/routepeer-io/routepeer/internal/pkg/auth"
	"github.com/routepeer-io/routepeer/internal/pkg/metrics"
	"github.com/routepeer-io/routepeer/pkg/status"
)

// StopUpdate is the outcome of UpdateStopStatus.
type StopUpdate struct {
	Stop *model.Stop
	// Unchanged is set when the stop already had the requested status.
	Unchanged bool
}

// UpdateStopStatus moves a stop to next.
// Flow:
// 1. Check the route belongs to the caller.
// 2. In one transaction: lock the stop, apply the stop machine, write it
// guarded by the previous status, bump the route counter on a terminal
// status and deliver the linked order if it is out for delivery.
// 3. After commit, announce every change.
//
// Requesting the current status is an idempotent success, so an agent
// that lost the first response can replay safely.
func (s *Service) UpdateStopStatus(ctx context.Context, routeID, stopID string, next status.StopStatus, notes string) (*StopUpdate, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown stop status %q", core.ErrInvalidArgument, next)
	}
	_, p, err := s.routeFor(ctx, routeID)
	if err != nil {
		return nil, err
	}

	var (
		out    StopUpdate
		events []*model.StatusEvent
	)
	err = s.repo.Atomic(ctx, func(tx core.Tx) error {
		events = events[:0]

		stop, err := tx.GetStop(ctx, routeID, stopID)
		if err != nil {
			return fmt.Errorf("stop %s/%s: %w", routeID, stopID, err)
		}
		out.Stop = stop
		if stop.Status == next {
			out.Unchanged = true
			return nil
		}

		prev := stop.Status
		m, err := status.NewStopMachine(prev, status.WithClock(s.clock))
		if err != nil {
			return err
		}
		times := stop.Times()
		if err := m.Apply(ctx, next, &times); err != nil {
			return err
		}
		now := s.clock.Now()
		stop.Status = next
		stop.SetTimes(times)
		stop.UpdatedAt = now
		if notes != "" {
			stop.Notes = notes
		}

		if err := tx.UpdateStop(ctx, stop, prev); err != nil {
			return err
		}
		ev := &model.StatusEvent{
			Entity: status.EntityStop, ID: stop.ID, RouteID: routeID, OrderID: stop.OrderID,
			From: string(prev), To: string(next), Actor: p.Name, At: now,
		}
		events = append(events, ev)

		if next.IsTerminal() {
			if err := tx.IncrementCompletedStops(ctx, routeID); err != nil {
				return err
			}
		}

		if next == status.StopDelivered && stop.OrderID != "" {
			ev, err := s.deliverOrder(ctx, tx, p, stop)
			if err != nil {
				return err
			}
			if ev != nil {
				events = append(events, ev)
			}
		}

		for _, ev := range events {
			if err := tx.LogStatus(ctx, ev); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, status.ErrInvalidTransition) {
			metrics.RejectedTransitionsTotal.WithLabelValues(status.EntityStop).Inc()
		}
		return nil, err
	}

	s.publish(ctx, events)
	return &out, nil
}

// deliverOrder moves the order linked to a delivered stop along, if it is
// out for delivery. Any other order state is left as is.
func (s *Service) deliverOrder(ctx context.Context, tx core.Tx, p *auth.Principal, stop *model.Stop) (*model.StatusEvent, error) {
	order, err := tx.GetOrder(ctx, stop.OrderID)
	if errors.Is(err, core.ErrNotFound) {
		s.log.Warn("Delivered stop links a missing order", "stop", stop.ID, "order", stop.OrderID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if order.Status != status.OrderOutForDelivery {
		return nil, nil
	}

	prev := order.Status
	if err := s.applyOrder(ctx, order, status.OrderDelivered); err != nil {
		return nil, err
	}
	if err := tx.UpdateOrder(ctx, order, prev); err != nil {
		return nil, err
	}
	return &model.StatusEvent{
		Entity: status.EntityOrder, ID: order.ID, RouteID: stop.RouteID, OrderID: order.ID,
		From: string(prev), To: string(order.Status), Actor: p.Name, At: order.UpdatedAt,
	}, nil
}

// ListStops returns the route and its stops by sequence.
func (s *Service) ListStops(ctx context.Context, routeID string) (*model.Route, []*model.Stop, error) {
	route, _, err := s.routeFor(ctx, routeID)
	if err != nil {
		return nil, nil, err
	}
	stops, err := s.repo.ListStops(ctx, routeID)
	if err != nil {
		return nil, nil, fmt.Errorf("list stops of route %s: %w", routeID, err)
	}
	return route, stops, nil
}

func (s *Service) publish(ctx context.Context, events []*model.StatusEvent) {
	for _, ev := range events {
		metrics.TransitionsTotal.WithLabelValues(ev.Entity, ev.To).Inc()
		// The change is committed; a lost notification is logged only.
		if err := s.notifier.Notify(ctx, ev); err != nil {
			s.log.Error(err, "Failed to notify status change", "entity", ev.Entity, "id", ev.ID, "to", ev.To)
		}
	}
}
