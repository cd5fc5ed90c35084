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

// OrderUpdate is the outcome of UpdateOrderStatus.
type OrderUpdate struct {
	Order     *model.Order
	Unchanged bool
}

// UpdateOrderStatus moves an order to next. Only admins may call it.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, next status.OrderStatus) (*OrderUpdate, error) {
	p, err := auth.RequireKind(ctx, auth.KindAdmin)
	if err != nil {
		return nil, err
	}
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown order status %q", core.ErrInvalidArgument, next)
	}

	var (
		out OrderUpdate
		ev  *model.StatusEvent
	)
	err = s.repo.Atomic(ctx, func(tx core.Tx) error {
		ev = nil

		order, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("order %s: %w", orderID, err)
		}
		out.Order = order
		if order.Status == next {
			out.Unchanged = true
			return nil
		}

		prev := order.Status
		if err := s.applyOrder(ctx, order, next); err != nil {
			return err
		}
		if err := tx.UpdateOrder(ctx, order, prev); err != nil {
			return err
		}
		ev = &model.StatusEvent{
			Entity: status.EntityOrder, ID: order.ID, OrderID: order.ID,
			From: string(prev), To: string(next), Actor: p.Name, At: order.UpdatedAt,
		}
		return tx.LogStatus(ctx, ev)
	})
	if err != nil {
		if errors.Is(err, status.ErrInvalidTransition) {
			metrics.RejectedTransitionsTotal.WithLabelValues(status.EntityOrder).Inc()
		}
		return nil, err
	}

	if ev != nil {
		s.publish(ctx, []*model.StatusEvent{ev})
	}
	return &out, nil
}

// GetOrder returns an order to any authenticated principal.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", orderID, err)
	}
	return order, nil
}

// applyOrder runs the order machine on order in memory.
func (s *Service) applyOrder(ctx context.Context, order *model.Order, next status.OrderStatus) error {
	m, err := status.NewOrderMachine(order.Status, status.WithClock(s.clock))
	if err != nil {
		return err
	}
	times := order.Times()
	if err := m.Apply(ctx, next, &times); err != nil {
		return err
	}
	order.Status = next
	order.SetTimes(times)
	order.UpdatedAt = s.clock.Now()
	return nil
}
