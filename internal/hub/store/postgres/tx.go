package postgres

import (
	"context"
	"fmt"

	"github.com/routepeer-io/routepeer/internal/hub/core"
	"github.com/routepeer-io/routepeer/internal/hub/core/model"
	"github.com/routepeer-io/routepeer/pkg/status"
)

// pgTx locks every row it reads until the transaction ends.
type pgTx struct {
	q querier
}

func (t *pgTx) GetStop(ctx context.Context, routeID, stopID string) (*model.Stop, error) {
	return getStop(ctx, t.q, routeID, stopID, true)
}

func (t *pgTx) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	return getOrder(ctx, t.q, orderID, true)
}

func (t *pgTx) UpdateStop(ctx context.Context, s *model.Stop, from status.StopStatus) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE stops SET status = $3, delivery_notes = $4, arrived_at = $5, completed_at = $6, updated_at = $7
		WHERE route_id = $1 AND id = $2 AND status = $8
	`, s.RouteID, s.ID, string(s.Status), s.Notes, s.ArrivedAt, s.CompletedAt, s.UpdatedAt, string(from))
	if err != nil {
		return fmt.Errorf("update stop %s/%s: %w", s.RouteID, s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: stop %s/%s is no longer %s", core.ErrConflict, s.RouteID, s.ID, from)
	}
	return nil
}

func (t *pgTx) UpdateOrder(ctx context.Context, o *model.Order, from status.OrderStatus) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE orders SET status = $2, confirmed_at = $3, delivered_at = $4, cancelled_at = $5, updated_at = $6
		WHERE id = $1 AND status = $7
	`, o.ID, string(o.Status), o.ConfirmedAt, o.DeliveredAt, o.CancelledAt, o.UpdatedAt, string(from))
	if err != nil {
		return fmt.Errorf("update order %s: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %s is no longer %s", core.ErrConflict, o.ID, from)
	}
	return nil
}

func (t *pgTx) IncrementCompletedStops(ctx context.Context, routeID string) error {
	tag, err := t.q.Exec(ctx, `UPDATE routes SET completed_stops = completed_stops + 1 WHERE id = $1`, routeID)
	if err != nil {
		return fmt.Errorf("count completed stop of route %s: %w", routeID, err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (t *pgTx) LogStatus(ctx context.Context, ev *model.StatusEvent) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO status_log (entity, entity_id, route_id, order_id, from_state, to_state, changed_by, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, ev.Entity, ev.ID, ev.RouteID, ev.OrderID, ev.From, ev.To, ev.Actor, ev.At)
	if err != nil {
		return fmt.Errorf("log %s status: %w", ev.Entity, err)
	}
	return nil
}
