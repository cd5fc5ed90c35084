package core

import (
	"context"

	"github.com/routepeer-io/routepeer/internal/hub/core/model"
	"github.com/routepeer-io/routepeer/pkg/status"
)

// Repository is the system of record for routes, stops, orders and driver
// locations. Getters return ErrNotFound for missing rows.
type Repository interface {
	GetRoute(ctx context.Context, routeID string) (*model.Route, error)
	ListStops(ctx context.Context, routeID string) ([]*model.Stop, error)
	GetStop(ctx context.Context, routeID, stopID string) (*model.Stop, error)
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)

	// SetStopPhoto records the object key of the stop's proof of delivery.
	SetStopPhoto(ctx context.Context, routeID, stopID, key string) error

	// SaveLocation stores loc as the driver's latest position and appends it
	// to the history.
	SaveLocation(ctx context.Context, loc *model.Location) error

	// Atomic runs fn in one transaction, committed when fn returns nil.
	Atomic(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the transactional part of the Repository. Reads lock the row.
type Tx interface {
	GetStop(ctx context.Context, routeID, stopID string) (*model.Stop, error)
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)

	// UpdateStop writes s if its stored status is still from. Otherwise it
	// returns ErrConflict.
	UpdateStop(ctx context.Context, s *model.Stop, from status.StopStatus) error

	// UpdateOrder writes o if its stored status is still from. Otherwise it
	// returns ErrConflict.
	UpdateOrder(ctx context.Context, o *model.Order, from status.OrderStatus) error

	IncrementCompletedStops(ctx context.Context, routeID string) error

	// LogStatus appends ev to the status history.
	LogStatus(ctx context.Context, ev *model.StatusEvent) error
}
