package model

import (
	"time"

	"github.com/routepeer-io/routepeer/pkg/status"
)

// Order is a customer order. Its timestamps follow its status.
type Order struct {
	ID     string
	Status status.OrderStatus

	ConfirmedAt *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time
	UpdatedAt   time.Time
}

func (o *Order) Times() status.OrderTimes {
	return status.OrderTimes{ConfirmedAt: o.ConfirmedAt, DeliveredAt: o.DeliveredAt, CancelledAt: o.CancelledAt}
}

func (o *Order) SetTimes(t status.OrderTimes) {
	o.ConfirmedAt, o.DeliveredAt, o.CancelledAt = t.ConfirmedAt, t.DeliveredAt, t.CancelledAt
}
