package v1

import (
	"time"

	"github.com/routepeer-io/routepeer/pkg/status"
)

type Order struct {
	ID          string             `json:"id"`
	Status      status.OrderStatus `json:"status"`
	ConfirmedAt *time.Time         `json:"confirmedAt,omitempty"`
	DeliveredAt *time.Time         `json:"deliveredAt,omitempty"`
	CancelledAt *time.Time         `json:"cancelledAt,omitempty"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// UpdateOrderStatusRequest is the body of POST /v1/orders/{order}/status.
type UpdateOrderStatusRequest struct {
	Status status.OrderStatus `json:"status"`
}

type UpdateOrderStatusResponse struct {
	Order     Order `json:"order"`
	Unchanged bool  `json:"unchanged"`
}
