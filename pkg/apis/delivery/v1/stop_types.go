package v1

import (
	"time"

	"github.com/routepeer-io/routepeer/pkg/status"
)

// Stop is one delivery stop of a route as seen by its driver.
type Stop struct {
	ID       string            `json:"id"`
	RouteID  string            `json:"routeId"`
	OrderID  string            `json:"orderId,omitempty"`
	Sequence int               `json:"sequence"`
	Address  string            `json:"address,omitempty"`
	Status   status.StopStatus `json:"status"`
	PhotoKey string            `json:"photoKey,omitempty"`
	Notes    string            `json:"deliveryNotes,omitempty"`

	ArrivedAt   *time.Time `json:"arrivedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// StopList is the body of GET /v1/routes/{route}/stops.
type StopList struct {
	RouteID        string `json:"routeId"`
	CompletedStops int    `json:"completedStops"`
	Stops          []Stop `json:"stops"`
}

// UpdateStopStatusRequest is the body of POST /v1/routes/{route}/stops/{stop}/status.
type UpdateStopStatusRequest struct {
	Status        status.StopStatus `json:"status"`
	DeliveryNotes string            `json:"deliveryNotes,omitempty"`
}

// UpdateStopStatusResponse reports the stop after the change. Unchanged is set
// when the stop already had the requested status.
type UpdateStopStatusResponse struct {
	Stop      Stop `json:"stop"`
	Unchanged bool `json:"unchanged"`
}

// PhotoResponse is returned by PUT /v1/routes/{route}/stops/{stop}/photo.
type PhotoResponse struct {
	Key string `json:"key"`
}
