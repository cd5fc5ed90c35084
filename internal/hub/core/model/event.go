package model

import "time"

// StatusEvent announces a committed status change to listeners.
type StatusEvent struct {
	Entity  string    `json:"entity"`
	ID      string    `json:"id"`
	RouteID string    `json:"routeId,omitempty"`
	OrderID string    `json:"orderId,omitempty"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	Actor   string    `json:"actor"`
	At      time.Time `json:"at"`
}
