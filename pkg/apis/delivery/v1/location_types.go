package v1

import "time"

// LocationPing is the body of POST /v1/locations.
type LocationPing struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   float64   `json:"accuracy"`
	Heading    *float64  `json:"heading,omitempty"`
	Speed      *float64  `json:"speed,omitempty"`
	RouteID    string    `json:"routeId,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}
