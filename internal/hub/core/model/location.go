package model

import "time"

// Location is one accepted position of a driver.
type Location struct {
	DriverID  string
	RouteID   string
	Latitude  float64
	Longitude float64
	Accuracy  float64
	Heading   *float64
	Speed     *float64

	// RecordedAt is the device time of the fix, ReceivedAt the hub time.
	RecordedAt time.Time
	ReceivedAt time.Time
}
