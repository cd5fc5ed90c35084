package model

import (
	"time"

	"github.com/routepeer-io/routepeer/pkg/status"
)

// Route is the ordered list of stops assigned to one driver.
type Route struct {
	ID       string
	DriverID string

	// CompletedStops counts stops that reached a terminal state.
	CompletedStops int
}

// Stop is one delivery stop. ArrivedAt and CompletedAt are set only by
// status transitions.
type Stop struct {
	ID       string
	RouteID  string
	OrderID  string
	Sequence int
	Address  string
	Status   status.StopStatus
	PhotoKey string
	Notes    string

	ArrivedAt   *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

// Times returns the derived timestamps in the form the stop machine fills in.
func (s *Stop) Times() status.StopTimes {
	return status.StopTimes{ArrivedAt: s.ArrivedAt, CompletedAt: s.CompletedAt}
}

func (s *Stop) SetTimes(t status.StopTimes) {
	s.ArrivedAt, s.CompletedAt = t.ArrivedAt, t.CompletedAt
}
