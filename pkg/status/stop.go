package status

import "fmt"

// StopStatus is the state of one stop on a driver's route.
type StopStatus string

const (
	StopPending   StopStatus = "pending"
	StopEnroute   StopStatus = "enroute"
	StopArrived   StopStatus = "arrived"
	StopDelivered StopStatus = "delivered"
	StopSkipped   StopStatus = "skipped"
)

var stopStatuses = []StopStatus{
	StopPending,
	StopEnroute,
	StopArrived,
	StopDelivered,
	StopSkipped,
}

// Forward chain, plus skipped from every non-terminal state.
var stopTransitions = map[StopStatus][]StopStatus{
	StopPending:   {StopEnroute, StopSkipped},
	StopEnroute:   {StopArrived, StopSkipped},
	StopArrived:   {StopDelivered, StopSkipped},
	StopDelivered: {},
	StopSkipped:   {},
}

var stopTable = buildTable(stopTransitions)

func StopStatuses() []StopStatus {
	return append([]StopStatus(nil), stopStatuses...)
}

func ParseStopStatus(s string) (StopStatus, error) {
	st := StopStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown stop status %q", s)
	}
	return st, nil
}

func (s StopStatus) Valid() bool {
	_, ok := stopTransitions[s]
	return ok
}

func (s StopStatus) IsTerminal() bool {
	next, ok := stopTransitions[s]
	return ok && len(next) == 0
}

func (s StopStatus) String() string { return string(s) }

// IsValidStopTransition reports whether a stop in cur may move to next.
func IsValidStopTransition(cur, next StopStatus) bool {
	return stopTable.allows(cur, next)
}

func AllowedStopTransitions(cur StopStatus) []StopStatus {
	next, ok := stopTransitions[cur]
	if !ok {
		return nil
	}
	return append([]StopStatus{}, next...)
}

func ValidateStopTransition(cur, next StopStatus) error {
	if IsValidStopTransition(cur, next) {
		return nil
	}
	return newTransitionError(EntityStop, cur, next, AllowedStopTransitions(cur))
}
