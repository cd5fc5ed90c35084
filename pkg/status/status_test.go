package status

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTablesAreTotal(t *testing.T) {
	for _, s := range OrderStatuses() {
		_, ok := orderTransitions[s]
		assert.True(t, ok, "order status %q missing from table", s)
	}
	for _, s := range StopStatuses() {
		_, ok := stopTransitions[s]
		assert.True(t, ok, "stop status %q missing from table", s)
	}
	assert.Len(t, orderTransitions, len(orderStatuses))
	assert.Len(t, stopTransitions, len(stopStatuses))
}

func TestNoSelfTransition(t *testing.T) {
	for _, s := range OrderStatuses() {
		assert.False(t, IsValidOrderTransition(s, s), "order %q -> %q", s, s)
	}
	for _, s := range StopStatuses() {
		assert.False(t, IsValidStopTransition(s, s), "stop %q -> %q", s, s)
	}
}

func TestTerminalStates(t *testing.T) {
	tests := []struct {
		name     string
		terminal bool
		allowed  int
	}{
		{"order/delivered", OrderDelivered.IsTerminal(), len(AllowedOrderTransitions(OrderDelivered))},
		{"order/cancelled", OrderCancelled.IsTerminal(), len(AllowedOrderTransitions(OrderCancelled))},
		{"stop/delivered", StopDelivered.IsTerminal(), len(AllowedStopTransitions(StopDelivered))},
		{"stop/skipped", StopSkipped.IsTerminal(), len(AllowedStopTransitions(StopSkipped))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.terminal)
			assert.Zero(t, tt.allowed)
		})
	}

	assert.False(t, OrderOutForDelivery.IsTerminal())
	assert.False(t, StopArrived.IsTerminal())
}

func TestIsValidStopTransition(t *testing.T) {
	tests := []struct {
		cur, next StopStatus
		want      bool
	}{
		{StopPending, StopEnroute, true},
		{StopEnroute, StopArrived, true},
		{StopArrived, StopDelivered, true},
		{StopPending, StopSkipped, true},
		{StopEnroute, StopSkipped, true},
		{StopArrived, StopSkipped, true},
		{StopDelivered, StopEnroute, false},
		{StopPending, StopDelivered, false},
		{StopArrived, StopEnroute, false},
		{StopSkipped, StopPending, false},
		{StopStatus("lost"), StopEnroute, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.cur)+"->"+string(tt.next), func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidStopTransition(tt.cur, tt.next))
		})
	}
}

func TestIsValidOrderTransition(t *testing.T) {
	tests := []struct {
		cur, next OrderStatus
		want      bool
	}{
		{OrderPending, OrderConfirmed, true},
		{OrderConfirmed, OrderPreparing, true},
		{OrderPreparing, OrderOutForDelivery, true},
		{OrderOutForDelivery, OrderDelivered, true},
		{OrderPending, OrderCancelled, true},
		{OrderConfirmed, OrderCancelled, true},
		{OrderPreparing, OrderCancelled, true},
		{OrderOutForDelivery, OrderCancelled, false},
		{OrderDelivered, OrderCancelled, false},
		{OrderCancelled, OrderPending, false},
		{OrderPending, OrderDelivered, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.cur)+"->"+string(tt.next), func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidOrderTransition(tt.cur, tt.next))
		})
	}
}

func TestAllowedTransitionsKeepDeclarationOrder(t *testing.T) {
	assert.Equal(t, []OrderStatus{OrderConfirmed, OrderCancelled}, AllowedOrderTransitions(OrderPending))
	assert.Equal(t, []StopStatus{StopArrived, StopSkipped}, AllowedStopTransitions(StopEnroute))
	assert.Nil(t, AllowedStopTransitions(StopStatus("lost")))

	// Callers must not be able to edit the table.
	got := AllowedStopTransitions(StopPending)
	got[0] = StopDelivered
	assert.Equal(t, StopEnroute, AllowedStopTransitions(StopPending)[0])
}

func TestValidateStopTransition(t *testing.T) {
	require.NoError(t, ValidateStopTransition(StopPending, StopEnroute))

	err := ValidateStopTransition(StopDelivered, StopEnroute)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, EntityStop, te.Entity)
	assert.Equal(t, "delivered", te.Current)
	assert.Equal(t, "enroute", te.Proposed)
	assert.Empty(t, te.Allowed)
	assert.Contains(t, te.Error(), "allowed: none")
}

func TestValidateOrderTransitionListsAllowed(t *testing.T) {
	err := ValidateOrderTransition(OrderPending, OrderDelivered)

	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, []string{"confirmed", "cancelled"}, te.Allowed)
	assert.Equal(t, `invalid order transition from "pending" to "delivered" (allowed: confirmed, cancelled)`, te.Error())
}

func TestParse(t *testing.T) {
	s, err := ParseStopStatus("arrived")
	require.NoError(t, err)
	assert.Equal(t, StopArrived, s)

	_, err = ParseStopStatus("teleported")
	assert.Error(t, err)

	o, err := ParseOrderStatus("out_for_delivery")
	require.NoError(t, err)
	assert.Equal(t, OrderOutForDelivery, o)

	_, err = ParseOrderStatus("")
	assert.Error(t, err)
}
