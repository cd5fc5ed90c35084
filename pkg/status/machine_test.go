package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"
)

var t0 = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func TestOrderMachine_Lifecycle(t *testing.T) {
	ctx := context.Background()
	clk := clocktesting.NewFakePassiveClock(t0)

	m, err := NewOrderMachine(OrderPending, WithClock(clk))
	require.NoError(t, err)

	var times OrderTimes
	require.NoError(t, m.Apply(ctx, OrderConfirmed, &times))
	require.NotNil(t, times.ConfirmedAt)
	assert.Equal(t, t0, *times.ConfirmedAt)

	clk.SetTime(t0.Add(20 * time.Minute))
	require.NoError(t, m.Apply(ctx, OrderPreparing, &times))
	require.NoError(t, m.Apply(ctx, OrderOutForDelivery, &times))
	assert.Nil(t, times.DeliveredAt)

	clk.SetTime(t0.Add(45 * time.Minute))
	require.NoError(t, m.Apply(ctx, OrderDelivered, &times))
	require.NotNil(t, times.DeliveredAt)
	assert.Equal(t, t0.Add(45*time.Minute), *times.DeliveredAt)
	assert.Nil(t, times.CancelledAt)
	assert.Equal(t, OrderDelivered, m.State())
}

func TestOrderMachine_RejectsWithoutChangingState(t *testing.T) {
	m, err := NewOrderMachine(OrderOutForDelivery)
	require.NoError(t, err)

	var times OrderTimes
	err = m.Apply(context.Background(), OrderCancelled, &times)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, OrderOutForDelivery, m.State())
	assert.Nil(t, times.CancelledAt)
}

func TestOrderMachine_Cancel(t *testing.T) {
	clk := clocktesting.NewFakePassiveClock(t0)
	m, err := NewOrderMachine(OrderConfirmed, WithClock(clk))
	require.NoError(t, err)

	var times OrderTimes
	require.NoError(t, m.Apply(context.Background(), OrderCancelled, &times))
	require.NotNil(t, times.CancelledAt)
	assert.True(t, OrderStatus(m.Current()).IsTerminal())
}

func TestStopMachine_Timestamps(t *testing.T) {
	ctx := context.Background()
	clk := clocktesting.NewFakePassiveClock(t0)

	m, err := NewStopMachine(StopPending, WithClock(clk))
	require.NoError(t, err)

	var times StopTimes
	require.NoError(t, m.Apply(ctx, StopEnroute, &times))
	assert.Nil(t, times.ArrivedAt)

	clk.SetTime(t0.Add(10 * time.Minute))
	require.NoError(t, m.Apply(ctx, StopArrived, &times))
	require.NotNil(t, times.ArrivedAt)
	assert.Equal(t, t0.Add(10*time.Minute), *times.ArrivedAt)

	clk.SetTime(t0.Add(12 * time.Minute))
	require.NoError(t, m.Apply(ctx, StopDelivered, &times))
	require.NotNil(t, times.CompletedAt)
	assert.Equal(t, t0.Add(12*time.Minute), *times.CompletedAt)
}

func TestStopMachine_SkipStampsCompletion(t *testing.T) {
	m, err := NewStopMachine(StopEnroute)
	require.NoError(t, err)

	var times StopTimes
	require.NoError(t, m.Apply(context.Background(), StopSkipped, &times))
	assert.NotNil(t, times.CompletedAt)
	assert.Nil(t, times.ArrivedAt)
}

func TestNewMachine_UnknownState(t *testing.T) {
	_, err := NewStopMachine(StopStatus("lost"))
	assert.Error(t, err)
	_, err = NewOrderMachine(OrderStatus("refunded"))
	assert.Error(t, err)
}
