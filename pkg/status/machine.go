package status

import (
	"context"
	"fmt"
	"time"

	"github.com/looplab/fsm"
	"k8s.io/utils/clock"

	fsmutil "github.com/routepeer-io/routepeer/internal/pkg/util/fsm"
)

// OrderTimes are the timestamps derived from order transitions.
// Only the order machine writes them.
type OrderTimes struct {
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// StopTimes are the timestamps derived from stop transitions.
type StopTimes struct {
	ArrivedAt   *time.Time `json:"arrived_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type MachineOption func(*machineConfig)

type machineConfig struct {
	clock clock.PassiveClock
}

// WithClock sets the clock used for derived timestamps.
func WithClock(c clock.PassiveClock) MachineOption {
	return func(mc *machineConfig) { mc.clock = c }
}

func newMachineConfig(opts []MachineOption) *machineConfig {
	mc := &machineConfig{clock: clock.RealClock{}}
	for _, o := range opts {
		o(mc)
	}
	return mc
}

// eventName is the event that moves a machine into target.
func eventName[S ~string](target S) string {
	return "to_" + string(target)
}

// buildEvents turns a transition list into one event per destination state.
func buildEvents[S ~string](states []S, transitions map[S][]S) fsm.Events {
	var events fsm.Events
	for _, dst := range states {
		var src []string
		for _, cur := range states {
			for _, n := range transitions[cur] {
				if n == dst {
					src = append(src, string(cur))
				}
			}
		}
		if len(src) > 0 {
			events = append(events, fsm.EventDesc{Name: eventName(dst), Src: src, Dst: string(dst)})
		}
	}
	return events
}

// OrderMachine drives one order through its lifecycle.
type OrderMachine struct {
	*fsm.FSM
	clock clock.PassiveClock
}

// NewOrderMachine starts a machine in cur.
func NewOrderMachine(cur OrderStatus, opts ...MachineOption) (*OrderMachine, error) {
	if !cur.Valid() {
		return nil, fmt.Errorf("unknown order status %q", cur)
	}

	m := &OrderMachine{clock: newMachineConfig(opts).clock}

	callbacks := fsm.Callbacks{
		"enter_" + string(OrderConfirmed): fsmutil.WrapEvent(m.actionEnterConfirmed),
		"enter_" + string(OrderDelivered): fsmutil.WrapEvent(m.actionEnterDelivered),
		"enter_" + string(OrderCancelled): fsmutil.WrapEvent(m.actionEnterCancelled),
	}

	m.FSM = fsm.NewFSM(string(cur), buildEvents(orderStatuses, orderTransitions), callbacks)
	return m, nil
}

func (m *OrderMachine) State() OrderStatus {
	return OrderStatus(m.Current())
}

// Apply validates the move against the order table and fires it, updating the
// derived timestamps on subject.
func (m *OrderMachine) Apply(ctx context.Context, target OrderStatus, subject *OrderTimes) error {
	if err := ValidateOrderTransition(m.State(), target); err != nil {
		return err
	}
	return m.Event(ctx, eventName(target), subject)
}

func (m *OrderMachine) actionEnterConfirmed(ctx context.Context, e *fsm.Event) error {
	t, err := fsmutil.Arg[*OrderTimes](e, 0)
	if err != nil {
		return err
	}
	t.ConfirmedAt = m.now()
	return nil
}

func (m *OrderMachine) actionEnterDelivered(ctx context.Context, e *fsm.Event) error {
	t, err := fsmutil.Arg[*OrderTimes](e, 0)
	if err != nil {
		return err
	}
	t.DeliveredAt = m.now()
	return nil
}

func (m *OrderMachine) actionEnterCancelled(ctx context.Context, e *fsm.Event) error {
	t, err := fsmutil.Arg[*OrderTimes](e, 0)
	if err != nil {
		return err
	}
	t.CancelledAt = m.now()
	return nil
}

func (m *OrderMachine) now() *time.Time {
	now := m.clock.Now().UTC()
	return &now
}

// StopMachine drives one route stop.
type StopMachine struct {
	*fsm.FSM
	clock clock.PassiveClock
}

func NewStopMachine(cur StopStatus, opts ...MachineOption) (*StopMachine, error) {
	if !cur.Valid() {
		return nil, fmt.Errorf("unknown stop status %q", cur)
	}

	m := &StopMachine{clock: newMachineConfig(opts).clock}

	callbacks := fsm.Callbacks{
		"enter_" + string(StopArrived):   fsmutil.WrapEvent(m.actionEnterArrived),
		"enter_" + string(StopDelivered): fsmutil.WrapEvent(m.actionEnterCompleted),
		"enter_" + string(StopSkipped):   fsmutil.WrapEvent(m.actionEnterCompleted),
	}

	m.FSM = fsm.NewFSM(string(cur), buildEvents(stopStatuses, stopTransitions), callbacks)
	return m, nil
}

func (m *StopMachine) State() StopStatus {
	return StopStatus(m.Current())
}

func (m *StopMachine) Apply(ctx context.Context, target StopStatus, subject *StopTimes) error {
	if err := ValidateStopTransition(m.State(), target); err != nil {
		return err
	}
	return m.Event(ctx, eventName(target), subject)
}

func (m *StopMachine) actionEnterArrived(ctx context.Context, e *fsm.Event) error {
	t, err := fsmutil.Arg[*StopTimes](e, 0)
	if err != nil {
		return err
	}
	now := m.clock.Now().UTC()
	t.ArrivedAt = &now
	return nil
}

// actionEnterCompleted stamps both terminal states.
func (m *StopMachine) actionEnterCompleted(ctx context.Context, e *fsm.Event) error {
	t, err := fsmutil.Arg[*StopTimes](e, 0)
	if err != nil {
		return err
	}
	now := m.clock.Now().UTC()
	t.CompletedAt = &now
	return nil
}
