package status

import "fmt"

// OrderStatus is the lifecycle state of a customer order.
type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderConfirmed      OrderStatus = "confirmed"
	OrderPreparing      OrderStatus = "preparing"
	OrderOutForDelivery OrderStatus = "out_for_delivery"
	OrderDelivered      OrderStatus = "delivered"
	OrderCancelled      OrderStatus = "cancelled"
)

var orderStatuses = []OrderStatus{
	OrderPending,
	OrderConfirmed,
	OrderPreparing,
	OrderOutForDelivery,
	OrderDelivered,
	OrderCancelled,
}

// orderTransitions lists, per state, the legal next states in declaration order.
// Every state is a key; terminal states map to an empty slice.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:        {OrderConfirmed, OrderCancelled},
	OrderConfirmed:      {OrderPreparing, OrderCancelled},
	OrderPreparing:      {OrderOutForDelivery, OrderCancelled},
	OrderOutForDelivery: {OrderDelivered},
	OrderDelivered:      {},
	OrderCancelled:      {},
}

var orderTable = buildTable(orderTransitions)

// OrderStatuses returns every declared order status.
func OrderStatuses() []OrderStatus {
	return append([]OrderStatus(nil), orderStatuses...)
}

// ParseOrderStatus converts s, rejecting values outside the enum.
func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return st, nil
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	next, ok := orderTransitions[s]
	return ok && len(next) == 0
}

func (s OrderStatus) String() string { return string(s) }

// IsValidOrderTransition reports whether cur may move to next.
// Self transitions and unknown states are never valid.
func IsValidOrderTransition(cur, next OrderStatus) bool {
	return orderTable.allows(cur, next)
}

// AllowedOrderTransitions returns the legal next states of cur, nil when cur is unknown.
func AllowedOrderTransitions(cur OrderStatus) []OrderStatus {
	next, ok := orderTransitions[cur]
	if !ok {
		return nil
	}
	return append([]OrderStatus{}, next...)
}

// ValidateOrderTransition returns a *TransitionError when cur may not move to next.
func ValidateOrderTransition(cur, next OrderStatus) error {
	if IsValidOrderTransition(cur, next) {
		return nil
	}
	return newTransitionError(EntityOrder, cur, next, AllowedOrderTransitions(cur))
}
