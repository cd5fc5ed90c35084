package topic

// Wildcard matches exactly one topic level.
const Wildcard = "+"

// Topic segments shared by the hub and driver agents. Changing them breaks
// every deployed subscriber.
const (
	// SuffixRouteStatus carries stop status changes of one route (Hub -> listeners).
	// Structure: {root}/route/status/{routeID}
	SuffixRouteStatus = "route/status"

	// SuffixOrderStatus carries order status changes (Hub -> listeners).
	// Structure: {root}/order/status/{orderID}
	SuffixOrderStatus = "order/status"

	// SuffixDriverPresence is the retained online/offline marker of a driver agent.
	// Structure: {root}/driver/presence/{driverID}
	SuffixDriverPresence = "driver/presence"
)
