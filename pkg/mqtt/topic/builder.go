package topic

import (
	"fmt"
)

// TopicBuilder constructs topic strings under one root namespace.
type TopicBuilder struct {
	// root is the base namespace for all topics (e.g., "rpeer/v1").
	root string
}

// NewTopicBuilder creates a new instance of TopicBuilder with the specified root namespace.
func NewTopicBuilder(root string) *TopicBuilder {
	return &TopicBuilder{root: root}
}

// RouteStatus returns the topic that receives stop events of routeID.
func (b *TopicBuilder) RouteStatus(routeID string) string {
	return b.build(SuffixRouteStatus, routeID)
}

// RouteStatusWildcard matches the stop events of every route.
func (b *TopicBuilder) RouteStatusWildcard() string {
	return b.build(SuffixRouteStatus, Wildcard)
}

func (b *TopicBuilder) OrderStatus(orderID string) string {
	return b.build(SuffixOrderStatus, orderID)
}

func (b *TopicBuilder) OrderStatusWildcard() string {
	return b.build(SuffixOrderStatus, Wildcard)
}

// DriverPresence is published by the agent on connect and used as its last will.
func (b *TopicBuilder) DriverPresence(driverID string) string {
	return b.build(SuffixDriverPresence, driverID)
}

func (b *TopicBuilder) DriverPresenceWildcard() string {
	return b.build(SuffixDriverPresence, Wildcard)
}

// build is a private helper to construct the final topic string.
// Pattern: {root}/{suffix}/{identifier}
func (b *TopicBuilder) build(suffix, id string) string {
	return fmt.Sprintf("%s/%s/%s", b.root, suffix, id)
}
