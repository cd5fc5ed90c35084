// Package status holds the delivery status model: the order and route stop
// enums, their transition tables, and state machines built from those tables.
//
// The tables are the single source of truth. The driver agent consults them for
// optimistic updates and the hub enforces them at its API boundary.
package status
