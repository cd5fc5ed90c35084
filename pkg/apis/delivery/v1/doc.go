// Package v1 contains the JSON wire types of the hub HTTP API, shared by the
// hub server and the driver agent client.
package v1
