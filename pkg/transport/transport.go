// Package transport delivers wire messages between the simulator and
// the message bus. The protocol engine depends only on the narrow
// send/receive contract here, never on the MQTT client directly.
package transport

import (
	"errors"

	"masssim/pkg/codec"
)

// ErrNotConnected is returned when an emit is attempted while the bus
// connection is down.
var ErrNotConnected = errors.New("transport: not connected")

// Transport hands outbound messages to the bus and reports link state.
// Send is fire-and-forget: success means the bus accepted the message,
// not that it was delivered. Inbound delivery happens through the
// receive callback registered once at construction.
type Transport interface {
	Send(msg codec.Message) error
	IsConnected() bool
}
