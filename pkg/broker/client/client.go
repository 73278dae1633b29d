// Package client defines the connected-client contract the queue, router
// and channel subsystems send messages through. The actual transport
// (sockets, TLS, framing) lives in whatever front-end composes the core;
// this package only specifies the interface the core consumes.
package client

import "github.com/chris-alexander-pop/system-design-library/pkg/broker/message"

// Connection is the minimal send contract a transport front-end implements
// for a connected client.
type Connection interface {
	// Send delivers a serialized frame to the client. Implementations are
	// expected to be non-blocking or best-effort; the core never awaits a
	// transport-level ack here (that is what DeliveryTracker is for).
	Send(m *message.Message) error

	// Connected reports whether the underlying transport is still usable.
	Connected() bool
}

// Client is a connected peer known to the registries.
type Client struct {
	Ref             message.ClientRef
	Connection      Connection
	IsAuthenticated bool
}

// Send forwards m to the underlying connection if connected, else it is a
// silent no-op.
func (c *Client) Send(m *message.Message) error {
	if c == nil || c.Connection == nil || !c.Connection.Connected() {
		return nil
	}
	return c.Connection.Send(m)
}

// Connected reports whether the client's underlying transport is usable.
func (c *Client) Connected() bool {
	return c != nil && c.Connection != nil && c.Connection.Connected()
}
