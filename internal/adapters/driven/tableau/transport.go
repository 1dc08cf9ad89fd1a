// Package tableau implements the dashboard-facing adapters: the structured
// extension bridge and the cross-window messenger. Both speak a typed
// message envelope over a Transport, with uuid-correlated request/response
// pairs and an origin allow-list on everything inbound.
package tableau

import (
	"context"
	"encoding/json"
)

// Message is the wire envelope exchanged with the hosting page.
type Message struct {
	// ID correlates a response with its request. Unsolicited messages
	// (events, broadcasts) carry no ID.
	ID string `json:"id,omitempty"`

	// Type is the message kind.
	Type string `json:"type"`

	// Origin is the sender's web origin, stamped by the transport.
	Origin string `json:"origin,omitempty"`

	// Payload is the kind-specific body.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Transport moves messages between the widget backend and the hosting page.
// Implementations wrap whatever channel the deployment provides (a websocket
// to the widget frame, a message relay, an in-process pair in tests).
type Transport interface {
	// Send delivers a message to the hosting page.
	Send(ctx context.Context, msg Message) error

	// Receive returns the inbound message stream. The channel is closed
	// when the transport closes.
	Receive() <-chan Message

	// Close tears down the transport and closes the receive channel.
	Close() error
}

// ChannelTransport is an in-process Transport over a pair of channels. The
// test suite and single-binary demos use it; production deployments provide
// a transport bound to the real widget connection.
type ChannelTransport struct {
	// In receives messages from the hosting page.
	In chan Message

	// Out carries messages sent to the hosting page.
	Out chan Message
}

// NewChannelTransport creates a channel transport with the given buffer.
func NewChannelTransport(buffer int) *ChannelTransport {
	return &ChannelTransport{
		In:  make(chan Message, buffer),
		Out: make(chan Message, buffer),
	}
}

// Send delivers msg on the Out channel, honouring ctx cancellation.
func (t *ChannelTransport) Send(ctx context.Context, msg Message) error {
	select {
	case t.Out <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive returns the In channel.
func (t *ChannelTransport) Receive() <-chan Message {
	return t.In
}

// Close closes the In channel. Senders must stop first.
func (t *ChannelTransport) Close() error {
	close(t.In)
	return nil
}
