package tableau

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samjmc/dashchat/internal/core/ports/driven"
)

// Ensure Messenger implements the interface.
var _ driven.WindowMessenger = (*Messenger)(nil)

// Messenger exchanges typed messages with the hosting window over a
// Transport. It is the medium-fidelity fallback used when no structured
// extension host answers: the parent page listens for data requests and
// replies with whatever snapshot it can scrape.
type Messenger struct {
	dispatcher *dispatcher
	transport  Transport
}

// NewMessenger creates a messenger over the given transport. origins is the
// inbound allow-list; empty trusts the transport.
func NewMessenger(transport Transport, origins []string) *Messenger {
	return &Messenger{
		dispatcher: newDispatcher(transport, origins, defaultEventBuffer),
		transport:  transport,
	}
}

// Request sends a typed request to the parent window and awaits the matching
// response payload. Absence of a response within ctx's deadline surfaces as
// context.DeadlineExceeded.
func (m *Messenger) Request(ctx context.Context, msgType string, payload any) ([]byte, error) {
	var body json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", msgType, err)
		}
		body = encoded
	}

	resp, err := m.dispatcher.request(ctx, Message{Type: msgType, Payload: body})
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

// Close stops the dispatcher and closes the transport.
func (m *Messenger) Close() error {
	m.dispatcher.close()
	return m.transport.Close()
}
