package tableau

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/samjmc/dashchat/internal/core/domain"
	"github.com/samjmc/dashchat/internal/logger"
)

// dispatcher routes inbound messages: correlated responses to their waiting
// request, everything else to the unsolicited stream. Inbound messages from
// origins outside the allow-list are dropped before routing.
type dispatcher struct {
	transport Transport
	origins   []string

	mu      sync.Mutex
	pending map[string]chan Message
	closed  bool

	unsolicited chan Message
	done        chan struct{}
}

func newDispatcher(transport Transport, origins []string, buffer int) *dispatcher {
	d := &dispatcher{
		transport:   transport,
		origins:     origins,
		pending:     make(map[string]chan Message),
		unsolicited: make(chan Message, buffer),
		done:        make(chan struct{}),
	}
	go d.run()
	return d
}

// run consumes the transport until it closes.
func (d *dispatcher) run() {
	defer close(d.unsolicited)

	for msg := range d.transport.Receive() {
		if !d.originAllowed(msg.Origin) {
			logger.Warn("Dropping message %q from untrusted origin %q", msg.Type, msg.Origin)
			continue
		}

		if msg.ID != "" {
			d.mu.Lock()
			ch, ok := d.pending[msg.ID]
			if ok {
				delete(d.pending, msg.ID)
			}
			d.mu.Unlock()
			if ok {
				ch <- msg
				continue
			}
			// A response nobody is waiting for (late arrival after
			// timeout) is dropped.
			logger.Debug("Discarding uncorrelated response %q", msg.Type)
			continue
		}

		select {
		case d.unsolicited <- msg:
		case <-d.done:
			return
		default:
			logger.Warn("Unsolicited message buffer full, dropping %q", msg.Type)
		}
	}
}

// originAllowed reports whether an inbound origin passes the allow-list.
// Messages with no origin come from an in-process transport and are trusted.
func (d *dispatcher) originAllowed(origin string) bool {
	if origin == "" || len(d.origins) == 0 {
		return true
	}
	for _, allowed := range d.origins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// request sends a correlated message and awaits the matching response.
func (d *dispatcher) request(ctx context.Context, msg Message) (Message, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return Message{}, domain.ErrBridgeUnavailable
	}
	msg.ID = uuid.NewString()
	ch := make(chan Message, 1)
	d.pending[msg.ID] = ch
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.pending, msg.ID)
		d.mu.Unlock()
	}()

	if err := d.transport.Send(ctx, msg); err != nil {
		return Message{}, fmt.Errorf("send %s: %w", msg.Type, err)
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-d.done:
		return Message{}, domain.ErrBridgeUnavailable
	}
}

// close stops routing. Pending requests fail with ErrBridgeUnavailable.
func (d *dispatcher) close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()
	close(d.done)
}
