// Package fake provides a scripted radio link for testing.
package fake

import (
	"context"
	"sync"

	"github.com/radio-control/nodepoll/internal/adapter"
	"github.com/radio-control/nodepoll/internal/protocol"
)

// Response is the scripted outcome of one Send to a recipient.
type Response struct {
	Ack     bool
	Payload []byte // nil means acknowledged without a return payload
}

// Sent records one Send call.
type Sent struct {
	Recipient protocol.Address
	Payload   []byte
}

// Link implements adapter.RadioLink with per-recipient response queues.
// A recipient with an empty queue falls back to its default response, or to
// no acknowledgement when none is set.
type Link struct {
	mu sync.Mutex

	settings   *adapter.Settings
	recipient  protocol.Address
	selected   bool
	queues     map[protocol.Address][]Response
	defaults   map[protocol.Address]Response
	pending    []byte
	hasPending bool

	recipients []protocol.Address
	sent       []Sent

	// ConfigureErr is returned from Configure when set.
	ConfigureErr error
}

// NewLink creates a link where every recipient is silent until scripted.
func NewLink() *Link {
	return &Link{
		queues:   make(map[protocol.Address][]Response),
		defaults: make(map[protocol.Address]Response),
	}
}

// Queue appends responses for addr, consumed one per Send.
func (l *Link) Queue(addr protocol.Address, responses ...Response) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queues[addr] = append(l.queues[addr], responses...)
}

// SetDefault sets the response used once the queue for addr is empty.
func (l *Link) SetDefault(addr protocol.Address, r Response) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.defaults[addr] = r
}

// Reply is shorthand for an acknowledged response carrying state.
func Reply(state protocol.NodeState) Response {
	return Response{Ack: true, Payload: protocol.EncodeNodeState(state)}
}

// Configure implements adapter.RadioLink.
func (l *Link) Configure(settings adapter.Settings) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ConfigureErr != nil {
		return l.ConfigureErr
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	l.settings = &settings
	return nil
}

// SelectRecipient implements adapter.RadioLink.
func (l *Link) SelectRecipient(addr protocol.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recipient = addr
	l.selected = true
	l.recipients = append(l.recipients, addr)
}

// Send implements adapter.RadioLink.
func (l *Link) Send(ctx context.Context, payload []byte) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.selected {
		return false
	}

	l.sent = append(l.sent, Sent{
		Recipient: l.recipient,
		Payload:   append([]byte(nil), payload...),
	})

	resp := l.defaults[l.recipient]
	if q := l.queues[l.recipient]; len(q) > 0 {
		resp = q[0]
		l.queues[l.recipient] = q[1:]
	}

	l.pending, l.hasPending = nil, false
	if resp.Ack && resp.Payload != nil {
		l.pending = append([]byte(nil), resp.Payload...)
		l.hasPending = true
	}
	return resp.Ack
}

// AckPayloadAvailable implements adapter.RadioLink.
func (l *Link) AckPayloadAvailable() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasPending
}

// ReadAckPayload implements adapter.RadioLink.
func (l *Link) ReadAckPayload() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := l.pending
	l.pending, l.hasPending = nil, false
	return p
}

// Settings returns the settings passed to Configure, or nil.
func (l *Link) Settings() *adapter.Settings {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.settings
}

// Recipients returns every address selected so far, in order.
func (l *Link) Recipients() []protocol.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]protocol.Address(nil), l.recipients...)
}

// SentPayloads returns every Send call so far, in order.
func (l *Link) SentPayloads() []Sent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Sent(nil), l.sent...)
}

var _ adapter.RadioLink = (*Link)(nil)
