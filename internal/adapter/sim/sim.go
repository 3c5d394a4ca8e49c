// Package sim provides a simulated transceiver with simulated remote nodes.
//
// Each remote node behaves like the sensor firmware: it keeps its own count,
// preloads an ack payload {node_id, count}, and on every received packet
// returns the preloaded payload with the hardware ack, then bumps its count
// and preloads the next one.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/radio-control/nodepoll/internal/adapter"
	"github.com/radio-control/nodepoll/internal/motion"
	"github.com/radio-control/nodepoll/internal/protocol"
)

// NodeConfig describes one simulated remote node.
type NodeConfig struct {
	Address protocol.Address
	NodeID  int16

	// DropRate is the probability that a single attempt is lost.
	DropRate float64
	// SilentRate is the probability that an acked packet carries no payload.
	SilentRate float64
	// ShortPayload makes the node reply with a truncated record.
	ShortPayload bool
	// Offline nodes never acknowledge.
	Offline bool
	// DopplerHz is the frequency the node's motion sensor sees; zero is a
	// still scene.
	DopplerHz float64
}

type node struct {
	cfg       NodeConfig
	count     int16
	lastHeard int16
	received  int
}

// Link implements adapter.RadioLink against simulated nodes.
type Link struct {
	mu sync.Mutex

	settings   adapter.Settings
	configured bool
	nodes      map[protocol.Address]*node
	recipient  *node
	selected   bool
	rng        *rand.Rand

	pending    []byte
	hasPending bool

	// sleep waits between retransmits; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a link with the given nodes. seed drives drop and silent
// decisions so runs are reproducible.
func New(seed int64, nodes ...NodeConfig) (*Link, error) {
	l := &Link{
		settings: adapter.DefaultSettings(),
		nodes:    make(map[protocol.Address]*node, len(nodes)),
		rng:      rand.New(rand.NewSource(seed)),
		sleep:    sleepContext,
	}
	for _, cfg := range nodes {
		if _, dup := l.nodes[cfg.Address]; dup {
			return nil, fmt.Errorf("%w: duplicate simulated node %s", adapter.ErrInvalidRange, cfg.Address)
		}
		if cfg.DropRate < 0 || cfg.DropRate > 1 || cfg.SilentRate < 0 || cfg.SilentRate > 1 {
			return nil, fmt.Errorf("%w: node %s rates must be within 0-1", adapter.ErrInvalidRange, cfg.Address)
		}
		l.nodes[cfg.Address] = &node{cfg: cfg, count: 1}
	}
	return l, nil
}

// Configure implements adapter.RadioLink.
func (l *Link) Configure(settings adapter.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.settings = settings
	l.configured = true
	return nil
}

// SelectRecipient implements adapter.RadioLink. An address with no simulated
// node behind it is selectable but never acknowledges.
func (l *Link) SelectRecipient(addr protocol.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recipient = l.nodes[addr]
	l.selected = true
}

// Send implements adapter.RadioLink.
func (l *Link) Send(ctx context.Context, payload []byte) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pending, l.hasPending = nil, false
	if !l.selected || !l.configured {
		return false
	}

	attempts := l.settings.Attempts()
	for attempt := 0; attempt < attempts; attempt++ {
		if ctx.Err() != nil {
			return false
		}
		if attempt > 0 {
			if err := l.sleep(ctx, l.settings.RetryInterval()); err != nil {
				return false
			}
		}
		if l.delivered() {
			l.receive(payload)
			return true
		}
	}
	return false
}

func (l *Link) delivered() bool {
	n := l.recipient
	if n == nil || n.cfg.Offline {
		return false
	}
	return n.cfg.DropRate == 0 || l.rng.Float64() >= n.cfg.DropRate
}

// receive runs the node side of an exchange: hand back the preloaded
// payload, then preload the next one.
func (l *Link) receive(payload []byte) {
	n := l.recipient
	n.received++
	if c, err := protocol.DecodeCount(payload); err == nil {
		n.lastHeard = c
	}

	if !l.settings.AckPayload {
		return
	}
	if n.cfg.SilentRate > 0 && l.rng.Float64() < n.cfg.SilentRate {
		return
	}

	reply := protocol.EncodeNodeState(protocol.NodeState{NodeID: n.cfg.NodeID, Count: n.count})
	if n.cfg.ShortPayload {
		reply = reply[:protocol.NodeStateSize-1]
	}
	l.pending, l.hasPending = reply, true
	n.count++
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

// NodeStatus is the node-side view of a simulated node.
type NodeStatus struct {
	Address   protocol.Address `json:"address"`
	NodeID    int16            `json:"nodeId"`
	Count     int16            `json:"count"`
	LastHeard int16            `json:"lastHeard"`
	Received  int              `json:"received"`
}

// Node returns the node-side view of the simulated node at addr.
func (l *Link) Node(addr protocol.Address) (NodeStatus, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n, ok := l.nodes[addr]
	if !ok {
		return NodeStatus{}, false
	}
	return NodeStatus{
		Address:   addr,
		NodeID:    n.cfg.NodeID,
		Count:     n.count,
		LastHeard: n.lastHeard,
		Received:  n.received,
	}, true
}

// SetDoppler changes the frequency seen by the motion sensor at addr.
func (l *Link) SetDoppler(addr protocol.Address, hz float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	n, ok := l.nodes[addr]
	if !ok {
		return fmt.Errorf("%w: no simulated node %s", adapter.ErrInvalidRange, addr)
	}
	n.cfg.DopplerHz = hz
	return nil
}

// SampleMotion measures the motion sensor of the node at addr. The reading
// travels outside the radio payload. Offline or unknown nodes return
// adapter.ErrUnavailable.
func (l *Link) SampleMotion(ctx context.Context, addr protocol.Address, cfg motion.Config) (motion.Reading, error) {
	l.mu.Lock()
	n, ok := l.nodes[addr]
	reachable := ok && !n.cfg.Offline
	var hz float64
	if ok {
		hz = n.cfg.DopplerHz
	}
	l.mu.Unlock()

	if !reachable {
		return motion.Reading{}, fmt.Errorf("%w: no motion sensor reachable at %s", adapter.ErrUnavailable, addr)
	}
	return motion.Measure(ctx, motion.DopplerSource{FrequencyHz: hz}, cfg)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ adapter.RadioLink = (*Link)(nil)
