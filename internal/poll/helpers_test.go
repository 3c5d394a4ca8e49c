package poll

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/radio-control/nodepoll/internal/adapter/fake"
	"github.com/radio-control/nodepoll/internal/motion"
	"github.com/radio-control/nodepoll/internal/protocol"
	"github.com/radio-control/nodepoll/internal/registry"
	"github.com/radio-control/nodepoll/internal/telemetry"
)

var (
	node1 = protocol.MustParseAddress("NODE1")
	node2 = protocol.MustParseAddress("NODE2")
	node3 = protocol.MustParseAddress("NODE3")
)

// fakeClock advances only when slept on.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Advance(d)
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	return nil
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// mockAuditLogger records exchanges.
type mockAuditLogger struct {
	exchanges []Exchange
}

func (m *mockAuditLogger) LogExchange(ctx context.Context, ex Exchange) {
	m.exchanges = append(m.exchanges, ex)
}

// mockRecorder records exchanges, failing when RecordFunc says so.
type mockRecorder struct {
	RecordFunc func(ex Exchange) error
	exchanges  []Exchange
}

func (m *mockRecorder) Record(ex Exchange) error {
	m.exchanges = append(m.exchanges, ex)
	if m.RecordFunc != nil {
		return m.RecordFunc(ex)
	}
	return nil
}

// mockMotionSensor answers with SampleFunc and records the addresses sampled.
type mockMotionSensor struct {
	SampleFunc func(addr protocol.Address) (motion.Reading, error)
	sampled    []protocol.Address
}

func (m *mockMotionSensor) SampleMotion(ctx context.Context, addr protocol.Address, cfg motion.Config) (motion.Reading, error) {
	m.sampled = append(m.sampled, addr)
	return m.SampleFunc(addr)
}

// mockPublisher captures events.
type mockPublisher struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (m *mockPublisher) Publish(event telemetry.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) PublishNode(node string, event telemetry.Event) error {
	event.Node = node
	return m.Publish(event)
}

func (m *mockPublisher) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}

func newTestCoordinator(t *testing.T, addrs ...protocol.Address) (*Coordinator, *fake.Link, *fakeClock) {
	t.Helper()
	if len(addrs) == 0 {
		addrs = []protocol.Address{node1, node2, node3}
	}
	reg, err := registry.New(addrs)
	if err != nil {
		t.Fatalf("registry.New() error = %v", err)
	}
	link := fake.NewLink()
	clock := newFakeClock()
	c := New(link, reg)
	c.SetClock(clock)
	return c, link, clock
}
