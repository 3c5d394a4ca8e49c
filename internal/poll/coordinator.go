package poll

import (
	"context"
	"sync"
	"time"

	"github.com/radio-control/nodepoll/internal/adapter"
	"github.com/radio-control/nodepoll/internal/motion"
	"github.com/radio-control/nodepoll/internal/registry"
)

// Coordinator polls the registry's nodes over a radio link.
type Coordinator struct {
	// mu guards counter, registry, stats and readings. RunCycle holds it
	// for writing for the whole cycle.
	mu        sync.RWMutex
	counter   Counter
	registry  *registry.Registry
	stats     []NodeStats
	readings  []*motion.Reading
	cycles    uint64
	lastCycle time.Time

	link  adapter.RadioLink
	clock Clock

	auditLogger AuditLogger
	recorder    ExchangeRecorder
	publisher   Publisher

	motionSensor MotionSensor
	motionConfig motion.Config
}

// New creates a coordinator over reg with the counter at its initial value.
func New(link adapter.RadioLink, reg *registry.Registry) *Coordinator {
	return &Coordinator{
		counter:  NewCounter(),
		registry: reg,
		stats:    make([]NodeStats, reg.Len()),
		readings: make([]*motion.Reading, reg.Len()),
		link:     link,
		clock:    SystemClock{},
	}
}

// SetClock replaces the clock used for scheduling and timestamps.
func (c *Coordinator) SetClock(clock Clock) {
	c.clock = clock
}

// SetAuditLogger sets the audit logger.
func (c *Coordinator) SetAuditLogger(logger AuditLogger) {
	c.auditLogger = logger
}

// SetRecorder sets the exchange recorder.
func (c *Coordinator) SetRecorder(recorder ExchangeRecorder) {
	c.recorder = recorder
}

// SetPublisher sets the telemetry publisher.
func (c *Coordinator) SetPublisher(publisher Publisher) {
	c.publisher = publisher
}

// SetMotionSensor samples sensor with cfg after every successful exchange.
func (c *Coordinator) SetMotionSensor(sensor MotionSensor, cfg motion.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.motionSensor = sensor
	c.motionConfig = cfg
	return nil
}

// Run polls every interval until ctx is done.
func (c *Coordinator) Run(ctx context.Context, interval time.Duration) error {
	return Run(ctx, c.clock, interval, func(ctx context.Context) {
		c.RunCycle(ctx)
	})
}

// Counter returns the current coordinator counter.
func (c *Coordinator) Counter() Counter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counter
}

// Snapshot returns a consistent copy of the coordinator state. It never
// observes a cycle in progress.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := c.registry.Entries()
	nodes := make([]NodeSnapshot, len(entries))
	for i, e := range entries {
		nodes[i] = NodeSnapshot{
			Index:   e.Index,
			Address: e.Address,
			State:   e.State,
			Stats:   c.stats[i],
			Motion:  c.readings[i],
		}
	}

	return Snapshot{
		Counter:   c.counter,
		Cycles:    c.cycles,
		LastCycle: c.lastCycle,
		Nodes:     nodes,
	}
}
