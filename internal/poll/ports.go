package poll

import (
	"context"
	"errors"
	"time"

	"github.com/radio-control/nodepoll/internal/motion"
	"github.com/radio-control/nodepoll/internal/protocol"
	"github.com/radio-control/nodepoll/internal/telemetry"
)

// ErrInvalidInterval is returned by Run for a non-positive interval.
var ErrInvalidInterval = errors.New("INVALID_INTERVAL")

// AuditLogger writes one audit record per exchange.
type AuditLogger interface {
	LogExchange(ctx context.Context, ex Exchange)
}

// ExchangeRecorder persists exchanges for later inspection.
type ExchangeRecorder interface {
	Record(ex Exchange) error
}

// Publisher fans telemetry events out to subscribers.
type Publisher interface {
	Publish(event telemetry.Event) error
	PublishNode(node string, event telemetry.Event) error
}

// MotionSensor samples a node's motion sensor outside the radio payload.
type MotionSensor interface {
	SampleMotion(ctx context.Context, addr protocol.Address, cfg motion.Config) (motion.Reading, error)
}

// Outcome classifies one node exchange.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeNoAck     Outcome = "no_ack"
	OutcomeNoPayload Outcome = "no_payload"
	OutcomeMalformed Outcome = "malformed"
)

// Exchange is the result of polling one node.
type Exchange struct {
	Cycle        uint64              `json:"cycle"`
	Index        int                 `json:"index"`
	Address      protocol.Address    `json:"address"`
	Outcome      Outcome             `json:"outcome"`
	Sent         Counter             `json:"sent"`
	CounterAfter Counter             `json:"counterAfter"`
	State        *protocol.NodeState `json:"state,omitempty"`
	PayloadLen   int                 `json:"payloadLen"`
	Motion       *motion.Reading     `json:"motion,omitempty"`
	Timestamp    time.Time           `json:"ts"`
	Latency      time.Duration       `json:"latencyNs"`
}

// CycleReport summarizes one poll cycle.
type CycleReport struct {
	Cycle         uint64     `json:"cycle"`
	Started       time.Time  `json:"started"`
	CounterBefore Counter    `json:"counterBefore"`
	CounterAfter  Counter    `json:"counterAfter"`
	Exchanges     []Exchange `json:"exchanges"`
}

// Successes counts the exchanges that advanced the counter.
func (r CycleReport) Successes() int {
	n := 0
	for _, ex := range r.Exchanges {
		if ex.Outcome == OutcomeSuccess {
			n++
		}
	}
	return n
}

// NodeStats accumulates per-node exchange results.
type NodeStats struct {
	Attempts    uint64    `json:"attempts"`
	Successes   uint64    `json:"successes"`
	Failures    uint64    `json:"failures"`
	LastOutcome Outcome   `json:"lastOutcome,omitempty"`
	LastSeen    time.Time `json:"lastSeen,omitempty"`
}

// NodeSnapshot is a read-only copy of one registry slot.
type NodeSnapshot struct {
	Index   int                `json:"index"`
	Address protocol.Address   `json:"address"`
	State   protocol.NodeState `json:"state"`
	Stats   NodeStats          `json:"stats"`
	Motion  *motion.Reading    `json:"motion,omitempty"` // latest reading
}

// Snapshot is a consistent copy of coordinator state between cycles.
type Snapshot struct {
	Counter   Counter        `json:"counter"`
	Cycles    uint64         `json:"cycles"`
	LastCycle time.Time      `json:"lastCycle,omitempty"`
	Nodes     []NodeSnapshot `json:"nodes"`
}
