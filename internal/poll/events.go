package poll

import (
	"errors"
	"time"

	"github.com/radio-control/nodepoll/internal/telemetry"
)

var errNoAck = errors.New("NO_ACK")

// publishExchangeEvent publishes an exchange event, plus a fault event when
// the transmit was not acknowledged.
func (c *Coordinator) publishExchangeEvent(ex Exchange) {
	if c.publisher == nil {
		return
	}

	data := map[string]interface{}{
		"cycle":        ex.Cycle,
		"index":        ex.Index,
		"address":      ex.Address.String(),
		"outcome":      string(ex.Outcome),
		"sent":         int(ex.Sent),
		"counterAfter": int(ex.CounterAfter),
		"latencyMs":    elapsedMillis(ex.Latency),
		"ts":           ex.Timestamp.UTC().Format(time.RFC3339),
	}
	if ex.State != nil {
		data["nodeId"] = int(ex.State.NodeID)
		data["count"] = int(ex.State.Count)
	}
	if ex.Motion != nil {
		data["motion"] = ex.Motion.Motion
		data["dopplerHz"] = ex.Motion.FrequencyHz
	}

	node := ex.Address.String()
	if err := c.publisher.PublishNode(node, telemetry.Event{Type: "exchange", Data: data}); err != nil {
		c.publishFaultEvent(node, err, "Failed to publish exchange event")
	}

	if ex.Outcome == OutcomeNoAck {
		c.publishFaultEvent(node, errNoAck, "The transmission to the selected node failed")
	}

	if ex.Motion != nil && ex.Motion.Motion {
		_ = c.publisher.PublishNode(node, telemetry.Event{
			Type: "motion",
			Data: map[string]interface{}{
				"cycle":     ex.Cycle,
				"index":     ex.Index,
				"address":   node,
				"dopplerHz": ex.Motion.FrequencyHz,
				"pulses":    ex.Motion.Pulses,
				"ts":        ex.Timestamp.UTC().Format(time.RFC3339),
			},
		})
	}
}

// publishCycleEvent publishes the per-cycle summary.
func (c *Coordinator) publishCycleEvent(report CycleReport) {
	if c.publisher == nil {
		return
	}

	event := telemetry.Event{
		Type: "cycle",
		Data: map[string]interface{}{
			"cycle":         report.Cycle,
			"counterBefore": int(report.CounterBefore),
			"counterAfter":  int(report.CounterAfter),
			"nodes":         len(report.Exchanges),
			"successes":     report.Successes(),
			"ts":            report.Started.UTC().Format(time.RFC3339),
		},
	}

	_ = c.publisher.Publish(event)
}

// publishFaultEvent publishes a fault event for a node.
func (c *Coordinator) publishFaultEvent(node string, err error, message string) {
	if c.publisher == nil {
		return
	}

	event := telemetry.Event{
		Type: "fault",
		Data: map[string]interface{}{
			"node":    node,
			"code":    err.Error(),
			"message": message,
			"ts":      time.Now().UTC().Format(time.RFC3339),
		},
	}

	// A failed fault publish is not republished as another fault.
	_ = c.publisher.PublishNode(node, event)
}
