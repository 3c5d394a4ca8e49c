package poll

import (
	"context"
	"log"
	"time"

	"github.com/radio-control/nodepoll/internal/motion"
	"github.com/radio-control/nodepoll/internal/protocol"
)

// RunCycle polls every node once, in registry order. Each node gets the
// current counter; a node that acknowledges with a usable payload has its
// state overwritten and advances the counter. Any other outcome leaves both
// untouched and the cycle moves on to the next node.
//
// If ctx is cancelled mid-cycle the remaining nodes are skipped and the
// report covers only the nodes already polled. A transmit cut short by the
// cancellation is dropped rather than reported as a failure.
func (c *Coordinator) RunCycle(ctx context.Context) CycleReport {
	c.mu.Lock()

	if !c.counter.Valid() {
		log.Printf("[!] Counter %d out of range, resetting to %d", c.counter, CounterMin)
		c.counter = CounterMin
	}

	c.cycles++
	report := CycleReport{
		Cycle:         c.cycles,
		Started:       c.clock.Now(),
		CounterBefore: c.counter,
	}
	c.lastCycle = report.Started

	log.Printf("[*] Coordinator has successfully sent and received data %d times", c.counter)

	c.registry.ForEachInOrder(func(i int, addr protocol.Address, state *protocol.NodeState) {
		if ctx.Err() != nil {
			return
		}
		ex, ok := c.exchange(ctx, i, addr, state)
		if !ok {
			return
		}
		ex.Cycle = report.Cycle
		report.Exchanges = append(report.Exchanges, ex)
	})

	report.CounterAfter = c.counter
	log.Println("--------------------------------------------------------")
	c.mu.Unlock()

	c.observe(ctx, report)
	return report
}

// exchange runs one send/ack/payload exchange. It returns false when ctx was
// cancelled during the transmit; nothing is recorded then. Caller holds c.mu.
func (c *Coordinator) exchange(ctx context.Context, i int, addr protocol.Address, state *protocol.NodeState) (Exchange, bool) {
	start := c.clock.Now()
	ex := Exchange{
		Index:     i,
		Address:   addr,
		Sent:      c.counter,
		Timestamp: start,
	}

	log.Printf("[*] Attempting to transmit data to node %d (%s)", i+1, addr)
	log.Printf("[*] The coordinator count being sent is: %d", c.counter)

	c.link.SelectRecipient(addr)
	acked := c.link.Send(ctx, protocol.EncodeCount(int16(c.counter)))
	if !acked && ctx.Err() != nil {
		log.Printf("[~] Transmission to node %d cancelled", i+1)
		return Exchange{}, false
	}

	switch {
	case !acked:
		ex.Outcome = OutcomeNoAck
		log.Printf("[-] The transmission to node %d failed", i+1)

	case !c.link.AckPayloadAvailable():
		ex.Outcome = OutcomeNoPayload
		log.Printf("[~] Node %d acknowledged without a payload", i+1)

	default:
		payload := c.link.ReadAckPayload()
		ex.PayloadLen = len(payload)

		decoded, err := protocol.DecodeNodeState(payload)
		if err != nil {
			ex.Outcome = OutcomeMalformed
			log.Printf("[!] Discarding payload from node %d: %v", i+1, err)
			break
		}

		*state = decoded
		c.counter = c.counter.Next()
		ex.Outcome = OutcomeSuccess
		ex.State = &decoded
		log.Printf("[+] Successfully received data from node %d", i+1)
		log.Printf("  ---- The node count received was: %d", decoded.Count)
		ex.Motion = c.sampleMotion(ctx, i, addr)
	}

	ex.CounterAfter = c.counter
	ex.Latency = c.clock.Now().Sub(start)
	c.record(i, ex)
	return ex, true
}

// sampleMotion reads the node's motion sensor, if one is set. A failed
// sample is logged and leaves the last reading in place. Caller holds c.mu.
func (c *Coordinator) sampleMotion(ctx context.Context, i int, addr protocol.Address) *motion.Reading {
	if c.motionSensor == nil {
		return nil
	}
	r, err := c.motionSensor.SampleMotion(ctx, addr, c.motionConfig)
	if err != nil {
		log.Printf("[!] Motion sample from node %d failed: %v", i+1, err)
		return nil
	}
	if r.Motion {
		log.Printf("[+] Motion was detected at node %d, Doppler frequency was: %.1f", i+1, r.FrequencyHz)
	}
	c.readings[i] = &r
	return &r
}

// record folds ex into the node's stats. Caller holds c.mu.
func (c *Coordinator) record(i int, ex Exchange) {
	s := &c.stats[i]
	s.Attempts++
	s.LastOutcome = ex.Outcome
	if ex.Outcome == OutcomeSuccess {
		s.Successes++
		s.LastSeen = ex.Timestamp
	} else {
		s.Failures++
	}
}

// observe hands a finished cycle to the audit log, the recorder and
// telemetry. Runs without c.mu held so slow sinks never block readers.
func (c *Coordinator) observe(ctx context.Context, report CycleReport) {
	for _, ex := range report.Exchanges {
		if c.auditLogger != nil {
			c.auditLogger.LogExchange(ctx, ex)
		}
		if c.recorder != nil {
			if err := c.recorder.Record(ex); err != nil {
				log.Printf("Failed to record exchange (cycle %d, node %d): %v", ex.Cycle, ex.Index+1, err)
			}
		}
		c.publishExchangeEvent(ex)
	}
	c.publishCycleEvent(report)
}

func elapsedMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
