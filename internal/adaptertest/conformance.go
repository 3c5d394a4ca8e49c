// Package adaptertest provides a conformance suite for RadioLink
// implementations.
//
// Every link must reject out-of-range settings with INVALID_RANGE, refuse to
// transmit before a recipient is selected, hand back exactly one ack payload
// per acknowledged transmit, and honor context cancellation.
package adaptertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/radio-control/nodepoll/internal/adapter"
	"github.com/radio-control/nodepoll/internal/protocol"
)

// Harness describes the link under test.
type Harness struct {
	Name string

	// New returns a configured link on which Responsive acknowledges every
	// transmit with FirstReply on its first exchange and Unreachable never
	// acknowledges.
	New func(t *testing.T) adapter.RadioLink

	Responsive  protocol.Address
	Unreachable protocol.Address
	FirstReply  protocol.NodeState
}

// ConformanceResult represents the result of a conformance test.
type ConformanceResult struct {
	TestName string
	Passed   bool
	Error    string
	Duration time.Duration
	Details  map[string]interface{}
}

// ConformanceReport represents the complete conformance test report.
type ConformanceReport struct {
	LinkName      string
	TotalTests    int
	PassedTests   int
	FailedTests   int
	Results       []ConformanceResult
	OverallPassed bool
	Duration      time.Duration
}

// RunConformance runs the complete conformance suite against h.
func RunConformance(t *testing.T, h Harness) {
	startTime := time.Now()

	report := &ConformanceReport{
		LinkName:      h.Name,
		OverallPassed: true,
	}

	checks := []struct {
		name string
		run  func(t *testing.T, h Harness, result *ConformanceResult)
	}{
		{"Configure_RejectsInvalid", checkConfigureRejectsInvalid},
		{"Send_BeforeSelect", checkSendBeforeSelect},
		{"Exchange_Responsive", checkResponsiveExchange},
		{"Exchange_Unreachable", checkUnreachable},
		{"Exchange_NoLeakAcrossRecipients", checkNoLeakAcrossRecipients},
		{"Send_Cancelled", checkCancelled},
		{"Timing_FirstAttempt", checkFirstAttemptTiming},
	}

	for _, c := range checks {
		result := ConformanceResult{
			TestName: c.name,
			Passed:   true,
			Details:  make(map[string]interface{}),
		}
		start := time.Now()
		c.run(t, h, &result)
		result.Duration = time.Since(start)
		report.addResult(result)
	}

	report.Duration = time.Since(startTime)
	printConformanceReport(t, report)

	if !report.OverallPassed {
		t.Fatalf("Link conformance test failed: %d/%d tests passed", report.PassedTests, report.TotalTests)
	}
}

func (r *ConformanceResult) fail(format string, args ...interface{}) {
	r.Passed = false
	r.Error = fmt.Sprintf(format, args...)
}

func checkConfigureRejectsInvalid(t *testing.T, h Harness, result *ConformanceResult) {
	link := h.New(t)

	bad := adapter.DefaultSettings()
	bad.Channel = protocol.MaxChannel + 1

	err := link.Configure(bad)
	switch {
	case err == nil:
		result.fail("Configure(channel=%d) should have failed but succeeded", bad.Channel)
	case !errors.Is(err, adapter.ErrInvalidRange):
		result.fail("Configure(channel=%d) should return INVALID_RANGE, got: %v", bad.Channel, err)
	default:
		result.Details["actualError"] = err.Error()
	}
}

func checkSendBeforeSelect(t *testing.T, h Harness, result *ConformanceResult) {
	link := h.New(t)

	if link.Send(context.Background(), protocol.EncodeCount(1)) {
		result.fail("Send without a selected recipient reported an ack")
		return
	}
	if link.AckPayloadAvailable() {
		result.fail("ack payload available without any exchange")
	}
}

func checkResponsiveExchange(t *testing.T, h Harness, result *ConformanceResult) {
	link := h.New(t)
	link.SelectRecipient(h.Responsive)

	if !link.Send(context.Background(), protocol.EncodeCount(1)) {
		result.fail("Send to %s was not acknowledged", h.Responsive)
		return
	}
	if !link.AckPayloadAvailable() {
		result.fail("acknowledged Send to %s carried no payload", h.Responsive)
		return
	}

	state, err := protocol.DecodeNodeState(link.ReadAckPayload())
	if err != nil {
		result.fail("ack payload did not decode: %v", err)
		return
	}
	if state != h.FirstReply {
		result.fail("ack payload = %+v, want %+v", state, h.FirstReply)
		return
	}
	if link.AckPayloadAvailable() {
		result.fail("ack payload still available after ReadAckPayload")
		return
	}
	result.Details["nodeId"] = state.NodeID
	result.Details["count"] = state.Count
}

func checkUnreachable(t *testing.T, h Harness, result *ConformanceResult) {
	link := h.New(t)
	link.SelectRecipient(h.Unreachable)

	if link.Send(context.Background(), protocol.EncodeCount(1)) {
		result.fail("Send to unreachable %s reported an ack", h.Unreachable)
		return
	}
	if link.AckPayloadAvailable() {
		result.fail("failed Send left an ack payload")
	}
}

func checkNoLeakAcrossRecipients(t *testing.T, h Harness, result *ConformanceResult) {
	link := h.New(t)

	// Leave the responsive node's payload unread.
	link.SelectRecipient(h.Responsive)
	if !link.Send(context.Background(), protocol.EncodeCount(1)) {
		result.fail("Send to %s was not acknowledged", h.Responsive)
		return
	}

	link.SelectRecipient(h.Unreachable)
	link.Send(context.Background(), protocol.EncodeCount(2))
	if link.AckPayloadAvailable() {
		result.fail("payload from %s still available after a failed Send to %s", h.Responsive, h.Unreachable)
	}
}

func checkCancelled(t *testing.T, h Harness, result *ConformanceResult) {
	link := h.New(t)
	link.SelectRecipient(h.Responsive)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if link.Send(ctx, protocol.EncodeCount(1)) {
		result.fail("Send with a cancelled context reported an ack")
	}
}

func checkFirstAttemptTiming(t *testing.T, h Harness, result *ConformanceResult) {
	link := h.New(t)
	link.SelectRecipient(h.Responsive)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	acked := link.Send(ctx, protocol.EncodeCount(1))
	elapsed := time.Since(start)

	switch {
	case !acked:
		result.fail("Send to %s was not acknowledged", h.Responsive)
	case elapsed > 50*time.Millisecond:
		result.fail("first-attempt exchange took too long: %v", elapsed)
	default:
		result.Details["duration"] = elapsed.String()
	}
}

func (r *ConformanceReport) addResult(result ConformanceResult) {
	r.TotalTests++
	if result.Passed {
		r.PassedTests++
	} else {
		r.FailedTests++
		r.OverallPassed = false
	}
	r.Results = append(r.Results, result)
}

func printConformanceReport(t *testing.T, report *ConformanceReport) {
	t.Logf("\n%s", strings.Repeat("=", 80))
	t.Logf("RADIO LINK CONFORMANCE REPORT")
	t.Logf("%s", strings.Repeat("=", 80))
	t.Logf("Link: %s", report.LinkName)
	t.Logf("Total Tests: %d", report.TotalTests)
	t.Logf("Passed: %d", report.PassedTests)
	t.Logf("Failed: %d", report.FailedTests)
	t.Logf("Overall: %s", map[bool]string{true: "PASS", false: "FAIL"}[report.OverallPassed])
	t.Logf("Duration: %v", report.Duration)
	t.Logf("%s", strings.Repeat("-", 80))

	t.Logf("%-32s %-8s %-12s %-s", "TEST NAME", "RESULT", "DURATION", "DETAILS")
	t.Logf("%s", strings.Repeat("-", 80))

	for _, result := range report.Results {
		status := "PASS"
		if !result.Passed {
			status = "FAIL"
		}

		details := result.Error
		if details == "" && len(result.Details) > 0 {
			var parts []string
			for k, v := range result.Details {
				parts = append(parts, fmt.Sprintf("%s=%v", k, v))
			}
			details = strings.Join(parts, ", ")
		}

		t.Logf("%-32s %-8s %-12s %-s", result.TestName, status, result.Duration.String(), details)
	}

	t.Logf("%s", strings.Repeat("=", 80))
}
