package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/radio-control/nodepoll/internal/motion"
	"github.com/radio-control/nodepoll/internal/poll"
	"github.com/radio-control/nodepoll/internal/protocol"
)

func readEntries(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open audit log: %v", err)
	}
	defer func() { _ = f.Close() }()

	var entries []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
		}
		entries = append(entries, e)
	}
	return entries
}

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	logger, err := NewLogger(t.TempDir(), Rotation{MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })
	return logger
}

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	logger, err := NewLogger(dir, Rotation{})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer func() { _ = logger.Close() }()

	want := filepath.Join(dir, FileName)
	if logger.GetFilePath() != want {
		t.Errorf("GetFilePath() = %s, want %s", logger.GetFilePath(), want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("audit log not created: %v", err)
	}
}

func TestLogExchange(t *testing.T) {
	logger := newTestLogger(t)

	logger.LogExchange(context.Background(), poll.Exchange{
		Cycle:        4,
		Index:        0,
		Address:      protocol.MustParseAddress("NODE1"),
		Outcome:      poll.OutcomeSuccess,
		Sent:         12,
		CounterAfter: 13,
		State:        &protocol.NodeState{NodeID: 1, Count: 7},
		Motion:       &motion.Reading{FrequencyHz: 40, Pulses: 10, Motion: true},
		Timestamp:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Latency:      3 * time.Millisecond,
	})
	logger.LogExchange(context.Background(), poll.Exchange{
		Cycle:        4,
		Index:        1,
		Address:      protocol.MustParseAddress("NODE2"),
		Outcome:      poll.OutcomeNoAck,
		Sent:         13,
		CounterAfter: 13,
		Timestamp:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})

	entries := readEntries(t, logger.GetFilePath())
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}

	first := entries[0]
	checks := map[string]interface{}{
		"action":    "exchange",
		"outcome":   "success",
		"code":      "SUCCESS",
		"cycle":     float64(4),
		"index":     float64(0),
		"address":   "NODE1",
		"sent":      float64(12),
		"nodeId":    float64(1),
		"count":     float64(7),
		"counter":   float64(13),
		"latencyMs": float64(3),
		"motion":    true,
		"dopplerHz": float64(40),
		"ts":        "2024-05-01T12:00:00Z",
	}
	for k, want := range checks {
		if first[k] != want {
			t.Errorf("entry[%s] = %v, want %v", k, first[k], want)
		}
	}

	second := entries[1]
	if second["code"] != "NO_ACK" {
		t.Errorf("code = %v, want NO_ACK", second["code"])
	}
	if _, ok := second["nodeId"]; ok {
		t.Error("failed exchange carries nodeId")
	}
	if _, ok := second["motion"]; ok {
		t.Error("failed exchange carries a motion reading")
	}
}

func TestLogAction(t *testing.T) {
	logger := newTestLogger(t)

	logger.LogAction(context.Background(), "start", "ok", nil)
	logger.LogAction(context.Background(), "configure", "failed", errors.New("INVALID_RANGE: channel 200"))

	entries := readEntries(t, logger.GetFilePath())
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0]["code"] != "SUCCESS" || entries[0]["action"] != "start" {
		t.Errorf("entry[0] = %v", entries[0])
	}
	if entries[1]["code"] != "INVALID_RANGE" || entries[1]["detail"] != "INVALID_RANGE: channel 200" {
		t.Errorf("entry[1] = %v", entries[1])
	}
}

func TestCodeFromOutcome(t *testing.T) {
	tests := map[poll.Outcome]string{
		poll.OutcomeSuccess:   "SUCCESS",
		poll.OutcomeNoAck:     "NO_ACK",
		poll.OutcomeNoPayload: "NO_PAYLOAD",
		poll.OutcomeMalformed: "MALFORMED",
		poll.Outcome("weird"): "UNKNOWN",
	}
	for in, want := range tests {
		if got := codeFromOutcome(in); got != want {
			t.Errorf("codeFromOutcome(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestCloseDropsLaterWrites(t *testing.T) {
	logger := newTestLogger(t)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	logger.LogAction(context.Background(), "stop", "ok", nil)
	if entries := readEntries(t, logger.GetFilePath()); len(entries) != 0 {
		t.Errorf("entries after Close = %d", len(entries))
	}
	if err := logger.Rotate(); err == nil {
		t.Error("Rotate() after Close error = nil")
	}
}

func TestRotate(t *testing.T) {
	logger := newTestLogger(t)
	dir := filepath.Dir(logger.GetFilePath())

	logger.LogAction(context.Background(), "start", "ok", nil)
	if err := logger.Rotate(); err != nil {
		t.Fatalf("Rotate() error = %v", err)
	}
	logger.LogAction(context.Background(), "stop", "ok", nil)

	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Errorf("files after rotate = %d, want 2", len(files))
	}
	if entries := readEntries(t, logger.GetFilePath()); len(entries) != 1 || entries[0]["action"] != "stop" {
		t.Errorf("active file entries = %v", entries)
	}
}

func TestConcurrentLogging(t *testing.T) {
	logger := newTestLogger(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				logger.LogExchange(context.Background(), poll.Exchange{Index: i, Outcome: poll.OutcomeNoPayload})
			}
		}(i)
	}
	wg.Wait()

	if entries := readEntries(t, logger.GetFilePath()); len(entries) != 100 {
		t.Errorf("entries = %d, want 100", len(entries))
	}
}
