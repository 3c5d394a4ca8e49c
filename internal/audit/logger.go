package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/radio-control/nodepoll/internal/poll"
)

// FileName is the audit log file name inside the log directory.
const FileName = "audit.jsonl"

// Entry is a single audit log line.
type Entry struct {
	Timestamp time.Time `json:"ts"`
	Action    string    `json:"action"`
	Outcome   string    `json:"outcome"`
	Code      string    `json:"code"`

	Cycle     uint64  `json:"cycle,omitempty"`
	Index     *int    `json:"index,omitempty"`
	Address   string  `json:"address,omitempty"`
	Sent      int     `json:"sent,omitempty"`
	NodeID    *int    `json:"nodeId,omitempty"`
	Count     *int    `json:"count,omitempty"`
	Counter   int     `json:"counter,omitempty"`
	LatencyMs float64 `json:"latencyMs,omitempty"`
	Detail    string  `json:"detail,omitempty"`

	Motion    *bool    `json:"motion,omitempty"`
	DopplerHz *float64 `json:"dopplerHz,omitempty"`
}

// Rotation bounds the audit file.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Logger implements poll.AuditLogger on a size-rotated file.
type Logger struct {
	mu       sync.Mutex
	filePath string
	out      *lumberjack.Logger
	closed   bool
}

var _ poll.AuditLogger = (*Logger)(nil)

// NewLogger creates the log directory if needed and opens the audit log.
func NewLogger(logDir string, rotation Rotation) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filePath := filepath.Join(logDir, FileName)

	// Create the file up front so permission problems surface at startup.
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	_ = file.Close()

	return &Logger{
		filePath: filePath,
		out: &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    rotation.MaxSizeMB,
			MaxBackups: rotation.MaxBackups,
			MaxAge:     rotation.MaxAgeDays,
			Compress:   rotation.Compress,
		},
	}, nil
}

// LogExchange records one node exchange.
func (l *Logger) LogExchange(ctx context.Context, ex poll.Exchange) {
	index := ex.Index
	entry := Entry{
		Timestamp: ex.Timestamp.UTC(),
		Action:    "exchange",
		Outcome:   string(ex.Outcome),
		Code:      codeFromOutcome(ex.Outcome),
		Cycle:     ex.Cycle,
		Index:     &index,
		Address:   ex.Address.String(),
		Sent:      int(ex.Sent),
		Counter:   int(ex.CounterAfter),
		LatencyMs: float64(ex.Latency) / float64(time.Millisecond),
	}
	if ex.State != nil {
		id, count := int(ex.State.NodeID), int(ex.State.Count)
		entry.NodeID = &id
		entry.Count = &count
	}
	if ex.Motion != nil {
		detected, hz := ex.Motion.Motion, ex.Motion.FrequencyHz
		entry.Motion = &detected
		entry.DopplerHz = &hz
	}

	l.writeEntry(entry)
}

// LogAction records a coordinator lifecycle action such as start or stop.
func (l *Logger) LogAction(ctx context.Context, action, outcome string, err error) {
	entry := Entry{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Outcome:   outcome,
		Code:      codeFromError(err),
	}
	if err != nil {
		entry.Detail = err.Error()
	}

	l.writeEntry(entry)
}

func (l *Logger) writeEntry(entry Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal audit entry: %v\n", err)
		return
	}

	if _, err := l.out.Write(append(jsonData, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write audit entry: %v\n", err)
	}
}

// codeFromOutcome maps exchange outcomes to standardized codes.
func codeFromOutcome(o poll.Outcome) string {
	switch o {
	case poll.OutcomeSuccess:
		return "SUCCESS"
	case poll.OutcomeNoAck:
		return "NO_ACK"
	case poll.OutcomeNoPayload:
		return "NO_PAYLOAD"
	case poll.OutcomeMalformed:
		return "MALFORMED"
	default:
		return "UNKNOWN"
	}
}

// codeFromError maps errors to standardized codes.
func codeFromError(err error) string {
	if err == nil {
		return "SUCCESS"
	}

	errStr := err.Error()
	for _, code := range []string{"INVALID_RANGE", "UNAVAILABLE", "UNAUTHORIZED", "FORBIDDEN"} {
		if strings.Contains(errStr, code) {
			return code
		}
	}
	return "ERROR"
}

// Close closes the audit log. Later writes are dropped.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.out.Close()
}

// GetFilePath returns the path to the active audit log file.
func (l *Logger) GetFilePath() string {
	return l.filePath
}

// Rotate moves the current file aside with a timestamp and starts a new one.
func (l *Logger) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("audit logger is closed")
	}
	if err := l.out.Rotate(); err != nil {
		return fmt.Errorf("failed to rotate audit log: %w", err)
	}
	return nil
}
