package adapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/radio-control/nodepoll/internal/protocol"
)

// RadioLink is the transport surface consumed by the poll cycle.
type RadioLink interface {
	// Configure applies one-time radio settings. Called once at startup.
	Configure(settings Settings) error

	// SelectRecipient opens the writing pipe to addr. Only one recipient is
	// active at a time.
	SelectRecipient(addr protocol.Address)

	// Send transmits payload to the selected recipient and blocks until the
	// transmit is acknowledged or the retry budget is exhausted.
	Send(ctx context.Context, payload []byte) bool

	// AckPayloadAvailable reports whether the last acknowledged transmit
	// carried a return payload that has not been read yet.
	AckPayloadAvailable() bool

	// ReadAckPayload returns and consumes the pending ack payload.
	ReadAckPayload() []byte
}

// PALevel is the transmitter power amplifier level.
type PALevel int

const (
	PAMin PALevel = iota
	PALow
	PAHigh
	PAMax
)

var paLevelNames = map[PALevel]string{
	PAMin:  "min",
	PALow:  "low",
	PAHigh: "high",
	PAMax:  "max",
}

func (p PALevel) String() string {
	if name, ok := paLevelNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PALevel(%d)", int(p))
}

// ParsePALevel maps a config string to a PALevel.
func ParsePALevel(s string) (PALevel, error) {
	for level, name := range paLevelNames {
		if strings.EqualFold(s, name) {
			return level, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown PA level %q (want min, low, high or max)", ErrInvalidRange, s)
}

// DataRate is the on-air bit rate.
type DataRate int

const (
	Rate250Kbps DataRate = iota
	Rate1Mbps
	Rate2Mbps
)

var dataRateNames = map[DataRate]string{
	Rate250Kbps: "250kbps",
	Rate1Mbps:   "1mbps",
	Rate2Mbps:   "2mbps",
}

func (r DataRate) String() string {
	if name, ok := dataRateNames[r]; ok {
		return name
	}
	return fmt.Sprintf("DataRate(%d)", int(r))
}

// ParseDataRate maps a config string to a DataRate.
func ParseDataRate(s string) (DataRate, error) {
	for rate, name := range dataRateNames {
		if strings.EqualFold(s, name) {
			return rate, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown data rate %q (want 250kbps, 1mbps or 2mbps)", ErrInvalidRange, s)
}

// Settings are the one-time transceiver settings.
type Settings struct {
	Channel  uint8
	PALevel  PALevel
	DataRate DataRate

	// RetryDelay is in hardware steps: the wait between attempts is
	// (RetryDelay+1) * 250µs. RetryCount is the number of automatic
	// retransmits after the first attempt. Both are 0-15.
	RetryDelay uint8
	RetryCount uint8

	AckPayload bool
}

// DefaultSettings mirrors the settings flashed into the node firmware.
func DefaultSettings() Settings {
	return Settings{
		Channel:    protocol.DefaultChannel,
		PALevel:    PALow,
		DataRate:   Rate250Kbps,
		RetryDelay: 4,
		RetryCount: 10,
		AckPayload: true,
	}
}

// Validate checks ranges the transceiver enforces.
func (s Settings) Validate() error {
	if s.Channel > protocol.MaxChannel {
		return fmt.Errorf("%w: channel %d (valid range: 0-%d)", ErrInvalidRange, s.Channel, protocol.MaxChannel)
	}
	if _, ok := paLevelNames[s.PALevel]; !ok {
		return fmt.Errorf("%w: PA level %d", ErrInvalidRange, s.PALevel)
	}
	if _, ok := dataRateNames[s.DataRate]; !ok {
		return fmt.Errorf("%w: data rate %d", ErrInvalidRange, s.DataRate)
	}
	if s.RetryDelay > 15 {
		return fmt.Errorf("%w: retry delay %d (valid range: 0-15)", ErrInvalidRange, s.RetryDelay)
	}
	if s.RetryCount > 15 {
		return fmt.Errorf("%w: retry count %d (valid range: 0-15)", ErrInvalidRange, s.RetryCount)
	}
	return nil
}

// RetryInterval is the wait between automatic retransmits.
func (s Settings) RetryInterval() time.Duration {
	return time.Duration(int(s.RetryDelay)+1) * 250 * time.Microsecond
}

// Attempts is the total number of transmit attempts per Send.
func (s Settings) Attempts() int {
	return int(s.RetryCount) + 1
}

func (s Settings) String() string {
	return fmt.Sprintf("channel=0x%02X pa=%s rate=%s retries=(%d,%d) ackPayload=%t",
		s.Channel, s.PALevel, s.DataRate, s.RetryDelay, s.RetryCount, s.AckPayload)
}
