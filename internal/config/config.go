package config

import (
	"fmt"
	"time"

	"github.com/radio-control/nodepoll/internal/adapter"
	"github.com/radio-control/nodepoll/internal/motion"
	"github.com/radio-control/nodepoll/internal/protocol"
)

// Config is the complete coordinator configuration.
type Config struct {
	Coordinator CoordinatorConfig `yaml:"coordinator" toml:"coordinator"`
	Radio       RadioConfig       `yaml:"radio" toml:"radio"`
	API         APIConfig         `yaml:"api" toml:"api"`
	Auth        AuthConfig        `yaml:"auth" toml:"auth"`
	Logging     LoggingConfig     `yaml:"logging" toml:"logging"`
	Journal     JournalConfig     `yaml:"journal" toml:"journal"`
	Telemetry   TelemetryConfig   `yaml:"telemetry" toml:"telemetry"`
	Motion      MotionConfig      `yaml:"motion" toml:"motion"`
	Simulation  SimulationConfig  `yaml:"simulation" toml:"simulation"`
}

// CoordinatorConfig holds the polling settings.
type CoordinatorConfig struct {
	SendRate Duration `yaml:"sendRate" toml:"sendRate"`
	Nodes    []string `yaml:"nodes" toml:"nodes"` // poll order
}

// RadioConfig holds the one-time transceiver settings.
type RadioConfig struct {
	Channel    int    `yaml:"channel" toml:"channel"`
	PALevel    string `yaml:"paLevel" toml:"paLevel"`
	DataRate   string `yaml:"dataRate" toml:"dataRate"`
	RetryDelay int    `yaml:"retryDelay" toml:"retryDelay"` // steps of 250µs, plus 250µs
	RetryCount int    `yaml:"retryCount" toml:"retryCount"`
	AckPayload bool   `yaml:"ackPayload" toml:"ackPayload"`
}

// APIConfig holds the status API listener settings.
type APIConfig struct {
	Enabled      bool     `yaml:"enabled" toml:"enabled"`
	Addr         string   `yaml:"addr" toml:"addr"`
	ReadTimeout  Duration `yaml:"readTimeout" toml:"readTimeout"`
	WriteTimeout Duration `yaml:"writeTimeout" toml:"writeTimeout"`
	IdleTimeout  Duration `yaml:"idleTimeout" toml:"idleTimeout"`
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	Enabled       bool   `yaml:"enabled" toml:"enabled"`
	Algorithm     string `yaml:"algorithm" toml:"algorithm"` // HS256 or RS256
	Secret        string `yaml:"secret" toml:"secret"`
	PublicKeyFile string `yaml:"publicKeyFile" toml:"publicKeyFile"`
}

// LoggingConfig holds the rotating log file settings.
type LoggingConfig struct {
	Dir        string `yaml:"dir" toml:"dir"`
	MaxSizeMB  int    `yaml:"maxSizeMb" toml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups" toml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays" toml:"maxAgeDays"`
	Compress   bool   `yaml:"compress" toml:"compress"`
}

// JournalConfig holds the exchange journal settings.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// TelemetryConfig holds the event stream settings.
type TelemetryConfig struct {
	HeartbeatInterval Duration `yaml:"heartbeatInterval" toml:"heartbeatInterval"`
	HeartbeatJitter   Duration `yaml:"heartbeatJitter" toml:"heartbeatJitter"`
	HeartbeatTimeout  Duration `yaml:"heartbeatTimeout" toml:"heartbeatTimeout"`
	EventBufferSize   int      `yaml:"eventBufferSize" toml:"eventBufferSize"`
}

// MotionConfig holds the Doppler motion classifier settings.
type MotionConfig struct {
	Enabled     bool     `yaml:"enabled" toml:"enabled"`
	Sensitivity float64  `yaml:"sensitivity" toml:"sensitivity"` // Hz
	MaxPulses   int      `yaml:"maxPulses" toml:"maxPulses"`
	EdgeTimeout Duration `yaml:"edgeTimeout" toml:"edgeTimeout"`
}

// SimulationConfig describes the simulated remote nodes. An empty node list
// simulates one healthy node per coordinator node.
type SimulationConfig struct {
	Seed  int64           `yaml:"seed" toml:"seed"`
	Nodes []SimNodeConfig `yaml:"nodes" toml:"nodes"`
}

// SimNodeConfig describes one simulated node.
type SimNodeConfig struct {
	Address      string  `yaml:"address" toml:"address"`
	NodeID       int     `yaml:"nodeId" toml:"nodeId"`
	DropRate     float64 `yaml:"dropRate" toml:"dropRate"`
	SilentRate   float64 `yaml:"silentRate" toml:"silentRate"`
	ShortPayload bool    `yaml:"shortPayload" toml:"shortPayload"`
	Offline      bool    `yaml:"offline" toml:"offline"`
	DopplerHz    float64 `yaml:"dopplerHz" toml:"dopplerHz"`
}

// LoadBaseline returns the default configuration. Radio settings match the
// node firmware.
func LoadBaseline() *Config {
	return &Config{
		Coordinator: CoordinatorConfig{
			SendRate: Duration(1000 * time.Millisecond),
			Nodes:    []string{"NODE1", "NODE2", "NODE3"},
		},
		Radio: RadioConfig{
			Channel:    protocol.DefaultChannel,
			PALevel:    "low",
			DataRate:   "250kbps",
			RetryDelay: 4,
			RetryCount: 10,
			AckPayload: true,
		},
		API: APIConfig{
			Enabled:      true,
			Addr:         ":8000",
			ReadTimeout:  Duration(30 * time.Second),
			WriteTimeout: Duration(30 * time.Second),
			IdleTimeout:  Duration(120 * time.Second),
		},
		Auth: AuthConfig{
			Enabled:   false,
			Algorithm: "HS256",
		},
		Logging: LoggingConfig{
			Dir:        "logs",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Journal: JournalConfig{
			Enabled: false,
			Path:    "data/exchanges.db",
		},
		Telemetry: TelemetryConfig{
			HeartbeatInterval: Duration(15 * time.Second),
			HeartbeatJitter:   Duration(2 * time.Second),
			HeartbeatTimeout:  Duration(45 * time.Second),
			EventBufferSize:   50,
		},
		Motion: MotionConfig{
			Enabled:     true,
			Sensitivity: motion.DefaultSensitivity,
			MaxPulses:   motion.DefaultMaxPulses,
			EdgeTimeout: Duration(motion.DefaultEdgeTimeout),
		},
		Simulation: SimulationConfig{
			Seed: 1,
		},
	}
}

// Addresses parses the coordinator node list in poll order.
func (c *Config) Addresses() ([]protocol.Address, error) {
	addrs := make([]protocol.Address, 0, len(c.Coordinator.Nodes))
	for i, s := range c.Coordinator.Nodes {
		a, err := protocol.ParseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i+1, err)
		}
		addrs = append(addrs, a)
	}
	return addrs, nil
}

// MotionSettings converts the motion section to classifier settings.
func (c *Config) MotionSettings() motion.Config {
	return motion.Config{
		Sensitivity: c.Motion.Sensitivity,
		MaxPulses:   c.Motion.MaxPulses,
		EdgeTimeout: c.Motion.EdgeTimeout.Std(),
	}
}

// RadioSettings converts the radio section to link settings.
func (c *Config) RadioSettings() (adapter.Settings, error) {
	pa, err := adapter.ParsePALevel(c.Radio.PALevel)
	if err != nil {
		return adapter.Settings{}, err
	}
	rate, err := adapter.ParseDataRate(c.Radio.DataRate)
	if err != nil {
		return adapter.Settings{}, err
	}
	if c.Radio.Channel < 0 || c.Radio.Channel > protocol.MaxChannel {
		return adapter.Settings{}, fmt.Errorf("%w: channel %d (valid range: 0-%d)", adapter.ErrInvalidRange, c.Radio.Channel, protocol.MaxChannel)
	}
	if c.Radio.RetryDelay < 0 || c.Radio.RetryDelay > 15 || c.Radio.RetryCount < 0 || c.Radio.RetryCount > 15 {
		return adapter.Settings{}, fmt.Errorf("%w: retries (%d,%d) (valid range: 0-15)", adapter.ErrInvalidRange, c.Radio.RetryDelay, c.Radio.RetryCount)
	}

	s := adapter.Settings{
		Channel:    uint8(c.Radio.Channel),
		PALevel:    pa,
		DataRate:   rate,
		RetryDelay: uint8(c.Radio.RetryDelay),
		RetryCount: uint8(c.Radio.RetryCount),
		AckPayload: c.Radio.AckPayload,
	}
	return s, s.Validate()
}
