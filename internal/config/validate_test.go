package config

import (
	"errors"
	"testing"
	"time"

	"github.com/radio-control/nodepoll/internal/adapter"
	"github.com/radio-control/nodepoll/internal/motion"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{name: "zero_send_rate", modify: func(c *Config) { c.Coordinator.SendRate = 0 }},
		{name: "no_nodes", modify: func(c *Config) { c.Coordinator.Nodes = nil }},
		{name: "bad_address", modify: func(c *Config) { c.Coordinator.Nodes = []string{"NODE"} }},
		{name: "duplicate_address", modify: func(c *Config) { c.Coordinator.Nodes = []string{"NODE1", "NODE1"} }},
		{name: "duplicate_hex_and_ascii", modify: func(c *Config) { c.Coordinator.Nodes = []string{"NODE1", "0x4E4F444531"} }},
		{name: "channel", modify: func(c *Config) { c.Radio.Channel = 126 }},
		{name: "negative_channel", modify: func(c *Config) { c.Radio.Channel = -1 }},
		{name: "pa_level", modify: func(c *Config) { c.Radio.PALevel = "loud" }},
		{name: "data_rate", modify: func(c *Config) { c.Radio.DataRate = "9k6" }},
		{name: "retry_delay", modify: func(c *Config) { c.Radio.RetryDelay = 16 }},
		{name: "retry_count", modify: func(c *Config) { c.Radio.RetryCount = -1 }},
		{name: "heartbeat_interval", modify: func(c *Config) { c.Telemetry.HeartbeatInterval = 0 }},
		{name: "heartbeat_jitter", modify: func(c *Config) { c.Telemetry.HeartbeatJitter = Duration(10 * time.Second) }},
		{name: "heartbeat_timeout", modify: func(c *Config) { c.Telemetry.HeartbeatTimeout = Duration(time.Second) }},
		{name: "buffer_size", modify: func(c *Config) { c.Telemetry.EventBufferSize = 0 }},
		{name: "hs256_without_secret", modify: func(c *Config) { c.Auth.Enabled = true }},
		{name: "rs256_without_key", modify: func(c *Config) { c.Auth.Enabled = true; c.Auth.Algorithm = "RS256" }},
		{name: "unknown_algorithm", modify: func(c *Config) { c.Auth.Enabled = true; c.Auth.Algorithm = "none" }},
		{name: "api_without_addr", modify: func(c *Config) { c.API.Addr = "" }},
		{name: "journal_without_path", modify: func(c *Config) { c.Journal.Enabled = true; c.Journal.Path = "" }},
		{name: "sim_node_without_address", modify: func(c *Config) { c.Simulation.Nodes = []SimNodeConfig{{NodeID: 1}} }},
		{name: "sim_drop_rate", modify: func(c *Config) { c.Simulation.Nodes = []SimNodeConfig{{Address: "NODE1", DropRate: 2}} }},
		{name: "sim_node_id_above_int16", modify: func(c *Config) { c.Simulation.Nodes = []SimNodeConfig{{Address: "NODE1", NodeID: 32768}} }},
		{name: "sim_node_id_below_int16", modify: func(c *Config) { c.Simulation.Nodes = []SimNodeConfig{{Address: "NODE1", NodeID: -32769}} }},
		{name: "sim_negative_doppler", modify: func(c *Config) { c.Simulation.Nodes = []SimNodeConfig{{Address: "NODE1", DopplerHz: -1}} }},
		{name: "motion_sensitivity", modify: func(c *Config) { c.Motion.Sensitivity = 0 }},
		{name: "motion_edge_timeout", modify: func(c *Config) { c.Motion.EdgeTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadBaseline()
			tt.modify(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("Validate() error = nil, want error")
			}
		})
	}

	if err := Validate(nil); err == nil {
		t.Error("Validate(nil) error = nil")
	}
}

func TestValidateAcceptsAuthConfigurations(t *testing.T) {
	cfg := LoadBaseline()
	cfg.Auth = AuthConfig{Enabled: true, Algorithm: "hs256", Secret: "k"}
	if err := Validate(cfg); err != nil {
		t.Errorf("HS256: %v", err)
	}

	cfg.Auth = AuthConfig{Enabled: true, Algorithm: "RS256", PublicKeyFile: "key.pem"}
	if err := Validate(cfg); err != nil {
		t.Errorf("RS256: %v", err)
	}
}

func TestRadioSettings(t *testing.T) {
	cfg := LoadBaseline()
	s, err := cfg.RadioSettings()
	if err != nil {
		t.Fatalf("RadioSettings() error = %v", err)
	}
	if s != adapter.DefaultSettings() {
		t.Errorf("RadioSettings() = %v, want %v", s, adapter.DefaultSettings())
	}

	cfg.Radio.PALevel = "max"
	cfg.Radio.Channel = 125
	s, err = cfg.RadioSettings()
	if err != nil {
		t.Fatalf("RadioSettings() error = %v", err)
	}
	if s.PALevel != adapter.PAMax || s.Channel != 125 {
		t.Errorf("RadioSettings() = %v", s)
	}

	cfg.Radio.Channel = 300
	if _, err := cfg.RadioSettings(); !errors.Is(err, adapter.ErrInvalidRange) {
		t.Errorf("RadioSettings() error = %v, want ErrInvalidRange", err)
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1m30s")); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	if d.Std() != 90*time.Second {
		t.Errorf("d = %v", d)
	}
	text, _ := d.MarshalText()
	if string(text) != "1m30s" {
		t.Errorf("MarshalText() = %s", text)
	}
	if err := d.UnmarshalText([]byte("later")); err == nil {
		t.Error("UnmarshalText(later) error = nil")
	}
}

func TestValidateSimulationNodeIDBounds(t *testing.T) {
	for _, id := range []int{-32768, 0, 32767} {
		cfg := LoadBaseline()
		cfg.Simulation.Nodes = []SimNodeConfig{{Address: "NODE1", NodeID: id}}
		if err := Validate(cfg); err != nil {
			t.Errorf("Validate(nodeId %d) error = %v", id, err)
		}
	}
}

func TestValidateSkipsDisabledMotion(t *testing.T) {
	cfg := LoadBaseline()
	cfg.Motion = MotionConfig{Enabled: false}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestMotionSettings(t *testing.T) {
	cfg := LoadBaseline()
	if got := cfg.MotionSettings(); got != motion.DefaultConfig() {
		t.Errorf("MotionSettings() = %+v, want %+v", got, motion.DefaultConfig())
	}
}
