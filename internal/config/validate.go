package config

import (
	"fmt"
	"math"
	"strings"
)

// Validate checks the whole configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validateCoordinator(cfg); err != nil {
		return fmt.Errorf("coordinator validation failed: %w", err)
	}

	if _, err := cfg.RadioSettings(); err != nil {
		return fmt.Errorf("radio validation failed: %w", err)
	}

	if err := validateTelemetry(&cfg.Telemetry); err != nil {
		return fmt.Errorf("telemetry validation failed: %w", err)
	}

	if err := validateAuth(&cfg.Auth); err != nil {
		return fmt.Errorf("auth validation failed: %w", err)
	}

	if cfg.Motion.Enabled {
		if err := cfg.MotionSettings().Validate(); err != nil {
			return fmt.Errorf("motion validation failed: %w", err)
		}
	}

	if err := validateSimulation(&cfg.Simulation); err != nil {
		return fmt.Errorf("simulation validation failed: %w", err)
	}

	if cfg.API.Enabled && cfg.API.Addr == "" {
		return fmt.Errorf("api address must be set when the api is enabled")
	}

	if cfg.Journal.Enabled && cfg.Journal.Path == "" {
		return fmt.Errorf("journal path must be set when the journal is enabled")
	}

	return nil
}

func validateCoordinator(cfg *Config) error {
	if cfg.Coordinator.SendRate <= 0 {
		return fmt.Errorf("send rate must be positive, got %v", cfg.Coordinator.SendRate)
	}

	if len(cfg.Coordinator.Nodes) == 0 {
		return fmt.Errorf("at least one node is required")
	}

	addrs, err := cfg.Addresses()
	if err != nil {
		return err
	}
	seen := make(map[string]int, len(addrs))
	for i, a := range addrs {
		if prev, dup := seen[a.String()]; dup {
			return fmt.Errorf("node %d duplicates node %d (%s)", i+1, prev+1, a)
		}
		seen[a.String()] = i
	}

	return nil
}

func validateTelemetry(t *TelemetryConfig) error {
	if t.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive, got %v", t.HeartbeatInterval)
	}

	// Jitter must be non-negative and ≤ 50% of interval
	if t.HeartbeatJitter < 0 {
		return fmt.Errorf("heartbeat jitter must be non-negative, got %v", t.HeartbeatJitter)
	}
	if t.HeartbeatJitter > t.HeartbeatInterval/2 {
		return fmt.Errorf("heartbeat jitter %v exceeds 50%% of interval %v", t.HeartbeatJitter, t.HeartbeatInterval)
	}

	if t.HeartbeatTimeout < t.HeartbeatInterval {
		return fmt.Errorf("heartbeat timeout %v must be >= interval %v", t.HeartbeatTimeout, t.HeartbeatInterval)
	}

	if t.EventBufferSize <= 0 {
		return fmt.Errorf("event buffer size must be positive, got %d", t.EventBufferSize)
	}

	return nil
}

func validateAuth(a *AuthConfig) error {
	if !a.Enabled {
		return nil
	}

	switch strings.ToUpper(a.Algorithm) {
	case "HS256":
		if a.Secret == "" {
			return fmt.Errorf("HS256 requires a secret")
		}
	case "RS256":
		if a.PublicKeyFile == "" {
			return fmt.Errorf("RS256 requires a public key file")
		}
	default:
		return fmt.Errorf("unsupported algorithm %q (want HS256 or RS256)", a.Algorithm)
	}

	return nil
}

func validateSimulation(s *SimulationConfig) error {
	for i, n := range s.Nodes {
		if n.Address == "" {
			return fmt.Errorf("simulated node %d has no address", i+1)
		}
		if n.DropRate < 0 || n.DropRate > 1 {
			return fmt.Errorf("simulated node %d drop rate %v outside 0-1", i+1, n.DropRate)
		}
		if n.SilentRate < 0 || n.SilentRate > 1 {
			return fmt.Errorf("simulated node %d silent rate %v outside 0-1", i+1, n.SilentRate)
		}
		// Node ids travel as int16 on the wire.
		if n.NodeID < math.MinInt16 || n.NodeID > math.MaxInt16 {
			return fmt.Errorf("simulated node %d id %d outside %d-%d", i+1, n.NodeID, math.MinInt16, math.MaxInt16)
		}
		if n.DopplerHz < 0 {
			return fmt.Errorf("simulated node %d doppler frequency %v is negative", i+1, n.DopplerHz)
		}
	}
	return nil
}
