package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v2"
)

// Default config file names, tried in order when NODEPOLL_CONFIG is unset.
var defaultFiles = []string{"nodepoll.yaml", "nodepoll.toml"}

// Load merges LoadBaseline() + optional config file + NODEPOLL_* env
// overrides and validates the result.
func Load() (*Config, error) {
	cfg := LoadBaseline()

	path := os.Getenv("NODEPOLL_CONFIG")
	if path == "" {
		for _, name := range defaultFiles {
			if _, err := os.Stat(name); err == nil {
				path = name
				break
			}
		}
	}
	if path != "" {
		if err := LoadFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFile overlays the file at path onto cfg. The format follows the
// extension: .yaml/.yml or .toml.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	case ".toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	default:
		return fmt.Errorf("unsupported config format %q (want .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

// applyEnvOverrides applies NODEPOLL_* environment variables to cfg.
func applyEnvOverrides(cfg *Config) error {
	if val := os.Getenv("NODEPOLL_SEND_RATE"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("NODEPOLL_SEND_RATE: %w", err)
		}
		cfg.Coordinator.SendRate = Duration(d)
	}

	if val := os.Getenv("NODEPOLL_NODES"); val != "" {
		var nodes []string
		for _, n := range strings.Split(val, ",") {
			if n = strings.TrimSpace(n); n != "" {
				nodes = append(nodes, n)
			}
		}
		cfg.Coordinator.Nodes = nodes
	}

	if val := os.Getenv("NODEPOLL_CHANNEL"); val != "" {
		ch, err := strconv.ParseInt(val, 0, 32)
		if err != nil {
			return fmt.Errorf("NODEPOLL_CHANNEL: %w", err)
		}
		cfg.Radio.Channel = int(ch)
	}

	if val := os.Getenv("NODEPOLL_API_ADDR"); val != "" {
		cfg.API.Addr = val
	}

	if val := os.Getenv("NODEPOLL_AUTH_SECRET"); val != "" {
		cfg.Auth.Enabled = true
		cfg.Auth.Algorithm = "HS256"
		cfg.Auth.Secret = val
	}

	if val := os.Getenv("NODEPOLL_LOG_DIR"); val != "" {
		cfg.Logging.Dir = val
	}

	if val := os.Getenv("NODEPOLL_JOURNAL_PATH"); val != "" {
		cfg.Journal.Enabled = true
		cfg.Journal.Path = val
	}

	if val := os.Getenv("NODEPOLL_SIM_SEED"); val != "" {
		seed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("NODEPOLL_SIM_SEED: %w", err)
		}
		cfg.Simulation.Seed = seed
	}

	return nil
}
