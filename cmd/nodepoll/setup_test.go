package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/radio-control/nodepoll/internal/adapter"
	"github.com/radio-control/nodepoll/internal/audit"
	"github.com/radio-control/nodepoll/internal/config"
	"github.com/radio-control/nodepoll/internal/protocol"
)

func TestSimNodesDefaultsToRegistry(t *testing.T) {
	cfg := config.LoadBaseline()
	addrs, err := cfg.Addresses()
	if err != nil {
		t.Fatal(err)
	}

	nodes, err := simNodes(cfg, addrs)
	if err != nil {
		t.Fatalf("simNodes() error = %v", err)
	}
	if len(nodes) != len(addrs) {
		t.Fatalf("len = %d, want %d", len(nodes), len(addrs))
	}
	for i, n := range nodes {
		if n.Address != addrs[i] || n.NodeID != int16(i+1) {
			t.Errorf("node %d = %+v", i, n)
		}
		if n.DropRate != 0 || n.Offline {
			t.Errorf("default node %d is not well-behaved: %+v", i, n)
		}
	}
}

func TestSimNodesFromConfig(t *testing.T) {
	cfg := config.LoadBaseline()
	cfg.Simulation.Nodes = []config.SimNodeConfig{
		{Address: "NODE2", NodeID: 7, DropRate: 0.5, Offline: true},
		{Address: "0xE7E7E7E7E7", NodeID: 1, ShortPayload: true},
	}

	nodes, err := simNodes(cfg, nil)
	if err != nil {
		t.Fatalf("simNodes() error = %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("len = %d, want 2", len(nodes))
	}
	if nodes[0].Address != protocol.MustParseAddress("NODE2") || nodes[0].NodeID != 7 ||
		nodes[0].DropRate != 0.5 || !nodes[0].Offline {
		t.Errorf("nodes[0] = %+v", nodes[0])
	}
	if !nodes[1].ShortPayload {
		t.Errorf("nodes[1] = %+v", nodes[1])
	}

	cfg.Simulation.Nodes = []config.SimNodeConfig{{Address: "BAD"}}
	if _, err := simNodes(cfg, nil); !errors.Is(err, protocol.ErrInvalidAddress) {
		t.Errorf("simNodes(bad address) error = %v", err)
	}
}

func TestSimNodesRejectsWideNodeID(t *testing.T) {
	cfg := config.LoadBaseline()
	for _, id := range []int{40000, -40000} {
		cfg.Simulation.Nodes = []config.SimNodeConfig{{Address: "NODE1", NodeID: id}}
		if _, err := simNodes(cfg, nil); !errors.Is(err, adapter.ErrInvalidRange) {
			t.Errorf("simNodes(nodeId %d) error = %v, want ErrInvalidRange", id, err)
		}
	}

	cfg.Simulation.Nodes = []config.SimNodeConfig{{Address: "NODE1", NodeID: 32767, DopplerHz: 30}}
	nodes, err := simNodes(cfg, nil)
	if err != nil {
		t.Fatalf("simNodes(nodeId 32767) error = %v", err)
	}
	if nodes[0].NodeID != 32767 || nodes[0].DopplerHz != 30 {
		t.Errorf("nodes[0] = %+v", nodes[0])
	}
}

func TestRotateLogs(t *testing.T) {
	dir := t.TempDir()
	prev := log.Writer()
	defer log.SetOutput(prev)

	console, err := setupLogging(config.LoggingConfig{Dir: dir, MaxSizeMB: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer console.Close()
	auditLogger, err := audit.NewLogger(dir, audit.Rotation{MaxSizeMB: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer auditLogger.Close()

	log.Println("before rotation")
	auditAction(auditLogger, "start", nil)

	if err := rotateLogs(console, auditLogger); err != nil {
		t.Fatalf("rotateLogs() error = %v", err)
	}

	// Each log leaves a timestamped backup beside the fresh file.
	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 4 {
		var names []string
		for _, f := range files {
			names = append(names, f.Name())
		}
		t.Errorf("files = %v, want two active logs and two backups", names)
	}

	_ = auditLogger.Close()
	if err := rotateLogs(console, auditLogger); err == nil {
		t.Error("rotateLogs() with a closed audit log error = nil")
	}
}

func TestNewAuthMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.AuthConfig
		wantNil bool
		wantErr bool
	}{
		{name: "disabled", cfg: config.AuthConfig{}, wantNil: true},
		{name: "hs256", cfg: config.AuthConfig{Enabled: true, Algorithm: "HS256", Secret: "s3cret"}},
		{name: "hs256_without_secret", cfg: config.AuthConfig{Enabled: true, Algorithm: "HS256"}, wantErr: true},
		{name: "missing_key_file", cfg: config.AuthConfig{Enabled: true, Algorithm: "RS256", PublicKeyFile: "/nonexistent/key.pem"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := newAuthMiddleware(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("newAuthMiddleware() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (m == nil) != tt.wantNil {
				t.Errorf("middleware = %v, wantNil %v", m, tt.wantNil)
			}
		})
	}
}

func TestSetupLogging(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	prev := log.Writer()
	defer log.SetOutput(prev)

	closer, err := setupLogging(config.LoggingConfig{Dir: dir, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("setupLogging() error = %v", err)
	}
	log.Printf("Coordinator has successfully sent and received data 0 times")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "successfully sent and received data 0 times") {
		t.Errorf("log file = %q", data)
	}
}

func TestAuditAction(t *testing.T) {
	dir := t.TempDir()
	logger, err := audit.NewLogger(dir, audit.Rotation{MaxSizeMB: 1})
	if err != nil {
		t.Fatal(err)
	}

	auditAction(logger, "start", nil)
	auditAction(logger, "stop", os.ErrClosed)
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(dir, audit.FileName))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var entries []audit.Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e audit.Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("decode %q: %v", scanner.Text(), err)
		}
		entries = append(entries, e)
	}

	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Action != "start" || entries[0].Outcome != "success" {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].Action != "stop" || entries[1].Outcome != "error" || entries[1].Detail == "" {
		t.Errorf("entries[1] = %+v", entries[1])
	}
}
