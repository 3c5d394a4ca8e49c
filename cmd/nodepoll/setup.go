package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/radio-control/nodepoll/internal/adapter"
	"github.com/radio-control/nodepoll/internal/adapter/sim"
	"github.com/radio-control/nodepoll/internal/audit"
	"github.com/radio-control/nodepoll/internal/auth"
	"github.com/radio-control/nodepoll/internal/config"
	"github.com/radio-control/nodepoll/internal/protocol"
)

// LogFileName is the rotating console log inside the log directory.
const LogFileName = "nodepoll.log"

// setupLogging mirrors the standard logger to a rotating file. The caller
// closes the returned logger.
func setupLogging(cfg config.LoggingConfig) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rotating := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, LogFileName),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotating))
	return rotating, nil
}

// simNodes builds the simulated remote nodes. Without explicit simulation
// entries every polled address gets a well-behaved node whose id is its
// position plus one.
func simNodes(cfg *config.Config, addrs []protocol.Address) ([]sim.NodeConfig, error) {
	if len(cfg.Simulation.Nodes) == 0 {
		nodes := make([]sim.NodeConfig, len(addrs))
		for i, addr := range addrs {
			nodes[i] = sim.NodeConfig{Address: addr, NodeID: int16(i + 1)}
		}
		return nodes, nil
	}

	nodes := make([]sim.NodeConfig, 0, len(cfg.Simulation.Nodes))
	for i, n := range cfg.Simulation.Nodes {
		addr, err := protocol.ParseAddress(n.Address)
		if err != nil {
			return nil, fmt.Errorf("simulated node %d: %w", i+1, err)
		}
		if n.NodeID < math.MinInt16 || n.NodeID > math.MaxInt16 {
			return nil, fmt.Errorf("%w: simulated node %d id %d does not fit the wire record", adapter.ErrInvalidRange, i+1, n.NodeID)
		}
		nodes = append(nodes, sim.NodeConfig{
			Address:      addr,
			NodeID:       int16(n.NodeID),
			DropRate:     n.DropRate,
			SilentRate:   n.SilentRate,
			ShortPayload: n.ShortPayload,
			Offline:      n.Offline,
			DopplerHz:    n.DopplerHz,
		})
	}
	return nodes, nil
}

// newAuthMiddleware returns nil when auth is disabled.
func newAuthMiddleware(cfg config.AuthConfig) (*auth.Middleware, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var (
		verifier *auth.Verifier
		err      error
	)
	if cfg.PublicKeyFile != "" {
		verifier, err = auth.NewVerifierFromFile(cfg.PublicKeyFile)
	} else {
		verifier, err = auth.NewVerifier(auth.VerifierConfig{
			Algorithm: cfg.Algorithm,
			SecretKey: cfg.Secret,
		})
	}
	if err != nil {
		return nil, err
	}
	return auth.NewMiddleware(verifier), nil
}

// auditAction writes a lifecycle entry, logging rather than failing.
func auditAction(logger *audit.Logger, action string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	logger.LogAction(context.Background(), action, outcome, err)
}

// rotator is a log that can start a fresh file on demand.
type rotator interface {
	Rotate() error
}

// rotateLogs rotates every log, returning all failures.
func rotateLogs(logs ...rotator) error {
	var errs []error
	for _, l := range logs {
		if err := l.Rotate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
