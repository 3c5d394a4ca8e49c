// Package main implements the node polling coordinator entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/radio-control/nodepoll/internal/adapter/sim"
	"github.com/radio-control/nodepoll/internal/api"
	"github.com/radio-control/nodepoll/internal/audit"
	"github.com/radio-control/nodepoll/internal/config"
	"github.com/radio-control/nodepoll/internal/journal"
	"github.com/radio-control/nodepoll/internal/poll"
	"github.com/radio-control/nodepoll/internal/registry"
	"github.com/radio-control/nodepoll/internal/telemetry"
)

func main() {
	// Step 1: Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Step 2: Mirror console output to the rotating log
	logFile, err := setupLogging(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	log.Printf("Starting node poll coordinator v%s", api.Version)

	// Step 3: Build the node registry
	addrs, err := cfg.Addresses()
	if err != nil {
		log.Fatalf("Invalid node table: %v", err)
	}
	reg, err := registry.New(addrs)
	if err != nil {
		log.Fatalf("Failed to build node registry: %v", err)
	}
	log.Printf("Polling %d nodes every %s", reg.Len(), cfg.Coordinator.SendRate)

	// Step 4: Configure the radio link
	settings, err := cfg.RadioSettings()
	if err != nil {
		log.Fatalf("Invalid radio settings: %v", err)
	}
	nodes, err := simNodes(cfg, addrs)
	if err != nil {
		log.Fatalf("Invalid simulation config: %v", err)
	}
	link, err := sim.New(cfg.Simulation.Seed, nodes...)
	if err != nil {
		log.Fatalf("Failed to create radio link: %v", err)
	}
	if err := link.Configure(settings); err != nil {
		log.Fatalf("Failed to configure radio: %v", err)
	}
	log.Printf("Radio configured: %s", settings)

	// Step 5: Initialize telemetry hub
	telemetryHub := telemetry.NewHub(&cfg.Telemetry)
	log.Println("Telemetry hub initialized")

	// Step 6: Initialize audit logger
	auditLogger, err := audit.NewLogger(cfg.Logging.Dir, audit.Rotation{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		log.Fatalf("Failed to initialize audit logger: %v", err)
	}
	log.Printf("Audit logger initialized at %s", auditLogger.GetFilePath())

	// Step 7: Open the exchange journal
	var exchanges api.ExchangeSource
	var exchangeJournal *journal.Journal
	if cfg.Journal.Enabled {
		exchangeJournal, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			log.Fatalf("Failed to open exchange journal: %v", err)
		}
		exchanges = exchangeJournal
		log.Printf("Exchange journal opened at %s", exchangeJournal.Path())
	}

	// Step 8: Create the coordinator
	coordinator := poll.New(link, reg)
	coordinator.SetAuditLogger(auditLogger)
	coordinator.SetPublisher(telemetryHub)
	if exchangeJournal != nil {
		coordinator.SetRecorder(exchangeJournal)
	}
	if cfg.Motion.Enabled {
		if err := coordinator.SetMotionSensor(link, cfg.MotionSettings()); err != nil {
			log.Fatalf("Invalid motion settings: %v", err)
		}
		log.Printf("Motion sensing enabled at %.1f Hz", cfg.Motion.Sensitivity)
	}
	telemetryHub.SetSnapshotFunc(func() interface{} { return coordinator.Snapshot() })

	// Step 9: Start the status API
	var server *api.Server
	serverErr := make(chan error, 1)
	if cfg.API.Enabled {
		authMiddleware, err := newAuthMiddleware(cfg.Auth)
		if err != nil {
			log.Fatalf("Failed to configure authentication: %v", err)
		}
		if authMiddleware != nil {
			server = api.NewServerWithAuth(coordinator, telemetryHub, exchanges, authMiddleware, cfg.API)
		} else {
			server = api.NewServer(coordinator, telemetryHub, exchanges, cfg.API)
		}

		log.Printf("Starting HTTP server on %s", cfg.API.Addr)
		go func() {
			if err := server.Start(); err != nil {
				serverErr <- fmt.Errorf("HTTP server failed: %w", err)
			}
		}()
		log.Printf("Health endpoint: http://localhost%s/api/v1/health", cfg.API.Addr)
	}

	// Step 10: Poll until a signal arrives
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-hangup:
				if err := rotateLogs(logFile, auditLogger); err != nil {
					log.Printf("Log rotation failed: %v", err)
				} else {
					log.Println("Logs rotated on SIGHUP")
				}
				continue
			case sig := <-shutdown:
				log.Printf("Received signal %v, initiating graceful shutdown...", sig)
			case err := <-serverErr:
				log.Printf("Server error: %v", err)
			}
			cancel()
			return
		}
	}()

	auditAction(auditLogger, "start", nil)
	runErr := coordinator.Run(ctx, cfg.Coordinator.SendRate.Std())
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	auditAction(auditLogger, "stop", runErr)

	// Graceful shutdown
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()

	// Stopping the hub ends open telemetry streams so the server can drain.
	telemetryHub.Stop()
	log.Println("Telemetry hub stopped")

	if server != nil {
		if err := server.Stop(stopCtx); err != nil {
			log.Printf("Error stopping HTTP server: %v", err)
		} else {
			log.Println("HTTP server stopped gracefully")
		}
	}

	if exchangeJournal != nil {
		if err := exchangeJournal.Close(); err != nil {
			log.Printf("Error closing exchange journal: %v", err)
		}
	}

	if err := auditLogger.Close(); err != nil {
		log.Printf("Error closing audit logger: %v", err)
	}

	snap := coordinator.Snapshot()
	log.Printf("Shutdown complete after %d cycles (counter %d)", snap.Cycles, snap.Counter)
}
