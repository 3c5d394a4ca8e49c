package api

import (
	"context"
	"net/http"

	"github.com/radio-control/nodepoll/internal/journal"
	"github.com/radio-control/nodepoll/internal/poll"
	"github.com/radio-control/nodepoll/internal/telemetry"
)

// StatusSource provides consistent snapshots of coordinator state.
type StatusSource interface {
	Snapshot() poll.Snapshot
}

// TelemetryPort defines the minimal interface the API needs from the telemetry hub.
type TelemetryPort interface {
	Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error
	SubscribeWS(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// ExchangeSource returns recently recorded exchanges, newest first.
type ExchangeSource interface {
	Recent(n int) ([]poll.Exchange, error)
	Count() (int, error)
}

// Compile-time assertions for port conformance
var _ StatusSource = (*poll.Coordinator)(nil)
var _ TelemetryPort = (*telemetry.Hub)(nil)
var _ ExchangeSource = (*journal.Journal)(nil)
