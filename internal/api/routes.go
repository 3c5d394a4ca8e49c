package api

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/radio-control/nodepoll/internal/auth"
)

const (
	apiV1 = "/api/v1"

	defaultExchangeLimit = 50
	maxExchangeLimit     = 1000
)

// RegisterRoutes registers all v1 endpoints.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Health endpoint (no auth required)
	mux.HandleFunc(apiV1+"/health", s.handleHealth)

	mux.HandleFunc(apiV1+"/status", s.protect(auth.ScopeRead, s.handleStatus))
	mux.HandleFunc(apiV1+"/nodes", s.protect(auth.ScopeRead, s.handleNodes))
	mux.HandleFunc(apiV1+"/nodes/", s.protect(auth.ScopeRead, s.handleNodeByIndex))
	mux.HandleFunc(apiV1+"/exchanges", s.protect(auth.ScopeRead, s.handleExchanges))
	mux.HandleFunc(apiV1+"/telemetry", s.protect(auth.ScopeTelemetry, s.handleTelemetry))
	mux.HandleFunc(apiV1+"/telemetry/ws", s.protect(auth.ScopeTelemetry, s.handleTelemetryWS))
}

// protect wraps next with authentication and scope checks when auth is
// configured.
func (s *Server) protect(scope string, next http.HandlerFunc) http.HandlerFunc {
	if s.authMiddleware == nil {
		return next
	}
	return s.authMiddleware.RequireAuth(s.authMiddleware.RequireScope(scope)(next))
}

func requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET method is allowed", nil)
		return false
	}
	return true
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	uptime := 0.0
	if !s.startTime.IsZero() {
		uptime = time.Since(s.startTime).Seconds()
	}

	subsystems := map[string]bool{
		"poll":      s.status != nil,
		"telemetry": s.telemetryHub != nil,
		"journal":   s.exchanges != nil,
	}

	var journaled int
	if s.exchanges != nil {
		n, err := s.exchanges.Count()
		if err != nil {
			log.Printf("Journal count failed: %v", err)
			subsystems["journal"] = false
		}
		journaled = n
	}

	// The journal is optional.
	overallStatus := "ok"
	if !subsystems["poll"] || !subsystems["telemetry"] {
		overallStatus = "degraded"
	}

	health := map[string]interface{}{
		"status":     overallStatus,
		"uptimeSec":  uptime,
		"version":    Version,
		"subsystems": subsystems,
	}
	if subsystems["journal"] {
		health["journaledExchanges"] = journaled
	}

	if overallStatus == "ok" {
		WriteSuccess(w, health)
		return
	}
	WriteError(w, http.StatusServiceUnavailable, "SERVICE_DEGRADED",
		"One or more subsystems are unavailable", health)
}

// handleStatus handles GET /status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	if s.status == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Coordinator not available", nil)
		return
	}

	WriteSuccess(w, s.status.Snapshot())
}

// handleNodes handles GET /nodes
func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	if s.status == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Coordinator not available", nil)
		return
	}

	WriteSuccess(w, s.status.Snapshot().Nodes)
}

// handleNodeByIndex handles GET /nodes/{index}
func (s *Server) handleNodeByIndex(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	index, err := extractNodeIndex(r.URL.Path)
	if err != nil {
		WriteErrorFrom(w, err)
		return
	}
	if s.status == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Coordinator not available", nil)
		return
	}

	nodes := s.status.Snapshot().Nodes
	if index >= len(nodes) {
		WriteErrorFrom(w, fmt.Errorf("%w: node %d", ErrNotFound, index))
		return
	}
	WriteSuccess(w, nodes[index])
}

// handleExchanges handles GET /exchanges?limit=n
func (s *Server) handleExchanges(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	limit := defaultExchangeLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxExchangeLimit {
			WriteError(w, http.StatusBadRequest, "INVALID_RANGE",
				fmt.Sprintf("limit must be between 1 and %d", maxExchangeLimit), nil)
			return
		}
		limit = n
	}

	if s.exchanges == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Exchange journal is disabled", nil)
		return
	}

	exchanges, err := s.exchanges.Recent(limit)
	if err != nil {
		WriteErrorFrom(w, err)
		return
	}
	WriteSuccess(w, exchanges)
}

// handleTelemetry handles GET /telemetry (SSE)
func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	if s.telemetryHub == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE",
			"Telemetry service not available", nil)
		return
	}

	// The stream outlives the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	// Headers are already sent once the stream starts.
	if err := s.telemetryHub.Subscribe(r.Context(), w, r); err != nil {
		log.Printf("telemetry: SSE subscriber dropped: %v", err)
	}
}

// handleTelemetryWS handles GET /telemetry/ws
func (s *Server) handleTelemetryWS(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	if s.telemetryHub == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE",
			"Telemetry service not available", nil)
		return
	}

	// A failed upgrade has already replied to the client.
	if err := s.telemetryHub.SubscribeWS(r.Context(), w, r); err != nil {
		log.Printf("telemetry: WebSocket subscriber dropped: %v", err)
	}
}

// extractNodeIndex parses the index from /api/v1/nodes/{index}.
func extractNodeIndex(path string) (int, error) {
	prefix := apiV1 + "/nodes/"
	if !strings.HasPrefix(path, prefix) {
		return 0, fmt.Errorf("%w: unexpected path %s", ErrNotFound, path)
	}

	raw := strings.Trim(path[len(prefix):], "/")
	if raw == "" || strings.Contains(raw, "/") {
		return 0, fmt.Errorf("%w: node index is required", ErrBadRequest)
	}

	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: node index %q", ErrBadRequest, raw)
	}
	if index < 0 {
		return 0, fmt.Errorf("%w: node %d", ErrNotFound, index)
	}
	return index, nil
}
