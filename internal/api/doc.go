// Package api implements the read-only HTTP status surface of the
// coordinator.
//
// It exposes health, the coordinator snapshot, per-node state, recent
// exchanges from the journal and the telemetry stream (SSE and WebSocket).
// Nothing here can change protocol state.
package api
