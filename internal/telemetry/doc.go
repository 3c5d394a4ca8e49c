// Package telemetry fans coordinator events out to SSE and WebSocket
// subscribers.
//
// Every event gets a monotonic ID per node (events without a node share a
// global sequence). The last N events per node are buffered so a client can
// resume with Last-Event-ID. A heartbeat runs while at least one client is
// connected.
package telemetry
