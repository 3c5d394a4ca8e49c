package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/radio-control/nodepoll/internal/config"
)

// Event represents a telemetry event.
type Event struct {
	ID   int64                  `json:"id,omitempty"`
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
	Node string                 `json:"node,omitempty"`
}

// Client represents a subscriber connection, SSE or WebSocket.
type Client struct {
	ID      string
	Context context.Context
	Cancel  context.CancelFunc
	LastID  int64
	Node    string // empty subscribes to every node
	Events  chan Event
	mu      sync.Mutex // serializes writes
	write   func(Event) error

	// replayedTo is the highest ID sent during replay. Live events at or
	// below it were already delivered.
	replayedTo int64
}

// Hub manages telemetry distribution with per-node buffering.
//
// Event IDs come from one hub-wide sequence, so every stream sees strictly
// increasing IDs. The all buffer backs replay for unfiltered clients; the
// per-node buffers back replay for ?node= clients.
//
// Lock ordering: h.mu before EventBuffer.mu. Client event channels are never
// closed; Publish may still hold a client that is unregistering.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	seq     int64 // last assigned event ID, accessed atomically

	all     *EventBuffer
	buffers map[string]*EventBuffer

	config   *config.TelemetryConfig
	snapshot func() interface{}
	upgrader websocket.Upgrader

	heartbeatTicker *time.Ticker
	stopHeartbeat   chan bool

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// EventBuffer maintains a bounded buffer of events for one node.
type EventBuffer struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
}

// NewHub creates a telemetry hub.
func NewHub(cfg *config.TelemetryConfig) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		all:     NewEventBuffer(cfg.EventBufferSize),
		buffers: make(map[string]*EventBuffer),
		config:  cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		done: make(chan struct{}),
	}
}

// SetSnapshotFunc sets the source of the snapshot sent in every ready event.
func (h *Hub) SetSnapshotFunc(fn func() interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshot = fn
}

// Subscribe serves an SSE stream until ctx is done or the client goes away.
// Resume is driven by the Last-Event-ID header; ?node= narrows the stream.
func (h *Hub) Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Cache-Control")

	client := h.newClient(ctx, r, parseLastEventID(r.Header.Get("Last-Event-ID")))
	client.write = func(event Event) error {
		return writeSSE(w, event)
	}

	return h.serve(client)
}

// SubscribeWS upgrades the request and streams events as JSON text frames.
// Resume is driven by the lastEventId query parameter.
func (h *Hub) SubscribeWS(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	client := h.newClient(ctx, r, parseLastEventID(r.URL.Query().Get("lastEventId")))
	client.write = func(event Event) error {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	// Reads only detect the peer closing; inbound frames are ignored.
	go func() {
		defer client.Cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	err = h.serve(client)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return err
}

func (h *Hub) newClient(ctx context.Context, r *http.Request, lastID int64) *Client {
	clientCtx, cancel := context.WithCancel(ctx)
	return &Client{
		ID:      uuid.NewString(),
		Context: clientCtx,
		Cancel:  cancel,
		LastID:  lastID,
		Node:    r.URL.Query().Get("node"),
		Events:  make(chan Event, 100),
	}
}

// serve registers client, sends ready and replay, then blocks delivering
// events until the client is done.
func (h *Hub) serve(client *Client) error {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	if err := h.sendReadyEvent(client); err != nil {
		h.unregisterClient(client.ID)
		return fmt.Errorf("failed to send ready event: %w", err)
	}

	if client.LastID > 0 {
		if err := h.replayEvents(client); err != nil {
			h.unregisterClient(client.ID)
			return fmt.Errorf("failed to replay events: %w", err)
		}
	}

	h.mu.Lock()
	if len(h.clients) == 1 && h.heartbeatTicker == nil {
		h.startHeartbeat()
	}
	h.mu.Unlock()

	h.handleClient(client)
	return nil
}

// Publish publishes an event to all connected clients.
func (h *Hub) Publish(event Event) error {
	if event.ID == 0 {
		event.ID = h.nextEventID()
	}

	h.bufferEvent(event)

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if client.Node != "" && event.Node != "" && client.Node != event.Node {
			continue
		}
		select {
		case <-client.Context.Done():
			continue
		case <-h.done:
			return nil
		case client.Events <- event:
		case <-time.After(100 * time.Millisecond):
			// Drop event for a slow client
		}
	}

	return nil
}

// PublishNode publishes an event for a specific node.
func (h *Hub) PublishNode(node string, event Event) error {
	event.Node = node
	return h.Publish(event)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) sendReadyEvent(client *Client) error {
	h.mu.RLock()
	snapshot := h.snapshot
	h.mu.RUnlock()

	data := map[string]interface{}{
		"clientId": client.ID,
	}
	if snapshot != nil {
		data["snapshot"] = snapshot()
	}

	return h.sendEventToClient(client, Event{
		ID:   h.nextEventID(),
		Type: "ready",
		Data: data,
		Node: client.Node,
	})
}

// replayEvents sends buffered events newer than client.LastID in ID order.
// A node client gets that node's events plus the node-less ones.
func (h *Hub) replayEvents(client *Client) error {
	lastID := client.LastID
	var events []Event
	if client.Node == "" {
		events = h.all.GetEventsAfter(lastID)
	} else {
		h.mu.RLock()
		buffer, exists := h.buffers[client.Node]
		h.mu.RUnlock()
		if exists {
			events = buffer.GetEventsAfter(lastID)
		}
		for _, event := range h.all.GetEventsAfter(lastID) {
			if event.Node == "" {
				events = append(events, event)
			}
		}
		sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	}

	for _, event := range events {
		if err := h.sendEventToClient(client, event); err != nil {
			return err
		}
		client.replayedTo = event.ID
	}

	return nil
}

func (h *Hub) sendEventToClient(client *Client, event Event) error {
	client.mu.Lock()
	defer client.mu.Unlock()
	return client.write(event)
}

// writeSSE writes one event in SSE framing and flushes.
func writeSSE(w http.ResponseWriter, event Event) error {
	if event.ID > 0 {
		if _, err := fmt.Fprintf(w, "id: %d\n", event.ID); err != nil {
			return fmt.Errorf("failed to write event ID: %w", err)
		}
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", event.Type); err != nil {
		return fmt.Errorf("failed to write event type: %w", err)
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", string(data)); err != nil {
		return fmt.Errorf("failed to write event data: %w", err)
	}

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	return nil
}

func (h *Hub) handleClient(client *Client) {
	defer h.unregisterClient(client.ID)

	for {
		select {
		case <-client.Context.Done():
			return
		default:
		}

		timeout := time.NewTimer(100 * time.Millisecond)
		select {
		case <-client.Context.Done():
			timeout.Stop()
			return
		case <-timeout.C:
			continue
		case event := <-client.Events:
			timeout.Stop()
			if event.ID <= client.replayedTo {
				continue
			}
			if err := h.sendEventToClient(client, event); err != nil {
				return
			}
		}
	}
}

func (h *Hub) unregisterClient(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, exists := h.clients[clientID]; exists {
		client.Cancel()
		delete(h.clients, clientID)

		if len(h.clients) == 0 && h.heartbeatTicker != nil {
			h.heartbeatTicker.Stop()
			h.heartbeatTicker = nil
			if h.stopHeartbeat != nil {
				close(h.stopHeartbeat)
				h.stopHeartbeat = nil
			}
		}
	}
}

func (h *Hub) nextEventID() int64 {
	return atomic.AddInt64(&h.seq, 1)
}

// bufferEvent adds an event to the hub-wide buffer and, for node events, to
// that node's buffer. Buffers are never removed from h.buffers, so the
// reference stays valid after h.mu is released.
func (h *Hub) bufferEvent(event Event) {
	h.all.AddEvent(event)
	if event.Node == "" {
		return
	}

	h.mu.Lock()
	buffer, exists := h.buffers[event.Node]
	if !exists {
		buffer = NewEventBuffer(h.config.EventBufferSize)
		h.buffers[event.Node] = buffer
	}
	h.mu.Unlock()

	buffer.AddEvent(event)
}

// startHeartbeat starts the heartbeat ticker. Caller holds h.mu and has
// checked h.heartbeatTicker == nil.
func (h *Hub) startHeartbeat() {
	interval := h.config.HeartbeatInterval.Std() + h.config.HeartbeatJitter.Std()/2

	h.heartbeatTicker = time.NewTicker(interval)
	h.stopHeartbeat = make(chan bool)

	ticker := h.heartbeatTicker
	stopChan := h.stopHeartbeat

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				h.sendHeartbeat()
			case <-stopChan:
				return
			case <-h.done:
				return
			}
		}
	}()
}

func (h *Hub) sendHeartbeat() {
	_ = h.Publish(Event{
		Type: "heartbeat",
		Data: map[string]interface{}{
			"ts": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// Stop disconnects every client and stops the heartbeat. Safe to call more
// than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(h.stop)
}

func (h *Hub) stop() {
	close(h.done)

	h.mu.Lock()
	for _, client := range h.clients {
		client.Cancel()
	}
	if h.heartbeatTicker != nil {
		h.heartbeatTicker.Stop()
		h.heartbeatTicker = nil
	}
	if h.stopHeartbeat != nil {
		close(h.stopHeartbeat)
		h.stopHeartbeat = nil
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
}

// NewEventBuffer creates an event buffer with the given capacity.
func NewEventBuffer(capacity int) *EventBuffer {
	return &EventBuffer{
		events:   make([]Event, 0, capacity),
		capacity: capacity,
	}
}

// AddEvent appends an event, evicting the oldest beyond capacity.
func (b *EventBuffer) AddEvent(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, event)
	if len(b.events) > b.capacity {
		b.events = b.events[1:]
	}
}

// GetEventsAfter returns events with an ID above lastID.
func (b *EventBuffer) GetEventsAfter(lastID int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var result []Event
	for _, event := range b.events {
		if event.ID > lastID {
			result = append(result, event)
		}
	}

	return result
}

// size returns the number of buffered events.
func (b *EventBuffer) size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.events)
}

func parseLastEventID(s string) int64 {
	if s == "" {
		return 0
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}
