package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/radio-control/nodepoll/internal/adapter/fake"
	"github.com/radio-control/nodepoll/internal/config"
	"github.com/radio-control/nodepoll/internal/poll"
	"github.com/radio-control/nodepoll/internal/protocol"
	"github.com/radio-control/nodepoll/internal/registry"
)

var (
	node1 = protocol.MustParseAddress("NODE1")
	node2 = protocol.MustParseAddress("NODE2")
	node3 = protocol.MustParseAddress("NODE3")
)

// mockTelemetry records which stream was requested.
type mockTelemetry struct {
	subscribeFunc   func(ctx context.Context, w http.ResponseWriter, r *http.Request) error
	subscribeWSFunc func(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

func (m *mockTelemetry) Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if m.subscribeFunc != nil {
		return m.subscribeFunc(ctx, w, r)
	}
	w.WriteHeader(http.StatusOK)
	return nil
}

func (m *mockTelemetry) SubscribeWS(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if m.subscribeWSFunc != nil {
		return m.subscribeWSFunc(ctx, w, r)
	}
	w.WriteHeader(http.StatusSwitchingProtocols)
	return nil
}

// mockExchanges serves a fixed exchange list.
type mockExchanges struct {
	exchanges []poll.Exchange
	err       error
	lastN     int
}

func (m *mockExchanges) Count() (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return len(m.exchanges), nil
}

func (m *mockExchanges) Recent(n int) ([]poll.Exchange, error) {
	m.lastN = n
	if m.err != nil {
		return nil, m.err
	}
	if n > len(m.exchanges) {
		n = len(m.exchanges)
	}
	return m.exchanges[:n], nil
}

// newPolledCoordinator returns a coordinator that has completed one cycle in
// which NODE1 and NODE3 answered and NODE2 failed.
func newPolledCoordinator(t *testing.T) *poll.Coordinator {
	t.Helper()

	reg, err := registry.New([]protocol.Address{node1, node2, node3})
	if err != nil {
		t.Fatalf("registry.New() error = %v", err)
	}

	link := fake.NewLink()
	link.Queue(node1, fake.Reply(protocol.NodeState{NodeID: 1, Count: 7}))
	link.Queue(node3, fake.Reply(protocol.NodeState{NodeID: 3, Count: 9}))

	c := poll.New(link, reg)
	c.RunCycle(context.Background())
	return c
}

func newTestServer(t *testing.T, exchanges ExchangeSource) *Server {
	t.Helper()
	return NewServer(newPolledCoordinator(t), &mockTelemetry{}, exchanges, config.LoadBaseline().API)
}

func doGet(t *testing.T, h http.Handler, path string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if len(header) == 2 {
		req.Header.Set(header[0], header[1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, data interface{}) Response {
	t.Helper()
	var raw struct {
		Response
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	if data != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			t.Fatalf("decode data %s: %v", raw.Data, err)
		}
	}
	return raw.Response
}
