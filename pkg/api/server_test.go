package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/fyerfyer/logic-blocks/pkg/algorithm"
	"github.com/fyerfyer/logic-blocks/pkg/circuit"
	"github.com/fyerfyer/logic-blocks/pkg/metrics"
	"github.com/fyerfyer/logic-blocks/pkg/puzzle"
	"github.com/fyerfyer/logic-blocks/pkg/store"
	"github.com/fyerfyer/logic-blocks/pkg/surface"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testServer struct {
	*Server
	store *store.Store
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	return newTestServerWith(t, func(opts *puzzle.Options) { opts.PlayerID = "anonymous" })
}

// newTestServerWith lets a test adjust the session template before the
// server is built
func newTestServerWith(t *testing.T, adjust func(*puzzle.Options)) testServer {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	reg := prometheus.NewRegistry()
	opts := puzzle.Options{
		Metrics:  metrics.New(reg),
		Recorder: st,
	}
	adjust(&opts)
	srv := NewServer(Config{Session: opts, Gatherer: reg})
	return testServer{Server: srv, store: st}
}

func (s testServer) do(t *testing.T, method, path, body, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func (s testServer) create(t *testing.T) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/v1/sessions", "", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp createResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) puzzle.Snapshot {
	t.Helper()
	var snap puzzle.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap), w.Body.String())
	return snap
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func (s testServer) wire(t *testing.T, id string) {
	t.Helper()
	for _, body := range []string{
		`{"source":{"kind":"input","id":1},"gate":1,"slot":0}`,
		`{"source":{"kind":"input","id":2},"gate":1,"slot":1}`,
		`{"source":{"kind":"gate","id":1},"gate":2,"slot":0}`,
	} {
		w := s.do(t, http.MethodPost, "/v1/sessions/"+id+"/connections", body, "application/json")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/v1/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestPlayThroughLevel(t *testing.T) {
	s := newTestServer(t)
	id := s.create(t)

	s.wire(t, id)
	for _, input := range []string{`{"input":1}`, `{"input":2}`} {
		w := s.do(t, http.MethodPost, "/v1/sessions/"+id+"/toggle", input, "application/json")
		require.Equal(t, http.StatusOK, w.Code)
	}

	snap := decodeSnapshot(t, s.do(t, http.MethodGet, "/v1/sessions/"+id, "", ""))
	assert.True(t, snap.Output)
	assert.True(t, snap.CanSubmit)
	assert.Equal(t, 2, snap.Attempts)
	assert.Len(t, snap.Connections, 3)

	w := s.do(t, http.MethodPost, "/v1/sessions/"+id+"/submit", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decodeSnapshot(t, w).Completed)

	completion, err := s.store.Completion(context.Background(), "anonymous", puzzle.DefaultLevelID)
	require.NoError(t, err)
	assert.True(t, completion.Completed)

	w = s.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "logicblocks_completions_total 1")
	assert.Contains(t, w.Body.String(), "logicblocks_active_sessions 1")
}

func TestPlayerFromQuery(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/v1/sessions?player=alice", "", "")
	require.Equal(t, http.StatusCreated, w.Code)
	var resp createResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	s.wire(t, resp.ID)
	s.do(t, http.MethodPost, "/v1/sessions/"+resp.ID+"/toggle", `{"input":1}`, "")
	s.do(t, http.MethodPost, "/v1/sessions/"+resp.ID+"/toggle", `{"input":2}`, "")
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/v1/sessions/"+resp.ID+"/submit", "", "").Code)

	_, err := s.store.Completion(context.Background(), "alice", puzzle.DefaultLevelID)
	assert.NoError(t, err)
}

func TestSubmitWithoutConfiguredPlayer(t *testing.T) {
	s := newTestServerWith(t, func(*puzzle.Options) {})
	id := s.create(t)

	s.wire(t, id)
	s.do(t, http.MethodPost, "/v1/sessions/"+id+"/toggle", `{"input":1}`, "")
	s.do(t, http.MethodPost, "/v1/sessions/"+id+"/toggle", `{"input":2}`, "")

	w := s.do(t, http.MethodPost, "/v1/sessions/"+id+"/submit", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decodeSnapshot(t, w).Completed)

	completion, err := s.store.Completion(context.Background(), DefaultPlayerID, puzzle.DefaultLevelID)
	require.NoError(t, err)
	assert.True(t, completion.Completed)
}

func TestInvalidConnection(t *testing.T) {
	s := newTestServer(t)
	id := s.create(t)
	s.wire(t, id)

	w := s.do(t, http.MethodPost, "/v1/sessions/"+id+"/connections",
		`{"source":{"kind":"input","id":2},"gate":1,"slot":0}`, "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "invalid_connection", resp.Error)
	assert.Equal(t, "slot already driven", resp.Reason)

	w = s.do(t, http.MethodPost, "/v1/sessions/"+id+"/connections",
		`{"source":{"kind":"gate","id":2},"gate":1,"slot":1}`, "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	snap := decodeSnapshot(t, s.do(t, http.MethodGet, "/v1/sessions/"+id, "", ""))
	assert.Len(t, snap.Connections, 3)
}

func TestBadRequests(t *testing.T) {
	s := newTestServer(t)
	id := s.create(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"broken json", "/toggle", `{"input":`, http.StatusBadRequest, "invalid_json_body"},
		{"unknown field", "/toggle", `{"node":1}`, http.StatusBadRequest, "invalid_json_body"},
		{"unknown input", "/toggle", `{"input":9}`, http.StatusUnprocessableEntity, "unknown_input"},
		{"bad source kind", "/connections", `{"source":{"kind":"wire","id":1},"gate":1,"slot":0}`, http.StatusBadRequest, "invalid_json_body"},
		{"unknown pointer event", "/pointer", `{"type":"wheel","x":1,"y":1}`, http.StatusBadRequest, "bad_request"},
		{"submit unsolved", "/submit", ``, http.StatusConflict, "not_solved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/v1/sessions/"+id+tt.path, tt.body, "application/json")
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Error)
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/v1/sessions/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	id := s.create(t)
	assert.Equal(t, 1, s.Sessions().Len())

	s.wire(t, id)
	s.do(t, http.MethodPost, "/v1/sessions/"+id+"/toggle", `{"input":1}`, "")
	snap := decodeSnapshot(t, s.do(t, http.MethodPost, "/v1/sessions/"+id+"/reset", "", ""))
	assert.Empty(t, snap.Connections)
	assert.Zero(t, snap.Attempts)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/v1/sessions/"+id, "", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/v1/sessions/"+id, "", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/v1/sessions/"+id+"/reset", "", "").Code)
	assert.Zero(t, s.Sessions().Len())
}

func TestCreateCustomLevels(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/v1/sessions", "INPUT(a)\nOUTPUT(y)\ny = NOT(a)\n", "text/plain")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp createResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Session.Output)
	assert.Len(t, resp.Session.Connections, 1)

	level := "id: single-or\ninputs:\n  - id: 1\ngates:\n  - id: 1\n    type: OR\n"
	w = s.do(t, http.MethodPost, "/v1/sessions", level, "application/yaml")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "single-or", resp.Session.Level)
	assert.False(t, resp.Session.Output)

	w = s.do(t, http.MethodPost, "/v1/sessions", "y = XOR(a, b)\n", "text/plain")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_level", decodeError(t, w).Error)
}

func TestHint(t *testing.T) {
	s := newTestServer(t)
	id := s.create(t)

	w := s.do(t, http.MethodGet, "/v1/sessions/"+id+"/hint", "", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	s.wire(t, id)
	w = s.do(t, http.MethodGet, "/v1/sessions/"+id+"/hint", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var hint algorithm.Hint
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hint))
	assert.True(t, hint.Target)
	assert.Equal(t, []int{1, 2}, hint.Toggles)
}

func TestSinglePassHint(t *testing.T) {
	s := newTestServerWith(t, func(opts *puzzle.Options) { opts.Mode = circuit.SinglePass })
	id := s.create(t)
	s.wire(t, id)

	w := s.do(t, http.MethodGet, "/v1/sessions/"+id+"/hint", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var hint algorithm.Hint
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hint))

	for _, input := range hint.Toggles {
		body := fmt.Sprintf(`{"input":%d}`, input)
		require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/v1/sessions/"+id+"/toggle", body, "").Code)
	}
	w = s.do(t, http.MethodPost, "/v1/sessions/"+id+"/submit", "", "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestPointerGestures(t *testing.T) {
	s := newTestServer(t)
	id := s.create(t)

	press := func(kind string, x, y float64) pointerResponse {
		body, err := json.Marshal(pointerRequest{Type: kind, X: x, Y: y})
		require.NoError(t, err)
		w := s.do(t, http.MethodPost, "/v1/sessions/"+id+"/pointer", string(body), "application/json")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var raw struct {
			Event struct {
				Action string `json:"action"`
			} `json:"event"`
			Session puzzle.Snapshot `json:"session"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
		return pointerResponse{Session: raw.Session, Event: surface.Event{Action: actionFromString(raw.Event.Action)}}
	}

	assert.Equal(t, surface.DragStarted, press("down", 80, 100).Event.Action)
	resp := press("up", 250, 135)
	assert.Equal(t, surface.Connected, resp.Event.Action)
	assert.Len(t, resp.Session.Connections, 1)

	resp = press("down", 65, 100)
	assert.Equal(t, surface.Toggled, resp.Event.Action)
	assert.Equal(t, 1, resp.Session.Attempts)
}

func actionFromString(name string) surface.Action {
	for a := surface.None; a <= surface.Cancelled; a++ {
		if a.String() == name {
			return a
		}
	}
	return surface.None
}

func TestNetlistExport(t *testing.T) {
	s := newTestServer(t)
	id := s.create(t)
	s.wire(t, id)

	w := s.do(t, http.MethodGet, "/v1/sessions/"+id+"/netlist", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "g1 = AND(in1, in2)")
	assert.Contains(t, w.Body.String(), "g2 = OR(g1, _)")
}

func TestRunStopsOnCancel(t *testing.T) {
	srv := NewServer(Config{Addr: "127.0.0.1:0", SessionTTL: time.Minute, Gatherer: prometheus.NewRegistry()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
