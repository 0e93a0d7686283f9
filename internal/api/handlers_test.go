package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/shiftsched/pkg/cache"
	"github.com/matzehuels/shiftsched/pkg/config"
	"github.com/matzehuels/shiftsched/pkg/observability"
	"github.com/matzehuels/shiftsched/pkg/pipeline"
	"github.com/matzehuels/shiftsched/pkg/shift"
)

type testServer struct {
	handler http.Handler
	metrics *observability.Metrics
}

func newTestServer(t *testing.T, limits config.Server) *testServer {
	t.Helper()
	c, err := cache.NewMemoryCache(1 << 20)
	require.NoError(t, err)
	metrics := observability.NewMetrics()
	runner := pipeline.NewRunner(c, nil, nil)
	runner.Hooks = metrics
	runner.Store.Hooks = metrics
	t.Cleanup(func() { runner.Close() })

	h := NewHandlers(runner, shift.DefaultSettings(), limits, nil)
	return &testServer{handler: NewRouter(limits, h, metrics.Handler(), metrics), metrics: metrics}
}

func (s *testServer) do(t *testing.T, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func testLimits() config.Server {
	return config.Default().Server
}

func graphJSON(t *testing.T) (*shift.Graph, json.RawMessage) {
	t.Helper()
	g, err := shift.Generate(shift.GenerateOptions{
		Ops: 12, Allocs: 10, EdgeProb: 0.15, LinkProb: 0.05, MaxWeight: 4, MaxUsers: 3, Seed: 3,
	})
	require.NoError(t, err)
	data, err := json.Marshal(g)
	require.NoError(t, err)
	return g, data
}

func scheduleBody(t *testing.T, graph json.RawMessage, extra map[string]any) []byte {
	t.Helper()
	req := map[string]any{"graph": graph}
	for k, v := range extra {
		req[k] = v
	}
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestHandleSchedule_Success(t *testing.T) {
	s := newTestServer(t, testLimits())
	g, graph := graphJSON(t)

	w := s.do(t, http.MethodPost, "/v1/schedule", "application/json", scheduleBody(t, graph, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	var resp struct {
		Order  []int  `json:"order"`
		Source string `json:"source"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NoError(t, shift.ValidateOrder(g, resp.Order))
	require.Equal(t, pipeline.SourceSearch, resp.Source)

	w = s.do(t, http.MethodPost, "/v1/schedule", "application/json", scheduleBody(t, graph, nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, pipeline.SourceCache, resp.Source)
}

func TestHandleSchedule_Artifacts(t *testing.T) {
	s := newTestServer(t, testLimits())
	_, graph := graphJSON(t)

	body := scheduleBody(t, graph, map[string]any{"formats": []string{"dot"}, "seeds": []uint32{1, 2}})
	w := s.do(t, http.MethodPost, "/v1/schedule", "application/json", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Artifacts map[string][]byte `json:"artifacts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, string(resp.Artifacts["dot"]), "digraph G {")
}

func TestHandleSchedule_Errors(t *testing.T) {
	_, graph := graphJSON(t)
	cyclic := []byte(`{"graph": {"ops": [
		{"address": 0, "name": "a", "outs": [1]},
		{"address": 1, "name": "b", "outs": [0]}
	], "allocs": []}}`)

	tests := []struct {
		name        string
		contentType string
		body        []byte
		wantStatus  int
		wantCode    string
	}{
		{"wrong content type", "text/plain", scheduleBody(t, graph, nil), http.StatusUnsupportedMediaType, "unsupported_media_type"},
		{"invalid json", "application/json", []byte("not json"), http.StatusBadRequest, "invalid_request"},
		{"unknown field", "application/json", []byte(`{"graf": {}}`), http.StatusBadRequest, "invalid_request"},
		{"missing graph", "application/json", []byte(`{}`), http.StatusBadRequest, "invalid_request"},
		{"cycle", "application/json", cyclic, http.StatusUnprocessableEntity, "cycle"},
		{
			"invalid setting", "application/json",
			scheduleBody(t, graph, map[string]any{"settings": map[string]any{"kahn_tie_breaker": "sideways"}}),
			http.StatusBadRequest, "invalid_setting",
		},
		{
			"unknown setting", "application/json",
			scheduleBody(t, graph, map[string]any{"settings": map[string]any{"kahn_tiebreaker": "fifo"}}),
			http.StatusBadRequest, "invalid_setting",
		},
		{
			"too many seeds", "application/json",
			scheduleBody(t, graph, map[string]any{"seeds": make([]uint32, testLimits().MaxSeeds+1)}),
			http.StatusBadRequest, "invalid_setting",
		},
		{
			"invalid format", "application/json",
			scheduleBody(t, graph, map[string]any{"formats": []string{"gif"}}),
			http.StatusBadRequest, "invalid_setting",
		},
	}

	s := newTestServer(t, testLimits())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/v1/schedule", tt.contentType, tt.body)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			resp := decodeError(t, w)
			require.Equal(t, tt.wantCode, resp.Error)
			require.Equal(t, w.Header().Get(middleware.RequestIDHeader), resp.RequestID)
		})
	}
}

func TestHandleSchedule_BodyLimit(t *testing.T) {
	limits := testLimits()
	limits.MaxBodyBytes = 64
	s := newTestServer(t, limits)
	_, graph := graphJSON(t)

	w := s.do(t, http.MethodPost, "/v1/schedule", "application/json", scheduleBody(t, graph, nil))
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	require.Equal(t, "request_too_large", decodeError(t, w).Error)
}

func TestOptionsCapsSearchTime(t *testing.T) {
	limits := testLimits()
	limits.MaxSeconds = 5
	h := NewHandlers(pipeline.NewRunner(nil, nil, nil), shift.DefaultSettings(), limits, nil)

	opts, err := h.options(&ScheduleRequest{Settings: json.RawMessage(`{"seed": 9, "termination": {"max_seconds": 1e9}}`)})
	require.NoError(t, err)
	require.Equal(t, 5.0, opts.Settings.Termination.MaxSeconds)
	require.Equal(t, uint32(9), opts.Settings.Seed)
	require.Equal(t, shift.KahnGreedy, opts.Settings.KahnTieBreaker, "omitted keys keep defaults")

	opts, err = h.options(&ScheduleRequest{Settings: json.RawMessage(`{"termination": {"max_seconds": 1.5, "max_rotations": 10}}`)})
	require.NoError(t, err)
	require.Equal(t, 1.5, opts.Settings.Termination.MaxSeconds)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, testLimits())

	w := s.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	require.NotEmpty(t, resp.Version)
}

func TestRequestIDIsKept(t *testing.T) {
	s := newTestServer(t, testLimits())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	require.Equal(t, "abc-123", w.Header().Get(middleware.RequestIDHeader))
}

func TestMetricsRoute(t *testing.T) {
	s := newTestServer(t, testLimits())
	_, graph := graphJSON(t)

	s.do(t, http.MethodPost, "/v1/schedule", "application/json", scheduleBody(t, graph, nil))
	s.do(t, http.MethodGet, "/healthz", "", nil)

	w := s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	out := string(body)
	require.Contains(t, out, `shiftsched_http_requests_total{code="200",method="POST",route="/v1/schedule"} 1`)
	require.Contains(t, out, `shiftsched_http_requests_total{code="200",method="GET",route="/healthz"} 1`)
	require.Contains(t, out, `shiftsched_scheduler_runs_total{source="search",status="ok"} 1`)
	require.True(t, strings.Contains(out, "shiftsched_cache_operations_total"))
}

func TestRouterTimeout(t *testing.T) {
	limits := testLimits()
	limits.RequestTimeout = time.Nanosecond
	s := newTestServer(t, limits)
	_, graph := graphJSON(t)

	w := s.do(t, http.MethodPost, "/v1/schedule", "application/json", scheduleBody(t, graph, nil))
	require.Contains(t, []int{http.StatusServiceUnavailable, http.StatusGatewayTimeout}, w.Code, w.Body.String())
}
