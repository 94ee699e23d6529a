package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeagent/internal/ai"
	"resumeagent/internal/config"
	"resumeagent/internal/errors"
	"resumeagent/internal/exporter"
	"resumeagent/internal/observability"
	"resumeagent/internal/pipeline"
	"resumeagent/internal/types"
)

type fakeOptimizer struct {
	mu       sync.Mutex
	scan     types.ScanResult
	optimize types.OptimizeResult
	lastScan types.ScanRequest
	lastOpt  types.OptimizeRequest
	hooks    pipeline.Hooks
	observer ai.UsageObserver
}

func (f *fakeOptimizer) ScanGaps(_ context.Context, req types.ScanRequest) types.ScanResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastScan = req
	return f.scan
}

func (f *fakeOptimizer) Optimize(_ context.Context, req types.OptimizeRequest) types.OptimizeResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastOpt = req
	return f.optimize
}

func (f *fakeOptimizer) SetHooks(hooks pipeline.Hooks) { f.hooks = hooks }
func (f *fakeOptimizer) SetAIObserver(observer ai.UsageObserver) { f.observer = observer }

type fakeHealth struct {
	models map[string]*ai.ModelInfo
}

func (f fakeHealth) GetModelInfo(context.Context) map[string]*ai.ModelInfo { return f.models }
func (f fakeHealth) CircuitBreakerStats() map[string]any {
	return map[string]any{"scanner": map[string]any{"state": "closed"}}
}

type testServer struct {
	server  *Server
	handler http.Handler
	agent   *fakeOptimizer
}

func newTestServer(t *testing.T, cfg ServerConfig, backend Backend) *testServer {
	t.Helper()
	if backend.Agent == nil {
		backend.Agent = &fakeOptimizer{}
	}
	agent, _ := backend.Agent.(*fakeOptimizer)

	s := NewServer(nil, cfg, backend, errors.NewLogger(slog.LevelError))
	t.Cleanup(func() {
		if s.RateLimiter != nil {
			s.RateLimiter.Close()
		}
	})

	om, err := observability.NewObservabilityManager(observability.ObservabilityConfig{Enabled: false}, nil)
	require.NoError(t, err)
	return &testServer{server: s, handler: s.setupRoutes(om), agent: agent}
}

func (ts *testServer) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

const validScanBody = `{"jobDescription":"Requires Python and SQL","originalResume":"I know Python"}`

func TestScanEndpoint(t *testing.T) {
	ts := newTestServer(t, ServerConfig{}, Backend{})
	ts.agent.scan = types.ScanResult{RunID: "run-1", MissingSkills: "- SQL"}

	rec := ts.do(t, http.MethodPost, "/scan", validScanBody, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result types.ScanResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "- SQL", result.MissingSkills)
	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, "Requires Python and SQL", ts.agent.lastScan.JobDescription)
}

func TestOptimizeEndpoint(t *testing.T) {
	ts := newTestServer(t, ServerConfig{}, Backend{})
	ts.agent.optimize = types.OptimizeResult{
		RunID:           "run-2",
		OptimizedResume: "Skills: Python",
		Score:           90,
		Iterations:      1,
		Outcome:         types.OutcomeAccepted,
	}

	body := `{"jobDescription":"Requires Python","originalResume":"I know Python","humanNotes":"- SQL"}`
	rec := ts.do(t, http.MethodPost, "/optimize", body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result types.OptimizeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 90, result.Score)
	assert.Equal(t, types.OutcomeAccepted, result.Outcome)
	assert.Equal(t, "- SQL", ts.agent.lastOpt.HumanNotes)
}

func TestOptimizeEndpointReportsFailure(t *testing.T) {
	ts := newTestServer(t, ServerConfig{}, Backend{})
	ts.agent.optimize = types.OptimizeResult{
		RunID:           "run-3",
		OptimizedResume: "Error: model unavailable",
		Error:           "model unavailable",
	}

	rec := ts.do(t, http.MethodPost, "/optimize", validScanBody, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var result types.OptimizeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Error: model unavailable", result.OptimizedResume)
	assert.Equal(t, "model unavailable", result.Error)
}

func TestRequestValidation(t *testing.T) {
	ts := newTestServer(t, ServerConfig{MaxRequestSize: 200}, Backend{})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		header map[string]string
		want   int
		errMsg string
	}{
		{"wrong method", http.MethodGet, "/scan", "", nil, http.StatusMethodNotAllowed, "Method not allowed"},
		{"missing field", http.MethodPost, "/scan", `{"jobDescription":"x"}`, nil, http.StatusBadRequest, "Missing originalResume"},
		{"blank field", http.MethodPost, "/optimize", `{"jobDescription":"  ","originalResume":"y"}`, nil, http.StatusBadRequest, "Missing jobDescription"},
		{"bad json", http.MethodPost, "/scan", `{"jobDescription":`, nil, http.StatusBadRequest, "Invalid request body"},
		{"wrong content type", http.MethodPost, "/scan", validScanBody, map[string]string{"Content-Type": "text/plain"}, http.StatusBadRequest, "Invalid request body"},
		{"field too large", http.MethodPost, "/scan",
			`{"jobDescription":"` + strings.Repeat("j", 120) + `","originalResume":"y"}`, nil, http.StatusBadRequest, "jobDescription too large"},
		{"body too large", http.MethodPost, "/scan",
			`{"jobDescription":"` + strings.Repeat("j", 300) + `","originalResume":"y"}`, nil, http.StatusBadRequest, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, tt.body, tt.header)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.errMsg, resp.Error)
		})
	}
}

func TestAuthentication(t *testing.T) {
	ts := newTestServer(t, ServerConfig{APIKeys: []string{"secret-key-123"}}, Backend{})

	rec := ts.do(t, http.MethodPost, "/scan", validScanBody, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing API key")

	rec = ts.do(t, http.MethodPost, "/scan", validScanBody, map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid API key")

	rec = ts.do(t, http.MethodPost, "/scan", validScanBody, map[string]string{"X-API-Key": "secret-key-123"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/scan", validScanBody, map[string]string{"Authorization": "Bearer secret-key-123"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays public
	rec = ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSetAPIKeysRotatesAccess(t *testing.T) {
	ts := newTestServer(t, ServerConfig{APIKeys: []string{"old-key"}}, Backend{})

	ts.server.SetAPIKeys([]string{"new-key", ""})
	assert.Equal(t, 1, ts.server.apiKeyCount())

	rec := ts.do(t, http.MethodPost, "/scan", validScanBody, map[string]string{"X-API-Key": "old-key"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = ts.do(t, http.MethodPost, "/scan", validScanBody, map[string]string{"X-API-Key": "new-key"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOnVaultKeysIgnoresEmptyAndErrors(t *testing.T) {
	ts := newTestServer(t, ServerConfig{APIKeys: []string{"k1"}}, Backend{})

	ts.server.onVaultKeys(nil, os.ErrNotExist)
	ts.server.onVaultKeys([]string{}, nil)
	assert.Equal(t, 1, ts.server.apiKeyCount())

	ts.server.onVaultKeys([]string{"k2", "k3"}, nil)
	assert.Equal(t, 2, ts.server.apiKeyCount())
}

func TestRateLimiting(t *testing.T) {
	rl := &config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 1, ByIP: true}
	ts := newTestServer(t, ServerConfig{RateLimit: rl}, Backend{})

	headers := map[string]string{"X-Forwarded-For": "203.0.113.7"}
	rec := ts.do(t, http.MethodPost, "/scan", validScanBody, headers)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/scan", validScanBody, headers)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// A different client has its own bucket
	rec = ts.do(t, http.MethodPost, "/scan", validScanBody, map[string]string{"X-Forwarded-For": "198.51.100.1"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestArtifactDownload(t *testing.T) {
	dir := t.TempDir()
	x := exporter.NewWithRenderer(dir, exporter.HTMLRenderer{}, errors.NewLogger(slog.LevelError))
	_, err := x.Export(context.Background(), "run-9", "resume", "Resume", "# Jane Doe")
	require.NoError(t, err)

	ts := newTestServer(t, ServerConfig{}, Backend{Artifacts: x})

	rec := ts.do(t, http.MethodGet, "/artifacts/run-9/resume.html", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>Jane Doe</h1>")

	rec = ts.do(t, http.MethodGet, "/artifacts/run-9/cover_letter.html", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/artifacts/run-9/.env", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArtifactsDisabled(t *testing.T) {
	ts := newTestServer(t, ServerConfig{}, Backend{})
	rec := ts.do(t, http.MethodGet, "/artifacts/run-1/resume.pdf", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Export disabled")
}

func TestHealthEndpoint(t *testing.T) {
	healthy := fakeHealth{models: map[string]*ai.ModelInfo{
		"scanner": {Name: "gemini-2.0-flash", Available: true},
	}}
	ts := newTestServer(t, ServerConfig{Version: "1.2.3"}, Backend{Health: healthy})

	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "resumeagent", body["service"])
	assert.Equal(t, "1.2.3", body["version"])
	assert.Contains(t, body, "circuit_breakers")

	degraded := fakeHealth{models: map[string]*ai.ModelInfo{
		"scanner":  {Name: "gemini-2.0-flash", Available: true},
		"reviewer": {Name: "gemini-2.0-flash", Available: false, Error: "quota"},
	}}
	ts = newTestServer(t, ServerConfig{}, Backend{Health: degraded})
	rec = ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"degraded"`)
}

func TestStatsEndpoint(t *testing.T) {
	rl := &config.RateLimitConfig{Enabled: true, RequestsPerMin: 30, BurstCapacity: 5, ByIP: true}
	ts := newTestServer(t, ServerConfig{APIKeys: []string{"a", "b"}, MaxRequestSize: 1024, RateLimit: rl}, Backend{})

	rec := ts.do(t, http.MethodGet, "/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	server, ok := body["server"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2, server["api_keys_configured"])
	assert.EqualValues(t, 1024, server["max_request_size_bytes"])
	assert.Equal(t, false, server["export_enabled"])

	limits, ok := body["rate_limit_config"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 30, limits["requests_per_min"])

	rec = ts.do(t, http.MethodPost, "/stats", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestInstrumentBackend(t *testing.T) {
	ts := newTestServer(t, ServerConfig{}, Backend{})
	om, err := observability.NewObservabilityManager(observability.ObservabilityConfig{Enabled: false}, nil)
	require.NoError(t, err)

	ts.server.instrumentBackend(om)
	assert.NotNil(t, ts.agent.hooks.StageCompleted)
	assert.NotNil(t, ts.agent.hooks.Decided)
	assert.NotNil(t, ts.agent.observer)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded first valid", map[string]string{"X-Forwarded-For": "bogus, 10.0.0.1, 10.0.0.2"}, "192.0.2.1:1234", "10.0.0.1"},
		{"real ip", map[string]string{"X-Real-IP": "10.1.1.1"}, "192.0.2.1:1234", "10.1.1.1"},
		{"invalid real ip", map[string]string{"X-Real-IP": "nope"}, "192.0.2.1:1234", "192.0.2.1"},
		{"remote addr", nil, "192.0.2.5:80", "192.0.2.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestRateLimitKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:99"
	req.Header.Set("X-API-Key", "abcdefghijkl")

	if got := getRateLimitKey(req, true, true); got != "api:abcdefghijkl" {
		t.Errorf("Expected API key bucket, got %s", got)
	}
	if got := getRateLimitKey(req, false, true); got != "ip:192.0.2.1" {
		t.Errorf("Expected IP bucket, got %s", got)
	}
	if got := getRateLimitKey(req, false, false); got != "" {
		t.Errorf("Expected no bucket, got %s", got)
	}
	if got := maskRateLimitKey("api:abcdefghijkl"); got != "api:abcdefgh****" {
		t.Errorf("Expected masked key, got %s", got)
	}
}
