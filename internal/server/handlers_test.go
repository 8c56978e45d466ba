package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudclip-dev/cloudclip/pkg/config"
	"github.com/cloudclip-dev/cloudclip/pkg/observability"
	"github.com/cloudclip-dev/cloudclip/pkg/session"
)

const testAPIKey = "test-api-key"

func newTestServer(t *testing.T) *httptest.Server {
	return newTestServerWithHealth(t, nil)
}

func newTestServerWithHealth(t *testing.T, health *observability.HealthChecker) *httptest.Server {
	t.Helper()

	observability.InitMetrics()

	store := session.NewMemoryStore(session.Config{})
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{
		APIKey: testAPIKey,
		RateLimit: config.RateLimitConfig{
			RequestsPerSecond: 1000,
			Burst:             1000,
		},
	}

	ts := httptest.NewServer(New(cfg, store, health).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, ts *httptest.Server, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)

	return resp, out.Bytes()
}

func startSession(t *testing.T, ts *httptest.Server) string {
	t.Helper()

	resp, body := doRequest(t, ts, http.MethodPost, "/session/start", testAPIKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out["session_id"], 6)
	return out["session_id"]
}

func TestRootIsUnauthenticated(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doRequest(t, ts, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
	}{
		{"missing token", http.MethodPost, "/session/start", ""},
		{"wrong token", http.MethodPost, "/session/start", "wrong-key"},
		{"wrong token on read", http.MethodGet, "/sessions/active", "wrong-key"},
		{"wrong token on delete", http.MethodDelete, "/session/123456/end", "wrong-key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := doRequest(t, ts, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestStartSession(t *testing.T) {
	ts := newTestServer(t)

	code := startSession(t, ts)

	resp, body := doRequest(t, ts, http.MethodGet, "/sessions/active", testAPIKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summaries []session.Summary
	require.NoError(t, json.Unmarshal(body, &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, code, summaries[0].SessionID)
	assert.Equal(t, 0, summaries[0].ItemCount)
}

func TestAddAndFetchItem(t *testing.T) {
	ts := newTestServer(t)
	code := startSession(t, ts)

	resp, body := doRequest(t, ts, http.MethodPost, "/session/"+code+"/clipboard", testAPIKey,
		addItemRequest{Content: "hello", Hostname: "alpha"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var item session.Item
	require.NoError(t, json.Unmarshal(body, &item))
	assert.Equal(t, "clip_"+code+"_1", item.ID)
	assert.Equal(t, "hello", item.Content)
	assert.Equal(t, "alpha", item.Hostname)
	assert.False(t, item.Timestamp.IsZero())

	resp, body = doRequest(t, ts, http.MethodGet, "/session/"+code+"/clipboard/latest?hostname=beta", testAPIKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var latest session.Item
	require.NoError(t, json.Unmarshal(body, &latest))
	assert.Equal(t, item.ID, latest.ID)
	assert.Equal(t, "hello", latest.Content)
}

func TestLatestOnEmptySessionIs404(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doRequest(t, ts, http.MethodGet, "/session/999999/clipboard/latest", testAPIKey, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var e errorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Contains(t, e.Detail, "No clipboard items")
}

func TestReadMaterializesSession(t *testing.T) {
	ts := newTestServer(t)

	// A read against an unknown id succeeds and creates the session.
	resp, _ := doRequest(t, ts, http.MethodGet, "/session/424242/clipboard/history?hostname=alpha", testAPIKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doRequest(t, ts, http.MethodGet, "/sessions/active", testAPIKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summaries []session.Summary
	require.NoError(t, json.Unmarshal(body, &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "424242", summaries[0].SessionID)
	assert.Equal(t, []string{"alpha"}, summaries[0].Hostnames)
}

func TestHistory(t *testing.T) {
	ts := newTestServer(t)
	code := startSession(t, ts)

	for _, content := range []string{"one", "two", "three"} {
		resp, _ := doRequest(t, ts, http.MethodPost, "/session/"+code+"/clipboard", testAPIKey,
			addItemRequest{Content: content, Hostname: "alpha"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, body := doRequest(t, ts, http.MethodGet, "/session/"+code+"/clipboard/history", testAPIKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var items []session.Item
	require.NoError(t, json.Unmarshal(body, &items))
	require.Len(t, items, 3)
	assert.Equal(t, "one", items[0].Content)
	assert.Equal(t, "three", items[2].Content)
}

func TestEndSession(t *testing.T) {
	ts := newTestServer(t)
	code := startSession(t, ts)

	resp, body := doRequest(t, ts, http.MethodDelete, "/session/"+code+"/end", testAPIKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Contains(t, out["message"], code)

	// Ending again is a 404.
	resp, _ = doRequest(t, ts, http.MethodDelete, "/session/"+code+"/end", testAPIKey, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAddItemInvalidBody(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/session/123456/clipboard",
		bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminDashboard(t *testing.T) {
	ts := newTestServer(t)
	code := startSession(t, ts)

	resp, _ := doRequest(t, ts, http.MethodPost, "/session/"+code+"/clipboard", testAPIKey,
		addItemRequest{Content: "hello", Hostname: "alpha"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doRequest(t, ts, http.MethodGet, "/admin", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(body), code)
	assert.Contains(t, string(body), "alpha")
	assert.Contains(t, string(body), "/admin/session/"+code+"/end")
}

func TestAdminEndSession(t *testing.T) {
	ts := newTestServer(t)
	code := startSession(t, ts)

	// The dashboard form needs no credentials; the redirect lands back on
	// the dashboard, which no longer lists the session.
	resp, body := doRequest(t, ts, http.MethodPost, "/admin/session/"+code+"/end", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, string(body), "/admin/session/"+code+"/end")

	respActive, active := doRequest(t, ts, http.MethodGet, "/sessions/active", testAPIKey, nil)
	require.Equal(t, http.StatusOK, respActive.StatusCode)

	var summaries []session.Summary
	require.NoError(t, json.Unmarshal(active, &summaries))
	assert.Empty(t, summaries)

	// Ending an already-gone session still redirects cleanly.
	resp, _ = doRequest(t, ts, http.MethodPost, "/admin/session/"+code+"/end", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		resp, _ := doRequest(t, ts, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp, body := doRequest(t, ts, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health observability.HealthResponse
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, observability.HealthStatusHealthy, health.Status)
}

func TestHealthReportsFailingStore(t *testing.T) {
	checker := observability.NewHealthChecker()
	checker.RegisterCheck(observability.StoreCheck(func(ctx context.Context) error {
		return errors.New("connection refused")
	}))
	ts := newTestServerWithHealth(t, checker)

	resp, body := doRequest(t, ts, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var health observability.HealthResponse
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, observability.HealthStatusUnhealthy, health.Status)
	assert.Equal(t, "connection refused", health.Checks["store"].Message)

	resp, _ = doRequest(t, ts, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	// Liveness only answers for the process itself.
	resp, _ = doRequest(t, ts, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsUseRoutePattern(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doRequest(t, ts, http.MethodGet, "/session/909090/clipboard/history", testAPIKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doRequest(t, ts, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The path label carries the route pattern, never the session id, so
	// label cardinality stays bounded.
	assert.Contains(t, string(body), `path="/session/{id}/clipboard/history"`)
	assert.NotContains(t, string(body), `path="/session/909090/clipboard/history"`)
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doRequest(t, ts, http.MethodGet, "/", "", nil)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestRateLimit(t *testing.T) {
	store := session.NewMemoryStore(session.Config{})
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{
		APIKey: testAPIKey,
		RateLimit: config.RateLimitConfig{
			RequestsPerSecond: 1,
			Burst:             2,
		},
	}
	ts := httptest.NewServer(New(cfg, store, nil).Handler())
	t.Cleanup(ts.Close)

	limited := false
	for i := 0; i < 10; i++ {
		resp, _ := doRequest(t, ts, http.MethodGet, "/", "", nil)
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited, "expected a 429 after exhausting the burst")
}
