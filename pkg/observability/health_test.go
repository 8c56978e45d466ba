package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCheckWithNoChecksIsHealthy(t *testing.T) {
	hc := NewHealthChecker()

	resp := hc.Check(context.Background())
	if resp.Status != HealthStatusHealthy {
		t.Errorf("Status = %q, want %q", resp.Status, HealthStatusHealthy)
	}
	if len(resp.Checks) != 0 {
		t.Errorf("Checks = %v, want none", resp.Checks)
	}
}

func TestFailingCheckReportsUnhealthy(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterCheck(StoreCheck(func(ctx context.Context) error {
		return errors.New("connection refused")
	}))

	resp := hc.Check(context.Background())
	if resp.Status != HealthStatusUnhealthy {
		t.Fatalf("Status = %q, want %q", resp.Status, HealthStatusUnhealthy)
	}
	store, ok := resp.Checks["store"]
	if !ok {
		t.Fatalf("Checks missing %q entry: %v", "store", resp.Checks)
	}
	if store.Message != "connection refused" {
		t.Errorf("Message = %q, want %q", store.Message, "connection refused")
	}
}

func TestStalledCheckTimesOut(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterCheck(&HealthCheck{
		Name: "stuck",
		CheckFunc: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
		Timeout: 20 * time.Millisecond,
	})

	start := time.Now()
	resp := hc.Check(context.Background())
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Check() took %v, timeout not enforced", elapsed)
	}
	if resp.Status != HealthStatusUnhealthy {
		t.Errorf("Status = %q, want %q", resp.Status, HealthStatusUnhealthy)
	}
}

func TestHealthHandlerStatusCodes(t *testing.T) {
	healthy := NewHealthChecker()
	failing := NewHealthChecker()
	failing.RegisterCheck(StoreCheck(func(ctx context.Context) error {
		return errors.New("down")
	}))

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    int
	}{
		{"healthy", healthy.Handler(), http.StatusOK},
		{"unhealthy", failing.Handler(), http.StatusServiceUnavailable},
		{"ready", healthy.ReadinessHandler(), http.StatusOK},
		{"not ready", failing.ReadinessHandler(), http.StatusServiceUnavailable},
		{"alive regardless", LivenessHandler(), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
				t.Errorf("Content-Type = %q, want JSON", ct)
			}
		})
	}
}
