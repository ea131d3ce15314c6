package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker_AllHealthy(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterCheck(PingCheck())

	resp := hc.Check(context.Background())

	assert.Equal(t, HealthStatusHealthy, resp.Status)
	require.Contains(t, resp.Checks, "ping")
	assert.Equal(t, HealthStatusHealthy, resp.Checks["ping"].Status)
	assert.NotEmpty(t, resp.Uptime)
	assert.Greater(t, resp.System.NumGoroutines, 0)
}

func TestHealthChecker_CriticalFailureIsUnhealthy(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterCheck(StorageCheck(func(ctx context.Context) error {
		return errors.New("connection refused")
	}))

	resp := hc.Check(context.Background())

	assert.Equal(t, HealthStatusUnhealthy, resp.Status)
	assert.Equal(t, HealthStatusUnhealthy, resp.Checks["storage"].Status)
	assert.Contains(t, resp.Checks["storage"].Message, "connection refused")
}

func TestHealthChecker_NonCriticalFailureIsDegraded(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterCheck(&HealthCheck{
		Name:      "optional",
		CheckFunc: func(ctx context.Context) error { return errors.New("flaky") },
		Timeout:   time.Second,
	})

	resp := hc.Check(context.Background())

	assert.Equal(t, HealthStatusDegraded, resp.Status)
}

func TestHealthChecker_CheckTimeout(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterCheck(&HealthCheck{
		Name: "slow",
		CheckFunc: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
		Timeout:  50 * time.Millisecond,
		Critical: true,
	})

	resp := hc.Check(context.Background())

	assert.Equal(t, HealthStatusUnhealthy, resp.Status)
}

func TestHealthHandler(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterCheck(PingCheck())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	hc.Handler()(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterCheck(StorageCheck(func(ctx context.Context) error {
		return errors.New("down")
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	hc.Handler()(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReadinessHandler(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterCheck(PingCheck())

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	hc.ReadinessHandler()(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ready")
}

func TestLivenessHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	LivenessHandler()(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alive")
}
