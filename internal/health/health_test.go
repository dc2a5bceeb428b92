package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/webscout/orchestrator/internal/circuitbreaker"
)

func staticChecker(name string, critical bool, status CheckStatus) Checker {
	return NewCustomHealthChecker(name, critical, time.Second, func(context.Context) CheckResult {
		return CheckResult{Status: status}
	})
}

func TestManagerOverallStatus(t *testing.T) {
	tests := []struct {
		name     string
		checkers []Checker
		status   CheckStatus
		ready    bool
		httpCode int
	}{
		{"none registered", nil, StatusHealthy, true, http.StatusOK},
		{"all healthy", []Checker{staticChecker("a", true, StatusHealthy), staticChecker("b", false, StatusHealthy)}, StatusHealthy, true, http.StatusOK},
		{"degraded component", []Checker{staticChecker("a", true, StatusDegraded)}, StatusDegraded, true, http.StatusOK},
		{"non-critical failure", []Checker{staticChecker("a", true, StatusHealthy), staticChecker("b", false, StatusUnhealthy)}, StatusDegraded, true, http.StatusOK},
		{"critical failure", []Checker{staticChecker("a", true, StatusUnhealthy)}, StatusUnhealthy, false, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(zaptest.NewLogger(t))
			for _, c := range tt.checkers {
				require.NoError(t, m.RegisterChecker(c))
			}
			overall := m.GetOverallHealth(context.Background())
			assert.Equal(t, tt.status, overall.Status)
			assert.Equal(t, tt.ready, overall.Ready)
			assert.True(t, overall.Live)

			mux := http.NewServeMux()
			NewHTTPHandler(m, zaptest.NewLogger(t)).RegisterRoutes(mux)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.httpCode, rec.Code)
		})
	}
}

func TestManagerRejectsDuplicateNames(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	require.NoError(t, m.RegisterChecker(staticChecker("llm", true, StatusHealthy)))
	assert.Error(t, m.RegisterChecker(staticChecker("llm", true, StatusHealthy)))
}

func TestBreakerHealthChecker(t *testing.T) {
	cfg := circuitbreaker.DefaultConfig()
	cfg.FailureThreshold = 1
	cfg.Timeout = time.Minute
	cb := circuitbreaker.NewCircuitBreaker("llm", cfg, zaptest.NewLogger(t))
	checker := NewBreakerHealthChecker(cb, false)

	assert.Equal(t, "llm", checker.Name())
	assert.Equal(t, StatusHealthy, checker.Check(context.Background()).Status)

	_ = cb.Execute(context.Background(), func() error { return errors.New("upstream 502") })
	res := checker.Check(context.Background())
	assert.Equal(t, StatusDegraded, res.Status)
	assert.Equal(t, "open", res.Details["state"])
}

func TestRedisHealthChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	checker := NewRedisHealthChecker(client)
	assert.Equal(t, StatusHealthy, checker.Check(context.Background()).Status)

	mr.Close()
	res := checker.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.NotEmpty(t, res.Error)
}

func TestHTTPHandlerRoutes(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	require.NoError(t, m.RegisterChecker(staticChecker("search", true, StatusUnhealthy)))
	mux := http.NewServeMux()
	NewHTTPHandler(m, zaptest.NewLogger(t)).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))
	var body struct {
		Overall    struct{ Status string }
		Components map[string]struct{ Status string }
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body.Overall.Status)
	assert.Equal(t, "unhealthy", body.Components["search"].Status)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
