package circuitbreaker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestCircuitBreakerStates(t *testing.T) {
	logger := zaptest.NewLogger(t)
	config := DefaultConfig()
	config.FailureThreshold = 3
	config.SuccessThreshold = 2
	config.MaxRequests = 5
	config.Timeout = 100 * time.Millisecond
	config.Interval = 0

	cb := NewCircuitBreaker("test", config, logger)
	ctx := context.Background()

	assert.Equal(t, StateClosed, cb.State())

	for i := 0; i < 3; i++ {
		require.NoError(t, cb.Execute(ctx, func() error { return nil }))
	}
	assert.Equal(t, StateClosed, cb.State())

	for i := 0; i < 3; i++ {
		assert.Error(t, cb.Execute(ctx, func() error { return errors.New("upstream down") }))
	}
	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(ctx, func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())

	for i := 0; i < 2; i++ {
		require.NoError(t, cb.Execute(ctx, func() error { return nil }))
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	config := DefaultConfig()
	config.FailureThreshold = 1
	config.Timeout = 50 * time.Millisecond
	cb := NewCircuitBreaker("reopen", config, zaptest.NewLogger(t))
	ctx := context.Background()

	_ = cb.Execute(ctx, func() error { return errors.New("boom") })
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(80 * time.Millisecond)
	_ = cb.Execute(ctx, func() error { return errors.New("still down") })
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreakerIgnoresCallerCancellation(t *testing.T) {
	config := DefaultConfig()
	config.FailureThreshold = 1
	cb := NewCircuitBreaker("cancel", config, zaptest.NewLogger(t))

	err := cb.Execute(context.Background(), func() error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err = cb.Execute(ctx, func() error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestRegistryTracksStateChanges(t *testing.T) {
	config := DefaultConfig()
	config.FailureThreshold = 1
	var transitions []string
	config.OnStateChange = func(name string, from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}
	cb := NewCircuitBreaker("registry-test", config, zaptest.NewLogger(t))
	reg := NewRegistry()
	reg.Register(cb)

	_ = cb.Execute(context.Background(), func() error { return errors.New("fail") })

	got, ok := reg.Get("registry-test")
	require.True(t, ok)
	assert.Equal(t, StateOpen, got.State())
	assert.Equal(t, []string{"closed->open"}, transitions)
	assert.Contains(t, reg.Names(), "registry-test")
}

func TestTransportTripsOn5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	config := DefaultConfig()
	config.FailureThreshold = 2
	cb := NewCircuitBreaker("transport-5xx", config, zaptest.NewLogger(t))
	client := NewHTTPClient(cb)

	for i := 0; i < 2; i++ {
		resp, err := client.Get(srv.URL)
		require.NoError(t, err, "5xx is returned to the caller")
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		resp.Body.Close()
	}
	assert.Equal(t, StateOpen, cb.State())

	_, err := client.Get(srv.URL)
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
}

func TestTransportIgnores4xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	config := DefaultConfig()
	config.FailureThreshold = 1
	cb := NewCircuitBreaker("transport-4xx", config, zaptest.NewLogger(t))
	client := NewHTTPClient(cb)

	for i := 0; i < 3; i++ {
		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestServiceConfigEnvOverride(t *testing.T) {
	t.Setenv("CB_LLM_FAILURE_THRESHOLD", "9")
	t.Setenv("CB_LLM_TIMEOUT", "2s")
	t.Setenv("CB_LLM_MAX_REQUESTS", "not-a-number")

	cfg := LLMConfig()
	assert.Equal(t, uint32(9), cfg.FailureThreshold)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, uint32(2), cfg.MaxRequests, "invalid values fall back to defaults")
}
