package health

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/webscout/orchestrator/internal/circuitbreaker"
)

// RedisHealthChecker pings the rate-limit store. It is not critical: the
// limiter fails open when Redis is down.
type RedisHealthChecker struct {
	client  redis.UniversalClient
	timeout time.Duration
}

func NewRedisHealthChecker(client redis.UniversalClient) *RedisHealthChecker {
	return &RedisHealthChecker{client: client, timeout: 2 * time.Second}
}

func (r *RedisHealthChecker) Name() string           { return "redis" }
func (r *RedisHealthChecker) IsCritical() bool       { return false }
func (r *RedisHealthChecker) Timeout() time.Duration { return r.timeout }

func (r *RedisHealthChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	err := r.client.Ping(ctx).Err()
	latency := time.Since(start)

	result := CheckResult{Details: map[string]any{"latency_ms": latency.Milliseconds()}}
	switch {
	case err != nil:
		result.Status = StatusUnhealthy
		result.Error = err.Error()
		result.Message = "Redis ping failed"
	case latency > 100*time.Millisecond:
		result.Status = StatusDegraded
		result.Message = "Redis responding but with high latency"
	default:
		result.Status = StatusHealthy
		result.Message = "Redis healthy"
	}
	return result
}

// BreakerHealthChecker reports an upstream through its circuit breaker. An
// open breaker means calls are being rejected, so the check is degraded.
type BreakerHealthChecker struct {
	cb       *circuitbreaker.CircuitBreaker
	critical bool
}

func NewBreakerHealthChecker(cb *circuitbreaker.CircuitBreaker, critical bool) *BreakerHealthChecker {
	return &BreakerHealthChecker{cb: cb, critical: critical}
}

func (b *BreakerHealthChecker) Name() string           { return b.cb.Name() }
func (b *BreakerHealthChecker) IsCritical() bool       { return b.critical }
func (b *BreakerHealthChecker) Timeout() time.Duration { return time.Second }

func (b *BreakerHealthChecker) Check(context.Context) CheckResult {
	state := b.cb.State()
	counts := b.cb.Counts()
	result := CheckResult{Details: map[string]any{
		"state":                state.String(),
		"consecutive_failures": counts.ConsecutiveFailures,
	}}
	switch state {
	case circuitbreaker.StateOpen:
		result.Status = StatusDegraded
		result.Message = "circuit breaker open"
	case circuitbreaker.StateHalfOpen:
		result.Status = StatusDegraded
		result.Message = "circuit breaker probing"
	default:
		result.Status = StatusHealthy
		result.Message = "circuit breaker closed"
	}
	return result
}

// CustomHealthChecker wraps a function.
type CustomHealthChecker struct {
	name     string
	critical bool
	timeout  time.Duration
	checkFn  func(ctx context.Context) CheckResult
}

func NewCustomHealthChecker(name string, critical bool, timeout time.Duration, checkFn func(ctx context.Context) CheckResult) *CustomHealthChecker {
	return &CustomHealthChecker{name: name, critical: critical, timeout: timeout, checkFn: checkFn}
}

func (c *CustomHealthChecker) Name() string           { return c.name }
func (c *CustomHealthChecker) IsCritical() bool       { return c.critical }
func (c *CustomHealthChecker) Timeout() time.Duration { return c.timeout }

func (c *CustomHealthChecker) Check(ctx context.Context) CheckResult {
	return c.checkFn(ctx)
}
