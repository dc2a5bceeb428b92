package httpapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/webscout/orchestrator/internal/logging"
	"github.com/webscout/orchestrator/internal/metrics"
)

// Limiter decides whether the client identified by key may make another request.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, remaining int, resetAt time.Time)
	Limit() int
}

// RedisLimiter is a fixed one-minute window shared across replicas.
type RedisLimiter struct {
	client            redis.UniversalClient
	requestsPerMinute int
	logger            *zap.Logger
	now               func() time.Time
}

func NewRedisLimiter(client redis.UniversalClient, requestsPerMinute int, logger *zap.Logger) *RedisLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLimiter{client: client, requestsPerMinute: requestsPerMinute, logger: logger, now: time.Now}
}

func (l *RedisLimiter) Limit() int { return l.requestsPerMinute }

// Allow fails open when Redis is unreachable.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time) {
	window := l.now().Truncate(time.Minute)
	resetAt := window.Add(time.Minute)
	windowKey := fmt.Sprintf("ratelimit:%s:%d", key, window.Unix())

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, time.Minute+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Error("Rate limit check failed", zap.Error(err))
		return true, l.requestsPerMinute, resetAt
	}

	count := incr.Val()
	remaining := max(l.requestsPerMinute-int(count), 0)
	return count <= int64(l.requestsPerMinute), remaining, resetAt
}

// LocalLimiter keeps one token bucket per key in process memory.
type LocalLimiter struct {
	mu                sync.Mutex
	buckets           map[string]*bucket
	requestsPerMinute int
	burst             int
	now               func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const localLimiterMaxKeys = 10000

func NewLocalLimiter(requestsPerMinute, burst int) *LocalLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &LocalLimiter{
		buckets:           make(map[string]*bucket),
		requestsPerMinute: requestsPerMinute,
		burst:             burst,
		now:               time.Now,
	}
}

func (l *LocalLimiter) Limit() int { return l.requestsPerMinute }

func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, int, time.Time) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= localLimiterMaxKeys {
			l.evictIdle(now)
		}
		every := rate.Every(time.Minute / time.Duration(max(l.requestsPerMinute, 1)))
		b = &bucket{limiter: rate.NewLimiter(every, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	allowed := b.limiter.AllowN(now, 1)
	remaining := max(int(b.limiter.TokensAt(now)), 0)
	resetAt := now
	if !allowed {
		r := b.limiter.ReserveN(now, 1)
		resetAt = now.Add(r.DelayFrom(now))
		r.CancelAt(now)
	}
	return allowed, remaining, resetAt
}

// evictIdle drops buckets unused for a minute; once idle that long a bucket is full again.
func (l *LocalLimiter) evictIdle(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > time.Minute {
			delete(l.buckets, k)
		}
	}
}

// RateLimit rejects clients over their limit with 429 and Retry-After.
func RateLimit(limiter Limiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			allowed, remaining, resetAt := limiter.Allow(r.Context(), key)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !allowed {
				metrics.RateLimited.Inc()
				logging.FromContext(r.Context(), logger).Warn("Rate limit exceeded",
					zap.String("client", key),
					zap.String("path", r.URL.Path),
				)
				retry := int(time.Until(resetAt).Round(time.Second).Seconds())
				w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
				writeJSON(w, http.StatusTooManyRequests, errorResponse{Detail: "Rate limit exceeded. Please retry later."})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, then the remote address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
