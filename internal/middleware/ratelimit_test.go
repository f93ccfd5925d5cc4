package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func sendFrom(handler http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/products", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// Requests beyond the quota are blocked with 429, for both limiters
func TestProperty_RateLimitingBlocksExcessiveRequests(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("excessive requests are blocked with 429", prop.ForAll(
		func(requestsPerWindow int, excessRequests int, useRedis bool) bool {
			config := RateLimitConfig{
				RequestsPerWindow: requestsPerWindow,
				Window:            time.Hour,
				KeyPrefix:         "test_rate_limit",
			}

			var limiter Limiter
			if useRedis {
				mr, err := miniredis.Run()
				if err != nil {
					t.Fatalf("Failed to start miniredis: %v", err)
				}
				defer mr.Close()
				client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				defer client.Close()
				limiter = NewRedisLimiter(client, config)
			} else {
				memory := NewMemoryLimiter(config)
				memory.now = fixedClock(time.Now())
				limiter = memory
			}

			handler := RateLimitMiddleware(limiter, zap.NewNop())(okHandler())

			successCount, blockedCount := 0, 0
			for i := 0; i < requestsPerWindow+excessRequests; i++ {
				switch sendFrom(handler, "192.168.1.100:5555").Code {
				case http.StatusOK:
					successCount++
				case http.StatusTooManyRequests:
					blockedCount++
				}
			}

			return successCount == requestsPerWindow && blockedCount == excessRequests
		},
		gen.IntRange(1, 20),
		gen.IntRange(1, 10),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRateLimitMiddleware_HeadersAndRetryAfter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	limiter := NewRedisLimiter(client, RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute})
	handler := RateLimitMiddleware(limiter, zap.NewNop())(okHandler())

	first := sendFrom(handler, "10.0.0.1:1234")
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, first.Header().Get("X-RateLimit-Reset"))

	sendFrom(handler, "10.0.0.1:1234")
	blocked := sendFrom(handler, "10.0.0.1:1234")
	require.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "0", blocked.Header().Get("X-RateLimit-Remaining"))

	retryAfter, err := strconv.Atoi(blocked.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.True(t, retryAfter >= 1 && retryAfter <= 60, "retry after %d", retryAfter)
	assert.Contains(t, blocked.Body.String(), "too many requests")
}

func TestRedisLimiter_WindowResets(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	handler := RateLimitMiddleware(
		NewRedisLimiter(client, RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute}),
		zap.NewNop(),
	)(okHandler())

	assert.Equal(t, http.StatusOK, sendFrom(handler, "10.0.0.2:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, sendFrom(handler, "10.0.0.2:1").Code)

	mr.FastForward(61 * time.Second)
	assert.Equal(t, http.StatusOK, sendFrom(handler, "10.0.0.2:1").Code)
}

func TestRateLimitMiddleware_ClientsAreCountedSeparately(t *testing.T) {
	memory := NewMemoryLimiter(RateLimitConfig{RequestsPerWindow: 1, Window: time.Hour})
	memory.now = fixedClock(time.Now())
	handler := RateLimitMiddleware(memory, zap.NewNop())(okHandler())

	assert.Equal(t, http.StatusOK, sendFrom(handler, "10.0.0.3:1000").Code)
	assert.Equal(t, http.StatusTooManyRequests, sendFrom(handler, "10.0.0.3:2000").Code, "ports do not split a client")
	assert.Equal(t, http.StatusOK, sendFrom(handler, "10.0.0.4:1000").Code)
}

func TestRateLimitMiddleware_FailsOpenWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	handler := RateLimitMiddleware(
		NewRedisLimiter(client, RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute}),
		zap.NewNop(),
	)(okHandler())

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, sendFrom(handler, "10.0.0.5:1").Code)
	}
}

func TestMemoryLimiter_RefillsAndEvictsIdleClients(t *testing.T) {
	start := time.Now()
	memory := NewMemoryLimiter(RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute})
	memory.now = fixedClock(start)
	handler := RateLimitMiddleware(memory, zap.NewNop())(okHandler())

	sendFrom(handler, "10.0.0.6:1")
	sendFrom(handler, "10.0.0.6:1")
	assert.Equal(t, http.StatusTooManyRequests, sendFrom(handler, "10.0.0.6:1").Code)

	memory.now = fixedClock(start.Add(time.Minute))
	assert.Equal(t, http.StatusOK, sendFrom(handler, "10.0.0.6:1").Code, "quota refills over one window")
	assert.Equal(t, 1, memory.Len())

	memory.now = fixedClock(start.Add(10 * time.Minute))
	sendFrom(handler, "10.0.0.7:1")
	assert.Equal(t, 1, memory.Len(), "idle client was evicted")
}
