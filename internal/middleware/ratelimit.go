package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerWindow int           // Number of requests allowed per window
	Window            time.Duration // Time window for rate limiting
	KeyPrefix         string        // Redis key prefix
}

// LimitResult describes the quota left for one client
type LimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration
}

// Limiter counts requests per client key
type Limiter interface {
	Allow(ctx context.Context, key string) (LimitResult, error)
}

// RedisLimiter is a fixed-window counter shared by every instance using the
// same Redis.
type RedisLimiter struct {
	client *redis.Client
	config RateLimitConfig
}

func NewRedisLimiter(client *redis.Client, config RateLimitConfig) *RedisLimiter {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "ratelimit"
	}
	return &RedisLimiter{client: client, config: config}
}

func (l *RedisLimiter) Allow(ctx context.Context, clientID string) (LimitResult, error) {
	key := fmt.Sprintf("%s:%s", l.config.KeyPrefix, clientID)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return LimitResult{}, fmt.Errorf("increment rate limit counter: %w", err)
	}

	// Set expiry on first request
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return LimitResult{}, fmt.Errorf("expire rate limit counter: %w", err)
		}
	}

	ttl, err := l.client.TTL(ctx, key).Result()
	if err != nil {
		ttl = l.config.Window
	} else if ttl < 0 {
		// a counter without expiry would block the client forever
		l.client.Expire(ctx, key, l.config.Window)
		ttl = l.config.Window
	}

	limit := l.config.RequestsPerWindow
	return LimitResult{
		Allowed:    count <= int64(limit),
		Limit:      limit,
		Remaining:  max(limit-int(count), 0),
		ResetAfter: ttl,
	}, nil
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps a token bucket per client in process memory. Buckets
// refill the full quota over one window; idle clients are evicted.
type MemoryLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	config    RateLimitConfig
	idleAfter time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewMemoryLimiter(config RateLimitConfig) *MemoryLimiter {
	idle := 3 * config.Window
	if idle < time.Minute {
		idle = time.Minute
	}
	return &MemoryLimiter{
		visitors:  make(map[string]*visitor),
		config:    config,
		idleAfter: idle,
		now:       time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, clientID string) (LimitResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	v, ok := l.visitors[clientID]
	if !ok {
		every := l.config.Window / time.Duration(l.config.RequestsPerWindow)
		v = &visitor{limiter: rate.NewLimiter(rate.Every(every), l.config.RequestsPerWindow)}
		l.visitors[clientID] = v
	}
	v.lastSeen = now

	allowed := v.limiter.AllowN(now, 1)
	tokens := v.limiter.TokensAt(now)

	result := LimitResult{
		Allowed:   allowed,
		Limit:     l.config.RequestsPerWindow,
		Remaining: max(int(math.Floor(tokens)), 0),
	}

	perToken := time.Duration(float64(time.Second) / float64(v.limiter.Limit()))
	if allowed {
		// time until the bucket is full again
		result.ResetAfter = time.Duration((float64(l.config.RequestsPerWindow) - tokens) * float64(perToken))
	} else {
		result.ResetAfter = time.Duration((1 - tokens) * float64(perToken))
	}

	return result, nil
}

// Len returns the number of tracked clients
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

func (l *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idleAfter {
		return
	}
	l.lastSweep = now

	for id, v := range l.visitors {
		if now.Sub(v.lastSeen) >= l.idleAfter {
			delete(l.visitors, id)
		}
	}
}

// RateLimitMiddleware enforces the limiter per client IP. Limiter failures
// let the request through.
func RateLimitMiddleware(limiter Limiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := clientIP(r)

			result, err := limiter.Allow(r.Context(), clientID)
			if err != nil {
				logger.Error("Rate limiter unavailable",
					zap.Error(err),
					zap.String("client_id", clientID),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(result.ResetAfter).Unix(), 10))

			if !result.Allowed {
				logger.Warn("Rate limit exceeded",
					zap.String("client_id", clientID),
					zap.Int("limit", result.Limit),
				)

				retryAfter := int(math.Ceil(result.ResetAfter.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				RespondWithError(w, http.StatusTooManyRequests, "too many requests, please try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr, which RealIP has already
// replaced with the forwarded address when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
