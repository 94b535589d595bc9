package middlewares

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/geocoder89/feedbackhub/internal/apperr"
	"github.com/geocoder89/feedbackhub/internal/observability"
	"github.com/gin-gonic/gin"
)

// LimitStore counts hits in a fixed window. *redisclient.Client implements it
// for limits shared across worker processes.
type LimitStore interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)
}

type RateLimiter struct {
	name    string
	message string
	limit   int
	window  time.Duration
	store   LimitStore
	log     *slog.Logger
	prom    *observability.Prom
}

// NewRateLimiter builds a limiter whose rejections carry message.
func NewRateLimiter(name, message string, limit int, window time.Duration, store LimitStore, log *slog.Logger, prom *observability.Prom) *RateLimiter {
	if store == nil {
		store = NewMemoryLimitStore()
	}
	return &RateLimiter{
		name:    name,
		message: message,
		limit:   limit,
		window:  window,
		store:   store,
		log:     log,
		prom:    prom,
	}
}

// RateLimiterMiddleware enforces the limit for a derived key. A store failure
// lets the request through and is logged.
func (rl *RateLimiter) RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		if key == "" {
			// fallback to IP if key cannot be derived
			key = clientIP(c)
		}

		count, resetIn, err := rl.store.Hit(c.Request.Context(), "ratelimit:"+rl.name+":"+key, rl.window)
		if err != nil {
			if rl.log != nil {
				rl.log.WarnContext(c.Request.Context(), "rate limiter store failed", "limiter", rl.name, "err", err)
			}
			c.Next()
			return
		}

		if count > int64(rl.limit) {
			retryAfter := int(resetIn.Seconds())

			if retryAfter < 1 {
				retryAfter = 1
			}

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			rl.prom.ObserveRateLimited(rl.name)

			Fail(c, apperr.New(apperr.KindRateLimited, rl.message))
			return
		}

		c.Next()
	}
}

// for unauthenticated endpoints: rate limit by IP
func KeyByIP(c *gin.Context) string {
	return clientIP(c)
}

func clientIP(c *gin.Context) string {
	// Gin's ClientIP respects X-Forwarded-For / X-Real-IP if configured.
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)

	if err == nil && host != "" {
		return host
	}

	return ip
}

// MemoryLimitStore is the per-process fallback used when Redis is not configured.
type MemoryLimitStore struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	now     func() time.Time
}

type clientBucket struct {
	count     int64
	windowEnd time.Time
}

const sweepThreshold = 10000

func NewMemoryLimitStore() *MemoryLimitStore {
	return &MemoryLimitStore{
		clients: make(map[string]*clientBucket),
		now:     time.Now,
	}
}

func (s *MemoryLimitStore) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.clients) > sweepThreshold {
		for k, b := range s.clients {
			if now.After(b.windowEnd) {
				delete(s.clients, k)
			}
		}
	}

	b, ok := s.clients[key]

	if !ok || now.After(b.windowEnd) {
		b = &clientBucket{windowEnd: now.Add(window)}
		s.clients[key] = b
	}

	b.count++
	return b.count, b.windowEnd.Sub(now), nil
}
