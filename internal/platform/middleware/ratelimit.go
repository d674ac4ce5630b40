package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig returns default rate limiting settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

// tokenBucket is a per-client token bucket. Tokens accrue continuously at
// rate per second up to burst.
type tokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	burst    float64
	rate     float64
	refilled time.Time
}

// take refills the bucket by the time elapsed since the last call, then
// spends one token. When the bucket is empty it reports the whole seconds
// until a token becomes available.
func (b *tokenBucket) take() (ok bool, retryAfter int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.refilled).Seconds() * b.rate
	if b.tokens > b.burst {
		b.tokens = b.burst
	}
	b.refilled = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	if b.rate <= 0 {
		return false, 1
	}
	return false, int((1-b.tokens)/b.rate) + 1
}

// clientBuckets hands out one bucket per client IP.
type clientBuckets struct {
	mu   sync.Mutex
	cfg  RateLimitConfig
	byIP map[string]*tokenBucket
}

func (s *clientBuckets) bucket(ip string) *tokenBucket {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byIP[ip]
	if !ok {
		b = &tokenBucket{
			tokens:   float64(s.cfg.BurstSize),
			burst:    float64(s.cfg.BurstSize),
			rate:     s.cfg.RequestsPerSecond,
			refilled: time.Now(),
		}
		s.byIP[ip] = b
	}
	return b
}

// RateLimit throttles clients individually by IP. Rejected requests carry a
// Retry-After hint.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	store := &clientBuckets{cfg: cfg, byIP: make(map[string]*tokenBucket)}
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-RateLimit-Limit", limit)

			ok, retryAfter := store.bucket(c.RealIP()).take()
			if !ok {
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
