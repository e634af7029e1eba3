package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig bounds how often one caller may hit a route. Key picks
// the caller identity; nil means the client IP.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	Key               func(c echo.Context) string
}

// DefaultAskRateLimit allows a short burst of questions and then one every
// two seconds, per caller.
func DefaultAskRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 0.5,
		BurstSize:         5,
	}
}

type tokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

func newTokenBucket(rate float64, burst int, now time.Time) *tokenBucket {
	return &tokenBucket{
		tokens:     float64(burst),
		maxTokens:  float64(burst),
		refillRate: rate,
		lastRefill: now,
	}
}

// take refills the bucket up to now and consumes one token. When empty it
// reports how many seconds until the next token.
func (b *tokenBucket) take(now time.Time) (bool, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens += now.Sub(b.lastRefill).Seconds() * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	if b.refillRate <= 0 {
		return false, 1
	}
	return false, int((1-b.tokens)/b.refillRate) + 1
}

type bucketStore struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	cfg     RateLimitConfig
}

func (s *bucketStore) get(key string, now time.Time) *tokenBucket {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[key]
	if !ok {
		b = newTokenBucket(s.cfg.RequestsPerSecond, s.cfg.BurstSize, now)
		s.buckets[key] = b
	}
	return b
}

// RateLimit rejects callers that exceed cfg with 429 and a Retry-After
// header.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	return rateLimit(cfg, time.Now)
}

func rateLimit(cfg RateLimitConfig, now func() time.Time) echo.MiddlewareFunc {
	if cfg.Key == nil {
		cfg.Key = func(c echo.Context) string { return c.RealIP() }
	}
	store := &bucketStore{buckets: make(map[string]*tokenBucket), cfg: cfg}
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', -1, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := cfg.Key(c)
			if key == "" {
				key = c.RealIP()
			}

			ok, retryAfter := store.get(key, now()).take(now())
			c.Response().Header().Set("X-RateLimit-Limit", limit)
			if !ok {
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
