package api

import (
	"math"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"
)

const (
	defaultRateLimitRPS   = 25
	defaultRateLimitBurst = 50
)

// Health checks and metric scrapes are never throttled.
var rateLimitExempt = map[string]bool{
	"/api/health": true,
	"/metrics":    true,
}

type rateLimiter interface {
	Allow() bool
}

type tokenBucket struct {
	limiter *rate.Limiter
}

func newTokenBucketLimiter(ratePerSecond float64, burst int) rateLimiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &tokenBucket{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

func (b *tokenBucket) Allow() bool {
	if b == nil || b.limiter == nil {
		return true
	}
	return b.limiter.Allow()
}

// retryAfter is the whole number of seconds until the next token, at least 1.
func (b *tokenBucket) retryAfter() int {
	if b == nil || b.limiter == nil || b.limiter.Limit() <= 0 {
		return 1
	}
	secs := int(math.Ceil(1 / float64(b.limiter.Limit())))
	if secs < 1 {
		return 1
	}
	return secs
}

func rateLimitMiddleware(limiter rateLimiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rateLimitExempt[r.URL.Path] || limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}
		retry := 1
		if bucket, ok := limiter.(*tokenBucket); ok {
			retry = bucket.retryAfter()
		}
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		writeError(w, http.StatusTooManyRequests, "Too many requests", "rate limit exceeded",
			"Retry after "+strconv.Itoa(retry)+"s")
	})
}
