package api

import (
	"net/http"

	"golang.org/x/time/rate"
)

// rateLimiter gates incoming requests. A nil limiter means unlimited.
type rateLimiter interface {
	Allow() bool
}

type tokenBucketLimiter struct {
	bucket *rate.Limiter
}

func newTokenBucketLimiter(ratePerSecond float64, burst int) rateLimiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}

	return &tokenBucketLimiter{
		bucket: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

func (l *tokenBucketLimiter) Allow() bool {
	if l == nil || l.bucket == nil {
		return true
	}
	return l.bucket.Allow()
}

func rateLimitMiddleware(limiter rateLimiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}
		writeError(w, http.StatusTooManyRequests, "Too many requests", "rate limit exceeded, please retry shortly")
	})
}
