package api

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/logging"
)

// SharedLimiter enforces a request budget shared by every API instance
type SharedLimiter interface {
	TryConsume(ctx context.Context, caller string) (allowed bool, wait time.Duration, err error)
}

// RateLimiter keeps one token bucket per caller
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex

	limit rate.Limit
	burst int
}

// NewRateLimiter creates a limiter allowing rps requests per second per caller
// with bursts of up to burst requests.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// getLimiter returns the limiter for key, creating it on first use
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[key]
	rl.mu.RUnlock()

	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check in case another goroutine created it
	if limiter, exists := rl.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters[key] = limiter
	return limiter
}

// Allow reports whether key may make a request now
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// RateLimitMiddleware enforces the limit per authenticated user, falling back
// to the remote address for anonymous requests. shared may be nil; when it
// cannot be reached only the local limit applies.
func RateLimitMiddleware(rl *RateLimiter, shared SharedLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := UserFromContext(r.Context())
			if !ok {
				key = r.RemoteAddr
			}

			if !rl.Allow(key) {
				retryAfter := 1
				if rl.limit > 0 && rl.limit != rate.Inf {
					retryAfter = int(math.Ceil(1 / float64(rl.limit)))
				}
				rejectRateLimited(w, retryAfter)
				return
			}

			if shared != nil {
				allowed, wait, err := shared.TryConsume(r.Context(), key)
				switch {
				case err != nil:
					logging.FromContext(r.Context()).WithError(err).Warn("Shared rate limit unavailable")
				case !allowed:
					rejectRateLimited(w, max(int(math.Ceil(wait.Seconds())), 1))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(w http.ResponseWriter, retryAfterSeconds int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	respondError(w, http.StatusTooManyRequests, apperrors.CodeRateLimitExceeded,
		"Rate limit exceeded. Please try again later.", nil)
}
