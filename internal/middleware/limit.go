package middleware

import (
	"net/http"
	"strconv"

	"github.com/zynqcloud/face-enroll/internal/httpx"
)

const (
	// defaultEnrollConcurrency is the fallback slot count when maxConcurrent ≤ 0.
	defaultEnrollConcurrency = 64

	// retryAfterSeconds is the value of the Retry-After header sent on 503.
	retryAfterSeconds = "5"
)

// EnrollLimiter caps the number of enrollments in flight using a non-blocking
// channel semaphore. When it is full, new requests get 503 + Retry-After
// immediately instead of queuing.
//
// Each in-flight enrollment holds its decoded batch in memory (five images,
// bounded by the request body limit), so the slot count times the body limit
// approximates the worst-case heap used by enrollments.
type EnrollLimiter struct {
	sem chan struct{}
}

// NewEnrollLimiter creates a limiter allowing at most maxConcurrent enrollments.
func NewEnrollLimiter(maxConcurrent int) *EnrollLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultEnrollConcurrency
	}
	return &EnrollLimiter{sem: make(chan struct{}, maxConcurrent)}
}

// Limit wraps a handler so that each request must acquire a slot first.
func (l *EnrollLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case l.sem <- struct{}{}:
			defer func() { <-l.sem }()
			next.ServeHTTP(w, r)
		default:
			w.Header().Set("Retry-After", retryAfterSeconds)
			w.Header().Set("X-Active-Enrollments", strconv.Itoa(len(l.sem)))
			httpx.WriteMessage(w, http.StatusServiceUnavailable, "server at capacity, retry in "+retryAfterSeconds+"s")
		}
	})
}

// Active returns the number of slots currently in use.
func (l *EnrollLimiter) Active() int { return len(l.sem) }

// Cap returns the maximum number of concurrent enrollments.
func (l *EnrollLimiter) Cap() int { return cap(l.sem) }
