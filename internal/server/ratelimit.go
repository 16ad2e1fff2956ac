package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter pruning thresholds.
const (
	maxTrackedClients = 10000
	clientIdleTTL     = 10 * time.Minute
)

// RateLimiter provides per-client rate limiting using token bucket algorithm.
type RateLimiter struct {
	limiters   map[string]*clientLimiter
	mu         sync.Mutex
	rateLimit  rate.Limit
	burstLimit int
	now        func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter with the specified rate and burst.
// rate is requests per second, burst is the maximum burst size. A
// non-positive rate disables limiting.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(ratePerSecond)
	if ratePerSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters:   make(map[string]*clientLimiter),
		rateLimit:  limit,
		burstLimit: burst,
		now:        time.Now,
	}
}

// Allow checks if a request from the client is allowed.
// Returns true if the request should proceed, false if it should be rate limited.
func (r *RateLimiter) Allow(client string) bool {
	return r.getLimiter(client).Allow()
}

// Clients returns the number of clients currently tracked.
func (r *RateLimiter) Clients() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

// getLimiter returns the limiter for the given client, creating one if needed.
func (r *RateLimiter) getLimiter(client string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if cl, exists := r.limiters[client]; exists {
		cl.lastSeen = now
		return cl.limiter
	}

	if len(r.limiters) >= maxTrackedClients {
		r.pruneLocked(now)
	}

	cl := &clientLimiter{
		limiter:  rate.NewLimiter(r.rateLimit, r.burstLimit),
		lastSeen: now,
	}
	r.limiters[client] = cl
	return cl.limiter
}

// pruneLocked drops clients idle for longer than clientIdleTTL.
func (r *RateLimiter) pruneLocked(now time.Time) {
	for key, cl := range r.limiters {
		if now.Sub(cl.lastSeen) > clientIdleTTL {
			delete(r.limiters, key)
		}
	}
}
