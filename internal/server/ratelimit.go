package server

import (
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter enforces per-caller and global request rate limits using a
// token bucket per caller plus one shared global bucket.
type RateLimiter struct {
	mu        sync.Mutex
	global    *rate.Limiter
	callers   map[string]*rate.Limiter
	perCaller rate.Limit
	burst     int
}

// NewRateLimiter creates a rate limiter. perCallerRPS is the steady per-IP
// rate; burst is the bucket size. The global bucket allows 10x the
// per-caller rate so one chatty client cannot starve the rest.
func NewRateLimiter(perCallerRPS float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		global:    rate.NewLimiter(rate.Limit(perCallerRPS*10), burst*10),
		callers:   make(map[string]*rate.Limiter),
		perCaller: rate.Limit(perCallerRPS),
		burst:     burst,
	}
}

// Allow reports whether a request from the given caller may proceed.
func (rl *RateLimiter) Allow(caller string) bool {
	if !rl.global.Allow() {
		return false
	}
	rl.mu.Lock()
	limiter, ok := rl.callers[caller]
	if !ok {
		limiter = rate.NewLimiter(rl.perCaller, rl.burst)
		rl.callers[caller] = limiter
	}
	rl.mu.Unlock()
	return limiter.Allow()
}
