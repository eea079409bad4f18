package main

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipRateLimiter holds one token bucket per client IP. State is per-process
// and advisory; it protects the bcrypt path from hammering, nothing more.
type ipRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// newIPRateLimiter allows perMinute requests sustained with the given burst.
// perMinute <= 0 disables limiting.
func newIPRateLimiter(perMinute, burst int) *ipRateLimiter {
	var limit rate.Limit = rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	if burst < 1 {
		burst = 1
	}
	return &ipRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	if ip == "" {
		return true
	}
	l.mu.Lock()
	limiter, ok := l.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}
