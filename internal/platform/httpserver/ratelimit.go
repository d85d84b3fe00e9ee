package httpserver

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// identityLimiter keeps one token bucket per caller identity.
type identityLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newIdentityLimiter(perMinute int) *identityLimiter {
	return &identityLimiter{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *identityLimiter) Allow(identity string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[identity]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[identity] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}
