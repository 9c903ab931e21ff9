package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter paces batch verifications per session, so one long reasoning
// session cannot starve the others of tool capacity
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter allows perSecond thoughts per session. A non-positive rate
// disables pacing.
func NewLimiter(perSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Wait blocks until a thought of session may start
func (l *Limiter) Wait(ctx context.Context, session string) error {
	return l.getLimiter(session).Wait(ctx)
}

// Allow reports whether a thought of session may start now
func (l *Limiter) Allow(session string) bool {
	return l.getLimiter(session).Allow()
}

// SetSessionRate overrides the pace of one session
func (l *Limiter) SetSessionRate(session string, perSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}
	l.limiters[session] = rate.NewLimiter(rate.Limit(perSecond), burst)
}

func (l *Limiter) getLimiter(session string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[session]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, exists := l.limiters[session]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[session] = limiter
	return limiter
}
