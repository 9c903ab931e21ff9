package orchestrate

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter rate limits calls per tool name
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a limiter allowing perSecond calls per tool.
// A non-positive rate disables limiting.
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

// Wait blocks until tool may be called or ctx is done. A nil limiter never blocks.
func (l *Limiter) Wait(ctx context.Context, tool string) error {
	if l == nil {
		return nil
	}
	return l.get(tool).Wait(ctx)
}

// Allow reports whether tool may be called now
func (l *Limiter) Allow(tool string) bool {
	if l == nil {
		return true
	}
	return l.get(tool).Allow()
}

// SetToolRate overrides the rate for one tool
func (l *Limiter) SetToolRate(tool string, perSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if burst <= 0 {
		burst = l.defaultBurst
	}
	l.limiters[tool] = rate.NewLimiter(rate.Limit(perSecond), burst)
}

func (l *Limiter) get(tool string) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.limiters[tool]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok := l.limiters[tool]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[tool] = limiter
	return limiter
}
