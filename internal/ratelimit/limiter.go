package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter manages rate limits for different price sources
type Limiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
}

// New returns an empty Limiter. Sources without a registered limit are never throttled.
func New() *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
	}
}

// Set installs a limit of rps requests per second for source.
// A non-positive rps removes any limit for the source.
func (l *Limiter) Set(source string, rps float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rps <= 0 {
		delete(l.limiters, source)
		return
	}

	// Burst of one keeps requests evenly spaced
	l.limiters[source] = rate.NewLimiter(rate.Limit(rps), 1)
}

// Wait blocks until the rate limiter permits an event for the given source
// It returns an error if the context is canceled before the event can proceed
func (l *Limiter) Wait(ctx context.Context, source string) error {
	if l == nil {
		return nil
	}

	l.mu.RLock()
	limiter, exists := l.limiters[source]
	l.mu.RUnlock()

	if !exists {
		// If no limiter exists for this source, allow the request without limiting
		return nil
	}

	return limiter.Wait(ctx)
}
