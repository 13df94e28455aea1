package pipeline

import (
	"context"
	"sync"
	"time"

	"dealerstudio/internal/config"

	"golang.org/x/time/rate"
)

// NoopRateLimiter allows every run
type NoopRateLimiter struct{}

func (NoopRateLimiter) Allow(context.Context, string) error { return nil }

// LocalRateLimiter keeps one token bucket per user in process memory
type LocalRateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// NewLocalRateLimiter allows runsPerHour runs per user with the given burst
func NewLocalRateLimiter(runsPerHour float64, burst int) *LocalRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &LocalRateLimiter{
		limit:    rate.Limit(runsPerHour / time.Hour.Seconds()),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// NewRateLimiter builds the limiter described by cfg
func NewRateLimiter(cfg config.RateLimit) RateLimiter {
	if !cfg.Enabled {
		return NoopRateLimiter{}
	}
	return NewLocalRateLimiter(cfg.RunsPerHour, cfg.Burst)
}

// Allow consumes a token for userID or returns ErrRateLimited
func (l *LocalRateLimiter) Allow(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !l.limiterFor(userID).Allow() {
		return ErrRateLimited
	}
	return nil
}

func (l *LocalRateLimiter) limiterFor(userID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[userID] = lim
	}
	return lim
}
