package fetcher

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// hostLimiter pairs a token-bucket rate.Limiter with a cooldown deadline
// for one host. Shared across all callers of that host (spec.md §5: "a
// mutex protects the bucket and the cooldown deadline").
type hostLimiter struct {
	limiter *rate.Limiter

	mu            sync.Mutex
	cooldownUntil time.Time
}

func newHostLimiter(requestsPerSecond float64, burstSize int) *hostLimiter {
	return &hostLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burstSize),
	}
}

// limiterFor returns the shared limiter for host, creating it on first use.
func (f *Fetcher) limiterFor(host string) *hostLimiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	hl, ok := f.limiters[host]
	if !ok {
		hl = newHostLimiter(f.cfg.RequestsPerSecond, f.cfg.BurstSize)
		f.limiters[host] = hl
	}
	return hl
}

// wait blocks until either the cooldown period ends and a token bucket
// reservation succeeds, or ctx is cancelled.
func (h *hostLimiter) wait(ctx context.Context) error {
	h.mu.Lock()
	until := h.cooldownUntil
	h.mu.Unlock()

	if wait := time.Until(until); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return h.limiter.Wait(ctx)
}

// cooldown enters a post-429 cooldown window: at least cooldownSeconds,
// extended to retryAfter when respectRetryAfter is set and longer.
func (h *hostLimiter) cooldown(cooldownSeconds int, retryAfter time.Duration, respectRetryAfter bool) {
	wait := time.Duration(cooldownSeconds) * time.Second
	if respectRetryAfter && retryAfter > wait {
		wait = retryAfter
	}
	h.mu.Lock()
	h.cooldownUntil = time.Now().Add(wait)
	h.mu.Unlock()
}
