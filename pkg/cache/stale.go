package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultStaleThreshold is the default staleness window (spec.md §4.12:
// "default 6h").
const DefaultStaleThreshold = 6 * time.Hour

// Fetcher loads a fresh value for key when the cache can't serve one.
type Fetcher func(ctx context.Context, key string) ([]byte, error)

// Refresher launches an asynchronous refresh of key, outside the
// request's own context. In production the ReadThrough cache is given a
// QueueRefresher backed by pkg/queue (see NewQueueRefresher); tests give
// it a synchronous stand-in.
type Refresher interface {
	Refresh(key string, fetch Fetcher)
}

// ReadThrough wraps a Cache with spec.md §4.12's stale-while-revalidate
// read path: a hit within freshness returns immediately; a stale hit
// returns the cached value and kicks off a background refresh; a miss
// fetches synchronously. Concurrent stale reads for the same key
// coalesce onto one in-flight refresh.
type ReadThrough struct {
	backend        Cache
	refresher      Refresher
	defaultTTL     time.Duration
	staleThreshold time.Duration

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewReadThrough builds a ReadThrough cache. ttl <= 0 and
// staleThreshold <= 0 fall back to DefaultTTL/DefaultStaleThreshold.
func NewReadThrough(backend Cache, refresher Refresher, ttl, staleThreshold time.Duration) *ReadThrough {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if staleThreshold <= 0 {
		staleThreshold = DefaultStaleThreshold
	}
	return &ReadThrough{
		backend:        backend,
		refresher:      refresher,
		defaultTTL:     ttl,
		staleThreshold: staleThreshold,
		inFlight:       make(map[string]bool),
	}
}

// Get returns key's value, fetching it through fetch on a miss and
// triggering a coalesced background refresh on a stale hit.
func (r *ReadThrough) Get(ctx context.Context, key string, fetch Fetcher) ([]byte, error) {
	value, found, err := r.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		fresh, err := fetch(ctx, key)
		if err != nil {
			return nil, err
		}
		if err := r.backend.Set(ctx, key, fresh, r.defaultTTL); err != nil {
			return nil, err
		}
		return fresh, nil
	}

	if r.isStale(ctx, key) {
		r.triggerRefresh(key, fetch)
	}
	return value, nil
}

// isStale implements spec.md §4.12's rule: stale when
// (default_ttl − remaining_ttl) > stale_threshold.
func (r *ReadThrough) isStale(ctx context.Context, key string) bool {
	remaining, err := r.backend.TTL(ctx, key)
	if err != nil || remaining <= 0 {
		return false
	}
	age := r.defaultTTL - remaining
	return age > r.staleThreshold
}

func (r *ReadThrough) triggerRefresh(key string, fetch Fetcher) {
	r.mu.Lock()
	if r.inFlight[key] {
		r.mu.Unlock()
		return
	}
	r.inFlight[key] = true
	r.mu.Unlock()

	r.refresher.Refresh(key, func(ctx context.Context, key string) ([]byte, error) {
		defer func() {
			r.mu.Lock()
			delete(r.inFlight, key)
			r.mu.Unlock()
		}()
		fresh, err := fetch(ctx, key)
		if err != nil {
			return nil, err
		}
		if err := r.backend.Set(ctx, key, fresh, r.defaultTTL); err != nil {
			return nil, err
		}
		return fresh, nil
	})
}
