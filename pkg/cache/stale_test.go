package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCache is an in-memory Cache with a caller-controlled TTL, letting
// tests put a value exactly stale_threshold into its life without a
// real clock or Redis.
type fakeCache struct {
	mu      sync.Mutex
	values  map[string][]byte
	ttls    map[string]time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (f *fakeCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	delete(f.ttls, key)
	return nil
}

func (f *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.values[key]
	return ok, nil
}

func (f *fakeCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ttls[key], nil
}

func (f *fakeCache) MGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]byte)
	for _, k := range keys {
		if v, ok := f.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (f *fakeCache) MSet(ctx context.Context, entries map[string][]byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, v := range entries {
		f.values[k] = v
		f.ttls[k] = ttl
	}
	return nil
}

func (f *fakeCache) Increment(ctx context.Context, key string, by int64) (int64, error) {
	return 0, nil
}

func (f *fakeCache) FlushPattern(ctx context.Context, pattern string) (int, error) { return 0, nil }

// syncRefresher runs refreshes inline instead of via pkg/queue, so
// tests can assert post-refresh state without waiting on a worker.
type syncRefresher struct{ calls int }

func (s *syncRefresher) Refresh(key string, fetch Fetcher) {
	s.calls++
	_, _ = fetch(context.Background(), key)
}

func TestReadThrough_MissFetchesSynchronously(t *testing.T) {
	backend := newFakeCache()
	refresher := &syncRefresher{}
	rt := NewReadThrough(backend, refresher, time.Hour, 10*time.Minute)

	val, err := rt.Get(context.Background(), "k", func(ctx context.Context, key string) ([]byte, error) {
		return []byte("fresh"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(val))
	assert.Equal(t, 0, refresher.calls)
}

func TestReadThrough_FreshHitSkipsRefresh(t *testing.T) {
	backend := newFakeCache()
	require.NoError(t, backend.Set(context.Background(), "k", []byte("cached"), 55*time.Minute))
	refresher := &syncRefresher{}
	rt := NewReadThrough(backend, refresher, time.Hour, 10*time.Minute)

	val, err := rt.Get(context.Background(), "k", func(ctx context.Context, key string) ([]byte, error) {
		t.Fatal("fetch should not run for a fresh hit")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "cached", string(val))
	assert.Equal(t, 0, refresher.calls)
}

func TestReadThrough_StaleHitReturnsCachedAndRefreshes(t *testing.T) {
	backend := newFakeCache()
	// default_ttl=1h, stale_threshold=10m: remaining=5m means age=55m > 10m, stale.
	require.NoError(t, backend.Set(context.Background(), "k", []byte("stale-value"), 5*time.Minute))
	refresher := &syncRefresher{}
	rt := NewReadThrough(backend, refresher, time.Hour, 10*time.Minute)

	val, err := rt.Get(context.Background(), "k", func(ctx context.Context, key string) ([]byte, error) {
		return []byte("refreshed"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "stale-value", string(val), "stale read returns the cached value immediately")
	assert.Equal(t, 1, refresher.calls)

	refreshed, found, err := backend.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "refreshed", string(refreshed))
}

func TestReadThrough_CoalescesConcurrentStaleRefreshes(t *testing.T) {
	backend := newFakeCache()
	require.NoError(t, backend.Set(context.Background(), "k", []byte("stale"), time.Minute))

	var refreshCount int
	var mu sync.Mutex
	blocker := make(chan struct{})
	refresher := &blockingRefresher{
		refresh: func(key string, fetch Fetcher) {
			mu.Lock()
			refreshCount++
			mu.Unlock()
			<-blocker
			_, _ = fetch(context.Background(), key)
		},
	}
	rt := NewReadThrough(backend, refresher, time.Hour, 10*time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = rt.Get(context.Background(), "k", func(ctx context.Context, key string) ([]byte, error) {
				return []byte("fresh"), nil
			})
		}()
	}
	// Give every goroutine a chance to reach triggerRefresh before unblocking.
	time.Sleep(20 * time.Millisecond)
	close(blocker)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, refreshCount, "concurrent stale reads for one key should coalesce to one refresh")
}

type blockingRefresher struct {
	refresh func(key string, fetch Fetcher)
}

func (b *blockingRefresher) Refresh(key string, fetch Fetcher) { b.refresh(key, fetch) }
