// Package cache implements the generic read/write/TTL cache and the
// member-data domain cache spec.md §4.12 describes (component C13).
// The default TTL cache is a TTL-bucketed map the way the teacher's
// pkg/runbook.Cache holds GitHub runbook content, generalized here to
// a network-backed store (redis/go-redis/v9) so entries survive
// process restarts and are shared across ingest workers.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is set() 's fallback TTL (spec.md §4.12: "default 24h").
const DefaultTTL = 24 * time.Hour

// Cache is the generic backend spec.md §4.12 names: get/set/delete/
// exists/ttl/mget/mset/increment/flush_pattern. Values are opaque
// byte blobs; callers serialize their own domain types.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	MGet(ctx context.Context, keys []string) (map[string][]byte, error)
	MSet(ctx context.Context, entries map[string][]byte, ttl time.Duration) error
	Increment(ctx context.Context, key string, by int64) (int64, error)
	FlushPattern(ctx context.Context, pattern string) (int, error)
}
