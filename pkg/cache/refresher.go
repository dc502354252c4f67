package cache

import (
	"context"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
	"github.com/seiji-watch/ingest-core/pkg/queue"
)

// refreshFuncRef is the func_ref QueueRefresher registers its handler
// under. One handler serves every cache key; the key travels in the
// job payload.
const refreshFuncRef = "cache.refresh"

// QueueRefresher launches background refreshes as high-priority jobs on
// a pkg/queue.Queue, so concurrent stale reads for the same key
// coalesce the way spec.md §9's design notes require: "enqueue a
// refresh task into the queue at high priority, keyed by the cache key
// so concurrent stale reads coalesce to a single refresh." Coalescing
// itself happens one layer up, in ReadThrough's inFlight set; this type
// only owns dispatch.
type QueueRefresher struct {
	q *queue.Queue
}

// NewQueueRefresher registers the refresh handler on q and returns a
// Refresher ready to hand to NewReadThrough.
func NewQueueRefresher(q *queue.Queue) *QueueRefresher {
	r := &QueueRefresher{q: q}
	q.RegisterHandler(refreshFuncRef, r.handle)
	return r
}

type refreshPayload struct {
	key   string
	fetch Fetcher
}

func (r *QueueRefresher) Refresh(key string, fetch Fetcher) {
	r.q.Enqueue(refreshFuncRef, refreshPayload{key: key, fetch: fetch}, queue.EnqueueOptions{
		Priority:    billmodel.PriorityHigh,
		Description: "cache stale-while-revalidate refresh: " + key,
	})
}

func (r *QueueRefresher) handle(ctx context.Context, payload any) (any, error) {
	p, ok := payload.(refreshPayload)
	if !ok {
		return nil, nil
	}
	return p.fetch(ctx, p.key)
}
