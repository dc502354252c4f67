// Package queue implements the four-priority job queue and worker pool
// spec.md §4.11 describes (component C12). The in-memory implementation
// keeps one FIFO slice per priority behind a mutex and serves urgent
// before high before normal before low, strictly. An optional
// Postgres-backed implementation (postgres.go) reuses the teacher's
// `SELECT ... FOR UPDATE SKIP LOCKED` claim pattern from
// pkg/queue/worker.go, written directly against jackc/pgx/v5.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
)

// priorityOrder is the strict dequeue precedence (spec.md §4.11: "serves
// a list of queues in strict priority order").
var priorityOrder = []billmodel.Priority{
	billmodel.PriorityUrgent, billmodel.PriorityHigh,
	billmodel.PriorityNormal, billmodel.PriorityLow,
}

// Handler processes one task's payload. Registered by name (the
// func_ref spec.md's enqueue API takes), since Go cannot serialize a
// closure the way RQ pickles a Python callable.
type Handler func(ctx context.Context, payload any) (any, error)

// Queue is the in-memory four-priority job queue.
type Queue struct {
	mu       sync.Mutex
	handlers map[string]Handler
	queues   map[billmodel.Priority][]string // job IDs, FIFO per priority
	jobs     map[string]*billmodel.Task
	now      func() time.Time
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{
		handlers: make(map[string]Handler),
		queues:   make(map[billmodel.Priority][]string),
		jobs:     make(map[string]*billmodel.Task),
		now:      time.Now,
	}
}

// RegisterHandler associates funcRef with the handler that runs it.
func (q *Queue) RegisterHandler(funcRef string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[funcRef] = h
}

// EnqueueOptions configures one enqueue call; zero values fall back to
// spec.md's defaults (normal priority, no timeout, no result TTL).
type EnqueueOptions struct {
	Priority    billmodel.Priority
	Timeout     time.Duration
	ResultTTL   time.Duration
	Description string
	BatchID     string
}

// Enqueue adds a job for funcRef with the given payload, returning its
// job_id.
func (q *Queue) Enqueue(funcRef string, payload any, opts EnqueueOptions) string {
	priority := opts.Priority
	if priority == "" {
		priority = billmodel.PriorityNormal
	}

	job := &billmodel.Task{
		JobID:       uuid.New().String(),
		FuncRef:     funcRef,
		Priority:    priority,
		Payload:     payload,
		Timeout:     opts.Timeout,
		ResultTTL:   opts.ResultTTL,
		CreatedAt:   q.now(),
		Status:      billmodel.JobQueued,
		Description: opts.Description,
		BatchID:     opts.BatchID,
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs[job.JobID] = job
	q.queues[priority] = append(q.queues[priority], job.JobID)
	return job.JobID
}

// claim pops the next job in strict priority order, marking it running.
// Returns nil if every queue is empty.
func (q *Queue) claim() *billmodel.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, p := range priorityOrder {
		ids := q.queues[p]
		for len(ids) > 0 {
			id := ids[0]
			ids = ids[1:]
			q.queues[p] = ids
			job, ok := q.jobs[id]
			if !ok || job.Status != billmodel.JobQueued {
				continue // cancelled or cleared between enqueue and claim
			}
			now := q.now()
			job.Status = billmodel.JobRunning
			job.StartedAt = &now
			job.Attempts++
			return job
		}
	}
	return nil
}

// JobStatus returns job_id's current state, spec.md §4.11's
// job_status(job_id) shape.
func (q *Queue) JobStatus(jobID string) (*billmodel.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[jobID]
	if !ok {
		return nil, false
	}
	cp := *job
	return &cp, true
}

// Stats returns queue_stats(): per-priority depth/failed/started/finished
// counts.
func (q *Queue) Stats() map[billmodel.Priority]billmodel.QueueSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make(map[billmodel.Priority]billmodel.QueueSnapshot, len(priorityOrder))
	for _, p := range priorityOrder {
		out[p] = billmodel.QueueSnapshot{Length: len(q.queues[p])}
	}
	for _, job := range q.jobs {
		snap := out[job.Priority]
		switch job.Status {
		case billmodel.JobFailed:
			snap.Failed++
		case billmodel.JobRunning:
			snap.Started++
		case billmodel.JobSucceeded:
			snap.Finished++
		case billmodel.JobCancelled:
			snap.Deferred++
		}
		out[job.Priority] = snap
	}
	return out
}

// Cancel marks a queued job cancelled; running jobs are left to finish
// (spec.md §4.11 names cancel only for queued work).
func (q *Queue) Cancel(jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[jobID]
	if !ok {
		return fmt.Errorf("queue: job %q not found", jobID)
	}
	if job.Status != billmodel.JobQueued {
		return fmt.Errorf("queue: job %q is not queued (status=%s)", jobID, job.Status)
	}
	job.Status = billmodel.JobCancelled
	return nil
}

// Clear removes every queued job at the given priority, returning the
// count cleared.
func (q *Queue) Clear(priority billmodel.Priority) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := q.queues[priority]
	for _, id := range ids {
		if job, ok := q.jobs[id]; ok && job.Status == billmodel.JobQueued {
			job.Status = billmodel.JobCancelled
		}
	}
	n := len(ids)
	q.queues[priority] = nil
	return n
}

// RetryFailed re-enqueues a failed job at its original priority, clearing
// its last error and incrementing nothing beyond the normal attempt
// counter on its next run.
func (q *Queue) RetryFailed(jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[jobID]
	if !ok {
		return fmt.Errorf("queue: job %q not found", jobID)
	}
	if job.Status != billmodel.JobFailed {
		return fmt.Errorf("queue: job %q is not failed (status=%s)", jobID, job.Status)
	}
	job.Status = billmodel.JobQueued
	job.LastError = ""
	job.StartedAt = nil
	job.EndedAt = nil
	q.queues[job.Priority] = append(q.queues[job.Priority], job.JobID)
	return nil
}

// FailedJobs returns up to limit failed jobs, most recently failed first.
// limit <= 0 means unlimited.
func (q *Queue) FailedJobs(limit int) []*billmodel.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	var failed []*billmodel.Task
	for _, job := range q.jobs {
		if job.Status == billmodel.JobFailed {
			cp := *job
			failed = append(failed, &cp)
		}
	}
	sortByEndedDesc(failed)
	if limit > 0 && len(failed) > limit {
		failed = failed[:limit]
	}
	return failed
}

func sortByEndedDesc(jobs []*billmodel.Task) {
	for i := 1; i < len(jobs); i++ {
		for j := i; j > 0; j-- {
			if jobEndedAfter(jobs[j], jobs[j-1]) {
				jobs[j], jobs[j-1] = jobs[j-1], jobs[j]
			} else {
				break
			}
		}
	}
}

func jobEndedAfter(a, b *billmodel.Task) bool {
	if a.EndedAt == nil {
		return false
	}
	if b.EndedAt == nil {
		return true
	}
	return a.EndedAt.After(*b.EndedAt)
}

func (q *Queue) finish(job *billmodel.Task, result any, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	job.EndedAt = &now
	if err != nil {
		job.Status = billmodel.JobFailed
		job.LastError = err.Error()
		return
	}
	job.Status = billmodel.JobSucceeded
	job.Result = result
}

func (q *Queue) handlerFor(funcRef string) (Handler, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	h, ok := q.handlers[funcRef]
	return h, ok
}
