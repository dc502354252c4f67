package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// errNoJobsAvailable signals an empty queue to the poll loop; not a real
// failure, so the worker backs off quietly instead of logging an error
// (mirrors the teacher's ErrNoSessionsAvailable/ErrAtCapacity handling).
var errNoJobsAvailable = errors.New("queue: no jobs available")

// WorkerStatus is a worker's current activity state.
type WorkerStatus string

const (
	WorkerIdle    WorkerStatus = "idle"
	WorkerWorking WorkerStatus = "working"
)

// WorkerHealth is one worker's point-in-time health snapshot.
type WorkerHealth struct {
	ID             string       `json:"id"`
	Status         WorkerStatus `json:"status"`
	CurrentJobID   string       `json:"current_job_id,omitempty"`
	JobsProcessed  int          `json:"jobs_processed"`
	LastActivity   time.Time    `json:"last_activity"`
}

// Worker polls a Queue and runs jobs via their registered Handler.
type Worker struct {
	id           string
	q            *Queue
	pollInterval time.Duration
	pollJitter   time.Duration
	stopCh       chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup

	mu            sync.RWMutex
	status        WorkerStatus
	currentJobID  string
	jobsProcessed int
	lastActivity  time.Time
}

// NewWorker builds a Worker polling q every pollInterval ± pollJitter.
func NewWorker(id string, q *Queue, pollInterval, pollJitter time.Duration) *Worker {
	return &Worker{
		id:           id,
		q:            q,
		pollInterval: pollInterval,
		pollJitter:   pollJitter,
		stopCh:       make(chan struct{}),
		status:       WorkerIdle,
		lastActivity: time.Now(),
	}
}

// Start launches the poll loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to exit and waits for its current job, if
// any, to finish.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the worker's current health snapshot.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID: w.id, Status: w.status, CurrentJobID: w.currentJobID,
		JobsProcessed: w.jobsProcessed, LastActivity: w.lastActivity,
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	log := slog.With("worker_id", w.id)
	log.Info("queue worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("queue worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, queue worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, errNoJobsAvailable) {
					w.sleep(w.jitteredInterval())
					continue
				}
				log.Error("queue worker error", "error", err)
				w.sleep(time.Second)
			}
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

func (w *Worker) jitteredInterval() time.Duration {
	if w.pollJitter <= 0 {
		return w.pollInterval
	}
	offset := time.Duration(rand.Int64N(int64(2 * w.pollJitter)))
	return w.pollInterval - w.pollJitter + offset
}

func (w *Worker) pollAndProcess(ctx context.Context) error {
	job := w.q.claim()
	if job == nil {
		return errNoJobsAvailable
	}

	w.setStatus(WorkerWorking, job.JobID)
	defer w.setStatus(WorkerIdle, "")

	handler, ok := w.q.handlerFor(job.FuncRef)
	if !ok {
		w.q.finish(job, nil, fmt.Errorf("no handler registered for func_ref %q", job.FuncRef))
		return nil
	}

	jobCtx := ctx
	var cancel context.CancelFunc
	if job.Timeout > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	result, err := handler(jobCtx, job.Payload)
	if err == nil && jobCtx.Err() != nil {
		err = fmt.Errorf("job timed out after %v", job.Timeout)
	}
	w.q.finish(job, result, err)

	w.mu.Lock()
	w.jobsProcessed++
	w.mu.Unlock()
	return nil
}

func (w *Worker) setStatus(status WorkerStatus, jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentJobID = jobID
	w.lastActivity = time.Now()
}

// WorkerPool manages a fixed set of Workers polling the same Queue.
type WorkerPool struct {
	q       *Queue
	workers []*Worker
	started bool
}

// NewWorkerPool builds a pool of workerCount workers against q.
func NewWorkerPool(q *Queue, workerCount int, pollInterval, pollJitter time.Duration) *WorkerPool {
	workers := make([]*Worker, workerCount)
	for i := 0; i < workerCount; i++ {
		workers[i] = NewWorker(fmt.Sprintf("worker-%d", i), q, pollInterval, pollJitter)
	}
	return &WorkerPool{q: q, workers: workers}
}

// Start launches every worker's poll loop. Safe to call once; repeat
// calls are no-ops.
func (p *WorkerPool) Start(ctx context.Context) {
	if p.started {
		return
	}
	p.started = true
	for _, w := range p.workers {
		w.Start(ctx)
	}
}

// Stop gracefully stops every worker, waiting for in-flight jobs.
func (p *WorkerPool) Stop() {
	for _, w := range p.workers {
		w.Stop()
	}
}

// Health aggregates every worker's health.
func (p *WorkerPool) Health() []WorkerHealth {
	out := make([]WorkerHealth, len(p.workers))
	for i, w := range p.workers {
		out[i] = w.Health()
	}
	return out
}
