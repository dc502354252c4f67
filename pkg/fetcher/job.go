package fetcher

import (
	"sync"
	"time"
)

// JobState is a Job's lifecycle state (spec.md §4.1).
type JobState string

const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
	JobRetrying  JobState = "retrying"
)

// Job aggregates a batch of fetches. Callers may subscribe to progress
// updates via OnProgress; Fetch invokes it after every fetch completion.
// Grounded on original_source's ScrapingJob/fetch_multiple_urls.
type Job struct {
	mu sync.Mutex

	state     JobState
	total     int
	processed int
	failed    int
	startedAt time.Time
	endedAt   time.Time
	lastErr   error

	onProgress func(fraction float64)
}

// NewJob creates a Job tracking total fetches, in the pending state.
func NewJob(total int) *Job {
	return &Job{state: JobPending, total: total}
}

// OnProgress registers a callback invoked with the job's current
// progress fraction after every fetch completion. Only one subscriber is
// supported; registering again replaces the previous callback.
func (j *Job) OnProgress(cb func(fraction float64)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.onProgress = cb
}

// Start transitions the job to running and records its start time.
func (j *Job) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = JobRunning
	j.startedAt = time.Now()
}

// Snapshot is a point-in-time, safe-to-share view of a Job's state.
type Snapshot struct {
	State     JobState
	Progress  float64
	Processed int
	Failed    int
	Total     int
	StartedAt time.Time
	EndedAt   *time.Time
	Error     error
}

// Status returns the job's current Snapshot.
func (j *Job) Status() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshotLocked()
}

func (j *Job) snapshotLocked() Snapshot {
	s := Snapshot{
		State:     j.state,
		Processed: j.processed,
		Failed:    j.failed,
		Total:     j.total,
		StartedAt: j.startedAt,
		Error:     j.lastErr,
	}
	if j.total > 0 {
		s.Progress = float64(j.processed+j.failed) / float64(j.total)
	}
	if !j.endedAt.IsZero() {
		ended := j.endedAt
		s.EndedAt = &ended
	}
	return s
}

func (j *Job) recordCompletion(failed bool, err error) {
	j.mu.Lock()
	if failed {
		j.failed++
		j.lastErr = err
	} else {
		j.processed++
	}
	done := j.processed+j.failed >= j.total
	if done {
		j.endedAt = time.Now()
		if j.failed > 0 {
			j.state = JobFailed
		} else {
			j.state = JobCompleted
		}
	}
	snap := j.snapshotLocked()
	cb := j.onProgress
	j.mu.Unlock()

	if cb != nil {
		cb(snap.Progress)
	}
}

// completeProcessed records one successful fetch. Dedup skips go through
// completeSkipped, which records them the same way (spec.md §4.1 treats
// them as "success-with-skip").
func (f *Fetcher) completeProcessed(job *Job) {
	if job != nil {
		job.recordCompletion(false, nil)
	}
}

func (f *Fetcher) completeSkipped(job *Job, _ Skipped) {
	if job != nil {
		job.recordCompletion(false, nil)
	}
}

func (f *Fetcher) failJob(job *Job, err error) {
	if job != nil {
		job.recordCompletion(true, err)
	}
}

// Cancel marks the job cancelled. In-flight fetches still complete (the
// fetcher has no preemption point mid-request); Cancel only prevents
// further scheduling by the caller's own loop.
func (j *Job) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = JobCancelled
	j.endedAt = time.Now()
}
