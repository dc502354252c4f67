package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
)

// BatchSubmission is submit_batch's return value (spec.md §4.11).
type BatchSubmission struct {
	BatchID string   `json:"batch_id"`
	JobIDs  []string `json:"job_ids"`
	Total   int      `json:"total"`
}

// BatchJob is one task to enqueue as part of a batch.
type BatchJob struct {
	FuncRef     string
	Payload     any
	Timeout     time.Duration
	Description string
}

// SubmitBatch enqueues every job in jobs under a shared batch_id, all at
// the same priority.
func (q *Queue) SubmitBatch(jobs []BatchJob, priority billmodel.Priority) BatchSubmission {
	batchID := uuid.New().String()
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		id := q.Enqueue(j.FuncRef, j.Payload, EnqueueOptions{
			Priority:    priority,
			Timeout:     j.Timeout,
			Description: j.Description,
			BatchID:     batchID,
		})
		ids = append(ids, id)
	}
	return BatchSubmission{BatchID: batchID, JobIDs: ids, Total: len(ids)}
}

// BatchStatus aggregates a batch's member job states by the precedence
// spec.md §4.11 specifies: failed > running > pending < completed-only-all.
func (q *Queue) BatchStatus(batchID string) (billmodel.BatchStatus, error) {
	q.mu.Lock()
	var members []*billmodel.Task
	for _, job := range q.jobs {
		if job.BatchID == batchID {
			cp := *job
			members = append(members, &cp)
		}
	}
	q.mu.Unlock()

	if len(members) == 0 {
		return billmodel.BatchStatus{}, fmt.Errorf("queue: no jobs found for batch %q", batchID)
	}

	status := billmodel.BatchStatus{BatchID: batchID, Total: len(members)}
	for _, m := range members {
		switch m.Status {
		case billmodel.JobQueued:
			status.Pending++
		case billmodel.JobRunning:
			status.Running++
		case billmodel.JobSucceeded:
			status.Completed++
		case billmodel.JobFailed, billmodel.JobCancelled:
			status.Failed++
		}
	}

	switch {
	case status.Failed > 0:
		status.State = billmodel.BatchFailed
	case status.Running > 0:
		status.State = billmodel.BatchRunning
	case status.Pending > 0:
		status.State = billmodel.BatchPending
	default: // completed-only-all
		status.State = billmodel.BatchCompleted
	}
	return status, nil
}
