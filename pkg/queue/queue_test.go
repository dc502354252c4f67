package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
)

func TestScenarioE_PriorityDispatchOrder(t *testing.T) {
	q := New()

	var mu sync.Mutex
	var dispatchOrder []string

	q.RegisterHandler("record", func(ctx context.Context, payload any) (any, error) {
		mu.Lock()
		dispatchOrder = append(dispatchOrder, payload.(string))
		mu.Unlock()
		return nil, nil
	})

	q.Enqueue("record", "low_job_1", EnqueueOptions{Priority: billmodel.PriorityLow})
	q.Enqueue("record", "normal_job_1", EnqueueOptions{Priority: billmodel.PriorityNormal})
	q.Enqueue("record", "urgent_job_1", EnqueueOptions{Priority: billmodel.PriorityUrgent})

	// A single worker, draining synchronously by repeated claim+run.
	for i := 0; i < 3; i++ {
		job := q.claim()
		require.NotNil(t, job)
		h, ok := q.handlerFor(job.FuncRef)
		require.True(t, ok)
		result, err := h(context.Background(), job.Payload)
		q.finish(job, result, err)
	}

	assert.Equal(t, []string{"urgent_job_1", "normal_job_1", "low_job_1"}, dispatchOrder)
}

func TestEnqueue_DefaultsToNormalPriority(t *testing.T) {
	q := New()
	jobID := q.Enqueue("noop", nil, EnqueueOptions{})
	status, ok := q.JobStatus(jobID)
	require.True(t, ok)
	assert.Equal(t, billmodel.PriorityNormal, status.Priority)
	assert.Equal(t, billmodel.JobQueued, status.Status)
}

func TestClaim_ReturnsNilWhenEmpty(t *testing.T) {
	q := New()
	assert.Nil(t, q.claim())
}

func TestClaim_SkipsCancelledJobs(t *testing.T) {
	q := New()
	id1 := q.Enqueue("f", "a", EnqueueOptions{Priority: billmodel.PriorityNormal})
	q.Enqueue("f", "b", EnqueueOptions{Priority: billmodel.PriorityNormal})

	require.NoError(t, q.Cancel(id1))
	job := q.claim()
	require.NotNil(t, job)
	assert.Equal(t, "b", job.Payload)
}

func TestStats_CountsAcrossLifecycle(t *testing.T) {
	q := New()
	q.RegisterHandler("f", func(ctx context.Context, payload any) (any, error) {
		if payload == "fail" {
			return nil, errors.New("boom")
		}
		return "ok", nil
	})

	q.Enqueue("f", "ok1", EnqueueOptions{Priority: billmodel.PriorityHigh})
	failID := q.Enqueue("f", "fail", EnqueueOptions{Priority: billmodel.PriorityHigh})
	q.Enqueue("f", "ok2", EnqueueOptions{Priority: billmodel.PriorityLow})

	for i := 0; i < 2; i++ {
		job := q.claim()
		h, _ := q.handlerFor(job.FuncRef)
		result, err := h(context.Background(), job.Payload)
		q.finish(job, result, err)
	}

	stats := q.Stats()
	assert.Equal(t, 2, stats[billmodel.PriorityHigh].Finished+stats[billmodel.PriorityHigh].Failed)
	assert.Equal(t, 1, stats[billmodel.PriorityLow].Length)

	failedStatus, ok := q.JobStatus(failID)
	require.True(t, ok)
	assert.Equal(t, billmodel.JobFailed, failedStatus.Status)
	assert.Contains(t, failedStatus.LastError, "boom")
}

func TestCancel_RejectsNonQueuedJob(t *testing.T) {
	q := New()
	q.RegisterHandler("f", func(ctx context.Context, payload any) (any, error) { return nil, nil })
	id := q.Enqueue("f", nil, EnqueueOptions{})
	job := q.claim()
	require.NotNil(t, job)
	err := q.Cancel(id)
	assert.Error(t, err)
}

func TestClear_CancelsAllQueuedAtPriority(t *testing.T) {
	q := New()
	q.Enqueue("f", "a", EnqueueOptions{Priority: billmodel.PriorityLow})
	q.Enqueue("f", "b", EnqueueOptions{Priority: billmodel.PriorityLow})

	n := q.Clear(billmodel.PriorityLow)
	assert.Equal(t, 2, n)
	assert.Nil(t, q.claim())
}

func TestRetryFailed_ReEnqueuesAtOriginalPriority(t *testing.T) {
	q := New()
	q.RegisterHandler("f", func(ctx context.Context, payload any) (any, error) {
		return nil, errors.New("upstream down")
	})
	id := q.Enqueue("f", nil, EnqueueOptions{Priority: billmodel.PriorityUrgent})
	job := q.claim()
	h, _ := q.handlerFor(job.FuncRef)
	result, err := h(context.Background(), job.Payload)
	q.finish(job, result, err)

	require.NoError(t, q.RetryFailed(id))
	retried := q.claim()
	require.NotNil(t, retried)
	assert.Equal(t, id, retried.JobID)
	assert.Equal(t, billmodel.JobRunning, retried.Status)
}

func TestFailedJobs_RespectsLimit(t *testing.T) {
	q := New()
	q.RegisterHandler("f", func(ctx context.Context, payload any) (any, error) {
		return nil, errors.New("boom")
	})
	for i := 0; i < 3; i++ {
		q.Enqueue("f", i, EnqueueOptions{})
	}
	for i := 0; i < 3; i++ {
		job := q.claim()
		h, _ := q.handlerFor(job.FuncRef)
		result, err := h(context.Background(), job.Payload)
		q.finish(job, result, err)
	}

	failed := q.FailedJobs(2)
	assert.Len(t, failed, 2)
}

func TestWorkerPool_ProcessesEnqueuedJobsInPriorityOrder(t *testing.T) {
	q := New()
	done := make(chan string, 3)
	q.RegisterHandler("record", func(ctx context.Context, payload any) (any, error) {
		done <- payload.(string)
		return nil, nil
	})

	pool := NewWorkerPool(q, 1, 5*time.Millisecond, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop()

	q.Enqueue("record", "low_job_1", EnqueueOptions{Priority: billmodel.PriorityLow})
	q.Enqueue("record", "normal_job_1", EnqueueOptions{Priority: billmodel.PriorityNormal})
	q.Enqueue("record", "urgent_job_1", EnqueueOptions{Priority: billmodel.PriorityUrgent})

	var results []string
	for i := 0; i < 3; i++ {
		select {
		case v := <-done:
			results = append(results, v)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for jobs to process")
		}
	}
	assert.Equal(t, []string{"urgent_job_1", "normal_job_1", "low_job_1"}, results)
}

func TestWorker_JobTimeoutMarksFailed(t *testing.T) {
	q := New()
	q.RegisterHandler("slow", func(ctx context.Context, payload any) (any, error) {
		<-ctx.Done()
		return nil, nil
	})
	id := q.Enqueue("slow", nil, EnqueueOptions{Timeout: 10 * time.Millisecond})

	pool := NewWorkerPool(q, 1, 5*time.Millisecond, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop()

	require.Eventually(t, func() bool {
		status, ok := q.JobStatus(id)
		return ok && status.Status == billmodel.JobFailed
	}, time.Second, 10*time.Millisecond)
}

func TestSubmitBatch_AggregatesStatusByPrecedence(t *testing.T) {
	q := New()
	q.RegisterHandler("f", func(ctx context.Context, payload any) (any, error) {
		if payload == "fail" {
			return nil, errors.New("boom")
		}
		return "ok", nil
	})

	submission := q.SubmitBatch([]BatchJob{
		{FuncRef: "f", Payload: "ok"},
		{FuncRef: "f", Payload: "fail"},
		{FuncRef: "f", Payload: "ok"},
	}, billmodel.PriorityNormal)

	assert.Equal(t, 3, submission.Total)
	require.Len(t, submission.JobIDs, 3)

	for i := 0; i < 3; i++ {
		job := q.claim()
		h, _ := q.handlerFor(job.FuncRef)
		result, err := h(context.Background(), job.Payload)
		q.finish(job, result, err)
	}

	status, err := q.BatchStatus(submission.BatchID)
	require.NoError(t, err)
	assert.Equal(t, billmodel.BatchFailed, status.State)
	assert.Equal(t, 1, status.Failed)
	assert.Equal(t, 2, status.Completed)
}

func TestBatchStatus_CompletedOnlyWhenAllDone(t *testing.T) {
	q := New()
	q.RegisterHandler("f", func(ctx context.Context, payload any) (any, error) { return "ok", nil })

	submission := q.SubmitBatch([]BatchJob{{FuncRef: "f"}, {FuncRef: "f"}}, billmodel.PriorityNormal)
	for i := 0; i < 2; i++ {
		job := q.claim()
		h, _ := q.handlerFor(job.FuncRef)
		result, err := h(context.Background(), job.Payload)
		q.finish(job, result, err)
	}

	status, err := q.BatchStatus(submission.BatchID)
	require.NoError(t, err)
	assert.Equal(t, billmodel.BatchCompleted, status.State)
}

func TestBatchStatus_UnknownBatchErrors(t *testing.T) {
	q := New()
	_, err := q.BatchStatus("nonexistent")
	assert.Error(t, err)
}
