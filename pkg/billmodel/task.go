package billmodel

import "time"

// Priority is the task queue's four-level priority class.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// priorityRank orders priorities from most to least urgent; lower rank
// dequeues first. Used by the in-memory queue and by tests asserting
// dispatch order (spec.md Scenario E).
var priorityRank = map[Priority]int{
	PriorityUrgent: 0,
	PriorityHigh:   1,
	PriorityNormal: 2,
	PriorityLow:    3,
}

// Rank returns p's dispatch precedence (lower = served first). Unknown
// priorities sort last.
func (p Priority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return len(priorityRank)
}

// JobStatus is a task's position in its lifecycle.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Task is one unit of work tracked by the queue (spec.md §3).
type Task struct {
	JobID       string         `json:"job_id"`
	FuncRef     string         `json:"func_ref"`
	Priority    Priority       `json:"priority"`
	Payload     any            `json:"payload"`
	Timeout     time.Duration  `json:"timeout"`
	ResultTTL   time.Duration  `json:"result_ttl"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	EndedAt     *time.Time     `json:"ended_at,omitempty"`
	Status      JobStatus      `json:"status"`
	Attempts    int            `json:"attempts"`
	Result      any            `json:"result,omitempty"`
	LastError   string         `json:"last_error,omitempty"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	BatchID     string         `json:"batch_id,omitempty"`
}

// CompletionStrategy is the repair approach a CompletionTask applies.
type CompletionStrategy string

const (
	StrategyScrapeMissing   CompletionStrategy = "scrape_missing"
	StrategyEnhanceExisting CompletionStrategy = "enhance_existing"
	StrategyValidateAndFix  CompletionStrategy = "validate_and_fix"
	StrategyBulkUpdate      CompletionStrategy = "bulk_update"
)

// CompletionPriority is the four-level priority of a CompletionTask,
// distinct from the queue's Priority (spec.md §3 names them separately).
type CompletionPriority string

const (
	CompletionCritical CompletionPriority = "critical"
	CompletionHigh     CompletionPriority = "high"
	CompletionMedium   CompletionPriority = "medium"
	CompletionLow      CompletionPriority = "low"
)

var completionPriorityRank = map[CompletionPriority]int{
	CompletionCritical: 0, CompletionHigh: 1, CompletionMedium: 2, CompletionLow: 3,
}

func (p CompletionPriority) Rank() int {
	if r, ok := completionPriorityRank[p]; ok {
		return r
	}
	return len(completionPriorityRank)
}

// CompletionTask is a planned unit of data-completion work for one bill
// (spec.md §3, §4.9).
type CompletionTask struct {
	TaskID                 string             `json:"task_id"`
	BillID                 string             `json:"bill_id"`
	Strategy               CompletionStrategy `json:"strategy"`
	TargetFields           []string           `json:"target_fields"`
	Priority               CompletionPriority `json:"priority"`
	EstimatedEffortSeconds float64            `json:"estimated_effort_seconds"`
	Dependencies           []string           `json:"dependencies"`
}

// CompletionTaskResult is the per-task outcome of running one
// CompletionTask (spec.md §4.9's execution semantics).
type CompletionTaskResult struct {
	TaskID            string    `json:"task_id"`
	BillID            string    `json:"bill_id"`
	Succeeded         bool      `json:"succeeded"`
	ErrorMessage      string    `json:"error_message,omitempty"`
	CompletedFields   []string  `json:"completed_fields"`
	ProcessingTimeMs  float64   `json:"processing_time_ms"`
	QualityImprovement float64  `json:"quality_improvement"`
}

// CompletionHistoryEvent records one successful completion for a bill's
// audit trail (spec.md §4.9: "{bill_id, event=data_completion, ...}").
type CompletionHistoryEvent struct {
	BillID             string             `json:"bill_id"`
	Event              string             `json:"event"`
	Strategy           CompletionStrategy `json:"strategy"`
	CompletedFields    []string           `json:"completed_fields"`
	ProcessingTimeMs   float64            `json:"processing_time_ms"`
	QualityImprovement float64            `json:"quality_improvement"`
	At                 time.Time          `json:"at"`
}

// BatchCompletionResult aggregates a full execute(tasks) run.
type BatchCompletionResult struct {
	Results         []CompletionTaskResult   `json:"results"`
	History         []CompletionHistoryEvent `json:"history"`
	SucceededCount  int                      `json:"succeeded_count"`
	FailedCount     int                      `json:"failed_count"`
}

// QueueSnapshot is one priority queue's depth breakdown, returned by
// queue_stats() (spec.md §4.11).
type QueueSnapshot struct {
	Length   int `json:"length"`
	Failed   int `json:"failed"`
	Deferred int `json:"deferred"`
	Started  int `json:"started"`
	Finished int `json:"finished"`
}

// BatchState is a submitted batch's aggregate lifecycle state.
type BatchState string

const (
	BatchPending   BatchState = "pending"
	BatchRunning   BatchState = "running"
	BatchCompleted BatchState = "completed"
	BatchFailed    BatchState = "failed"
)

// BatchStatus aggregates a batch's member job states (spec.md §4.11:
// "precedence failed > running > pending < completed-only-all").
type BatchStatus struct {
	BatchID   string     `json:"batch_id"`
	State     BatchState `json:"state"`
	Total     int        `json:"total"`
	Pending   int        `json:"pending"`
	Running   int        `json:"running"`
	Completed int        `json:"completed"`
	Failed    int        `json:"failed"`
}
