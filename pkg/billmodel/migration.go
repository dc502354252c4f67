package billmodel

import "time"

// ExecutionStatus is a migration run's lifecycle state (spec.md §4.10).
type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionCancelled ExecutionStatus = "cancelled"
)

// MigrationPhase names one of the five sequential phases.
type MigrationPhase string

const (
	PhaseAudit      MigrationPhase = "audit"
	PhasePlanning   MigrationPhase = "planning"
	PhaseExecution  MigrationPhase = "execution"
	PhaseValidation MigrationPhase = "validation"
	PhaseCompletion MigrationPhase = "completion"
)

// PhaseResult records one phase's outcome and timing.
type PhaseResult struct {
	Phase      MigrationPhase `json:"phase"`
	Succeeded  bool           `json:"succeeded"`
	Error      string         `json:"error,omitempty"`
	DurationMs float64        `json:"duration_ms"`
}

// ExecutionState tracks an in-flight or completed migration run
// (spec.md §4.10: "Execution carries {status, current_phase,
// progress_percentage, tasks_completed, tasks_failed, errors,
// phase_results}").
type ExecutionState struct {
	ExecutionID        string          `json:"execution_id"`
	Status             ExecutionStatus `json:"status"`
	CurrentPhase       MigrationPhase  `json:"current_phase"`
	ProgressPercentage float64         `json:"progress_percentage"`
	TasksCompleted     int             `json:"tasks_completed"`
	TasksFailed        int             `json:"tasks_failed"`
	Errors             []string        `json:"errors"`
	PhaseResults       []PhaseResult   `json:"phase_results"`
}

// MigrationReport is the final artifact a migration run persists
// (spec.md §4.10).
type MigrationReport struct {
	PlanID              string          `json:"plan_id"`
	ExecutionID         string          `json:"execution_id"`
	InitialMetrics      QualityMetrics  `json:"initial_metrics"`
	FinalMetrics        QualityMetrics  `json:"final_metrics"`
	QualityImprovement  float64         `json:"quality_improvement"`
	BatchResults        BatchCompletionResult `json:"batch_results"`
	TotalFieldsCompleted int            `json:"total_fields_completed"`
	TotalBillsImproved  int             `json:"total_bills_improved"`
	PhasesTiming        map[MigrationPhase]float64 `json:"phases_timing"`
	SuccessRate         float64         `json:"success_rate"`
	Recommendations     []string        `json:"recommendations"`
	GeneratedAt         time.Time       `json:"generated_at"`
}
