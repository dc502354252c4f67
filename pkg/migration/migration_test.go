package migration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
	"github.com/seiji-watch/ingest-core/pkg/completion"
	"github.com/seiji-watch/ingest-core/pkg/store"
)

// fixingApplier fills every targeted field with a fixed placeholder value,
// simulating a successful scrape/fix without touching the network.
type fixingApplier struct{}

func (fixingApplier) Apply(ctx context.Context, task billmodel.CompletionTask, record *billmodel.BillRecord) ([]string, float64, error) {
	var completed []string
	for _, f := range task.TargetFields {
		switch f {
		case "outline":
			record.Outline = "補完された概要テキストです"
			completed = append(completed, f)
		case "background":
			record.Background = "補完された背景説明です"
			completed = append(completed, f)
		case "status":
			record.Status = billmodel.StatusUnderReview
			completed = append(completed, f)
		case "category":
			record.Category = billmodel.CategoryOther
			completed = append(completed, f)
		case "submitter_kind":
			record.SubmitterKind = billmodel.SubmitterGovernment
			completed = append(completed, f)
		}
	}
	return completed, 0.1 * float64(len(completed)), nil
}

func seedStore(t *testing.T) store.RecordStore {
	t.Helper()
	s := store.NewMemoryStore()
	require.NoError(t, s.Create(context.Background(), &billmodel.BillRecord{
		BillID:          "217-1",
		ChamberOfOrigin: billmodel.ChamberShugiin,
		SessionNumber:   217,
		Title:           "デジタル社会形成基本法案の一部を改正する法律案",
		Outline:         "",
		Status:          "",
		Category:        billmodel.CategoryOther,
		SubmitterKind:   billmodel.SubmitterGovernment,
		Stage:           billmodel.StageCommitteeReview,
		LastUpdated:     time.Now(),
	}))
	require.NoError(t, s.Create(context.Background(), &billmodel.BillRecord{
		BillID:          "217-2",
		ChamberOfOrigin: billmodel.ChamberSangiin,
		SessionNumber:   217,
		Title:           "別の法律案に関する全く異なる内容のタイトル文章",
		Outline:         "既にある概要文章で十分に長いもの",
		Status:          billmodel.StatusUnderReview,
		Category:        billmodel.CategoryOther,
		SubmitterKind:   billmodel.SubmitterGovernment,
		Stage:           billmodel.StageCommitteeReview,
		LastUpdated:     time.Now(),
	}))
	return s
}

func TestOrchestrator_RunCompletesAllPhasesOnSuccess(t *testing.T) {
	records := seedStore(t)
	reports := &memoryReportStore{}
	orch := NewOrchestrator(records, reports, fixingApplier{})
	orch.Executor = completion.NewExecutor(fixingApplier{}, completion.WithRateLimitDelay(0))

	report, state := orch.Run(context.Background(), nil, 30)

	assert.Equal(t, billmodel.ExecutionCompleted, state.Status)
	assert.Equal(t, 100.0, state.ProgressPercentage)
	assert.Empty(t, state.Errors)
	assert.NotEmpty(t, report.ExecutionID)
	assert.NotEmpty(t, report.PlanID)
	assert.Len(t, report.PhasesTiming, 5)
	assert.True(t, reports.saved)

	updated, err := records.Get(context.Background(), "217-1")
	require.NoError(t, err)
	assert.NotEmpty(t, updated.Outline)
}

func TestOrchestrator_ValidationFailsWhenImprovementBelowThreshold(t *testing.T) {
	records := seedStore(t)
	reports := &memoryReportStore{}
	// noopApplier never actually fixes anything, so validation should fail.
	orch := NewOrchestrator(records, reports, noopApplier{})
	orch.Executor = completion.NewExecutor(noopApplier{}, completion.WithRateLimitDelay(0))

	_, state := orch.Run(context.Background(), nil, 30)

	assert.Equal(t, billmodel.ExecutionFailed, state.Status)
	require.NotEmpty(t, state.PhaseResults)

	var validationFailed bool
	for _, pr := range state.PhaseResults {
		if pr.Phase == billmodel.PhaseValidation && !pr.Succeeded {
			validationFailed = true
		}
		// Completion phase must never run once validation fails.
		assert.NotEqual(t, billmodel.PhaseCompletion, pr.Phase)
	}
	assert.True(t, validationFailed)
}

type noopApplier struct{}

func (noopApplier) Apply(ctx context.Context, task billmodel.CompletionTask, record *billmodel.BillRecord) ([]string, float64, error) {
	return nil, 0, nil
}

type memoryReportStore struct {
	saved bool
	data  []byte
}

func (m *memoryReportStore) Save(_ context.Context, _ string, data []byte) error {
	m.saved = true
	m.data = data
	return nil
}

func (m *memoryReportStore) Load(_ context.Context, _ string) ([]byte, error) {
	return m.data, nil
}

func TestIssueImprovementRate_HandlesZeroBefore(t *testing.T) {
	assert.Equal(t, 1.0, issueImprovementRate(0, 0))
}

func TestIssueImprovementRate_ComputesFraction(t *testing.T) {
	assert.InDelta(t, 0.5, issueImprovementRate(10, 5), 0.001)
}
