package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
)

func datePtr(t time.Time) *time.Time { return &t }

func baseRecord(now time.Time, lastActionAgoDays int) *billmodel.BillRecord {
	lastAction := now.Add(-time.Duration(lastActionAgoDays) * 24 * time.Hour)
	return &billmodel.BillRecord{
		BillID:          "217-1",
		ChamberOfOrigin: billmodel.ChamberShugiin,
		SessionNumber:   217,
		Title:           "デジタル社会形成基本法案の一部を改正する法律案",
		Outline:         "デジタル社会の形成に関する基本理念を定める法律案の概要",
		Stage:           billmodel.StageCommitteeReview,
		Status:          billmodel.StatusCommittee,
		SubmitterKind:   billmodel.SubmitterGovernment,
		SourceChambers:  billmodel.SourceBoth,
		CommitteeAssignments: map[billmodel.Chamber]string{
			billmodel.ChamberShugiin: "内閣委員会",
		},
		CommitteeReferralDate: datePtr(lastAction),
	}
}

// TestTrack_ScenarioC matches spec.md's documented stall scenario: last
// action 45 days ago at committee_review. Status stays active (not a
// terminal/continued stage), a stall alert fires, and freshness decays
// below 0.88 per the 365-day linear decay.
func TestTrack_ScenarioC(t *testing.T) {
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	record := baseRecord(now, 45)

	result := Track(record, nil, now)

	assert.Equal(t, billmodel.TrackingActive, result.Status)
	assert.LessOrEqual(t, freshness(record.CommitteeReferralDate, now), 0.88)

	var foundStall bool
	for _, a := range result.Alerts {
		if a.Kind == billmodel.ProgressAlertStall {
			foundStall = true
		}
	}
	assert.True(t, foundStall)
}

func TestTrack_TerminalStageIsCompleted(t *testing.T) {
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	record := baseRecord(now, 5)
	record.Stage = billmodel.StageEnacted
	record.Status = billmodel.StatusEnacted

	result := Track(record, nil, now)
	assert.Equal(t, billmodel.TrackingCompleted, result.Status)
}

func TestTrack_ContinuedStageIsSuspended(t *testing.T) {
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	record := baseRecord(now, 5)
	record.Stage = billmodel.StageContinued
	record.Status = billmodel.StatusContinued

	result := Track(record, nil, now)
	assert.Equal(t, billmodel.TrackingSuspended, result.Status)
}

func TestTrack_NoStallWhenRecentAction(t *testing.T) {
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	record := baseRecord(now, 5)

	result := Track(record, nil, now)
	for _, a := range result.Alerts {
		assert.NotEqual(t, billmodel.ProgressAlertStall, a.Kind)
	}
}

func TestTrack_MissingOutlineAndCommitteeAlerts(t *testing.T) {
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	record := baseRecord(now, 5)
	record.Outline = ""
	record.CommitteeAssignments = nil

	result := Track(record, nil, now)

	kinds := map[billmodel.AlertKind]int{}
	for _, a := range result.Alerts {
		kinds[a.Kind]++
	}
	assert.GreaterOrEqual(t, kinds[billmodel.ProgressAlertMissingData], 2)
}

// TestTrack_InvariantUnusualProgressionFromTerminal covers spec.md §8
// invariant 8: a transition whose from_stage is terminal raises
// unusual_progression.
func TestTrack_InvariantUnusualProgressionFromTerminal(t *testing.T) {
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	record := baseRecord(now, 5)

	history := []billmodel.ProgressSnapshot{
		{BillID: "217-1", Stage: billmodel.StageEnacted, SnapshotAt: now.Add(-10 * 24 * time.Hour)},
		{BillID: "217-1", Stage: billmodel.StageCommitteeReview, SnapshotAt: now.Add(-5 * 24 * time.Hour)},
	}

	result := Track(record, history, now)
	require.Len(t, result.Transitions, 1)

	var found bool
	for _, a := range result.Alerts {
		if a.Kind == billmodel.ProgressAlertUnusualProgression {
			found = true
		}
	}
	assert.True(t, found)
}

func TestTrack_DelayAlertOnLongTransition(t *testing.T) {
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	record := baseRecord(now, 5)

	history := []billmodel.ProgressSnapshot{
		{BillID: "217-1", Stage: billmodel.StageSubmitted, SnapshotAt: now.Add(-120 * 24 * time.Hour)},
		{BillID: "217-1", Stage: billmodel.StageReceived, SnapshotAt: now.Add(-5 * 24 * time.Hour)},
	}

	result := Track(record, history, now)

	var found bool
	for _, a := range result.Alerts {
		if a.Kind == billmodel.ProgressAlertDelay {
			found = true
		}
	}
	assert.True(t, found)
}

func TestFreshness_DecaysLinearlyAndFloorsAtZero(t *testing.T) {
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	recent := datePtr(now.Add(-10 * 24 * time.Hour))
	assert.InDelta(t, 1-10.0/365.0, freshness(recent, now), 0.001)

	old := datePtr(now.Add(-1000 * 24 * time.Hour))
	assert.Equal(t, 0.0, freshness(old, now))

	assert.Equal(t, 0.0, freshness(nil, now))
}

func TestComputeTransitions_SkipsRepeatedStage(t *testing.T) {
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	history := []billmodel.ProgressSnapshot{
		{Stage: billmodel.StageSubmitted, SnapshotAt: now.Add(-20 * 24 * time.Hour)},
		{Stage: billmodel.StageSubmitted, SnapshotAt: now.Add(-15 * 24 * time.Hour)},
		{Stage: billmodel.StageReceived, SnapshotAt: now.Add(-10 * 24 * time.Hour)},
	}
	transitions := computeTransitions(history)
	require.Len(t, transitions, 1)
	assert.Equal(t, billmodel.StageSubmitted, transitions[0].FromStage)
	assert.Equal(t, billmodel.StageReceived, transitions[0].ToStage)
}
