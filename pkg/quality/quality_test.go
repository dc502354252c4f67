package quality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
)

func goodBill(id string, updated time.Time) *billmodel.BillRecord {
	return &billmodel.BillRecord{
		BillID:            id,
		Title:             "デジタル社会形成基本法案の一部を改正する法律案",
		ChamberOfOrigin:   billmodel.ChamberShugiin,
		SessionNumber:     217,
		Status:            billmodel.StatusUnderReview,
		SubmitterKind:     billmodel.SubmitterGovernment,
		Stage:             billmodel.StageCommitteeReview,
		Category:          billmodel.CategoryOther,
		Outline:           "デジタル社会の形成に関する基本理念を定める法律案の概要",
		DataQualityScore:  0.9,
		LastUpdated:       updated,
	}
}

func TestAudit_EmptyCorpusReturnsDefinedDefaults(t *testing.T) {
	report := Audit(nil, time.Now(), 30)
	assert.Equal(t, 0, report.Overall.Total)
	assert.Empty(t, report.Issues)
	assert.Equal(t, billmodel.TrendStable, report.Trend.Slope)
	assert.NotNil(t, report.PerField)
}

func TestAudit_OverallMetricsAggregateAcrossRecords(t *testing.T) {
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	records := []*billmodel.BillRecord{
		goodBill("217-1", now.Add(-10*24*time.Hour)),
		goodBill("217-2", now.Add(-10*24*time.Hour)),
		{BillID: "", Title: ""},
	}

	report := Audit(records, now, 30)
	assert.Equal(t, 3, report.Overall.Total)
	assert.Equal(t, 2, report.Overall.Valid)
	assert.Equal(t, 1, report.Overall.Invalid)
}

func TestAudit_DuplicateDetectionFlagsSecondOccurrence(t *testing.T) {
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	a := goodBill("217-1", now)
	b := goodBill("217-2", now) // same title/session/chamber as a

	report := Audit([]*billmodel.BillRecord{a, b}, now, 30)

	var found bool
	for _, i := range report.Issues {
		if i.Kind == billmodel.IssueDuplicateRecord && i.BillID == "217-2" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAudit_IssuesAreDedupedByBillFieldKind(t *testing.T) {
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	broken := goodBill("217-1", now)
	broken.BillID = ""
	report := Audit([]*billmodel.BillRecord{broken}, now, 30)

	seen := make(map[string]int)
	for _, i := range report.Issues {
		seen[i.DedupeKey()]++
	}
	for key, count := range seen {
		assert.Equal(t, 1, count, "issue %q should appear exactly once", key)
	}
}

func TestAudit_PerFieldMetricsTrackCompleteness(t *testing.T) {
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	complete := goodBill("217-1", now)
	missingOutline := goodBill("217-2", now)
	missingOutline.Title = "別の法律案に関する全く異なる内容のタイトル文章"
	missingOutline.Outline = ""

	report := Audit([]*billmodel.BillRecord{complete, missingOutline}, now, 30)

	outlineMetrics, ok := report.PerField["outline"]
	require.True(t, ok)
	assert.Equal(t, 2, outlineMetrics.Total)
	assert.InDelta(t, 0.5, outlineMetrics.CompletenessRate, 0.001)
}

func TestAudit_RecommendationsKeyOffIssueCounts(t *testing.T) {
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	records := []*billmodel.BillRecord{{BillID: "", Title: ""}}

	report := Audit(records, now, 30)
	assert.NotEmpty(t, report.Recommendations)
}

func TestAudit_ImprovementPrioritiesOrderedCriticalFirst(t *testing.T) {
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	records := []*billmodel.BillRecord{{BillID: "", Title: ""}}

	report := Audit(records, now, 30)
	require.NotEmpty(t, report.ImprovementPriorities)
	assert.Contains(t, report.ImprovementPriorities[0], "critical")
}

func TestAudit_TrendClassifiesImprovingSlope(t *testing.T) {
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	poor := goodBill("217-1", now.Add(-5*24*time.Hour))
	poor.Outline = ""
	poor.Status = ""
	poor.SubmitterKind = ""

	good := goodBill("217-2", now)

	report := Audit([]*billmodel.BillRecord{poor, good}, now, 30)
	require.Len(t, report.Trend.Points, 2)
	assert.Equal(t, billmodel.TrendImproving, report.Trend.Slope)
}
