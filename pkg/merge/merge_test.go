package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
)

func bill(billID string, chamber billmodel.Chamber, title, outline string, quality float64) *billmodel.BillRecord {
	return &billmodel.BillRecord{
		BillID:           billID,
		ChamberOfOrigin:  chamber,
		SessionNumber:    217,
		Title:            title,
		Outline:          outline,
		Status:           billmodel.StatusUnderReview,
		SubmitterKind:    billmodel.SubmitterGovernment,
		SourceChambers:   sourceChamberOf(chamber),
		DataQualityScore: quality,
		LastUpdated:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// TestMerge_ScenarioA matches spec.md's documented merge-with-conflict
// example: same title, outline differs in completeness, most_complete
// strategy picks the longer (B's) outline with one recorded conflict.
func TestMerge_ScenarioA(t *testing.T) {
	a := bill("S-217-1", billmodel.ChamberSangiin, "デジタル社会形成基本法案", "短い概要", 0.7)
	b := bill("H-217-1", billmodel.ChamberShugiin, "デジタル社会形成基本法案",
		"デジタル社会の形成に関する基本理念を定め、施策を総合的かつ計画的に推進する", 0.8)

	results := Merge([]*billmodel.BillRecord{a}, []*billmodel.BillRecord{b}, StrategyMostComplete)
	require.Len(t, results, 1)

	r := results[0]
	assert.True(t, r.Matched)
	assert.Equal(t, b.Outline, r.Record.Outline)
	assert.Equal(t, billmodel.SourceBoth, r.Record.SourceChambers)

	var outlineConflicts int
	for _, c := range r.Conflicts {
		if c.Field == "outline" {
			outlineConflicts++
		}
	}
	assert.Equal(t, 1, outlineConflicts)
	assert.GreaterOrEqual(t, r.QualityScore, 0.8)
}

func TestMerge_SimilarityAboveThresholdMatches(t *testing.T) {
	a := bill("217-1", billmodel.ChamberSangiin, "児童福祉法の一部を改正する法律案", "A", 0.6)
	b := bill("217-1", billmodel.ChamberShugiin, "児童福祉法の一部を改正する法律案", "B", 0.6)

	results := Merge([]*billmodel.BillRecord{a}, []*billmodel.BillRecord{b}, StrategyMostComplete)
	require.Len(t, results, 1)
	assert.True(t, results[0].Matched)
}

func TestMerge_UnmatchedRecordsPassThroughWithSingleChamberSource(t *testing.T) {
	a := bill("217-1", billmodel.ChamberSangiin, "児童福祉法の一部を改正する法律案", "概要A", 0.6)
	b := bill("217-99", billmodel.ChamberShugiin, "全く異なる内容の法律案について", "概要B", 0.6)
	b.SessionNumber = 100
	b.SubmitterKind = billmodel.SubmitterMember

	results := Merge([]*billmodel.BillRecord{a}, []*billmodel.BillRecord{b}, StrategyMostComplete)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.Matched)
	}
}

func TestMerge_EachBRecordMatchesAtMostOneARecord(t *testing.T) {
	shared := "児童福祉法の一部を改正する法律案"
	a1 := bill("217-1", billmodel.ChamberSangiin, shared, "概要1", 0.6)
	a2 := bill("217-2", billmodel.ChamberSangiin, shared, "概要2", 0.6)
	a2.BillID = "217-1" // same trailing id/title/session as a1 to force tied competition for b
	b1 := bill("217-1", billmodel.ChamberShugiin, shared, "概要B", 0.6)

	results := Merge([]*billmodel.BillRecord{a1, a2}, []*billmodel.BillRecord{b1}, StrategyMostComplete)
	require.Len(t, results, 2)

	matched := 0
	for _, r := range results {
		if r.Matched {
			matched++
		}
	}
	assert.Equal(t, 1, matched)
}

func TestMerge_ChamberAPriorityStrategy(t *testing.T) {
	a := bill("217-1", billmodel.ChamberSangiin, "児童福祉法の一部を改正する法律案", "概要A", 0.6)
	b := bill("217-1", billmodel.ChamberShugiin, "児童福祉法の一部を改正する法律案", "概要B", 0.6)

	results := Merge([]*billmodel.BillRecord{a}, []*billmodel.BillRecord{b}, StrategyChamberAPriority)
	require.Len(t, results, 1)
	assert.Equal(t, a.Outline, results[0].Record.Outline)
}

func TestMerge_MergeFieldsUnionsListFields(t *testing.T) {
	a := bill("217-1", billmodel.ChamberSangiin, "児童福祉法の一部を改正する法律案", "概要A", 0.6)
	a.RelatedLaws = []string{"児童福祉法"}
	b := bill("217-1", billmodel.ChamberShugiin, "児童福祉法の一部を改正する法律案", "概要B", 0.6)
	b.RelatedLaws = []string{"児童虐待防止法"}

	results := Merge([]*billmodel.BillRecord{a}, []*billmodel.BillRecord{b}, StrategyMergeFields)
	require.Len(t, results, 1)
	assert.ElementsMatch(t, []string{"児童福祉法", "児童虐待防止法"}, results[0].Record.RelatedLaws)
}

func TestMerge_StageResolutionPrefersFurthestProgress(t *testing.T) {
	a := bill("217-1", billmodel.ChamberSangiin, "児童福祉法の一部を改正する法律案", "概要A", 0.6)
	a.Stage = billmodel.StageCommitteeReview
	b := bill("217-1", billmodel.ChamberShugiin, "児童福祉法の一部を改正する法律案", "概要B", 0.6)
	b.Stage = billmodel.StagePlenaryVote

	results := Merge([]*billmodel.BillRecord{a}, []*billmodel.BillRecord{b}, StrategyMostComplete)
	require.Len(t, results, 1)
	assert.Equal(t, billmodel.StagePlenaryVote, results[0].Record.Stage)
}

func TestMerge_IdempotentOnReapplication(t *testing.T) {
	a := bill("217-1", billmodel.ChamberSangiin, "児童福祉法の一部を改正する法律案", "短い", 0.6)
	b := bill("217-1", billmodel.ChamberShugiin, "児童福祉法の一部を改正する法律案", "より長い概要の文章です", 0.7)

	first := Merge([]*billmodel.BillRecord{a}, []*billmodel.BillRecord{b}, StrategyMostComplete)
	require.Len(t, first, 1)

	second := Merge([]*billmodel.BillRecord{first[0].Record}, []*billmodel.BillRecord{first[0].Record}, StrategyMostComplete)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Record.Outline, second[0].Record.Outline)
}
