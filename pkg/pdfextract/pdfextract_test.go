package pdfextract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
)

func TestExtractVoteRecords_PatternOneNameAffiliationConstituencyVote(t *testing.T) {
	text := "山田太郎 自由民主党 東京都第一区 賛成\n鈴木花子 立憲民主党 大阪府第二区 反対\n"
	records := extractVoteRecords(text, 0.8)
	require.Len(t, records, 2)
	assert.Equal(t, "山田太郎", records[0].MemberName)
	assert.Equal(t, billmodel.VoteYes, records[0].Vote)
	assert.Equal(t, "鈴木花子", records[1].MemberName)
	assert.Equal(t, billmodel.VoteNo, records[1].Vote)
}

func TestExtractVoteRecords_PatternTwoParenConstituency(t *testing.T) {
	text := "山田太郎(自由民主党/東京都) 賛成\n"
	records := extractVoteRecords(text, 0.8)
	require.Len(t, records, 1)
	assert.Equal(t, "自由民主党", records[0].Party)
	assert.Equal(t, "東京都", records[0].Constituency)
}

func TestExtractVoteRecords_DedupesByName(t *testing.T) {
	text := "山田太郎 自由民主党 東京都第一区 賛成\n山田太郎 自由民主党 東京都第一区 賛成\n"
	records := extractVoteRecords(text, 0.8)
	assert.Len(t, records, 1)
}

func TestExtractVoteRecords_RejectsUnknownVoteWord(t *testing.T) {
	text := "山田太郎 自由民主党 東京都第一区 保留\n"
	records := extractVoteRecords(text, 0.8)
	assert.Empty(t, records)
}

func makeQualifyingRecords(n int, affirmNegateFrac float64, missingFrac float64) []billmodel.MemberVote {
	records := make([]billmodel.MemberVote, 0, n)
	for i := 0; i < n; i++ {
		vote := billmodel.VoteAbstain
		if float64(i) < affirmNegateFrac*float64(n) {
			if i%2 == 0 {
				vote = billmodel.VoteYes
			} else {
				vote = billmodel.VoteNo
			}
		}
		party, constituency := "会派"+fmt.Sprint(i), "選挙区"+fmt.Sprint(i)
		if float64(i) < missingFrac*float64(n) {
			constituency = "不明"
		}
		records = append(records, billmodel.MemberVote{
			MemberName:   fmt.Sprintf("議員%03d", i),
			Party:        party,
			Constituency: constituency,
			Vote:         vote,
			Confidence:   0.8,
		})
	}
	return records
}

func TestPassesQualityGate_AcceptsWellFormedSession(t *testing.T) {
	records := makeQualifyingRecords(60, 0.9, 0.05)
	opts := Options{}.withDefaults()
	assert.True(t, passesQualityGate(records, opts))
}

func TestPassesQualityGate_RejectsBelowMinMemberCount(t *testing.T) {
	records := makeQualifyingRecords(10, 0.9, 0.0)
	opts := Options{}.withDefaults()
	assert.False(t, passesQualityGate(records, opts))
}

func TestPassesQualityGate_RejectsLowAffirmNegateRatio(t *testing.T) {
	records := makeQualifyingRecords(60, 0.3, 0.0)
	opts := Options{}.withDefaults()
	assert.False(t, passesQualityGate(records, opts))
}

func TestPassesQualityGate_RejectsHighMissingDataRatio(t *testing.T) {
	records := makeQualifyingRecords(60, 0.9, 0.3)
	opts := Options{}.withDefaults()
	assert.False(t, passesQualityGate(records, opts))
}

func TestReconcileNames_UpgradesConfidenceOnExactMatch(t *testing.T) {
	records := []billmodel.MemberVote{{MemberName: "山田太郎", Confidence: 0.8}}
	out := reconcileNames(records, []string{"山田太郎"})
	assert.Equal(t, 1.0, out[0].Confidence)
}

func TestReconcileNames_NoKnownMembersLeavesRecordsUnchanged(t *testing.T) {
	records := []billmodel.MemberVote{{MemberName: "山田太郎", Confidence: 0.8}}
	out := reconcileNames(records, nil)
	assert.Equal(t, records, out)
}

func TestExtractVoteDate_Reiwa(t *testing.T) {
	d := extractVoteDate("令和5年4月1日 本会議における採決の結果")
	assert.Equal(t, 2023, d.Year())
	assert.Equal(t, 4, int(d.Month()))
}

type fakeOCREngine struct {
	text string
	err  error
}

func (f fakeOCREngine) ExtractText(_ context.Context, _ []byte) (string, error) {
	return f.text, f.err
}

func qualifyingSessionText() string {
	var b strings.Builder
	for i := 0; i < 60; i++ {
		vote := "棄権"
		if i%3 == 0 {
			vote = "賛成"
		} else if i%3 == 1 {
			vote = "反対"
		}
		fmt.Fprintf(&b, "議員%03d 自由民主党 東京都第%d区 %s\n", i, i, vote)
	}
	return b.String()
}

func TestExtractVotingSession_FallsBackToOCRWhenDirectTextFails(t *testing.T) {
	e := New(fakeOCREngine{text: qualifyingSessionText()})

	session, err := e.ExtractVotingSession(context.Background(), "217-1", billmodel.ChamberShugiin, []byte("not a real pdf"), Options{})
	require.NoError(t, err)
	assert.Equal(t, "ocr", session.Source)
	assert.GreaterOrEqual(t, len(session.Votes), 50)
	for _, v := range session.Votes {
		assert.Equal(t, 0.7, v.Confidence)
	}
}

func TestExtractVotingSession_FailsWhenNoLadderStepQualifies(t *testing.T) {
	e := New(fakeOCREngine{err: ErrOCRUnavailable})

	_, err := e.ExtractVotingSession(context.Background(), "217-1", billmodel.ChamberShugiin, []byte("not a real pdf"), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQualityGateFailed))
}

func TestStubOCREngine_ReturnsTypedUnavailableError(t *testing.T) {
	_, err := (StubOCREngine{}).ExtractText(context.Background(), nil)
	assert.ErrorIs(t, err, ErrOCRUnavailable)
}
