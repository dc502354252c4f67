// Package merge reconciles Shugiin- and Sangiin-origin bill records that
// describe the same bill (spec.md §4.5, component C6). Pure function
// package, no external dependencies: matching and field resolution are
// plain comparisons over billmodel.BillRecord.
package merge

import (
	"github.com/seiji-watch/ingest-core/pkg/billmodel"
	"github.com/seiji-watch/ingest-core/pkg/namematch"
	"github.com/seiji-watch/ingest-core/pkg/parser/shared"
)

// Strategy selects how a matched pair's conflicting fields are resolved.
type Strategy string

const (
	StrategyChamberAPriority Strategy = "chamber_a_priority"
	StrategyChamberBPriority Strategy = "chamber_b_priority"
	StrategyMostComplete     Strategy = "most_complete" // default
	StrategyLatestUpdate     Strategy = "latest_update"
	StrategyMergeFields      Strategy = "merge_fields"
)

// SimilarityThreshold is the default minimum match score (spec.md §4.5).
const SimilarityThreshold = 0.7

// MergeConflict records one non-trivial per-field resolution decision.
type MergeConflict struct {
	Field      string
	AValue     any
	BValue     any
	Resolution string
	Confidence float64
}

// MergeResult is one output row of Merge: either a merged pair or a
// pass-through record from a single chamber.
type MergeResult struct {
	Record       *billmodel.BillRecord
	Conflicts    []MergeConflict
	QualityScore float64
	Matched      bool
}

// Merge matches recordsA against recordsB and resolves matched pairs under
// strategy (spec.md §4.5's merge(records_A, records_B, strategy) contract).
// Each B-record matches at most one A-record; unmatched records pass
// through unchanged with source_chambers set to their origin chamber.
func Merge(recordsA, recordsB []*billmodel.BillRecord, strategy Strategy) []MergeResult {
	usedB := make(map[int]bool, len(recordsB))
	results := make([]MergeResult, 0, len(recordsA)+len(recordsB))

	for _, a := range recordsA {
		bestIdx := -1
		bestScore := 0.0
		for j, b := range recordsB {
			if usedB[j] {
				continue
			}
			score := similarity(a, b)
			if score > bestScore {
				bestScore = score
				bestIdx = j
			}
		}

		if bestIdx >= 0 && bestScore >= SimilarityThreshold {
			usedB[bestIdx] = true
			merged, conflicts := resolve(a, recordsB[bestIdx], strategy)
			results = append(results, MergeResult{
				Record:       merged,
				Conflicts:    conflicts,
				QualityScore: qualityScore(merged, conflicts, true),
				Matched:      true,
			})
			continue
		}

		passthrough := cloneRecord(a)
		passthrough.SourceChambers = sourceChamberOf(a.ChamberOfOrigin)
		results = append(results, MergeResult{
			Record:       passthrough,
			QualityScore: qualityScore(passthrough, nil, false),
		})
	}

	for j, b := range recordsB {
		if usedB[j] {
			continue
		}
		passthrough := cloneRecord(b)
		passthrough.SourceChambers = sourceChamberOf(b.ChamberOfOrigin)
		results = append(results, MergeResult{
			Record:       passthrough,
			QualityScore: qualityScore(passthrough, nil, false),
		})
	}

	return results
}

func sourceChamberOf(c billmodel.Chamber) billmodel.SourceChambers {
	if c == billmodel.ChamberSangiin {
		return billmodel.SourceSangiinOnly
	}
	return billmodel.SourceShugiinOnly
}

// similarity is the weighted mean of title/session/trailing-id/submitter_kind
// comparisons (spec.md §4.5).
func similarity(a, b *billmodel.BillRecord) float64 {
	titleScore := namematch.Similarity(a.Title, b.Title)

	sessionScore := 0.0
	if a.SessionNumber == b.SessionNumber && a.SessionNumber != 0 {
		sessionScore = 1.0
	}

	idScore := 0.0
	aNum, aOK := shared.TrailingNumber(a.BillID)
	bNum, bOK := shared.TrailingNumber(b.BillID)
	if aOK && bOK && aNum == bNum {
		idScore = 1.0
	}

	submitterScore := 0.0
	if a.SubmitterKind == b.SubmitterKind && a.SubmitterKind != "" {
		submitterScore = 1.0
	}

	return 0.4*titleScore + 0.3*sessionScore + 0.2*idScore + 0.1*submitterScore
}

func cloneRecord(r *billmodel.BillRecord) *billmodel.BillRecord {
	c := *r
	c.SourceURLs = append([]string(nil), r.SourceURLs...)
	c.KeyProvisions = append([]string(nil), r.KeyProvisions...)
	c.RelatedLaws = append([]string(nil), r.RelatedLaws...)
	c.SubmittingMembers = append([]string(nil), r.SubmittingMembers...)
	c.SupportingMembers = append([]string(nil), r.SupportingMembers...)
	c.Amendments = append([]billmodel.Amendment(nil), r.Amendments...)
	c.CommitteeAssignments = cloneStringMap(r.CommitteeAssignments)
	c.VotingResults = cloneStringStringMap(r.VotingResults)
	return &c
}

func cloneStringMap(m map[billmodel.Chamber]string) map[billmodel.Chamber]string {
	if m == nil {
		return nil
	}
	out := make(map[billmodel.Chamber]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneStringStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// qualityScore applies spec.md §4.5's merge-quality formula: the record's
// quality score minus 0.1*sum(1-conflict.confidence), floored at 0, plus
// a 0.1 multi-source bonus, capped at 1.
func qualityScore(r *billmodel.BillRecord, conflicts []MergeConflict, multiSource bool) float64 {
	score := r.DataQualityScore

	penalty := 0.0
	for _, c := range conflicts {
		penalty += 1 - c.Confidence
	}
	score -= 0.1 * penalty
	if score < 0 {
		score = 0
	}

	if multiSource {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}
