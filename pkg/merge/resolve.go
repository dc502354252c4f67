package merge

import (
	"time"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
)

// resolve merges a (Shugiin/Sangiin-origin) record pair under strategy,
// returning the merged record and the list of non-trivial per-field
// decisions (spec.md §4.5).
func resolve(a, b *billmodel.BillRecord, strategy Strategy) (*billmodel.BillRecord, []MergeConflict) {
	merged := cloneRecord(a)
	merged.SourceChambers = billmodel.SourceBoth
	merged.SourceURLs = unionStrings(a.SourceURLs, b.SourceURLs)

	var conflicts []MergeConflict

	resolveString(&merged.Title, "title", a.Title, b.Title, a, b, strategy, &conflicts)
	resolveString(&merged.Outline, "outline", a.Outline, b.Outline, a, b, strategy, &conflicts)
	resolveString(&merged.Background, "background", a.Background, b.Background, a, b, strategy, &conflicts)
	resolveString(&merged.ExpectedEffects, "expected_effects", a.ExpectedEffects, b.ExpectedEffects, a, b, strategy, &conflicts)
	resolveString(&merged.SponsoringMinistry, "sponsoring_ministry", a.SponsoringMinistry, b.SponsoringMinistry, a, b, strategy, &conflicts)

	resolveStringSlice(&merged.KeyProvisions, "key_provisions", a.KeyProvisions, b.KeyProvisions, a, b, strategy, &conflicts)
	resolveStringSlice(&merged.RelatedLaws, "related_laws", a.RelatedLaws, b.RelatedLaws, a, b, strategy, &conflicts)
	resolveStringSlice(&merged.SubmittingMembers, "submitting_members", a.SubmittingMembers, b.SubmittingMembers, a, b, strategy, &conflicts)
	resolveStringSlice(&merged.SupportingMembers, "supporting_members", a.SupportingMembers, b.SupportingMembers, a, b, strategy, &conflicts)

	merged.CommitteeAssignments = resolveChamberMap("committee_assignments", a.CommitteeAssignments, b.CommitteeAssignments, a, b, strategy, &conflicts)
	merged.VotingResults = resolveStringMap("voting_results", a.VotingResults, b.VotingResults, a, b, strategy, &conflicts)

	resolveStatus(&merged.Status, a.Status, b.Status, a, b, strategy, &conflicts)
	resolveStage(&merged.Stage, a.Stage, b.Stage, a, b, strategy, &conflicts)

	merged.SessionNumber = preferScalarInt(a.SessionNumber, b.SessionNumber, a, b, strategy)
	merged.Category = preferScalarCategory(a.Category, b.Category, a, b, strategy)

	resolveDate(&merged.SubmittedDate, "submitted_date", a.SubmittedDate, b.SubmittedDate, a, b, strategy, &conflicts)
	resolveDate(&merged.CommitteeReferralDate, "committee_referral_date", a.CommitteeReferralDate, b.CommitteeReferralDate, a, b, strategy, &conflicts)
	resolveDate(&merged.CommitteeReportDate, "committee_report_date", a.CommitteeReportDate, b.CommitteeReportDate, a, b, strategy, &conflicts)
	resolveDate(&merged.FinalVoteDate, "final_vote_date", a.FinalVoteDate, b.FinalVoteDate, a, b, strategy, &conflicts)
	resolveDate(&merged.PromulgatedDate, "promulgated_date", a.PromulgatedDate, b.PromulgatedDate, a, b, strategy, &conflicts)
	resolveDate(&merged.ImplementationDate, "implementation_date", a.ImplementationDate, b.ImplementationDate, a, b, strategy, &conflicts)

	merged.Amendments = append(append([]billmodel.Amendment(nil), a.Amendments...), b.Amendments...)

	if b.LastUpdated.After(a.LastUpdated) {
		merged.LastUpdated = b.LastUpdated
	}

	merged.DataQualityScore = maxFloat(a.DataQualityScore, b.DataQualityScore)

	return merged, conflicts
}

func maxFloat(x, y float64) float64 {
	if y > x {
		return y
	}
	return x
}

// completeness implements spec.md §4.5's size-based completeness scoring:
// string: length/100; list/dict: size/10; scalar: 1.0 nonzero else 0.5.
func completenessString(s string) float64 {
	score := float64(len([]rune(s))) / 100.0
	if score > 1 {
		return 1
	}
	return score
}

func completenessSlice(n int) float64 {
	score := float64(n) / 10.0
	if score > 1 {
		return 1
	}
	return score
}

func resolveString(dst *string, field, av, bv string, a, b *billmodel.BillRecord, strategy Strategy, conflicts *[]MergeConflict) {
	if av == bv {
		*dst = av
		return
	}
	if av == "" {
		*dst, *conflicts = bv, appendConflict(*conflicts, field, av, bv, "b_only_nonempty", 0.9)
		return
	}
	if bv == "" {
		*dst, *conflicts = av, appendConflict(*conflicts, field, av, bv, "a_only_nonempty", 0.9)
		return
	}

	switch strategy {
	case StrategyChamberAPriority:
		*dst, *conflicts = av, appendConflict(*conflicts, field, av, bv, "chamber_a_priority", 0.6)
	case StrategyChamberBPriority:
		*dst, *conflicts = bv, appendConflict(*conflicts, field, av, bv, "chamber_b_priority", 0.6)
	case StrategyLatestUpdate:
		if b.LastUpdated.After(a.LastUpdated) {
			*dst, *conflicts = bv, appendConflict(*conflicts, field, av, bv, "latest_update_b", 0.7)
		} else {
			*dst, *conflicts = av, appendConflict(*conflicts, field, av, bv, "latest_update_a", 0.7)
		}
	default: // most_complete, merge_fields (text fields use most-complete per spec.md)
		if completenessString(bv) > completenessString(av) {
			*dst, *conflicts = bv, appendConflict(*conflicts, field, av, bv, "most_complete_b", 0.75)
		} else {
			*dst, *conflicts = av, appendConflict(*conflicts, field, av, bv, "most_complete_a", 0.75)
		}
	}
}

func resolveStringSlice(dst *[]string, field string, av, bv []string, a, b *billmodel.BillRecord, strategy Strategy, conflicts *[]MergeConflict) {
	if stringSlicesEqual(av, bv) {
		*dst = append([]string(nil), av...)
		return
	}

	if strategy == StrategyMergeFields {
		*dst = unionStrings(av, bv)
		*conflicts = appendConflict(*conflicts, field, av, bv, "merge_fields_union", 0.85)
		return
	}

	switch strategy {
	case StrategyChamberAPriority:
		*dst = chooseSlice(av, bv, field, "chamber_a_priority", conflicts)
	case StrategyChamberBPriority:
		*dst = chooseSliceB(av, bv, field, "chamber_b_priority", conflicts)
	case StrategyLatestUpdate:
		if b.LastUpdated.After(a.LastUpdated) {
			*dst = chooseSliceB(av, bv, field, "latest_update_b", conflicts)
		} else {
			*dst = chooseSlice(av, bv, field, "latest_update_a", conflicts)
		}
	default:
		if completenessSlice(len(bv)) > completenessSlice(len(av)) {
			*dst = chooseSliceB(av, bv, field, "most_complete_b", conflicts)
		} else {
			*dst = chooseSlice(av, bv, field, "most_complete_a", conflicts)
		}
	}
}

func chooseSlice(av, bv []string, field, resolution string, conflicts *[]MergeConflict) []string {
	*conflicts = appendConflict(*conflicts, field, av, bv, resolution, 0.7)
	return append([]string(nil), av...)
}

func chooseSliceB(av, bv []string, field, resolution string, conflicts *[]MergeConflict) []string {
	*conflicts = appendConflict(*conflicts, field, av, bv, resolution, 0.7)
	return append([]string(nil), bv...)
}

func resolveChamberMap(field string, av, bv map[billmodel.Chamber]string, a, b *billmodel.BillRecord, strategy Strategy, conflicts *[]MergeConflict) map[billmodel.Chamber]string {
	if len(av) == 0 && len(bv) == 0 {
		return nil
	}
	if strategy == StrategyMergeFields {
		out := make(map[billmodel.Chamber]string, len(av)+len(bv))
		for k, v := range av {
			out[k] = v
		}
		for k, v := range bv {
			out[k] = v
		}
		if len(av) > 0 && len(bv) > 0 {
			*conflicts = appendConflict(*conflicts, field, av, bv, "merge_fields_deep_union", 0.85)
		}
		return out
	}
	if completenessSlice(len(bv)) > completenessSlice(len(av)) {
		if len(av) > 0 {
			*conflicts = appendConflict(*conflicts, field, av, bv, "most_complete_b", 0.75)
		}
		return cloneStringMap(bv)
	}
	if len(bv) > 0 {
		*conflicts = appendConflict(*conflicts, field, av, bv, "most_complete_a", 0.75)
	}
	return cloneStringMap(av)
}

func resolveStringMap(field string, av, bv map[string]string, a, b *billmodel.BillRecord, strategy Strategy, conflicts *[]MergeConflict) map[string]string {
	if len(av) == 0 && len(bv) == 0 {
		return nil
	}
	if strategy == StrategyMergeFields {
		out := make(map[string]string, len(av)+len(bv))
		for k, v := range av {
			out[k] = v
		}
		for k, v := range bv {
			out[k] = v
		}
		if len(av) > 0 && len(bv) > 0 {
			*conflicts = appendConflict(*conflicts, field, av, bv, "merge_fields_deep_union", 0.85)
		}
		return out
	}
	if completenessSlice(len(bv)) > completenessSlice(len(av)) {
		if len(av) > 0 {
			*conflicts = appendConflict(*conflicts, field, av, bv, "most_complete_b", 0.75)
		}
		return cloneStringStringMap(bv)
	}
	if len(bv) > 0 {
		*conflicts = appendConflict(*conflicts, field, av, bv, "most_complete_a", 0.75)
	}
	return cloneStringStringMap(av)
}

func resolveStatus(dst *billmodel.Status, av, bv billmodel.Status, a, b *billmodel.BillRecord, strategy Strategy, conflicts *[]MergeConflict) {
	if av == bv || bv == "" {
		*dst = av
		return
	}
	if av == "" {
		*dst = bv
		return
	}
	*dst = preferChamberScalar(av, bv, a, b, strategy)
	*conflicts = appendConflict(*conflicts, "status", av, bv, string(strategy), 0.6)
}

func resolveStage(dst *billmodel.Stage, av, bv billmodel.Stage, a, b *billmodel.BillRecord, strategy Strategy, conflicts *[]MergeConflict) {
	if av == bv || bv == "" {
		*dst = av
		return
	}
	if av == "" {
		*dst = bv
		return
	}
	// The further-progressed stage wins regardless of strategy: stage
	// reflects objective procedural fact, not chamber preference.
	ai, bi := billmodel.StageIndex(av), billmodel.StageIndex(bv)
	if av.IsTerminal() || bv.IsTerminal() {
		if bv.IsTerminal() && !av.IsTerminal() {
			*dst = bv
		} else {
			*dst = av
		}
	} else if bi > ai {
		*dst = bv
	} else {
		*dst = av
	}
	*conflicts = appendConflict(*conflicts, "stage", av, bv, "furthest_progress", 0.8)
}

func preferChamberScalar[T comparable](av, bv T, a, b *billmodel.BillRecord, strategy Strategy) T {
	switch strategy {
	case StrategyChamberBPriority:
		return bv
	default:
		return av
	}
}

func preferScalarInt(av, bv int, a, b *billmodel.BillRecord, strategy Strategy) int {
	if av != 0 {
		return av
	}
	return bv
}

func preferScalarCategory(av, bv billmodel.Category, a, b *billmodel.BillRecord, strategy Strategy) billmodel.Category {
	if av != "" {
		return av
	}
	return bv
}

func resolveDate(dst **time.Time, field string, av, bv *time.Time, a, b *billmodel.BillRecord, strategy Strategy, conflicts *[]MergeConflict) {
	if av == nil {
		*dst = bv
		return
	}
	if bv == nil {
		*dst = av
		return
	}
	if av.Equal(*bv) {
		*dst = av
		return
	}
	switch strategy {
	case StrategyLatestUpdate:
		if b.LastUpdated.After(a.LastUpdated) {
			*dst = bv
		} else {
			*dst = av
		}
	default:
		*dst = av
	}
	*conflicts = appendConflict(*conflicts, field, *av, *bv, string(strategy), 0.65)
}

func appendConflict(conflicts []MergeConflict, field string, av, bv any, resolution string, confidence float64) []MergeConflict {
	return append(conflicts, MergeConflict{
		Field:      field,
		AValue:     av,
		BValue:     bv,
		Resolution: resolution,
		Confidence: confidence,
	})
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
