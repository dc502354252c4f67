package shared

import "github.com/seiji-watch/ingest-core/pkg/billmodel"

// coreFieldWeight and enhancedFieldWeight implement spec.md §4.2's
// "weighted sum over fields (core fields weight 2, enhanced weight 1)".
const (
	coreFieldWeight     = 2.0
	enhancedFieldWeight = 1.0
)

// QualityScore scores a parsed BillRecord by how many of its core and
// enhanced fields were populated, clamped to [0, 1].
func QualityScore(rec *billmodel.BillRecord) float64 {
	var accumulated, total float64

	coreNonEmpty := []bool{
		rec.BillID != "",
		rec.Title != "",
		rec.ChamberOfOrigin.Valid(),
		rec.Status.Valid(),
		rec.SubmitterKind.Valid(),
	}
	for _, present := range coreNonEmpty {
		total += coreFieldWeight
		if present {
			accumulated += coreFieldWeight
		}
	}

	enhancedNonEmpty := []bool{
		rec.Outline != "",
		rec.Background != "",
		rec.ExpectedEffects != "",
		len(rec.KeyProvisions) > 0,
		len(rec.RelatedLaws) > 0,
		rec.SponsoringMinistry != "" || len(rec.SubmittingMembers) > 0,
		len(rec.CommitteeAssignments) > 0,
		len(rec.VotingResults) > 0,
	}
	for _, present := range enhancedNonEmpty {
		total += enhancedFieldWeight
		if present {
			accumulated += enhancedFieldWeight
		}
	}

	if total == 0 {
		return 0
	}
	score := accumulated / total
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}
