package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
)

const selectColumns = `SELECT
	bill_id, chamber_of_origin, session_number, source_urls,
	title, outline, background, expected_effects, key_provisions, related_laws,
	category, submitter_kind, sponsoring_ministry, submitting_members, supporting_members,
	submitted_date, committee_referral_date, committee_report_date, final_vote_date,
	promulgated_date, implementation_date,
	status, stage, committee_assignments, voting_results, amendments,
	source_chambers, last_updated, data_quality_score`

// rowScanner is satisfied by both pgx.Row (from QueryRow) and pgx.Rows
// (from Query, via its embedded Scan), letting Get and List share one
// decode path.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBill(row rowScanner) (*billmodel.BillRecord, error) {
	var rec billmodel.BillRecord
	var chamber, category, submitterKind, status, stage, sourceChambers string
	var committeeAssignments, votingResults, amendments []byte

	err := row.Scan(
		&rec.BillID, &chamber, &rec.SessionNumber, &rec.SourceURLs,
		&rec.Title, &rec.Outline, &rec.Background, &rec.ExpectedEffects, &rec.KeyProvisions, &rec.RelatedLaws,
		&category, &submitterKind, &rec.SponsoringMinistry, &rec.SubmittingMembers, &rec.SupportingMembers,
		&rec.SubmittedDate, &rec.CommitteeReferralDate, &rec.CommitteeReportDate, &rec.FinalVoteDate,
		&rec.PromulgatedDate, &rec.ImplementationDate,
		&status, &stage, &committeeAssignments, &votingResults, &amendments,
		&sourceChambers, &rec.LastUpdated, &rec.DataQualityScore,
	)
	if err != nil {
		return nil, err
	}

	rec.ChamberOfOrigin = billmodel.Chamber(chamber)
	rec.Category = billmodel.Category(category)
	rec.SubmitterKind = billmodel.SubmitterKind(submitterKind)
	rec.Status = billmodel.Status(status)
	rec.Stage = billmodel.Stage(stage)
	rec.SourceChambers = billmodel.SourceChambers(sourceChambers)

	if err := json.Unmarshal(committeeAssignments, &rec.CommitteeAssignments); err != nil {
		return nil, fmt.Errorf("decoding committee_assignments: %w", err)
	}
	if err := json.Unmarshal(votingResults, &rec.VotingResults); err != nil {
		return nil, fmt.Errorf("decoding voting_results: %w", err)
	}
	if err := json.Unmarshal(amendments, &rec.Amendments); err != nil {
		return nil, fmt.Errorf("decoding amendments: %w", err)
	}

	return &rec, nil
}

// translateNoRows converts pgx's sentinel for no rows into ErrNotFound so
// callers can use errors.Is consistently across both store implementations.
func translateNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
