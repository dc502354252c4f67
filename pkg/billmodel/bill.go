// Package billmodel defines the data types shared by every ingestion and
// serving component: the BillRecord and its satellites (validation issues,
// progress snapshots, tasks, alerts), plus the enums that replace the
// source system's duck-typed string fields.
package billmodel

import "time"

// Chamber identifies one of the two legislative houses.
type Chamber string

const (
	ChamberShugiin Chamber = "shugiin" // House of Representatives (lower house)
	ChamberSangiin Chamber = "sangiin" // House of Councillors (upper house)
)

// Valid reports whether c is one of the known chamber values.
func (c Chamber) Valid() bool {
	return c == ChamberShugiin || c == ChamberSangiin
}

// SourceChambers records which chamber(s) contributed to a record.
type SourceChambers string

const (
	SourceShugiinOnly SourceChambers = "shugiin_only"
	SourceSangiinOnly SourceChambers = "sangiin_only"
	SourceBoth        SourceChambers = "both"
)

// SubmitterKind distinguishes government-sponsored bills from member bills.
type SubmitterKind string

const (
	SubmitterGovernment SubmitterKind = "government"
	SubmitterMember     SubmitterKind = "member"
)

func (k SubmitterKind) Valid() bool {
	return k == SubmitterGovernment || k == SubmitterMember
}

// Category is the policy-domain classification of a bill.
type Category string

const (
	CategoryBudget        Category = "budget"
	CategoryTaxation      Category = "taxation"
	CategorySocialSecurity Category = "social_security"
	CategoryForeignAffairs Category = "foreign_affairs"
	CategoryJudicial      Category = "judicial"
	CategoryEducation     Category = "education"
	CategoryEnvironment   Category = "environment"
	CategoryOther         Category = "other"
)

var validCategories = map[Category]bool{
	CategoryBudget: true, CategoryTaxation: true, CategorySocialSecurity: true,
	CategoryForeignAffairs: true, CategoryJudicial: true, CategoryEducation: true,
	CategoryEnvironment: true, CategoryOther: true,
}

func (c Category) Valid() bool { return validCategories[c] }

// Status is the bill's overall lifecycle status. There are ten values,
// matching spec.md's "enum of ~10 values".
type Status string

const (
	StatusSubmitted  Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusCommittee  Status = "in_committee"
	StatusPlenary    Status = "in_plenary"
	StatusPassedHouse Status = "passed_house"
	StatusEnacted    Status = "enacted"
	StatusRejected   Status = "rejected"
	StatusWithdrawn  Status = "withdrawn"
	StatusExpired    Status = "expired"
	StatusContinued  Status = "continued"
)

var validStatuses = map[Status]bool{
	StatusSubmitted: true, StatusUnderReview: true, StatusCommittee: true,
	StatusPlenary: true, StatusPassedHouse: true, StatusEnacted: true,
	StatusRejected: true, StatusWithdrawn: true, StatusExpired: true,
	StatusContinued: true,
}

func (s Status) Valid() bool { return validStatuses[s] }

// Stage is a point on the legislative process state machine (spec.md §4.7).
// There are thirteen values: the eight progression stages plus the five
// terminal branches.
type Stage string

const (
	StageSubmitted        Stage = "submitted"
	StageReceived         Stage = "received"
	StageCommitteeReferred Stage = "committee_referred"
	StageCommitteeReview  Stage = "committee_review"
	StageCommitteeVote    Stage = "committee_vote"
	StagePlenaryDebate    Stage = "plenary_debate"
	StagePlenaryVote      Stage = "plenary_vote"
	StageInterHouseSent   Stage = "inter_house_sent"
	StageEnacted          Stage = "enacted"
	StageRejected         Stage = "rejected"
	StageWithdrawn        Stage = "withdrawn"
	StageExpired          Stage = "expired"
	StageContinued        Stage = "continued"
)

// StageProgression is the ordered non-terminal path every bill follows.
var StageProgression = []Stage{
	StageSubmitted, StageReceived, StageCommitteeReferred, StageCommitteeReview,
	StageCommitteeVote, StagePlenaryDebate, StagePlenaryVote, StageInterHouseSent,
}

// TerminalStages are the branches a bill can exit into from any point.
var TerminalStages = map[Stage]bool{
	StageEnacted: true, StageRejected: true, StageWithdrawn: true,
	StageExpired: true, StageContinued: true,
}

var validStages = map[Stage]bool{
	StageSubmitted: true, StageReceived: true, StageCommitteeReferred: true,
	StageCommitteeReview: true, StageCommitteeVote: true, StagePlenaryDebate: true,
	StagePlenaryVote: true, StageInterHouseSent: true, StageEnacted: true,
	StageRejected: true, StageWithdrawn: true, StageExpired: true, StageContinued: true,
}

func (s Stage) Valid() bool { return validStages[s] }

// IsTerminal reports whether s is one of the five terminal branches.
func (s Stage) IsTerminal() bool { return TerminalStages[s] }

// StageIndex returns s's position in StageProgression, or -1 if s is a
// terminal stage or unrecognized.
func StageIndex(s Stage) int {
	for i, st := range StageProgression {
		if st == s {
			return i
		}
	}
	return -1
}

// AmendmentKind classifies an amendment entry.
type AmendmentKind string

const (
	AmendmentTextual     AmendmentKind = "textual"
	AmendmentProcedural  AmendmentKind = "procedural"
	AmendmentWithdrawal  AmendmentKind = "withdrawal"
)

// Amendment is one recorded change to a bill during its review.
type Amendment struct {
	Description string        `json:"description"`
	Date        *time.Time    `json:"date,omitempty"`
	Kind        AmendmentKind `json:"kind"`
}

// BillRecord is the central entity of the system (spec.md §3).
type BillRecord struct {
	// Identity
	BillID           string    `json:"bill_id"`
	ChamberOfOrigin  Chamber   `json:"chamber_of_origin"`
	SessionNumber    int       `json:"session_number"`
	SourceURLs       []string  `json:"source_urls"`

	// Descriptive
	Title              string        `json:"title"`
	Outline            string        `json:"outline"`
	Background         string        `json:"background"`
	ExpectedEffects    string        `json:"expected_effects"`
	KeyProvisions      []string      `json:"key_provisions"`
	RelatedLaws        []string      `json:"related_laws"`
	Category           Category      `json:"category"`
	SubmitterKind      SubmitterKind `json:"submitter_kind"`
	SponsoringMinistry string        `json:"sponsoring_ministry,omitempty"`
	SubmittingMembers  []string      `json:"submitting_members"`
	SupportingMembers  []string      `json:"supporting_members"`

	// Lifecycle dates (canonical monotonic order)
	SubmittedDate         *time.Time `json:"submitted_date,omitempty"`
	CommitteeReferralDate *time.Time `json:"committee_referral_date,omitempty"`
	CommitteeReportDate   *time.Time `json:"committee_report_date,omitempty"`
	FinalVoteDate         *time.Time `json:"final_vote_date,omitempty"`
	PromulgatedDate       *time.Time `json:"promulgated_date,omitempty"`
	ImplementationDate    *time.Time `json:"implementation_date,omitempty"`

	// Process
	Status               Status              `json:"status"`
	Stage                Stage               `json:"stage"`
	CommitteeAssignments map[Chamber]string  `json:"committee_assignments"`
	VotingResults        map[string]string   `json:"voting_results"`
	Amendments           []Amendment         `json:"amendments"`

	// Provenance
	SourceChambers  SourceChambers `json:"source_chambers"`
	LastUpdated     time.Time      `json:"last_updated"`
	DataQualityScore float64       `json:"data_quality_score"`
}

// LifecycleDates returns the bill's date fields in the canonical monotonic
// order defined by spec.md §3. Unset dates are kept as nil entries, so
// every position always refers to the same field. Used by the
// validator's date-monotonicity check and the progress tracker.
func (b *BillRecord) LifecycleDates() []*time.Time {
	return []*time.Time{
		b.SubmittedDate, b.CommitteeReferralDate, b.CommitteeReportDate,
		b.FinalVoteDate, b.PromulgatedDate, b.ImplementationDate,
	}
}

// Key uniquely identifies a pre-merge record: bill_id + chamber_of_origin.
type Key struct {
	BillID  string
	Chamber Chamber
}

func (b *BillRecord) Key() Key {
	return Key{BillID: b.BillID, Chamber: b.ChamberOfOrigin}
}
