package billmodel

import "time"

// Vote is a single member's recorded vote.
type Vote string

const (
	VoteYes     Vote = "yes"
	VoteNo      Vote = "no"
	VoteAbstain Vote = "abstain"
	VoteAbsent  Vote = "absent"
)

// MemberVote is one parsed row from a voting-record PDF, recovered from
// original_source/services/ingest-worker/src/scraper/pdf_processor.py.
type MemberVote struct {
	MemberName   string  `json:"member_name"`
	Party        string  `json:"party"`
	Constituency string  `json:"constituency"`
	Vote         Vote    `json:"vote"`
	Confidence   float64 `json:"confidence"`
}

// VotingSession is the outcome of extracting one roll-call PDF for one
// bill in one chamber (spec.md §4.3's extract_voting_session contract).
type VotingSession struct {
	BillID    string       `json:"bill_id"`
	Chamber   Chamber      `json:"chamber"`
	VotedAt   time.Time    `json:"voted_at"`
	Votes     []MemberVote `json:"votes"`
	Source    string       `json:"source"` // "direct_text", "ocr", or "hybrid_pattern"
}

// MemberProfile is the minimal member identity used by the /api/members*
// endpoints and as the known_members input to the name matcher (C5),
// recovered from original_source/services/api-gateway/src/services/member_service.py.
type MemberProfile struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	NameKana     string  `json:"name_kana"`
	House        Chamber `json:"house"`
	Party        string  `json:"party"`
	Constituency string  `json:"constituency"`
}
