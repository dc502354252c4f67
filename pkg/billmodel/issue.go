package billmodel

// Severity classifies how serious a ValidationIssue is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// SeverityWeight is used by the validator's consistency-score formula:
// consistency = 1 - Σ severity_weight(issue), floored at 0.
func (s Severity) Weight() float64 {
	switch s {
	case SeverityCritical:
		return 0.2
	case SeverityWarning:
		return 0.1
	case SeverityInfo:
		return 0.05
	default:
		return 0
	}
}

// IssueKind enumerates the kinds of problems a ValidationIssue reports.
type IssueKind string

const (
	IssueMissingField       IssueKind = "missing_field"
	IssueEmptyField         IssueKind = "empty_field"
	IssueInvalidFormat      IssueKind = "invalid_format"
	IssueInvalidEnum        IssueKind = "invalid_enum"
	IssuePoorJapaneseText   IssueKind = "poor_japanese_text"
	IssueInconsistentData   IssueKind = "inconsistent_data"
	IssueDuplicateRecord    IssueKind = "duplicate_record"
	IssueUnusualProgression IssueKind = "unusual_progression"
)

// ValidationIssue is a single problem found with a BillRecord.
type ValidationIssue struct {
	BillID        string    `json:"bill_id"`
	FieldName     string    `json:"field_name,omitempty"`
	Kind          IssueKind `json:"kind"`
	Severity      Severity  `json:"severity"`
	Message       string    `json:"message"`
	CurrentValue  string    `json:"current_value"`
	SuggestedFix  string    `json:"suggested_fix,omitempty"`
	Confidence    float64   `json:"confidence"`
}

// DedupeKey groups issues the way the quality auditor deduplicates them:
// by (bill_id, field, kind).
func (i ValidationIssue) DedupeKey() string {
	return i.BillID + "|" + i.FieldName + "|" + string(i.Kind)
}
