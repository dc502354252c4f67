// Package validate scores a BillRecord against field, format, enum, and
// logical-relationship rules (spec.md §4.6, component C7). Pure function
// package; Japanese-text detection uses hand-rolled Unicode range checks
// plus golang.org/x/text/width for width-aware length counting.
package validate

import (
	"fmt"
	"regexp"

	"golang.org/x/text/width"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
)

// Level controls which required-field set applies.
type Level string

const (
	LevelBasic         Level = "basic"
	LevelStandard      Level = "standard"
	LevelComprehensive Level = "comprehensive"
)

// Result is the validator's output (spec.md §4.6's ValidationResult).
type Result struct {
	IsValid           bool
	QualityScore      float64
	CompletenessScore float64
	ConsistencyScore  float64
	FormatScore       float64
	Issues            []billmodel.ValidationIssue
}

var basicRequired = []string{"bill_id", "title", "chamber_of_origin"}
var standardRequired = append(append([]string{}, basicRequired...), "session_number", "status", "submitter_kind")
var comprehensiveRequired = append(append([]string{}, standardRequired...), "stage", "category")

var optionalFields = []string{
	"outline", "background", "expected_effects", "key_provisions",
	"related_laws", "sponsoring_ministry", "submitting_members",
	"committee_assignments", "voting_results",
}

var billIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9\-]*$`)

// Validate runs every §4.6 check against record at the given level and
// computes the four scores.
func Validate(record *billmodel.BillRecord, level Level) Result {
	var issues []billmodel.ValidationIssue

	required := requiredFields(level)
	issues = append(issues, checkRequiredFields(record, required)...)
	issues = append(issues, checkFormats(record)...)
	issues = append(issues, checkEnums(record)...)
	issues = append(issues, checkJapaneseText(record)...)
	issues = append(issues, checkLogicalRelationships(record)...)

	completeness := completenessScore(record, required)
	consistency := consistencyScore(issues)
	format := formatScore(issues)
	quality := 0.4*completeness + 0.3*consistency + 0.3*format

	return Result{
		IsValid:           !hasCritical(issues),
		QualityScore:      quality,
		CompletenessScore: completeness,
		ConsistencyScore:  consistency,
		FormatScore:       format,
		Issues:            issues,
	}
}

func requiredFields(level Level) []string {
	switch level {
	case LevelComprehensive:
		return comprehensiveRequired
	case LevelBasic:
		return basicRequired
	default:
		return standardRequired
	}
}

func checkRequiredFields(r *billmodel.BillRecord, required []string) []billmodel.ValidationIssue {
	var issues []billmodel.ValidationIssue
	for _, field := range required {
		if fieldEmpty(r, field) {
			issues = append(issues, billmodel.ValidationIssue{
				BillID:       r.BillID,
				FieldName:    field,
				Kind:         billmodel.IssueMissingField,
				Severity:     billmodel.SeverityCritical,
				Message:      fmt.Sprintf("required field %q is missing or empty", field),
				CurrentValue: fieldString(r, field),
				Confidence:   1.0,
			})
		}
	}
	return issues
}

func fieldEmpty(r *billmodel.BillRecord, field string) bool {
	switch field {
	case "bill_id":
		return r.BillID == ""
	case "title":
		return r.Title == ""
	case "chamber_of_origin":
		return !r.ChamberOfOrigin.Valid()
	case "session_number":
		return r.SessionNumber == 0
	case "status":
		return r.Status == ""
	case "submitter_kind":
		return r.SubmitterKind == ""
	case "stage":
		return r.Stage == ""
	case "category":
		return r.Category == ""
	default:
		return false
	}
}

func fieldString(r *billmodel.BillRecord, field string) string {
	switch field {
	case "bill_id":
		return r.BillID
	case "title":
		return r.Title
	case "chamber_of_origin":
		return string(r.ChamberOfOrigin)
	case "status":
		return string(r.Status)
	case "submitter_kind":
		return string(r.SubmitterKind)
	case "stage":
		return string(r.Stage)
	case "category":
		return string(r.Category)
	default:
		return ""
	}
}

func checkFormats(r *billmodel.BillRecord) []billmodel.ValidationIssue {
	var issues []billmodel.ValidationIssue

	if !billIDPattern.MatchString(r.BillID) {
		issues = append(issues, billmodel.ValidationIssue{
			BillID: r.BillID, FieldName: "bill_id", Kind: billmodel.IssueInvalidFormat,
			Severity: billmodel.SeverityWarning, Message: "bill_id does not match the expected identifier format",
			CurrentValue: r.BillID, Confidence: 0.8,
		})
	}

	if r.DataQualityScore < 0 || r.DataQualityScore > 1 {
		issues = append(issues, billmodel.ValidationIssue{
			BillID: r.BillID, FieldName: "data_quality_score", Kind: billmodel.IssueInvalidFormat,
			Severity: billmodel.SeverityWarning, Message: "data_quality_score must be within [0,1]",
			CurrentValue: fmt.Sprintf("%v", r.DataQualityScore), Confidence: 1.0,
		})
	}

	for _, d := range r.LifecycleDates() {
		if d == nil {
			continue
		}
		if d.Year() < 1947 || d.Year() > 2100 {
			issues = append(issues, billmodel.ValidationIssue{
				BillID: r.BillID, Kind: billmodel.IssueInvalidFormat,
				Severity: billmodel.SeverityWarning, Message: "lifecycle date falls outside the plausible range",
				CurrentValue: d.String(), Confidence: 0.7,
			})
		}
	}

	return issues
}

func checkEnums(r *billmodel.BillRecord) []billmodel.ValidationIssue {
	var issues []billmodel.ValidationIssue

	type enumCheck struct {
		field string
		ok    bool
		value string
	}
	checks := []enumCheck{
		{"status", r.Status == "" || r.Status.Valid(), string(r.Status)},
		{"stage", r.Stage == "" || r.Stage.Valid(), string(r.Stage)},
		{"chamber_of_origin", r.ChamberOfOrigin == "" || r.ChamberOfOrigin.Valid(), string(r.ChamberOfOrigin)},
		{"submitter_kind", r.SubmitterKind == "" || r.SubmitterKind.Valid(), string(r.SubmitterKind)},
		{"category", r.Category == "" || r.Category.Valid(), string(r.Category)},
	}

	for _, c := range checks {
		if !c.ok {
			issues = append(issues, billmodel.ValidationIssue{
				BillID: r.BillID, FieldName: c.field, Kind: billmodel.IssueInvalidEnum,
				Severity: billmodel.SeverityWarning, Message: fmt.Sprintf("%q is not a recognized %s value", c.value, c.field),
				CurrentValue: c.value, Confidence: 0.9,
			})
		}
	}

	return issues
}

// japaneseRanges covers Hiragana, Katakana, and CJK Unified Ideographs.
var japaneseRanges = []*unicodeRange{
	{lo: 0x3040, hi: 0x309F}, // Hiragana
	{lo: 0x30A0, hi: 0x30FF}, // Katakana
	{lo: 0x4E00, hi: 0x9FFF}, // CJK Unified Ideographs
}

type unicodeRange struct{ lo, hi rune }

func containsJapanese(s string) bool {
	for _, r := range s {
		for _, rg := range japaneseRanges {
			if r >= rg.lo && r <= rg.hi {
				return true
			}
		}
	}
	return false
}

// textFieldValues returns the free-text fields subject to the Japanese-content check.
func textFieldValues(r *billmodel.BillRecord) map[string]string {
	return map[string]string{
		"title":            r.Title,
		"outline":          r.Outline,
		"background":       r.Background,
		"expected_effects": r.ExpectedEffects,
	}
}

func checkJapaneseText(r *billmodel.BillRecord) []billmodel.ValidationIssue {
	var issues []billmodel.ValidationIssue
	for field, value := range textFieldValues(r) {
		if value == "" {
			continue
		}
		widthFolded := width.Narrow.String(value)
		runeLen := len([]rune(widthFolded))
		if !containsJapanese(value) || runeLen < 10 {
			issues = append(issues, billmodel.ValidationIssue{
				BillID: r.BillID, FieldName: field, Kind: billmodel.IssuePoorJapaneseText,
				Severity: billmodel.SeverityInfo,
				Message:  fmt.Sprintf("%s is short or lacks Japanese text content", field),
				CurrentValue: value, Confidence: 0.6,
			})
		}
	}
	return issues
}

// statusStageConsistency maps each terminal status to the stage it must
// agree with (spec.md §4.6's "status/stage consistency table").
var statusStageConsistency = map[billmodel.Status]billmodel.Stage{
	billmodel.StatusEnacted:   billmodel.StageEnacted,
	billmodel.StatusRejected:  billmodel.StageRejected,
	billmodel.StatusWithdrawn: billmodel.StageWithdrawn,
	billmodel.StatusExpired:   billmodel.StageExpired,
	billmodel.StatusContinued: billmodel.StageContinued,
}

func checkLogicalRelationships(r *billmodel.BillRecord) []billmodel.ValidationIssue {
	var issues []billmodel.ValidationIssue

	if expectedStage, ok := statusStageConsistency[r.Status]; ok && r.Stage != "" && r.Stage != expectedStage {
		issues = append(issues, billmodel.ValidationIssue{
			BillID: r.BillID, FieldName: "stage", Kind: billmodel.IssueInconsistentData,
			Severity: billmodel.SeverityWarning,
			Message:  fmt.Sprintf("status %q expects stage %q but found %q", r.Status, expectedStage, r.Stage),
			CurrentValue: string(r.Stage), Confidence: 0.85,
		})
	}

	if r.SubmitterKind == billmodel.SubmitterGovernment && len(r.SubmittingMembers) > 0 && r.SponsoringMinistry == "" {
		issues = append(issues, billmodel.ValidationIssue{
			BillID: r.BillID, FieldName: "submitter_kind", Kind: billmodel.IssueInconsistentData,
			Severity: billmodel.SeverityWarning,
			Message:  "submitter_kind is government but submitting_members is populated with no sponsoring_ministry",
			CurrentValue: string(r.SubmitterKind), Confidence: 0.6,
		})
	}
	if r.SubmitterKind == billmodel.SubmitterMember && len(r.SubmittingMembers) == 0 {
		issues = append(issues, billmodel.ValidationIssue{
			BillID: r.BillID, FieldName: "submitting_members", Kind: billmodel.IssueInconsistentData,
			Severity: billmodel.SeverityInfo,
			Message:  "submitter_kind is member but submitting_members is empty",
			CurrentValue: "", Confidence: 0.6,
		})
	}

	issues = append(issues, checkDateMonotonicity(r)...)

	return issues
}

func checkDateMonotonicity(r *billmodel.BillRecord) []billmodel.ValidationIssue {
	var issues []billmodel.ValidationIssue
	dates := r.LifecycleDates()

	var lastIdx = -1
	for i, d := range dates {
		if d == nil {
			continue
		}
		if lastIdx >= 0 && d.Before(*dates[lastIdx]) {
			issues = append(issues, billmodel.ValidationIssue{
				BillID: r.BillID, Kind: billmodel.IssueInconsistentData,
				Severity: billmodel.SeverityWarning,
				Message:  "lifecycle dates are not in canonical monotonic order",
				CurrentValue: d.String(), Confidence: 0.75,
			})
		}
		lastIdx = i
	}
	return issues
}

func hasCritical(issues []billmodel.ValidationIssue) bool {
	for _, i := range issues {
		if i.Severity == billmodel.SeverityCritical {
			return true
		}
	}
	return false
}

// completenessScore implements spec.md §4.6's weighted required/optional ratio.
func completenessScore(r *billmodel.BillRecord, required []string) float64 {
	filled := 0
	for _, f := range required {
		if !fieldEmpty(r, f) {
			filled++
		}
	}
	requiredRatio := 0.0
	if len(required) > 0 {
		requiredRatio = float64(filled) / float64(len(required))
	}

	optFilled := 0
	for _, f := range optionalFields {
		if !optionalFieldEmpty(r, f) {
			optFilled++
		}
	}
	optionalRatio := float64(optFilled) / float64(len(optionalFields))

	return 0.8*requiredRatio + 0.2*optionalRatio
}

func optionalFieldEmpty(r *billmodel.BillRecord, field string) bool {
	switch field {
	case "outline":
		return r.Outline == ""
	case "background":
		return r.Background == ""
	case "expected_effects":
		return r.ExpectedEffects == ""
	case "key_provisions":
		return len(r.KeyProvisions) == 0
	case "related_laws":
		return len(r.RelatedLaws) == 0
	case "sponsoring_ministry":
		return r.SponsoringMinistry == ""
	case "submitting_members":
		return len(r.SubmittingMembers) == 0
	case "committee_assignments":
		return len(r.CommitteeAssignments) == 0
	case "voting_results":
		return len(r.VotingResults) == 0
	default:
		return true
	}
}

func consistencyScore(issues []billmodel.ValidationIssue) float64 {
	penalty := 0.0
	for _, i := range issues {
		penalty += i.Severity.Weight()
	}
	score := 1 - penalty
	if score < 0 {
		return 0
	}
	return score
}

func formatScore(issues []billmodel.ValidationIssue) float64 {
	count := 0
	for _, i := range issues {
		if i.Kind == billmodel.IssueInvalidFormat {
			count++
		}
	}
	score := 1 - 0.1*float64(count)
	if score < 0 {
		return 0
	}
	return score
}
