// Package quality aggregates validator output across a bill corpus into
// a QualityReport: overall and per-field metrics, a deduplicated issue
// list, recommendations, improvement priorities, and a trailing-window
// quality trend (spec.md §4.8, component C9).
package quality

import (
	"fmt"
	"sort"
	"time"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
	"github.com/seiji-watch/ingest-core/pkg/validate"
)

// TimelinessWindowDays is how recently a record must have been updated
// to count toward the timeliness rate.
const TimelinessWindowDays = 90

// trackedFields is the subset of BillRecord fields the per-field report
// breaks metrics out for.
var trackedFields = []string{
	"bill_id", "title", "outline", "background", "expected_effects",
	"category", "status", "stage", "submitter_kind",
}

// scoredRecord pairs a record with its validator result so the
// aggregation helpers below don't re-run the validator.
type scoredRecord struct {
	record *billmodel.BillRecord
	result validate.Result
}

// Audit runs the validator over every record and produces a QualityReport.
// An empty corpus returns a report with zero-valued metrics rather than
// an error.
func Audit(records []*billmodel.BillRecord, now time.Time, trendDays int) billmodel.QualityReport {
	if len(records) == 0 {
		return billmodel.QualityReport{
			PerField: map[string]billmodel.QualityMetrics{},
			Trend:    billmodel.QualityTrend{Slope: billmodel.TrendStable},
		}
	}

	all := make([]scoredRecord, len(records))
	for i, r := range records {
		all[i] = scoredRecord{record: r, result: validate.Validate(r, validate.LevelStandard)}
	}

	overall := aggregate(all, now)
	perField := perFieldMetrics(all)
	issues := dedupedIssues(all)
	issues = append(issues, duplicateIssues(records)...)

	return billmodel.QualityReport{
		Overall:               overall,
		PerField:              perField,
		Issues:                issues,
		Recommendations:       recommendations(issues, overall),
		ImprovementPriorities: improvementPriorities(issues),
		Trend:                 trend(all, now, trendDays),
	}
}

func aggregate(all []scoredRecord, now time.Time) billmodel.QualityMetrics {
	total := len(all)
	var valid int
	var completenessSum, consistencySum float64
	var timely int

	for _, s := range all {
		if s.result.IsValid {
			valid++
		}
		completenessSum += s.result.CompletenessScore
		consistencySum += s.result.ConsistencyScore
		if now.Sub(s.record.LastUpdated).Hours()/24 <= TimelinessWindowDays {
			timely++
		}
	}

	completeness := completenessSum / float64(total)
	consistency := consistencySum / float64(total)
	timeliness := float64(timely) / float64(total)
	accuracy := accuracyRate(all)

	overall := 0.3*completeness + 0.25*accuracy + 0.25*consistency + 0.2*timeliness

	return billmodel.QualityMetrics{
		Total:               total,
		Valid:               valid,
		Invalid:             total - valid,
		CompletenessRate:    completeness,
		AccuracyRate:        accuracy,
		ConsistencyRate:     consistency,
		TimelinessRate:      timeliness,
		OverallQualityScore: overall,
	}
}

// accuracyRate is the fraction of records with no format or enum
// mismatch issue.
func accuracyRate(all []scoredRecord) float64 {
	clean := 0
	for _, s := range all {
		ok := true
		for _, i := range s.result.Issues {
			if i.Kind == billmodel.IssueInvalidFormat || i.Kind == billmodel.IssueInvalidEnum {
				ok = false
				break
			}
		}
		if ok {
			clean++
		}
	}
	return float64(clean) / float64(len(all))
}

func perFieldMetrics(all []scoredRecord) map[string]billmodel.QualityMetrics {
	out := make(map[string]billmodel.QualityMetrics, len(trackedFields))

	for _, field := range trackedFields {
		total := len(all)
		var filled, clean int
		for _, s := range all {
			if !fieldEmptyFor(s.record, field) {
				filled++
			}
			fieldOK := true
			for _, i := range s.result.Issues {
				if i.FieldName == field && (i.Kind == billmodel.IssueInvalidFormat || i.Kind == billmodel.IssueInvalidEnum) {
					fieldOK = false
				}
			}
			if fieldOK {
				clean++
			}
		}

		completeness := float64(filled) / float64(total)
		accuracy := float64(clean) / float64(total)
		out[field] = billmodel.QualityMetrics{
			Total:               total,
			Valid:               clean,
			Invalid:             total - clean,
			CompletenessRate:    completeness,
			AccuracyRate:        accuracy,
			ConsistencyRate:     1.0,
			TimelinessRate:      1.0,
			OverallQualityScore: 0.5*completeness + 0.5*accuracy,
		}
	}
	return out
}

func fieldEmptyFor(r *billmodel.BillRecord, field string) bool {
	switch field {
	case "bill_id":
		return r.BillID == ""
	case "title":
		return r.Title == ""
	case "outline":
		return r.Outline == ""
	case "background":
		return r.Background == ""
	case "expected_effects":
		return r.ExpectedEffects == ""
	case "category":
		return r.Category == ""
	case "status":
		return r.Status == ""
	case "stage":
		return r.Stage == ""
	case "submitter_kind":
		return r.SubmitterKind == ""
	default:
		return true
	}
}

// dedupedIssues collects every record's issues, deduplicated by
// (bill_id, field, kind) as spec.md §4.8 specifies.
func dedupedIssues(all []scoredRecord) []billmodel.ValidationIssue {
	seen := make(map[string]bool)
	var out []billmodel.ValidationIssue
	for _, s := range all {
		for _, i := range s.result.Issues {
			i.BillID = s.record.BillID
			key := i.DedupeKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, i)
		}
	}
	return out
}

// duplicateIssues groups records by (title, session_number,
// chamber_of_origin) and flags second-and-later occurrences.
func duplicateIssues(records []*billmodel.BillRecord) []billmodel.ValidationIssue {
	type key struct {
		title   string
		session int
		chamber billmodel.Chamber
	}
	seen := make(map[key]bool)
	var issues []billmodel.ValidationIssue
	for _, r := range records {
		k := key{r.Title, r.SessionNumber, r.ChamberOfOrigin}
		if seen[k] {
			issues = append(issues, billmodel.ValidationIssue{
				BillID:       r.BillID,
				FieldName:    "title",
				Kind:         billmodel.IssueDuplicateRecord,
				Severity:     billmodel.SeverityWarning,
				Message:      fmt.Sprintf("duplicate of an existing record with title %q, session %d, chamber %s", r.Title, r.SessionNumber, r.ChamberOfOrigin),
				CurrentValue: r.Title,
				Confidence:   0.9,
			})
			continue
		}
		seen[k] = true
	}
	return issues
}

func recommendations(issues []billmodel.ValidationIssue, overall billmodel.QualityMetrics) []string {
	counts := make(map[billmodel.IssueKind]int)
	for _, i := range issues {
		counts[i.Kind]++
	}

	var recs []string
	if n := counts[billmodel.IssueMissingField]; n > 0 {
		recs = append(recs, fmt.Sprintf("%d records have missing required fields; run scrape_missing completion tasks", n))
	}
	if n := counts[billmodel.IssuePoorJapaneseText]; n > 0 {
		recs = append(recs, fmt.Sprintf("%d fields have thin or non-Japanese text content; run enhance_existing tasks", n))
	}
	if n := counts[billmodel.IssueInconsistentData]; n > 0 {
		recs = append(recs, fmt.Sprintf("%d fields are logically inconsistent; run validate_and_fix tasks", n))
	}
	if n := counts[billmodel.IssueDuplicateRecord]; n > 0 {
		recs = append(recs, fmt.Sprintf("%d duplicate records detected; review before merging", n))
	}
	if overall.TimelinessRate < 0.5 {
		recs = append(recs, "fewer than half of records were updated recently; schedule a refresh pass")
	}
	return recs
}

// improvementPriorities orders remediation work critical-first,
// enhanced-fields second, consistency third (spec.md §4.8).
func improvementPriorities(issues []billmodel.ValidationIssue) []string {
	var critical, enhance, consistency int
	for _, i := range issues {
		switch {
		case i.Severity == billmodel.SeverityCritical:
			critical++
		case i.Kind == billmodel.IssuePoorJapaneseText:
			enhance++
		case i.Kind == billmodel.IssueInconsistentData:
			consistency++
		}
	}

	var priorities []string
	if critical > 0 {
		priorities = append(priorities, fmt.Sprintf("resolve %d critical issues", critical))
	}
	if enhance > 0 {
		priorities = append(priorities, fmt.Sprintf("enhance %d thin text fields", enhance))
	}
	if consistency > 0 {
		priorities = append(priorities, fmt.Sprintf("reconcile %d consistency issues", consistency))
	}
	return priorities
}

// trend buckets per-record quality scores by day over the trailing
// trendDays window and classifies the slope between its first and last
// populated day.
func trend(all []scoredRecord, now time.Time, trendDays int) billmodel.QualityTrend {
	if trendDays <= 0 {
		trendDays = 30
	}
	cutoff := now.AddDate(0, 0, -trendDays)

	buckets := make(map[string][]float64)
	for _, s := range all {
		if s.record.LastUpdated.Before(cutoff) {
			continue
		}
		day := s.record.LastUpdated.Format("2006-01-02")
		buckets[day] = append(buckets[day], s.result.QualityScore)
	}

	var days []string
	for d := range buckets {
		days = append(days, d)
	}
	sort.Strings(days)

	var points []billmodel.QualityTrendPoint
	for _, d := range days {
		scores := buckets[d]
		var sum float64
		for _, v := range scores {
			sum += v
		}
		t, _ := time.Parse("2006-01-02", d)
		points = append(points, billmodel.QualityTrendPoint{
			Date:           t,
			AverageQuality: sum / float64(len(scores)),
			SampleCount:    len(scores),
		})
	}

	slope := billmodel.TrendStable
	if len(points) >= 2 {
		delta := points[len(points)-1].AverageQuality - points[0].AverageQuality
		if delta > 0.05 {
			slope = billmodel.TrendImproving
		} else if delta < -0.05 {
			slope = billmodel.TrendDeclining
		}
	}

	return billmodel.QualityTrend{Points: points, Slope: slope}
}
