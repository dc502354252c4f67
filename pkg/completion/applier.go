package completion

import (
	"context"
	"fmt"
	"strings"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
	"github.com/seiji-watch/ingest-core/pkg/fetcher"
	"github.com/seiji-watch/ingest-core/pkg/parser/sangiin"
	"github.com/seiji-watch/ingest-core/pkg/parser/shared"
	"github.com/seiji-watch/ingest-core/pkg/parser/shugiin"
)

// DefaultApplier implements Applier for all four CompletionStrategy values,
// reusing pkg/fetcher and pkg/parser/{shugiin,sangiin} for scrape_missing
// rather than re-deriving bill data from scratch.
type DefaultApplier struct {
	Fetcher *fetcher.Fetcher
}

// Apply dispatches to the strategy-specific handler.
func (a *DefaultApplier) Apply(ctx context.Context, task billmodel.CompletionTask, record *billmodel.BillRecord) ([]string, float64, error) {
	switch task.Strategy {
	case billmodel.StrategyScrapeMissing:
		return a.scrapeMissing(ctx, task, record)
	case billmodel.StrategyEnhanceExisting:
		return enhanceExisting(task, record), improvementFor(task.TargetFields), nil
	case billmodel.StrategyValidateAndFix:
		return validateAndFix(task, record), improvementFor(task.TargetFields), nil
	case billmodel.StrategyBulkUpdate:
		return bulkUpdate(record), improvementFor(task.TargetFields), nil
	default:
		return nil, 0, fmt.Errorf("completion: unknown strategy %q", task.Strategy)
	}
}

// scrapeMissing re-fetches the record's source detail page and copies
// target fields that are currently empty on the local record.
func (a *DefaultApplier) scrapeMissing(ctx context.Context, task billmodel.CompletionTask, record *billmodel.BillRecord) ([]string, float64, error) {
	if len(record.SourceURLs) == 0 {
		return nil, 0, fmt.Errorf("completion: bill %s has no source_urls to re-scrape", record.BillID)
	}

	detailURL := record.SourceURLs[len(record.SourceURLs)-1]
	result, err := a.Fetcher.Fetch(ctx, detailURL, fetcher.FetchOptions{ForceRefresh: true})
	if err != nil {
		return nil, 0, fmt.Errorf("completion: re-fetch %s: %w", detailURL, err)
	}
	if result.Skipped != fetcher.SkippedNone {
		return nil, 0, fmt.Errorf("completion: re-fetch %s was skipped (%s)", detailURL, result.Skipped)
	}

	seed := shared.BillSeed{BillID: record.BillID, Title: record.Title, Status: record.Status, DetailURL: detailURL}

	var fresh *billmodel.BillRecord
	switch record.ChamberOfOrigin {
	case billmodel.ChamberShugiin:
		fresh, err = shugiin.ParseDetail(result.Body, seed, record.SessionNumber)
	case billmodel.ChamberSangiin:
		fresh, err = sangiin.ParseDetail(result.Body, seed, record.SessionNumber)
	default:
		return nil, 0, fmt.Errorf("completion: unknown chamber_of_origin %q for bill %s", record.ChamberOfOrigin, record.BillID)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("completion: parse detail for %s: %w", record.BillID, err)
	}

	return fillMissingFields(record, fresh, task.TargetFields), 0.1 * float64(len(task.TargetFields)), nil
}

// fillMissingFields copies non-empty values from fresh into record for
// each requested field that is currently empty, returning the fields
// actually changed.
func fillMissingFields(record, fresh *billmodel.BillRecord, fields []string) []string {
	var completed []string
	for _, field := range fields {
		if setField(record, fresh, field) {
			completed = append(completed, field)
		}
	}
	return completed
}

func setField(record, fresh *billmodel.BillRecord, field string) bool {
	switch field {
	case "title":
		return copyIfEmpty(&record.Title, fresh.Title)
	case "outline":
		return copyIfEmpty(&record.Outline, fresh.Outline)
	case "background":
		return copyIfEmpty(&record.Background, fresh.Background)
	case "expected_effects":
		return copyIfEmpty(&record.ExpectedEffects, fresh.ExpectedEffects)
	case "status":
		if record.Status == "" && fresh.Status != "" {
			record.Status = fresh.Status
			return true
		}
		return false
	case "stage":
		if record.Stage == "" && fresh.Stage != "" {
			record.Stage = fresh.Stage
			return true
		}
		return false
	case "category":
		if record.Category == "" && fresh.Category != "" {
			record.Category = fresh.Category
			return true
		}
		return false
	case "submitter_kind":
		if record.SubmitterKind == "" && fresh.SubmitterKind != "" {
			record.SubmitterKind = fresh.SubmitterKind
			return true
		}
		return false
	default:
		return false
	}
}

func copyIfEmpty(dst *string, src string) bool {
	if *dst == "" && src != "" {
		*dst = src
		return true
	}
	return false
}

// enhanceExisting runs NormalizeText over each target text field and
// keeps only the fields that actually changed.
func enhanceExisting(task billmodel.CompletionTask, record *billmodel.BillRecord) []string {
	var completed []string
	for _, field := range task.TargetFields {
		var current *string
		switch field {
		case "outline":
			current = &record.Outline
		case "background":
			current = &record.Background
		case "expected_effects":
			current = &record.ExpectedEffects
		default:
			continue
		}
		if normalized := NormalizeText(*current); normalized != *current {
			*current = normalized
			completed = append(completed, field)
		}
	}
	return completed
}

// validateAndFix applies field-specific canonicalization: status values
// are lowercased/trimmed to match the known enum, dates are left to
// pkg/validate to flag if still wrong after the pass.
func validateAndFix(task billmodel.CompletionTask, record *billmodel.BillRecord) []string {
	var completed []string
	for _, field := range task.TargetFields {
		switch field {
		case "status":
			if canonical := canonicalStatus(record.Status); canonical != record.Status {
				record.Status = canonical
				completed = append(completed, field)
			}
		case "submitter_kind":
			if canonical := canonicalSubmitterKind(record.SubmitterKind); canonical != record.SubmitterKind {
				record.SubmitterKind = canonical
				completed = append(completed, field)
			}
		}
	}
	return completed
}

func canonicalStatus(s billmodel.Status) billmodel.Status {
	normalized := billmodel.Status(strings.ToLower(strings.TrimSpace(string(s))))
	if normalized.Valid() {
		return normalized
	}
	return s
}

func canonicalSubmitterKind(k billmodel.SubmitterKind) billmodel.SubmitterKind {
	normalized := billmodel.SubmitterKind(strings.ToLower(strings.TrimSpace(string(k))))
	if normalized.Valid() {
		return normalized
	}
	return k
}

// bulkUpdate recomputes source_chambers from chamber_of_origin when it is
// unset, the one inexpensive cross-field repair spec.md §4.9 names.
func bulkUpdate(record *billmodel.BillRecord) []string {
	if record.SourceChambers != "" {
		return nil
	}
	switch record.ChamberOfOrigin {
	case billmodel.ChamberShugiin:
		record.SourceChambers = billmodel.SourceShugiinOnly
	case billmodel.ChamberSangiin:
		record.SourceChambers = billmodel.SourceSangiinOnly
	default:
		return nil
	}
	return []string{"source_chambers"}
}

// improvementFor is a conservative, deterministic quality_improvement
// estimate: a small increment per field passed in, the same shape the
// validator's format/consistency scores use. Apply passes the task's
// target fields, not only the fields a strategy actually changed.
func improvementFor(fields []string) float64 {
	return 0.05 * float64(len(fields))
}
