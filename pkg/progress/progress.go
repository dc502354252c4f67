// Package progress tracks a bill's movement through the legislative
// stage machine (spec.md §4.7, component C8): transition detection,
// confidence scoring, and stall/delay/low-confidence/missing-data
// alerting. Pure function package; history is supplied by the caller
// rather than owned here (pkg/store does not persist snapshots).
package progress

import (
	"fmt"
	"sort"
	"time"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
	"github.com/seiji-watch/ingest-core/pkg/validate"
)

// StallThresholdDays is how long since the last action before a stall
// alert fires.
const StallThresholdDays = 30

// DelayThresholdDays is how long a single stage transition may take
// before a delay alert fires.
const DelayThresholdDays = 60

// LowConfidenceThreshold is the snapshot confidence floor below which a
// low-confidence alert fires.
const LowConfidenceThreshold = 0.5

// FreshnessWindowDays is the span over which freshness decays to 0.
const FreshnessWindowDays = 365.0

// Track computes a TrackingResult for record given its prior snapshot
// history, as of now.
func Track(record *billmodel.BillRecord, history []billmodel.ProgressSnapshot, now time.Time) billmodel.TrackingResult {
	sorted := append([]billmodel.ProgressSnapshot(nil), history...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SnapshotAt.Before(sorted[j].SnapshotAt) })

	snapshot := buildSnapshot(record, now)
	status := trackingStatus(record.Stage)

	transitions := computeTransitions(sorted)
	alerts := computeAlerts(record, snapshot, transitions, status, now)

	return billmodel.TrackingResult{
		Status:      status,
		Snapshot:    snapshot,
		History:     sorted,
		Transitions: transitions,
		Alerts:      alerts,
	}
}

func trackingStatus(stage billmodel.Stage) billmodel.TrackingStatus {
	if stage == billmodel.StageContinued {
		return billmodel.TrackingSuspended
	}
	if billmodel.TerminalStages[stage] {
		return billmodel.TrackingCompleted
	}
	return billmodel.TrackingActive
}

func buildSnapshot(record *billmodel.BillRecord, now time.Time) billmodel.ProgressSnapshot {
	lastAction, lastActionAt := latestAction(record)
	committee := record.CommitteeAssignments[record.ChamberOfOrigin]

	return billmodel.ProgressSnapshot{
		BillID:             record.BillID,
		SnapshotAt:         now,
		Stage:              record.Stage,
		Chamber:            record.ChamberOfOrigin,
		Committee:          committee,
		LastAction:         lastAction,
		LastActionAt:       lastActionAt,
		NextExpectedAction: nextExpectedAction(record.Stage),
		Confidence:         confidence(record, lastActionAt, now),
	}
}

// latestAction finds the most recent non-nil lifecycle date and a
// human-readable label for it.
func latestAction(record *billmodel.BillRecord) (string, *time.Time) {
	type labeled struct {
		label string
		date  *time.Time
	}
	candidates := []labeled{
		{"submitted", record.SubmittedDate},
		{"committee_referral", record.CommitteeReferralDate},
		{"committee_report", record.CommitteeReportDate},
		{"final_vote", record.FinalVoteDate},
		{"promulgated", record.PromulgatedDate},
		{"implementation", record.ImplementationDate},
	}

	var best labeled
	for _, c := range candidates {
		if c.date == nil {
			continue
		}
		if best.date == nil || c.date.After(*best.date) {
			best = c
		}
	}
	return best.label, best.date
}

func nextExpectedAction(stage billmodel.Stage) string {
	idx := billmodel.StageIndex(stage)
	if idx < 0 || idx+1 >= len(billmodel.StageProgression) {
		return ""
	}
	return string(billmodel.StageProgression[idx+1])
}

// confidence is spec.md §4.7's weighted blend of completeness, recency,
// source reliability, and internal consistency.
func confidence(record *billmodel.BillRecord, lastActionAt *time.Time, now time.Time) float64 {
	result := validate.Validate(record, validate.LevelStandard)

	fresh := freshness(lastActionAt, now)
	reliability := sourceReliability(record.SourceChambers)

	return 0.4*result.CompletenessScore + 0.3*fresh + 0.2*reliability + 0.1*result.ConsistencyScore
}

// freshness decays linearly to 0 over FreshnessWindowDays days from the
// last known action. A bill with no recorded action is least fresh.
func freshness(lastActionAt *time.Time, now time.Time) float64 {
	if lastActionAt == nil {
		return 0
	}
	days := now.Sub(*lastActionAt).Hours() / 24
	if days <= 0 {
		return 1
	}
	f := 1 - days/FreshnessWindowDays
	if f < 0 {
		return 0
	}
	return f
}

func sourceReliability(sc billmodel.SourceChambers) float64 {
	if sc == billmodel.SourceBoth {
		return 1.0
	}
	return 0.7
}

// computeTransitions derives (from, to) pairs from consecutive snapshots
// whose stage differs, recording the elapsed days between them.
func computeTransitions(history []billmodel.ProgressSnapshot) []billmodel.StageTransition {
	var transitions []billmodel.StageTransition
	for i := 1; i < len(history); i++ {
		prev, cur := history[i-1], history[i]
		if prev.Stage == cur.Stage {
			continue
		}
		transitions = append(transitions, billmodel.StageTransition{
			FromStage:    prev.Stage,
			ToStage:      cur.Stage,
			At:           cur.SnapshotAt,
			Chamber:      cur.Chamber,
			Committee:    cur.Committee,
			DurationDays: cur.SnapshotAt.Sub(prev.SnapshotAt).Hours() / 24,
		})
	}
	return transitions
}

func computeAlerts(record *billmodel.BillRecord, snapshot billmodel.ProgressSnapshot, transitions []billmodel.StageTransition, status billmodel.TrackingStatus, now time.Time) []billmodel.ProgressAlert {
	var alerts []billmodel.ProgressAlert

	if status == billmodel.TrackingActive && snapshot.LastActionAt != nil {
		days := now.Sub(*snapshot.LastActionAt).Hours() / 24
		if days > StallThresholdDays {
			alerts = append(alerts, billmodel.ProgressAlert{
				Kind:    billmodel.ProgressAlertStall,
				Message: fmt.Sprintf("no recorded action in %.0f days", days),
			})
		}
	}

	for _, t := range transitions {
		if t.DurationDays > DelayThresholdDays {
			alerts = append(alerts, billmodel.ProgressAlert{
				Kind:    billmodel.ProgressAlertDelay,
				Message: fmt.Sprintf("transition %s->%s took %.0f days", t.FromStage, t.ToStage, t.DurationDays),
			})
		}
		if billmodel.TerminalStages[t.FromStage] {
			alerts = append(alerts, billmodel.ProgressAlert{
				Kind:    billmodel.ProgressAlertUnusualProgression,
				Message: fmt.Sprintf("transition out of terminal stage %s to %s", t.FromStage, t.ToStage),
			})
		}
	}

	if snapshot.Confidence < LowConfidenceThreshold {
		alerts = append(alerts, billmodel.ProgressAlert{
			Kind:    billmodel.ProgressAlertLowConfidence,
			Message: fmt.Sprintf("snapshot confidence %.2f below threshold", snapshot.Confidence),
		})
	}

	if record.Outline == "" {
		alerts = append(alerts, billmodel.ProgressAlert{
			Kind:    billmodel.ProgressAlertMissingData,
			Message: "bill outline is missing",
		})
	}
	if billmodel.StageIndex(record.Stage) >= billmodel.StageIndex(billmodel.StageCommitteeReferred) && snapshot.Committee == "" {
		alerts = append(alerts, billmodel.ProgressAlert{
			Kind:    billmodel.ProgressAlertMissingData,
			Message: "committee assignment is missing for a bill past committee referral",
		})
	}

	return alerts
}
