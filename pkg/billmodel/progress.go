package billmodel

import "time"

// ProgressSnapshot is a point-in-time summary of a bill's progress
// (spec.md §3).
type ProgressSnapshot struct {
	BillID              string    `json:"bill_id"`
	SnapshotAt          time.Time `json:"snapshot_at"`
	Stage               Stage     `json:"stage"`
	Chamber             Chamber   `json:"chamber"`
	Committee           string    `json:"committee,omitempty"`
	LastAction          string    `json:"last_action,omitempty"`
	LastActionAt        *time.Time `json:"last_action_at,omitempty"`
	NextExpectedAction  string    `json:"next_expected_action,omitempty"`
	Confidence          float64   `json:"confidence"`
}

// StageTransition records a single (from, to) move in a bill's history.
type StageTransition struct {
	FromStage    Stage     `json:"from_stage"`
	ToStage      Stage     `json:"to_stage"`
	At           time.Time `json:"at"`
	Chamber      Chamber   `json:"chamber"`
	Committee    string    `json:"committee,omitempty"`
	DurationDays float64   `json:"duration_days"`
}

// TrackingStatus is the overall status the tracker assigns a bill.
type TrackingStatus string

const (
	TrackingActive    TrackingStatus = "active"
	TrackingCompleted TrackingStatus = "completed"
	TrackingSuspended TrackingStatus = "suspended"
	TrackingError     TrackingStatus = "error"
)

// AlertKind enumerates progress-tracker alert types.
type AlertKind string

const (
	ProgressAlertStall            AlertKind = "stall"
	ProgressAlertDelay             AlertKind = "delay"
	ProgressAlertLowConfidence     AlertKind = "low_confidence"
	ProgressAlertMissingData       AlertKind = "missing_data"
	ProgressAlertUnusualProgression AlertKind = "unusual_progression"
)

// ProgressAlert is a single alert raised by the tracker for a bill.
type ProgressAlert struct {
	Kind    AlertKind `json:"kind"`
	Message string    `json:"message"`
}

// TrackingResult is the output of tracking a single bill's progress.
type TrackingResult struct {
	Status      TrackingStatus    `json:"status"`
	Snapshot    ProgressSnapshot  `json:"snapshot"`
	History     []ProgressSnapshot `json:"history"`
	Transitions []StageTransition `json:"transitions"`
	Alerts      []ProgressAlert   `json:"alerts"`
}
