package billmodel

import "time"

// QualityMetrics summarizes a set of bills (or one field across a set of
// bills) along the four axes the auditor tracks (spec.md §4.8).
type QualityMetrics struct {
	Total               int     `json:"total"`
	Valid               int     `json:"valid"`
	Invalid             int     `json:"invalid"`
	CompletenessRate    float64 `json:"completeness_rate"`
	AccuracyRate        float64 `json:"accuracy_rate"`
	ConsistencyRate     float64 `json:"consistency_rate"`
	TimelinessRate      float64 `json:"timeliness_rate"`
	OverallQualityScore float64 `json:"overall_quality_score"`
}

// TrendSlope classifies a quality_trend's direction.
type TrendSlope string

const (
	TrendImproving TrendSlope = "improving"
	TrendDeclining TrendSlope = "declining"
	TrendStable    TrendSlope = "stable"
)

// QualityTrendPoint is one day's average quality score in a trend window.
type QualityTrendPoint struct {
	Date            time.Time `json:"date"`
	AverageQuality  float64   `json:"average_quality"`
	SampleCount     int       `json:"sample_count"`
}

// QualityTrend is the trailing-window trend the auditor reports.
type QualityTrend struct {
	Points []QualityTrendPoint `json:"points"`
	Slope  TrendSlope          `json:"slope"`
}

// QualityReport is the full output of an audit pass (spec.md §4.8).
type QualityReport struct {
	Overall               QualityMetrics            `json:"overall"`
	PerField              map[string]QualityMetrics `json:"per_field"`
	Issues                []ValidationIssue         `json:"issues"`
	Recommendations       []string                  `json:"recommendations"`
	ImprovementPriorities []string                  `json:"improvement_priorities"`
	Trend                 QualityTrend              `json:"trend"`
}
