package billmodel

import "time"

// Metric is one numeric datapoint on a dashboard panel, with a severity
// derived from a threshold table (spec.md §4.13).
type Metric struct {
	Name     string   `json:"name"`
	Value    float64  `json:"value"`
	Unit     string   `json:"unit,omitempty"`
	Severity Severity `json:"severity"`
}

// Panel groups related metrics under one heading.
type Panel struct {
	Title   string   `json:"title"`
	Metrics []Metric `json:"metrics"`
}

// DashboardLayout composes panels into the dashboard aggregator's output
// (spec.md §4.13: "DashboardLayout → panels → metrics").
type DashboardLayout struct {
	Title       string    `json:"title"`
	Panels      []Panel   `json:"panels"`
	GeneratedAt time.Time `json:"generated_at"`
}

// HealthCheckResult is one health check's outcome for one tick
// (spec.md §4.13: "{success, duration, timestamp, timeout?}").
type HealthCheckResult struct {
	Name      string        `json:"name"`
	Success   bool          `json:"success"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
	Timeout   bool          `json:"timeout,omitempty"`
	Error     string        `json:"error,omitempty"`
}
