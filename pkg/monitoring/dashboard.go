package monitoring

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
)

// Threshold maps a metric name to the value at or above which it's
// flagged warning, and the value at or above which it's critical.
type Threshold struct {
	Warning  float64
	Critical float64
}

// PanelSource produces one named panel's metrics from the current
// snapshot, e.g. "ingestion" pulling fetcher/parser counters out of
// metrics.
type PanelSource func(metrics map[string]float64) billmodel.Panel

// Aggregator composes a DashboardLayout from a MetricsProvider and a
// set of panel sources, caching the result for metrics_cache_ttl
// (spec.md §4.13).
type Aggregator struct {
	title      string
	metrics    MetricsProvider
	panels     []PanelSource
	thresholds map[string]Threshold
	ttl        time.Duration
	now        func() time.Time

	mu        sync.Mutex
	cached    *billmodel.DashboardLayout
	cachedAt  time.Time
}

// NewAggregator builds an Aggregator. ttl <= 0 falls back to spec.md's
// 300s default.
func NewAggregator(title string, metrics MetricsProvider, panels []PanelSource, thresholds map[string]Threshold, ttl time.Duration) *Aggregator {
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	return &Aggregator{
		title:      title,
		metrics:    metrics,
		panels:     panels,
		thresholds: thresholds,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Layout returns the cached dashboard if it's within metrics_cache_ttl,
// otherwise rebuilds it.
func (a *Aggregator) Layout(ctx context.Context) (billmodel.DashboardLayout, error) {
	a.mu.Lock()
	if a.cached != nil && a.now().Sub(a.cachedAt) < a.ttl {
		layout := *a.cached
		a.mu.Unlock()
		return layout, nil
	}
	a.mu.Unlock()
	return a.rebuild(ctx)
}

// ClearCache forces the next Layout call to rebuild (spec.md §4.13's
// clear_cache).
func (a *Aggregator) ClearCache() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cached = nil
}

func (a *Aggregator) rebuild(ctx context.Context) (billmodel.DashboardLayout, error) {
	metrics, err := a.metrics(ctx)
	if err != nil {
		return billmodel.DashboardLayout{}, err
	}

	panels := make([]billmodel.Panel, 0, len(a.panels))
	for _, src := range a.panels {
		panel := src(metrics)
		for i := range panel.Metrics {
			panel.Metrics[i].Severity = a.severityFor(panel.Metrics[i].Name, panel.Metrics[i].Value)
		}
		panels = append(panels, panel)
	}
	sort.Slice(panels, func(i, j int) bool { return panels[i].Title < panels[j].Title })

	layout := billmodel.DashboardLayout{
		Title:       a.title,
		Panels:      panels,
		GeneratedAt: a.now(),
	}

	a.mu.Lock()
	a.cached = &layout
	a.cachedAt = a.now()
	a.mu.Unlock()

	result := layout
	return result, nil
}

func (a *Aggregator) severityFor(metric string, value float64) billmodel.Severity {
	t, ok := a.thresholds[metric]
	if !ok {
		return billmodel.SeverityInfo
	}
	switch {
	case value >= t.Critical:
		return billmodel.SeverityCritical
	case value >= t.Warning:
		return billmodel.SeverityWarning
	default:
		return billmodel.SeverityInfo
	}
}
