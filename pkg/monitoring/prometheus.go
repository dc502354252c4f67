package monitoring

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seiji-watch/ingest-core/pkg/version"
)

// PrometheusExporter serves the current metrics snapshot in Prometheus
// text exposition format for GET /metrics (spec.md §6), backing the
// Aggregator's dashboard with the ecosystem's standard exporter rather
// than a hand-rolled line writer.
type PrometheusExporter struct {
	metrics  MetricsProvider
	registry *prometheus.Registry

	mu     sync.Mutex
	gauges map[string]prometheus.Gauge
}

// NewPrometheusExporter builds an exporter pulling from the same
// MetricsProvider the Service evaluates rules against, so /metrics and
// the alert rules never disagree about a value.
func NewPrometheusExporter(metrics MetricsProvider) *PrometheusExporter {
	e := &PrometheusExporter{
		metrics:  metrics,
		registry: prometheus.NewRegistry(),
		gauges:   make(map[string]prometheus.Gauge),
	}
	buildInfo := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ingestcore_build_info",
		Help: "Build information, value is always 1.",
	}, []string{"version"})
	buildInfo.WithLabelValues(version.Full()).Set(1)
	e.registry.MustRegister(buildInfo)
	return e
}

// Handler returns an http.Handler serving the text exposition format.
// It refreshes gauge values from the MetricsProvider on every request,
// since ingestd's metrics snapshot changes between scrapes.
func (e *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := e.refresh(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

func (e *PrometheusExporter) refresh(ctx context.Context) error {
	snapshot, err := e.metrics(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for name, value := range snapshot {
		gauge, ok := e.gauges[name]
		if !ok {
			gauge = prometheus.NewGauge(prometheus.GaugeOpts{
				Name: sanitizeMetricName(name),
				Help: "seiji-watch ingest-core metric: " + name,
			})
			if regErr := e.registry.Register(gauge); regErr != nil {
				continue
			}
			e.gauges[name] = gauge
		}
		gauge.Set(value)
	}
	return nil
}

// sanitizeMetricName maps a domain metric name like "error_rate" or
// "queue.depth" to a valid Prometheus identifier.
func sanitizeMetricName(name string) string {
	replacer := strings.NewReplacer(".", "_", "-", "_", " ", "_", ":", "_")
	return "ingestcore_" + replacer.Replace(name)
}
