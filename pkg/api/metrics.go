package api

import (
	"github.com/gin-gonic/gin"
)

// MetricsText handles GET /metrics: the Prometheus text exposition
// format, one metric per line (spec.md §6).
func (d *Deps) MetricsText(c *gin.Context) {
	d.Metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// MetricsJSON handles GET /metrics/json: the same snapshot, structured
// through the dashboard aggregator's panel layout.
func (d *Deps) MetricsJSON(c *gin.Context) {
	layout, err := d.Dashboard.Layout(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	succeed(c, 200, gin.H{"dashboard": layout})
}
