package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seiji-watch/ingest-core/pkg/version"
)

// Health handles GET /health: runs every registered health probe live
// and aggregates the result, per spec.md §6 ("aggregated health of all
// subsystems + external-service probes").
func (d *Deps) Health(c *gin.Context) {
	d.Monitoring.RunHealthChecksOnce(c.Request.Context())
	results := d.Monitoring.HealthResults()

	allHealthy := true
	checks := make(gin.H, len(results))
	for name, r := range results {
		checks[name] = gin.H{
			"success":     r.Success,
			"duration_ms": r.Duration.Milliseconds(),
			"timeout":     r.Timeout,
			"error":       r.Error,
		}
		if !r.Success {
			allHealthy = false
		}
	}

	status := http.StatusOK
	if !allHealthy {
		status = http.StatusServiceUnavailable
	}
	succeed(c, status, gin.H{"healthy": allHealthy, "checks": checks, "version": version.Full()})
}
