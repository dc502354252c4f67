// Package api implements the HTTP handler table spec.md §6 names, kept
// framework-agnostic (plain func(*gin.Context), but touching nothing
// gin-specific beyond the context type) so cmd/ingestd can wire it into
// any router. Success/failure envelopes follow spec.md §6 exactly:
// {success: true, ...} or {success: false, error, message}.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seiji-watch/ingest-core/pkg/cache"
	"github.com/seiji-watch/ingest-core/pkg/monitoring"
	"github.com/seiji-watch/ingest-core/pkg/queue"
	"github.com/seiji-watch/ingest-core/pkg/store"
)

// Deps bundles every collaborator the handlers need. Built once at the
// composition root (cmd/ingestd) and closed over by each handler.
type Deps struct {
	Store      store.RecordStore
	Cache      cache.Cache
	Queue      *queue.Queue
	Monitoring *monitoring.Service
	Dashboard  *monitoring.Aggregator
	Metrics    *monitoring.PrometheusExporter
	Members    *MemberDirectory
	MockData   bool
}

func succeed(c *gin.Context, status int, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(status, body)
}

func fail(c *gin.Context, status int, errCode, message string) {
	c.JSON(status, gin.H{"success": false, "error": errCode, "message": message})
}

func notFound(c *gin.Context, message string) { fail(c, http.StatusNotFound, "not_found", message) }

func unprocessable(c *gin.Context, message string) {
	fail(c, http.StatusUnprocessableEntity, "unprocessable", message)
}

func internalError(c *gin.Context, err error) {
	fail(c, http.StatusInternalServerError, "internal_error", err.Error())
}
