package api

import (
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin.Engine wiring every handler in the spec.md
// §6 endpoint table, following the teacher's cmd/tarsy/main.go style of
// a thin router.GET/router.POST registration list with no routing
// logic of its own.
func NewRouter(deps *Deps) *gin.Engine {
	router := gin.Default()

	router.GET("/health", deps.Health)
	router.GET("/metrics", deps.MetricsText)
	router.GET("/metrics/json", deps.MetricsJSON)

	router.POST("/search", deps.Search)

	router.GET("/api/members", deps.ListMembers)
	router.GET("/api/members/:id", deps.GetMember)
	router.GET("/api/members/:id/voting-stats", deps.MemberVotingStats)

	router.GET("/api/policy/issues", deps.PolicyIssues)
	router.GET("/api/policy/member/:id/analysis", deps.PolicyMemberAnalysis)
	router.GET("/api/policy/member/:id/stance/:tag", deps.PolicyMemberStance)
	router.POST("/api/policy/compare", deps.PolicyCompare)
	router.GET("/api/policy/member/:id/similar", deps.PolicyMemberSimilar)
	router.GET("/api/policy/trends/:tag", deps.PolicyTrends)

	router.POST("/admin/members/collect", deps.AdminCollectMembers)
	router.POST("/admin/cache/warmup", deps.AdminCacheWarmup)
	router.GET("/admin/cache/stats", deps.AdminCacheStats)
	router.POST("/admin/batch/member-statistics", deps.AdminBatchMemberStatistics)
	router.POST("/admin/batch/policy-stance", deps.AdminBatchPolicyStance)
	router.GET("/admin/batch/job/:id", deps.AdminBatchJobStatus)
	router.GET("/admin/batch/queues", deps.AdminBatchQueues)
	router.GET("/admin/batch/failed-jobs", deps.AdminBatchFailedJobs)

	return router
}
