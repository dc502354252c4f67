package api

import (
	"github.com/gin-gonic/gin"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
	"github.com/seiji-watch/ingest-core/pkg/cache"
	"github.com/seiji-watch/ingest-core/pkg/queue"
)

const collectFuncRef = "admin.collect_members"

type collectRequest struct {
	House string `json:"house"`
}

// AdminCollectMembers handles POST /admin/members/collect: enqueues an
// ingestion job for the requested chamber rather than blocking the
// request on a full fetch/parse/merge run.
func (d *Deps) AdminCollectMembers(c *gin.Context) {
	var req collectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		unprocessable(c, "invalid request body: "+err.Error())
		return
	}
	chamber := billmodel.Chamber(req.House)
	if !chamber.Valid() {
		unprocessable(c, "house must be one of shugiin, sangiin")
		return
	}

	jobID := d.Queue.Enqueue(collectFuncRef, req, queue.EnqueueOptions{
		Priority:    billmodel.PriorityHigh,
		Description: "collect members for " + req.House,
	})
	succeed(c, 202, gin.H{"job_id": jobID})
}

// AdminCacheWarmup handles POST /admin/cache/warmup.
func (d *Deps) AdminCacheWarmup(c *gin.Context) {
	if err := cache.Warmup(c.Request.Context(), d.Cache, d.Members.members, cache.DefaultTTL); err != nil {
		internalError(c, err)
		return
	}
	succeed(c, 200, gin.H{"warmed": len(d.Members.members)})
}

// AdminCacheStats handles GET /admin/cache/stats.
func (d *Deps) AdminCacheStats(c *gin.Context) {
	existing := 0
	for _, m := range d.Members.members {
		ok, err := d.Cache.Exists(c.Request.Context(), cache.MemberKey(m.ID))
		if err != nil {
			internalError(c, err)
			return
		}
		if ok {
			existing++
		}
	}
	succeed(c, 200, gin.H{"tracked_members": len(d.Members.members), "warm_entries": existing})
}

type batchMemberStatsRequest struct {
	MemberIDs []string           `json:"member_ids"`
	Priority  billmodel.Priority `json:"priority"`
}

const memberStatsFuncRef = "admin.member_statistics"
const policyStanceFuncRef = "admin.policy_stance"

// AdminBatchMemberStatistics handles POST /admin/batch/member-statistics.
func (d *Deps) AdminBatchMemberStatistics(c *gin.Context) {
	var req batchMemberStatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		unprocessable(c, "invalid request body: "+err.Error())
		return
	}
	if len(req.MemberIDs) == 0 {
		unprocessable(c, "member_ids must not be empty")
		return
	}
	priority := req.Priority
	if priority == "" {
		priority = billmodel.PriorityNormal
	}

	jobs := make([]queue.BatchJob, 0, len(req.MemberIDs))
	for _, id := range req.MemberIDs {
		jobs = append(jobs, queue.BatchJob{
			FuncRef:     memberStatsFuncRef,
			Payload:     gin.H{"member_id": id},
			Description: "member statistics for " + id,
		})
	}
	submission := d.Queue.SubmitBatch(jobs, priority)
	succeed(c, 202, gin.H{"batch": submission})
}

type batchPolicyStanceRequest struct {
	MemberIDs []string           `json:"member_ids"`
	IssueTags []string           `json:"issue_tags"`
	Priority  billmodel.Priority `json:"priority"`
}

// AdminBatchPolicyStance handles POST /admin/batch/policy-stance.
func (d *Deps) AdminBatchPolicyStance(c *gin.Context) {
	var req batchPolicyStanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		unprocessable(c, "invalid request body: "+err.Error())
		return
	}
	if len(req.MemberIDs) == 0 || len(req.IssueTags) == 0 {
		unprocessable(c, "member_ids and issue_tags must not be empty")
		return
	}
	priority := req.Priority
	if priority == "" {
		priority = billmodel.PriorityNormal
	}

	jobs := make([]queue.BatchJob, 0, len(req.MemberIDs)*len(req.IssueTags))
	for _, id := range req.MemberIDs {
		for _, tag := range req.IssueTags {
			jobs = append(jobs, queue.BatchJob{
				FuncRef:     policyStanceFuncRef,
				Payload:     gin.H{"member_id": id, "issue_tag": tag},
				Description: "policy stance " + tag + " for " + id,
			})
		}
	}
	submission := d.Queue.SubmitBatch(jobs, priority)
	succeed(c, 202, gin.H{"batch": submission})
}

// AdminBatchJobStatus handles GET /admin/batch/job/{id}.
func (d *Deps) AdminBatchJobStatus(c *gin.Context) {
	job, ok := d.Queue.JobStatus(c.Param("id"))
	if !ok {
		notFound(c, "job not found")
		return
	}
	succeed(c, 200, gin.H{"job": job})
}

// AdminBatchQueues handles GET /admin/batch/queues.
func (d *Deps) AdminBatchQueues(c *gin.Context) {
	succeed(c, 200, gin.H{"queues": d.Queue.Stats()})
}

// AdminBatchFailedJobs handles GET /admin/batch/failed-jobs.
func (d *Deps) AdminBatchFailedJobs(c *gin.Context) {
	limit, _ := pagination(c)
	succeed(c, 200, gin.H{"failed_jobs": d.Queue.FailedJobs(limit)})
}
