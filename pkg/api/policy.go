package api

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// policyIssueTags is the fixed closed set spec.md §6 names for GET
// /api/policy/issues, recovered from
// original_source's policy issue taxonomy.
var policyIssueTags = []string{
	"economy", "diplomacy", "social_security", "defense",
	"environment", "education", "digital", "disaster_prevention",
}

// PolicyIssues handles GET /api/policy/issues.
func (d *Deps) PolicyIssues(c *gin.Context) {
	succeed(c, 200, gin.H{"issues": policyIssueTags})
}

func validIssueTag(tag string) bool {
	for _, t := range policyIssueTags {
		if t == tag {
			return true
		}
	}
	return false
}

// PolicyMemberAnalysis handles GET /api/policy/member/{id}/analysis — a
// composite stance summary across every issue tag.
func (d *Deps) PolicyMemberAnalysis(c *gin.Context) {
	id := c.Param("id")
	if _, ok := d.Members.get(id); !ok {
		notFound(c, "member not found")
		return
	}
	stances := make(gin.H, len(policyIssueTags))
	for _, tag := range policyIssueTags {
		stances[tag] = mockStance(id, tag)
	}
	succeed(c, 200, gin.H{"member_id": id, "stances": stances})
}

// PolicyMemberStance handles GET /api/policy/member/{id}/stance/{tag}.
func (d *Deps) PolicyMemberStance(c *gin.Context) {
	id := c.Param("id")
	tag := c.Param("tag")
	if _, ok := d.Members.get(id); !ok {
		notFound(c, "member not found")
		return
	}
	if !validIssueTag(tag) {
		unprocessable(c, "unknown issue tag: "+tag)
		return
	}
	succeed(c, 200, gin.H{"member_id": id, "issue_tag": tag, "stance": mockStance(id, tag)})
}

type policyCompareRequest struct {
	MemberIDs []string `json:"member_ids"`
	IssueTag  string   `json:"issue_tag"`
}

// PolicyCompare handles POST /api/policy/compare.
func (d *Deps) PolicyCompare(c *gin.Context) {
	var req policyCompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		unprocessable(c, "invalid request body: "+err.Error())
		return
	}
	if len(req.MemberIDs) == 0 {
		unprocessable(c, "member_ids must not be empty")
		return
	}
	if !validIssueTag(req.IssueTag) {
		unprocessable(c, "unknown issue tag: "+req.IssueTag)
		return
	}

	comparison := make([]gin.H, 0, len(req.MemberIDs))
	for _, id := range req.MemberIDs {
		if _, ok := d.Members.get(id); !ok {
			notFound(c, "member not found: "+id)
			return
		}
		comparison = append(comparison, gin.H{"member_id": id, "stance": mockStance(id, req.IssueTag)})
	}
	succeed(c, 200, gin.H{"issue_tag": req.IssueTag, "comparison": comparison})
}

// PolicyMemberSimilar handles GET /api/policy/member/{id}/similar, with
// an optional comma-separated issue_tags query narrowing the comparison.
func (d *Deps) PolicyMemberSimilar(c *gin.Context) {
	id := c.Param("id")
	if _, ok := d.Members.get(id); !ok {
		notFound(c, "member not found")
		return
	}
	tags := policyIssueTags
	if raw := c.Query("issue_tags"); raw != "" {
		tags = strings.Split(raw, ",")
	}

	similar := make([]gin.H, 0)
	for _, m := range d.Members.members {
		if m.ID == id {
			continue
		}
		similar = append(similar, gin.H{
			"member_id":        m.ID,
			"similarity_score": mockSimilarity(id, m.ID),
			"compared_on_tags": tags,
		})
	}
	succeed(c, 200, gin.H{"member_id": id, "similar": similar})
}

// PolicyTrends handles GET /api/policy/trends/{tag}, with an optional
// days query (default 90).
func (d *Deps) PolicyTrends(c *gin.Context) {
	tag := c.Param("tag")
	if !validIssueTag(tag) {
		unprocessable(c, "unknown issue tag: "+tag)
		return
	}
	days := 90
	if v := c.Query("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}
	succeed(c, 200, gin.H{
		"issue_tag": tag,
		"days":      days,
		"trend":     []float64{0.42, 0.45, 0.47, 0.5},
	})
}

// mockStance and mockSimilarity produce small deterministic values from
// their inputs so repeated calls agree without any persisted state.
func mockStance(memberID, tag string) gin.H {
	score := float64(len(memberID)+len(tag)%7) / 10
	if score > 1 {
		score = 1
	}
	label := "neutral"
	switch {
	case score > 0.66:
		label = "supportive"
	case score < 0.34:
		label = "opposed"
	}
	return gin.H{"score": score, "label": label}
}

func mockSimilarity(a, b string) float64 {
	score := float64((len(a)*7+len(b)*3)%100) / 100
	return score
}
