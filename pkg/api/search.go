package api

import (
	"github.com/gin-gonic/gin"
)

type searchRequest struct {
	Query        string  `json:"query"`
	Limit        int     `json:"limit"`
	MinCertainty float64 `json:"min_certainty"`
}

// Search handles POST /search. spec.md §6 marks mock results
// acceptable here — there is no vector/full-text search engine in this
// module's scope.
func (d *Deps) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		unprocessable(c, "invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		unprocessable(c, "query must not be empty")
		return
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	results := make([]gin.H, 0, limit)
	for _, m := range d.Members.members {
		if len(results) >= limit {
			break
		}
		certainty := mockSimilarity(req.Query, m.ID)
		if certainty < req.MinCertainty {
			continue
		}
		results = append(results, gin.H{
			"type":      "member",
			"id":        m.ID,
			"name":      m.Name,
			"certainty": certainty,
		})
	}
	succeed(c, 200, gin.H{"query": req.Query, "results": results})
}
