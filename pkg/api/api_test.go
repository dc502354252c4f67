package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/seiji-watch/ingest-core/pkg/cache"
	"github.com/seiji-watch/ingest-core/pkg/monitoring"
	"github.com/seiji-watch/ingest-core/pkg/queue"
)

func newTestDeps(t *testing.T) *Deps {
	t.Helper()
	gin.SetMode(gin.TestMode)

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	c := cache.NewRedisCacheFromClient(client)

	q := queue.New()

	metrics := func(ctx context.Context) (map[string]float64, error) {
		return map[string]float64{"error_rate": 0.1}, nil
	}
	svc := monitoring.NewService(metrics, nil)
	svc.RegisterHealthCheck("store", 5*time.Second, func(ctx context.Context) error { return nil })

	dashboard := monitoring.NewAggregator("ops", metrics, nil, nil, 0)
	exporter := monitoring.NewPrometheusExporter(metrics)

	return &Deps{
		Cache:      c,
		Queue:      q,
		Monitoring: svc,
		Dashboard:  dashboard,
		Metrics:    exporter,
		Members:    NewMemberDirectory(DefaultMemberSeed()),
		MockData:   true,
	}
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth_AggregatesRegisteredChecks(t *testing.T) {
	router := NewRouter(newTestDeps(t))
	rec := doRequest(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, true, body["healthy"])
}

func TestMetricsJSON_ReturnsDashboardLayout(t *testing.T) {
	router := NewRouter(newTestDeps(t))
	rec := doRequest(t, router, http.MethodGet, "/metrics/json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Contains(t, body, "dashboard")
}

func TestMetricsText_ServesPrometheusExposition(t *testing.T) {
	router := NewRouter(newTestDeps(t))
	rec := doRequest(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ingestcore_error_rate")
}

func TestListMembers_FiltersByHouse(t *testing.T) {
	router := NewRouter(newTestDeps(t))
	rec := doRequest(t, router, http.MethodGet, "/api/members?house=shugiin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.EqualValues(t, 2, body["total"])
}

func TestGetMember_NotFoundReturns404(t *testing.T) {
	router := NewRouter(newTestDeps(t))
	rec := doRequest(t, router, http.MethodGet, "/api/members/does-not-exist", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, false, body["success"])
}

func TestMemberVotingStats_KnownMemberSucceeds(t *testing.T) {
	router := NewRouter(newTestDeps(t))
	rec := doRequest(t, router, http.MethodGet, "/api/members/member-001/voting-stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPolicyIssues_ReturnsFixedSet(t *testing.T) {
	router := NewRouter(newTestDeps(t))
	rec := doRequest(t, router, http.MethodGet, "/api/policy/issues", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	issues, ok := body["issues"].([]any)
	require.True(t, ok)
	require.Len(t, issues, len(policyIssueTags))
}

func TestPolicyMemberStance_UnknownTagIsUnprocessable(t *testing.T) {
	router := NewRouter(newTestDeps(t))
	rec := doRequest(t, router, http.MethodGet, "/api/policy/member/member-001/stance/not-a-real-tag", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPolicyCompare_ComparesKnownMembers(t *testing.T) {
	router := NewRouter(newTestDeps(t))
	rec := doRequest(t, router, http.MethodPost, "/api/policy/compare", map[string]any{
		"member_ids": []string{"member-001", "member-002"},
		"issue_tag":  "economy",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	comparison, ok := body["comparison"].([]any)
	require.True(t, ok)
	require.Len(t, comparison, 2)
}

func TestPolicyCompare_EmptyMemberIDsIsUnprocessable(t *testing.T) {
	router := NewRouter(newTestDeps(t))
	rec := doRequest(t, router, http.MethodPost, "/api/policy/compare", map[string]any{
		"member_ids": []string{},
		"issue_tag":  "economy",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSearch_ReturnsMockResults(t *testing.T) {
	router := NewRouter(newTestDeps(t))
	rec := doRequest(t, router, http.MethodPost, "/search", map[string]any{"query": "yamada", "limit": 5})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminCollectMembers_EnqueuesJob(t *testing.T) {
	deps := newTestDeps(t)
	router := NewRouter(deps)
	rec := doRequest(t, router, http.MethodPost, "/admin/members/collect", map[string]any{"house": "shugiin"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec)
	jobID, ok := body["job_id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, jobID)
}

func TestAdminCollectMembers_InvalidHouseIsUnprocessable(t *testing.T) {
	router := NewRouter(newTestDeps(t))
	rec := doRequest(t, router, http.MethodPost, "/admin/members/collect", map[string]any{"house": "bogus"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAdminCacheWarmupAndStats(t *testing.T) {
	deps := newTestDeps(t)
	router := NewRouter(deps)

	rec := doRequest(t, router, http.MethodPost, "/admin/cache/warmup", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/admin/cache/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.EqualValues(t, len(deps.Members.members), body["warm_entries"])
}

func TestAdminBatchMemberStatistics_SchedulesBatch(t *testing.T) {
	router := NewRouter(newTestDeps(t))
	rec := doRequest(t, router, http.MethodPost, "/admin/batch/member-statistics", map[string]any{
		"member_ids": []string{"member-001", "member-002"},
		"priority":   "high",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
}

func TestAdminBatchJobStatus_NotFoundReturns404(t *testing.T) {
	router := NewRouter(newTestDeps(t))
	rec := doRequest(t, router, http.MethodGet, "/admin/batch/job/does-not-exist", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminBatchQueuesAndFailedJobs(t *testing.T) {
	router := NewRouter(newTestDeps(t))
	rec := doRequest(t, router, http.MethodGet, "/admin/batch/queues", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/admin/batch/failed-jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
