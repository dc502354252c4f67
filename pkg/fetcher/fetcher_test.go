package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seiji-watch/ingest-core/pkg/config"
)

func testConfig(t *testing.T) config.FetcherConfig {
	t.Helper()
	return config.FetcherConfig{
		BurstSize:         5,
		RequestsPerSecond: 100,
		CooldownSeconds:   0,
		RespectRetryAfter: true,
		MaxRetries:        2,
		MaxAgeHours:       24,
		MaxConcurrent:     4,
		RequestTimeout:    5 * time.Second,
		UserAgent:         "test-agent/1.0",
		CacheDir:          t.TempDir(),
	}
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	f, err := New(testConfig(t))
	require.NoError(t, err)

	res, err := f.Fetch(context.Background(), srv.URL+"/page", FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, SkippedNone, res.Skipped)
	assert.Equal(t, "hello world", string(res.Body))
}

func TestFetch_RobotsDisallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nDisallow: /private\n"))
			return
		}
		w.Write([]byte("should not be reached"))
	}))
	defer srv.Close()

	f, err := New(testConfig(t))
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), srv.URL+"/private/page", FetchOptions{})
	assert.ErrorIs(t, err, ErrDisallowedByRobots)
}

func TestFetch_DuplicateURL(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		atomic.AddInt32(&hits, 1)
		w.Write([]byte("content"))
	}))
	defer srv.Close()

	f, err := New(testConfig(t))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = f.Fetch(ctx, srv.URL+"/page", FetchOptions{})
	require.NoError(t, err)

	res, err := f.Fetch(ctx, srv.URL+"/page", FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, SkippedDuplicateURL, res.Skipped)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestFetch_ForceRefreshBypassesDedup(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		atomic.AddInt32(&hits, 1)
		w.Write([]byte("content"))
	}))
	defer srv.Close()

	f, err := New(testConfig(t))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = f.Fetch(ctx, srv.URL+"/page", FetchOptions{})
	require.NoError(t, err)

	res, err := f.Fetch(ctx, srv.URL+"/page", FetchOptions{ForceRefresh: true})
	require.NoError(t, err)
	assert.Equal(t, SkippedNone, res.Skipped)
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestFetch_RetriesOn5xxThenSucceeds(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	cfg := testConfig(t)
	f, err := New(cfg)
	require.NoError(t, err)

	res, err := f.Fetch(context.Background(), srv.URL+"/flaky", FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(res.Body))
	assert.EqualValues(t, 3, atomic.LoadInt32(&attempts))
}

func TestFetch_DoesNotRetry4xx(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f, err := New(testConfig(t))
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), srv.URL+"/missing", FetchOptions{})
	assert.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&attempts))
}

func TestJob_ProgressAndCompletion(t *testing.T) {
	job := NewJob(2)
	job.Start()

	var lastFraction float64
	job.OnProgress(func(fraction float64) { lastFraction = fraction })

	job.recordCompletion(false, nil)
	assert.Equal(t, 0.5, lastFraction)
	assert.Equal(t, JobRunning, job.Status().State)

	job.recordCompletion(false, nil)
	assert.Equal(t, 1.0, lastFraction)
	assert.Equal(t, JobCompleted, job.Status().State)
}

func TestJob_FailureMarksJobFailed(t *testing.T) {
	job := NewJob(1)
	job.Start()
	job.recordCompletion(true, assert.AnError)
	snap := job.Status()
	assert.Equal(t, JobFailed, snap.State)
	assert.Equal(t, 1, snap.Failed)
	assert.ErrorIs(t, snap.Error, assert.AnError)
}
