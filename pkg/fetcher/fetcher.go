// Package fetcher implements the resilient HTTP fetch layer (spec.md §4.1):
// per-host rate limiting, robots.txt gating, content-addressed dedup,
// exponential-backoff retry, and per-job progress tracking. Grounded on
// original_source/services/ingest-worker/src/scraper/resilience.py's
// ResilientScraper, re-expressed with golang.org/x/time/rate and
// github.com/cenkalti/backoff/v4 in place of the Python asyncio primitives.
package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/seiji-watch/ingest-core/pkg/config"
)

// Skipped enumerates the reasons Fetch returns bytes=nil without error.
type Skipped string

const (
	SkippedNone            Skipped = ""
	SkippedDuplicateURL    Skipped = "duplicate_url"
	SkippedDuplicateContent Skipped = "duplicate_content"
)

// ErrDisallowedByRobots is returned when the target host's robots.txt
// forbids fetching the requested path. It is a permanent failure: callers
// must not retry it (spec.md §4.1, §7).
var ErrDisallowedByRobots = errors.New("fetcher: disallowed by robots.txt")

// Result is what Fetch returns for a single URL.
type Result struct {
	Body    []byte
	Skipped Skipped
}

// Fetcher is the sole serialization point for outbound HTTP requests
// (spec.md §5: "the fetcher is the sole serialization point"). One
// Fetcher instance is shared by every caller of a given set of hosts; its
// rate limiters and robots cache are keyed per host and mutex-protected.
type Fetcher struct {
	cfg    config.FetcherConfig
	client *http.Client

	mu       sync.Mutex
	limiters map[string]*hostLimiter
	robots   map[string]*robotsRules

	dedup *dedupCache
	sem   chan struct{}
}

// New builds a Fetcher from cfg. An empty cfg.CacheDir disables the dedup
// cache (tests pass a temp directory).
func New(cfg config.FetcherConfig) (*Fetcher, error) {
	dedup, err := newDedupCache(cfg.CacheDir, time.Duration(cfg.MaxAgeHours)*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("initializing dedup cache: %w", err)
	}
	return &Fetcher{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.RequestTimeout},
		limiters: make(map[string]*hostLimiter),
		robots:   make(map[string]*robotsRules),
		dedup:    dedup,
		sem:      make(chan struct{}, cfg.MaxConcurrent),
	}, nil
}

// FetchOptions controls a single Fetch call.
type FetchOptions struct {
	ForceRefresh bool
	Job          *Job
}

// Fetch retrieves rawURL, applying rate limiting, robots-policy gating,
// dedup checks, and retry with exponential backoff, per spec.md §4.1.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, opts FetchOptions) (Result, error) {
	select {
	case f.sem <- struct{}{}:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	defer func() { <-f.sem }()

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Result{}, fmt.Errorf("parsing url %q: %w", rawURL, err)
	}

	if !opts.ForceRefresh {
		if f.dedup.isDuplicateURL(rawURL) {
			f.completeSkipped(opts.Job, SkippedDuplicateURL)
			return Result{Skipped: SkippedDuplicateURL}, nil
		}
	}

	allowed, err := f.robotsAllowed(ctx, parsed)
	if err != nil {
		slog.Warn("robots.txt fetch failed, allowing by default", "host", parsed.Host, "error", err)
	} else if !allowed {
		f.failJob(opts.Job, ErrDisallowedByRobots)
		return Result{}, fmt.Errorf("fetching %q: %w", rawURL, ErrDisallowedByRobots)
	}

	body, err := f.fetchWithRetry(ctx, rawURL)
	if err != nil {
		f.failJob(opts.Job, err)
		return Result{}, err
	}

	if !opts.ForceRefresh && f.dedup.isDuplicateContent(rawURL, body) {
		f.completeSkipped(opts.Job, SkippedDuplicateContent)
		return Result{Skipped: SkippedDuplicateContent}, nil
	}

	f.completeProcessed(opts.Job)
	return Result{Body: body}, nil
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, rawURL string) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 1 * time.Second
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0
	withCap := backoff.WithMaxRetries(bo, uint64(f.cfg.MaxRetries))

	var body []byte
	operation := func() error {
		limiter := f.limiterFor(parsedHost(rawURL))
		if err := limiter.wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("building request: %w", err))
		}
		req.Header.Set("User-Agent", f.cfg.UserAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			return fmt.Errorf("transport error fetching %q: %w", rawURL, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			limiter.cooldown(f.cfg.CooldownSeconds, retryAfter, f.cfg.RespectRetryAfter)
			return fmt.Errorf("rate limited fetching %q", rawURL)
		}

		if resp.StatusCode >= 500 {
			return fmt.Errorf("server error %d fetching %q", resp.StatusCode, rawURL)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("client error %d fetching %q", resp.StatusCode, rawURL))
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading body of %q: %w", rawURL, err)
		}
		body = data
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(withCap, ctx)); err != nil {
		return nil, fmt.Errorf("fetching %q: %w", rawURL, err)
	}
	return body, nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(header); err == nil {
		return time.Until(when)
	}
	return 0
}

func parsedHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host
}

func contentHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
