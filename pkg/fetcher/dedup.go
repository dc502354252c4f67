package fetcher

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// dedupCacheFile is the on-disk shape spec.md §6 names: "<cache_dir>/
// content_hashes.json containing {content_hashes, url_hashes, last_updated}".
// Grounded on original_source's DuplicateDetector._save_cache/_load_cache.
type dedupCacheFile struct {
	ContentHashes map[string]string `json:"content_hashes"` // identifier -> body hash
	URLHashes     map[string]string `json:"url_hashes"`     // url hash -> RFC3339 timestamp
	LastUpdated   time.Time         `json:"last_updated"`
}

type dedupCache struct {
	path    string
	maxAge  time.Duration
	enabled bool

	mu   sync.Mutex
	data dedupCacheFile
}

func newDedupCache(dir string, maxAge time.Duration) (*dedupCache, error) {
	if dir == "" {
		return &dedupCache{enabled: false}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir %q: %w", dir, err)
	}

	c := &dedupCache{
		path:    filepath.Join(dir, "content_hashes.json"),
		maxAge:  maxAge,
		enabled: true,
		data: dedupCacheFile{
			ContentHashes: make(map[string]string),
			URLHashes:     make(map[string]string),
		},
	}
	if raw, err := os.ReadFile(c.path); err == nil {
		var loaded dedupCacheFile
		if err := json.Unmarshal(raw, &loaded); err == nil {
			if loaded.ContentHashes != nil {
				c.data.ContentHashes = loaded.ContentHashes
			}
			if loaded.URLHashes != nil {
				c.data.URLHashes = loaded.URLHashes
			}
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading cache file %q: %w", c.path, err)
	}
	return c, nil
}

// isDuplicateURL reports whether rawURL was seen within maxAge. When it
// was not, the current attempt is recorded; a duplicate leaves the
// earlier timestamp in place.
func (c *dedupCache) isDuplicateURL(rawURL string) bool {
	if !c.enabled {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := contentHash([]byte(rawURL))
	if tsStr, ok := c.data.URLHashes[key]; ok {
		if ts, err := time.Parse(time.RFC3339, tsStr); err == nil {
			if time.Since(ts) < c.maxAge {
				return true
			}
		}
	}
	c.data.URLHashes[key] = time.Now().Format(time.RFC3339)
	c.save()
	return false
}

// isDuplicateContent reports whether body's hash has been seen under any
// identifier, and records it under identifier if not.
func (c *dedupCache) isDuplicateContent(identifier string, body []byte) bool {
	if !c.enabled {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := contentHash(body)
	for _, seen := range c.data.ContentHashes {
		if seen == hash {
			return true
		}
	}
	c.data.ContentHashes[identifier] = hash
	c.save()
	return false
}

// save persists the cache to disk. Marshal and write errors are discarded
// without logging, so they never fail the fetch itself (spec.md §7: cache
// writes are fire-and-forget from the caller's perspective).
func (c *dedupCache) save() {
	if !c.enabled {
		return
	}
	c.data.LastUpdated = time.Now()
	raw, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(c.path, raw, 0o644)
}
