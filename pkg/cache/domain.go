package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
)

// Key namespaces for member data, spec.md §4.12: "member:<id>,
// members:<filter_key>, member_stats:<id>, member:<id>:votes:<offset>:<limit>".
func MemberKey(id string) string { return fmt.Sprintf("member:%s", id) }

func MembersKey(filterKey string) string { return fmt.Sprintf("members:%s", filterKey) }

func MemberStatsKey(id string) string { return fmt.Sprintf("member_stats:%s", id) }

func MemberVotesKey(id string, offset, limit int) string {
	return fmt.Sprintf("member:%s:votes:%d:%d", id, offset, limit)
}

// memberAllKey is the consolidated "all members" list entry warmup
// writes alongside per-member entries.
const memberAllKey = "members:all"

// Warmup writes a MemberProfile list into the domain cache as a single
// batch: one entry per member plus a consolidated "all" list entry
// (spec.md §4.12's warmup semantics), all sharing ttl.
func Warmup(ctx context.Context, c Cache, members []billmodel.MemberProfile, ttl time.Duration) error {
	entries := make(map[string][]byte, len(members)+1)
	for _, m := range members {
		body, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("warmup: marshaling member %q: %w", m.ID, err)
		}
		entries[MemberKey(m.ID)] = body
	}
	all, err := json.Marshal(members)
	if err != nil {
		return fmt.Errorf("warmup: marshaling member list: %w", err)
	}
	entries[memberAllKey] = all

	if err := c.MSet(ctx, entries, ttl); err != nil {
		return fmt.Errorf("warmup: %w", err)
	}
	return nil
}

// InvalidateMember deletes every cache entry keyed to id — its profile,
// its stats, and its paginated vote listings — plus every cached member
// list, since a stale list page may embed this member (spec.md §4.12:
// "invalidation deletes all keys matching a prefix pattern for a given
// identifier").
func InvalidateMember(ctx context.Context, c Cache, id string) (int, error) {
	total := 0
	for _, pattern := range []string{
		fmt.Sprintf("member:%s*", id),
		fmt.Sprintf("member_stats:%s", id),
		"members:*",
	} {
		n, err := c.FlushPattern(ctx, pattern)
		if err != nil {
			return total, fmt.Errorf("invalidate member %q: %w", id, err)
		}
		total += n
	}
	return total, nil
}
