package shared

import (
	"strconv"
	"strings"
)

// TrailingNumber extracts the trailing numeric segment of a bill ID (e.g.
// "217-14" -> 14), used by the merge engine's similarity scoring
// (spec.md §4.5) and by each chamber parser for its own ID convention.
func TrailingNumber(billID string) (int, bool) {
	parts := strings.Split(billID, "-")
	last := parts[len(parts)-1]
	n, err := strconv.Atoi(strings.TrimSpace(last))
	if err != nil {
		return 0, false
	}
	return n, true
}
