// Package shared holds the table-discovery, field-extraction, date-era,
// and text-cleanup helpers common to both chamber parsers (spec.md §4.2).
// Grounded on original_source's enhanced_diet_scraper.py and
// shugiin_scraper.py, which duplicate this logic per chamber; this
// module factors it out once and lets pkg/parser/shugiin and
// pkg/parser/sangiin supply only their host-specific keyword lists and
// URL construction.
package shared

import "github.com/seiji-watch/ingest-core/pkg/billmodel"

// BillSeed is one row discovered by parse_index: just enough to locate
// and classify a bill before its detail page is fetched.
type BillSeed struct {
	BillID        string
	Title         string
	Status        billmodel.Status
	SubmitterKind billmodel.SubmitterKind
	DetailURL     string
}
