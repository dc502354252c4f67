// Package sangiin parses the Sangiin (House of Councillors) bill index
// and detail pages (spec.md §4.2, component C3). Grounded on
// original_source/services/ingest-worker/src/scraper/diet_scraper.py
// and enhanced_diet_scraper.py, re-expressed over pkg/parser/shared.
package sangiin

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
	"github.com/seiji-watch/ingest-core/pkg/parser/shared"
)

// BaseURL is the Sangiin website root, used to resolve relative detail links.
const BaseURL = "https://www.sangiin.go.jp"

var headerTerms = []string{"番号", "件名", "提出会派", "議決", "bill", "title"}

var billIDPattern = regexp.MustCompile(`(\d+)[-‐]?(\d+)?`)

// ParseIndex extracts bill seeds from a Sangiin bill-list page.
func ParseIndex(raw []byte) ([]shared.BillSeed, error) {
	doc, err := shared.ParseDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing sangiin index: %w", err)
	}

	var seeds []shared.BillSeed
	for _, table := range shared.Tables(doc) {
		rows := shared.Rows(table)
		if len(rows) == 0 || !shared.HeaderContainsAny(rows[0], headerTerms) {
			continue
		}
		for _, row := range rows[1:] {
			seed, ok := parseRow(row)
			if ok {
				seeds = append(seeds, seed)
			}
		}
	}
	return seeds, nil
}

func parseRow(row *html.Node) (shared.BillSeed, bool) {
	cells := shared.Cells(row)
	if len(cells) < 2 {
		return shared.BillSeed{}, false
	}

	first := shared.CleanText(shared.TextContent(cells[0]))
	if first == "" || shared.HeaderContainsAny(row, headerTerms) {
		return shared.BillSeed{}, false
	}

	billID := first
	if m := billIDPattern.FindString(first); m != "" {
		billID = m
	}
	title := shared.CleanText(shared.TextContent(cells[1]))

	var detailURL string
	for _, cell := range cells {
		if href, ok := findFirstLink(cell); ok {
			if base, err := url.Parse(BaseURL); err == nil {
				if ref, err := url.Parse(href); err == nil {
					detailURL = base.ResolveReference(ref).String()
					break
				}
			}
		}
	}

	status := billmodel.StatusSubmitted
	submitterKind := billmodel.SubmitterGovernment
	if len(cells) > 2 {
		text := shared.CleanText(shared.TextContent(cells[2]))
		if strings.Contains(text, "議員") || strings.Contains(text, "会派") {
			submitterKind = billmodel.SubmitterMember
		}
	}

	return shared.BillSeed{
		BillID:        billID,
		Title:         title,
		Status:        status,
		SubmitterKind: submitterKind,
		DetailURL:     detailURL,
	}, true
}

func findFirstLink(n *html.Node) (string, bool) {
	if n.Type == html.ElementNode && n.Data == "a" {
		if href, ok := shared.FindAttr(n, "href"); ok {
			return href, true
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if href, ok := findFirstLink(c); ok {
			return href, ok
		}
	}
	return "", false
}

var sectionKeywords = map[string][]string{
	"outline":             {"要旨", "概要"},
	"background":          {"提案理由", "趣旨"},
	"expected_effects":    {"期待される効果", "効果"},
	"key_provisions":      {"主な内容", "骨子"},
	"related_laws":        {"関係法律", "関連法令"},
	"submitting_members":  {"発議者", "提出会派"},
	"supporting_members":  {"賛成会派"},
	"sponsoring_ministry":  {"主管省庁", "所管"},
}

// ParseDetail enriches seed with the fields scraped from a Sangiin bill
// detail page (spec.md §4.2's parse_detail).
func ParseDetail(raw []byte, seed shared.BillSeed, sessionNumber int) (*billmodel.BillRecord, error) {
	doc, err := shared.ParseDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing sangiin detail for %q: %w", seed.BillID, err)
	}

	rec := &billmodel.BillRecord{
		BillID:          seed.BillID,
		ChamberOfOrigin: billmodel.ChamberSangiin,
		SessionNumber:   sessionNumber,
		Title:           seed.Title,
		Status:          seed.Status,
		SubmitterKind:   seed.SubmitterKind,
		Stage:           billmodel.StageSubmitted,
		SourceChambers:  billmodel.SourceSangiinOnly,
		SourceURLs:      []string{seed.DetailURL},
	}

	if text, ok := shared.FindSection(doc, sectionKeywords["outline"]); ok {
		rec.Outline = text
	}
	if text, ok := shared.FindSection(doc, sectionKeywords["background"]); ok {
		rec.Background = text
	}
	if text, ok := shared.FindSection(doc, sectionKeywords["expected_effects"]); ok {
		rec.ExpectedEffects = text
	}
	if text, ok := shared.FindSection(doc, sectionKeywords["key_provisions"]); ok {
		rec.KeyProvisions = shared.SplitListItems(text)
	}
	if text, ok := shared.FindSection(doc, sectionKeywords["related_laws"]); ok {
		related := shared.SplitListItems(text)
		if len(related) == 0 {
			related = shared.ExtractLawReferences(text)
		}
		rec.RelatedLaws = related
	}
	if text, ok := shared.FindSection(doc, sectionKeywords["submitting_members"]); ok {
		rec.SubmittingMembers = shared.SplitListItems(text)
	}
	if text, ok := shared.FindSection(doc, sectionKeywords["supporting_members"]); ok {
		rec.SupportingMembers = shared.SplitListItems(text)
	}
	if text, ok := shared.FindSection(doc, sectionKeywords["sponsoring_ministry"]); ok {
		rec.SponsoringMinistry = text
	}

	fullText := shared.TextContent(doc)
	if date, ok := shared.ParseJapaneseDate(fullText); ok {
		rec.SubmittedDate = &date
	}

	rec.DataQualityScore = shared.QualityScore(rec)
	return rec, nil
}
