// Package pdfextract extracts roll-call voting sessions from PDF roll-call
// sheets (spec.md §4.3, component C4). Grounded on
// original_source/services/ingest-worker/src/scraper/pdf_processor.py's
// PDFProcessor: the three-tier strategy ladder, the three vote-record
// regex shapes, and the quality gate are all reproduced from it.
package pdfextract

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
	"github.com/seiji-watch/ingest-core/pkg/namematch"
)

// ErrOCRUnavailable is returned by an OCREngine that has no OCR backend
// configured (spec.md §9: OCR is optional in constrained environments).
var ErrOCRUnavailable = errors.New("pdfextract: OCR backend unavailable")

// ErrQualityGateFailed means extraction produced a session that did not
// clear the quality gate at any ladder step.
var ErrQualityGateFailed = errors.New("pdfextract: voting session failed quality gate")

// OCREngine rasterizes and OCRs a PDF's pages into plain text (ladder step
// 2). Implementations may preprocess (2x rasterization, denoise,
// adaptive threshold) however they see fit; pdfextract only needs text out.
type OCREngine interface {
	ExtractText(ctx context.Context, pdfBytes []byte) (string, error)
}

// StubOCREngine always fails with ErrOCRUnavailable. It exists so the
// strategy ladder and its tests exercise the OCR branch without requiring
// a real OCR backend to be wired in.
type StubOCREngine struct{}

func (StubOCREngine) ExtractText(_ context.Context, _ []byte) (string, error) {
	return "", ErrOCRUnavailable
}

// Options configures quality-gate thresholds and extraction inputs.
type Options struct {
	KnownMembers     []string
	MinMemberCount   int     // minimum qualifying records required, default 50 (spec.md's min_members/min_member_count)
	QualityThreshold float64 // minimum per-record confidence for a record to count toward MinMemberCount
}

func (o Options) withDefaults() Options {
	if o.MinMemberCount <= 0 {
		o.MinMemberCount = 50
	}
	if o.QualityThreshold <= 0 {
		o.QualityThreshold = 0.5
	}
	return o
}

// Extractor runs the strategy ladder against a PDF.
type Extractor struct {
	ocr OCREngine
}

// New builds an Extractor. ocr may be nil, in which case StubOCREngine is used.
func New(ocr OCREngine) *Extractor {
	if ocr == nil {
		ocr = StubOCREngine{}
	}
	return &Extractor{ocr: ocr}
}

// ExtractVotingSession runs the three-step strategy ladder against pdfBytes
// and returns a quality-gated VotingSession (spec.md §4.3's
// extract_voting_session contract).
func (e *Extractor) ExtractVotingSession(ctx context.Context, billID string, chamber billmodel.Chamber, pdfBytes []byte, opts Options) (*billmodel.VotingSession, error) {
	opts = opts.withDefaults()

	if text, ok := extractDirectText(pdfBytes); ok && len(text) >= 200 {
		if session, ok := e.buildSession(billID, chamber, text, 0.8, "direct_text", opts); ok {
			return session, nil
		}
	}

	if text, err := e.ocr.ExtractText(ctx, pdfBytes); err == nil {
		if session, ok := e.buildSession(billID, chamber, text, 0.7, "ocr", opts); ok {
			return session, nil
		}
	}

	if session, ok := e.buildSession(billID, chamber, hybridSeedText(pdfBytes), 0.5, "hybrid_pattern", opts); ok {
		return session, nil
	}

	return nil, ErrQualityGateFailed
}

func extractDirectText(pdfBytes []byte) (string, bool) {
	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return "", false
	}
	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", false
	}
	raw, err := io.ReadAll(textReader)
	if err != nil {
		return "", false
	}
	return string(raw), true
}

// hybridSeedText is the ladder's step-3 placeholder: known-layout
// pattern-only extraction has no generic text source, so it degrades to
// whatever direct-text bytes are available (spec.md §4.3 step 3 is
// documented as "placeholder for known layouts").
func hybridSeedText(pdfBytes []byte) string {
	text, _ := extractDirectText(pdfBytes)
	return text
}

func (e *Extractor) buildSession(billID string, chamber billmodel.Chamber, text string, baseConfidence float64, source string, opts Options) (*billmodel.VotingSession, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}

	records := extractVoteRecords(text, baseConfidence)
	records = reconcileNames(records, opts.KnownMembers)

	if !passesQualityGate(records, opts) {
		return nil, false
	}

	votedAt := extractVoteDate(text)

	return &billmodel.VotingSession{
		BillID:  billID,
		Chamber: chamber,
		VotedAt: votedAt,
		Votes:   records,
		Source:  source,
	}, true
}

var voteWord = `(賛成|反対|欠席|棄権)`

// voteRecordPatterns are the three record shapes, tried in order of
// decreasing structure; the first pattern to yield any records wins.
var voteRecordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`([^\n]{2,15})\s+([^\n]{2,20})\s+([^\n]{2,20})\s+` + voteWord),
	regexp.MustCompile(`([^\n]{2,15})\s*\(([^)]+)\)\s+` + voteWord),
	regexp.MustCompile(`([^\n]{2,15})\s+([^\n]+?)\s+` + voteWord),
}

var voteChoiceMap = map[string]billmodel.Vote{
	"賛成": billmodel.VoteYes,
	"反対": billmodel.VoteNo,
	"欠席": billmodel.VoteAbsent,
	"棄権": billmodel.VoteAbstain,
}

func extractVoteRecords(text string, baseConfidence float64) []billmodel.MemberVote {
	var records []billmodel.MemberVote

	for _, pattern := range voteRecordPatterns {
		matches := pattern.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			continue
		}

		for _, m := range matches {
			rec, ok := parseVoteMatch(m, baseConfidence)
			if ok {
				records = append(records, rec)
			}
		}

		if len(records) > 0 {
			break
		}
	}

	return dedupeByName(records)
}

func parseVoteMatch(m []string, baseConfidence float64) (billmodel.MemberVote, bool) {
	var name, party, constituency, voteWord string

	switch len(m) {
	case 5: // full match + name, party, constituency, vote
		name, party, constituency, voteWord = m[1], m[2], m[3], m[4]
	case 4:
		name, voteWord = m[1], m[3]
		middle := strings.TrimSpace(m[2])
		if idx := strings.Index(middle, "/"); idx >= 0 {
			party, constituency = middle[:idx], middle[idx+1:]
		} else {
			party, constituency = middle, "不明"
		}
	default:
		return billmodel.MemberVote{}, false
	}

	name = strings.TrimSpace(name)
	party = strings.TrimSpace(party)
	constituency = strings.TrimSpace(constituency)
	voteWord = strings.TrimSpace(voteWord)

	if len([]rune(name)) < 2 || len([]rune(name)) > 15 {
		return billmodel.MemberVote{}, false
	}

	vote, ok := voteChoiceMap[voteWord]
	if !ok {
		return billmodel.MemberVote{}, false
	}
	if constituency == "" {
		constituency = "不明"
	}

	return billmodel.MemberVote{
		MemberName:   name,
		Party:        party,
		Constituency: constituency,
		Vote:         vote,
		Confidence:   baseConfidence,
	}, true
}

func dedupeByName(records []billmodel.MemberVote) []billmodel.MemberVote {
	seen := make(map[string]bool, len(records))
	out := make([]billmodel.MemberVote, 0, len(records))
	for _, r := range records {
		if seen[r.MemberName] {
			continue
		}
		seen[r.MemberName] = true
		out = append(out, r)
	}
	return out
}

// reconcileNames runs each record's name through namematch, bumping
// confidence to up to 1.0 on an exact known-member match (spec.md §4.3).
func reconcileNames(records []billmodel.MemberVote, knownMembers []string) []billmodel.MemberVote {
	if len(knownMembers) == 0 {
		return records
	}
	for i, r := range records {
		match, ok := namematch.BestMatch(r.MemberName, knownMembers, namematch.Threshold)
		if !ok {
			continue
		}
		records[i].MemberName = match.Name
		if match.Confidence > records[i].Confidence {
			records[i].Confidence = match.Confidence
		}
	}
	return records
}

// passesQualityGate implements spec.md §4.3's three rejection rules.
func passesQualityGate(records []billmodel.MemberVote, opts Options) bool {
	qualifying := 0
	for _, r := range records {
		if r.Confidence >= opts.QualityThreshold {
			qualifying++
		}
	}
	if qualifying < opts.MinMemberCount {
		return false
	}

	var affirmNegate, missingData int
	for _, r := range records {
		if r.Vote == billmodel.VoteYes || r.Vote == billmodel.VoteNo {
			affirmNegate++
		}
		if r.Party == "" || r.Constituency == "" || r.Constituency == "不明" {
			missingData++
		}
	}

	if float64(affirmNegate)/float64(len(records)) < 0.5 {
		return false
	}
	if float64(missingData)/float64(len(records)) > 0.2 {
		return false
	}
	return true
}

var billDatePattern = regexp.MustCompile(`令和(\d+)年(\d+)月(\d+)日|平成(\d+)年(\d+)月(\d+)日|(\d{4})年(\d+)月(\d+)日`)

func extractVoteDate(text string) time.Time {
	m := billDatePattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}
	}

	switch {
	case m[1] != "":
		return eraDate(m[1], m[2], m[3], 2018)
	case m[4] != "":
		return eraDate(m[4], m[5], m[6], 1988)
	default:
		return eraDate(m[7], m[8], m[9], 0)
	}
}

func eraDate(yearStr, monthStr, dayStr string, epoch int) time.Time {
	year := atoiOr(yearStr, 0) + epoch
	month := atoiOr(monthStr, 1)
	day := atoiOr(dayStr, 1)
	if year == 0 {
		return time.Time{}
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func atoiOr(s string, fallback int) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return fallback
		}
		n = n*10 + int(r-'0')
	}
	if n == 0 && s == "" {
		return fallback
	}
	return n
}
