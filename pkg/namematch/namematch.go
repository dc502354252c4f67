// Package namematch reconciles OCR-extracted member names against a list
// of known member names (spec.md §4.4, component C5). Grounded on
// original_source/services/ingest-worker/src/scraper/pdf_processor.py's
// MemberNameMatcher: the normalization patterns, the OCR-confusion table,
// and the character-Jaccard similarity are all reproduced from it.
package namematch

import (
	"regexp"
	"strings"

	"github.com/agext/levenshtein"
)

// suffixPrefixPatterns strip honorific decoration before comparison.
var suffixPrefixPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(.+)君$`),
	regexp.MustCompile(`^(.+)先生$`),
	regexp.MustCompile(`^(.+)議員$`),
	regexp.MustCompile(`^○(.+)$`),
	regexp.MustCompile(`^●(.+)$`),
}

// confusionTable maps a canonical surname to the OCR misreadings commonly
// substituted for it.
var confusionTable = map[string][]string{
	"鈴木": {"釣木", "釣本", "鈴本"},
	"田中": {"田申", "由中", "由申"},
	"佐藤": {"作藤", "佐薔"},
	"高橋": {"高栢", "高棒", "商橋"},
	"渡辺": {"渡邊", "渡邉"},
	"小林": {"小柿", "小株"},
}

// Threshold is the default minimum similarity score for an accepted match.
const Threshold = 0.7

// Normalize strips a single leading/trailing honorific decoration, matching
// the first pattern that applies (patterns are tried in priority order).
func Normalize(name string) string {
	normalized := strings.TrimSpace(name)
	for _, pattern := range suffixPrefixPatterns {
		if m := pattern.FindStringSubmatch(normalized); m != nil {
			return m[1]
		}
	}
	return normalized
}

// Match is a candidate reconciliation result.
type Match struct {
	Name       string
	Confidence float64
}

// BestMatch finds the best matching candidate for ocrName among candidates,
// returning ok=false if no candidate clears threshold.
func BestMatch(ocrName string, candidates []string, threshold float64) (Match, bool) {
	normalizedOCR := Normalize(ocrName)

	var best Match
	for _, candidate := range candidates {
		normalizedCandidate := Normalize(candidate)

		if normalizedOCR == normalizedCandidate {
			return Match{Name: candidate, Confidence: 1.0}, true
		}

		score := similarity(normalizedOCR, normalizedCandidate)
		if confusionScore, ok := confusionMatch(normalizedOCR, normalizedCandidate); ok && confusionScore > score {
			score = confusionScore
		}

		if score > best.Confidence {
			best = Match{Name: candidate, Confidence: score}
		}
	}

	if best.Confidence >= threshold {
		return best, true
	}
	return Match{}, false
}

// confusionMatch scores 0.9 if a known OCR-confusable variant of a
// candidate's surname appears in the OCR name.
func confusionMatch(ocrName, candidateName string) (float64, bool) {
	for canonical, variants := range confusionTable {
		if !strings.Contains(candidateName, canonical) {
			continue
		}
		for _, variant := range variants {
			if strings.Contains(ocrName, variant) {
				return 0.9, true
			}
		}
	}
	return 0, false
}

// Similarity blends a character-Jaccard score (the original algorithm's
// dominant term) with a normalized Levenshtein distance as a secondary
// signal (spec.md §9 design notes). Exported for reuse by any component
// that needs generic Japanese-text similarity (e.g. the merge engine's
// title comparison).
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	j := jaccard(a, b)
	l := normalizedLevenshtein(a, b)
	return 0.6*j + 0.4*l
}

func similarity(a, b string) float64 { return Similarity(a, b) }

func jaccard(a, b string) float64 {
	setA := charSet(a)
	setB := charSet(b)

	intersection := 0
	for r := range setA {
		if setB[r] {
			intersection++
		}
	}
	union := len(setA)
	for r := range setB {
		if !setA[r] {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func charSet(s string) map[rune]bool {
	set := make(map[rune]bool)
	for _, r := range s {
		set[r] = true
	}
	return set
}

func normalizedLevenshtein(a, b string) float64 {
	runesA, runesB := []rune(a), []rune(b)
	maxLen := len(runesA)
	if len(runesB) > maxLen {
		maxLen = len(runesB)
	}
	if maxLen == 0 {
		return 0
	}
	dist := levenshtein.Distance(a, b)
	score := 1 - float64(dist)/float64(maxLen)
	if score < 0 {
		return 0
	}
	return score
}
