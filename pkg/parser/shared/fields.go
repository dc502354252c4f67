package shared

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// SectionKeywords maps an enhanced field name to the header keywords
// that introduce it in the source HTML (spec.md §4.2: "the parser
// searches the document for section headers from a fixed keyword
// list"). Only the type is declared here; each chamber parser keeps its
// own keyword map.
type SectionKeywords map[string][]string

// FindSection locates the first element whose text matches one of
// keywords, then returns the nearest following sibling with
// substantial content, falling back to the header's parent's text.
func FindSection(doc *html.Node, keywords []string) (string, bool) {
	header := findHeaderNode(doc, keywords)
	if header == nil {
		return "", false
	}

	for sib := header.NextSibling; sib != nil; sib = sib.NextSibling {
		if sib.Type != html.ElementNode && sib.Type != html.TextNode {
			continue
		}
		text := TextContent(sib)
		if sib.Type == html.TextNode {
			text = sib.Data
		}
		if Substantial(text, 50) {
			return CleanText(text), true
		}
	}

	if header.Parent != nil {
		text := TextContent(header.Parent)
		if Substantial(text, 50) {
			return CleanText(text), true
		}
	}
	return "", false
}

func findHeaderNode(doc *html.Node, keywords []string) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode {
			text := strings.ToLower(TextContent(n))
			for _, kw := range keywords {
				if strings.Contains(text, strings.ToLower(kw)) && len([]rune(text)) < 80 {
					found = n
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if found != nil {
				return
			}
			walk(c)
		}
	}
	walk(doc)
	return found
}

// SplitListItems splits a blob of list-like text (comma, 、 or newline
// separated) into trimmed, non-empty entries — used for submitting
// members, related laws, and key provisions.
func SplitListItems(s string) []string {
	s = CleanText(s)
	if s == "" {
		return nil
	}
	parts := listSplitter.Split(s, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

var listSplitter = regexp.MustCompile(`[,、\n]`)

// lawReferencePattern matches "<name>法" style law references, used to
// extract related_laws from free text when no structured list is present.
var lawReferencePattern = regexp.MustCompile(`[一-龯ぁ-んァ-ヶA-Za-z0-9]+法(?:律)?`)

// ExtractLawReferences pulls law-name-like tokens out of free text.
func ExtractLawReferences(s string) []string {
	matches := lawReferencePattern.FindAllString(s, -1)
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}
