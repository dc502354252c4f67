package shared

import (
	"strings"

	"golang.org/x/net/html"
)

// ParseDocument parses raw HTML bytes into a DOM tree.
func ParseDocument(raw []byte) (*html.Node, error) {
	return html.Parse(strings.NewReader(string(raw)))
}

// Tables returns every <table> element in doc, in document order.
func Tables(doc *html.Node) []*html.Node {
	var tables []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "table" {
			tables = append(tables, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return tables
}

// Rows returns every <tr> that is a direct or indirect descendant of table.
func Rows(table *html.Node) []*html.Node {
	var rows []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			rows = append(rows, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)
	return rows
}

// Cells returns every <td> or <th> that is a direct or indirect
// descendant of row, in document order.
func Cells(row *html.Node) []*html.Node {
	var cells []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "td" || n.Data == "th") {
			cells = append(cells, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(row)
	return cells
}

// TextContent concatenates every text node under n, in document order.
// html.Parse already decodes HTML entities into their literal text, so
// no separate entity-decoding step is needed downstream.
func TextContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// HeaderContainsAny reports whether row's cell text contains any of terms
// (case-insensitive), used to identify a table's header row (spec.md
// §4.2's "table discovery").
func HeaderContainsAny(row *html.Node, terms []string) bool {
	text := strings.ToLower(rowText(row))
	for _, term := range terms {
		if strings.Contains(text, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

func rowText(row *html.Node) string {
	var b strings.Builder
	for _, cell := range Cells(row) {
		b.WriteString(TextContent(cell))
		b.WriteString(" ")
	}
	return b.String()
}

// FindAttr returns the value of attribute key on n, and whether it was present.
func FindAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
