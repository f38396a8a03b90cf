package section

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// candidateSelector lists the element kinds that can carry a section header
const candidateSelector = "div, p, span"

// Boundary is a [Start, End) range over the candidate element sequence
type Boundary struct {
	Start int
	End   int
}

// Valid reports whether the boundary describes a non-empty range
func (b Boundary) Valid() bool {
	return b.Start >= 0 && b.End > b.Start
}

// notFound is the boundary returned when either header is missing
var notFound = Boundary{Start: -1, End: -1}

// Candidates is the flattened document-order sequence of div/p/span elements
type Candidates struct {
	Nodes []*html.Node

	// linked marks elements with an <a> descendant (table of contents entries)
	linked map[*html.Node]bool
}

// Flatten collects candidate elements of a parsed document in document order
func Flatten(doc *html.Node) *Candidates {
	root := goquery.NewDocumentFromNode(doc)

	c := &Candidates{
		Nodes:  root.Find(candidateSelector).Nodes,
		linked: make(map[*html.Node]bool),
	}

	// Mark every ancestor of every anchor once; stop climbing at the first
	// ancestor already marked since everything above it is marked too.
	root.Find("a").Each(func(_ int, s *goquery.Selection) {
		for p := s.Get(0).Parent; p != nil && !c.linked[p]; p = p.Parent {
			c.linked[p] = true
		}
	})

	return c
}

// HasLink reports whether the element at index i contains a hyperlink
func (c *Candidates) HasLink(i int) bool {
	return c.linked[c.Nodes[i]]
}

// Len returns the number of candidate elements
func (c *Candidates) Len() int {
	return len(c.Nodes)
}

// MarkupLocator finds section boundaries in a candidate sequence
type MarkupLocator struct {
	start *PhraseSet
	end   *PhraseSet
}

// NewMarkupLocator creates a locator for the given start and end predicates
func NewMarkupLocator(start, end *PhraseSet) *MarkupLocator {
	return &MarkupLocator{start: start, end: end}
}

// Locate scans the candidates for the first start header and the first end
// header after it. Elements containing hyperlinks are never considered.
// The second return value is false when no valid boundary exists.
func (l *MarkupLocator) Locate(c *Candidates) (Boundary, bool) {
	b := notFound

	for i, n := range c.Nodes {
		if c.HasLink(i) {
			continue
		}

		norm := Normalize(OwnText(n))
		if norm == "" {
			continue
		}

		if b.Start == -1 {
			if l.start.Match(norm) {
				b.Start = i
			}
			continue
		}

		if l.end.Match(norm) {
			b.End = i
			break
		}
	}

	if !b.Valid() {
		return notFound, false
	}
	return b, true
}

// OwnText returns the text of an element without the text of nested
// candidate elements, which are visited on their own during the scan.
func OwnText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				buf.WriteString(c.Data)
			case html.ElementNode:
				if isCandidate(c) || c.DataAtom == atom.Script || c.DataAtom == atom.Style {
					continue
				}
				walk(c)
			}
		}
	}
	walk(n)

	return buf.String()
}

func isCandidate(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Div, atom.P, atom.Span:
		return true
	}
	return false
}
