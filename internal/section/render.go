package section

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Slice returns detached copies of the document between the start header
// (inclusive) and the end header (exclusive).
//
// The first copy is rooted at the outermost candidate enclosing the start
// header, trimmed to what follows the header, so text sitting next to the
// header in a shared parent is kept. After that only top-most candidates are
// copied, since nested candidates are already part of their ancestor's copy,
// and every copy is cut at the end header.
func (c *Candidates) Slice(b Boundary) []*html.Node {
	if !b.Valid() || b.End >= len(c.Nodes) {
		return nil
	}

	in := make(map[*html.Node]bool, b.End-b.Start)
	for _, n := range c.Nodes[b.Start:b.End] {
		in[n] = true
	}

	start := c.Nodes[b.Start]
	stop := c.Nodes[b.End]
	root := enclosing(start)

	var out []*html.Node
	cp, _, stopped := cloneRange(root, start, stop, false)
	if cp != nil {
		out = append(out, cp)
	}
	if stopped {
		return out
	}

	for _, n := range c.Nodes[b.Start+1 : b.End] {
		if contains(root, n) || hasAncestorIn(n, in) {
			continue
		}
		cp, stopped := cloneBefore(n, stop)
		if cp != nil {
			out = append(out, cp)
		}
		if stopped {
			break
		}
	}
	return out
}

// enclosing returns the outermost candidate ancestor of n, or n itself
func enclosing(n *html.Node) *html.Node {
	root := n
	for p := n.Parent; p != nil; p = p.Parent {
		if isCandidate(p) {
			root = p
		}
	}
	return root
}

// contains reports whether n is a proper descendant of ancestor
func contains(ancestor, n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

func hasAncestorIn(n *html.Node, set map[*html.Node]bool) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if set[p] {
			return true
		}
	}
	return false
}

// cloneRange deep-copies the part of n that lies at or after start and before
// stop in document order. started carries whether start was already passed.
// It returns the copy (nil when nothing of n is in range), the updated
// started flag and whether stop was reached.
func cloneRange(n, start, stop *html.Node, started bool) (*html.Node, bool, bool) {
	if started || n == start {
		cp, stopped := cloneBefore(n, stop)
		return cp, true, stopped
	}
	if !contains(n, start) {
		return nil, false, false
	}

	cp := shallowCopy(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		child, s, stopped := cloneRange(c, start, stop, started)
		started = s
		if child != nil {
			cp.AppendChild(child)
		}
		if stopped {
			return cp, started, true
		}
	}
	return cp, started, false
}

// cloneBefore deep-copies n up to, but excluding, stop in document order.
// The boolean reports whether stop was reached. An ancestor of stop left
// without content is dropped.
func cloneBefore(n, stop *html.Node) (*html.Node, bool) {
	if n == stop {
		return nil, true
	}

	cp := shallowCopy(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		child, stopped := cloneBefore(c, stop)
		if child != nil {
			cp.AppendChild(child)
		}
		if stopped {
			if cp.FirstChild == nil {
				return nil, true
			}
			return cp, true
		}
	}
	return cp, false
}

func shallowCopy(n *html.Node) *html.Node {
	return &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
}

// Markup serializes nodes back to HTML, in order
func Markup(nodes []*html.Node) (string, error) {
	var buf strings.Builder
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("render markup: %w", err)
		}
	}
	return strings.TrimSpace(buf.String()), nil
}

// Text flattens nodes to plain text: one line per block-level element,
// whitespace collapsed inside a line, empty lines dropped.
func Text(nodes []*html.Node) string {
	var lines []string
	var cur strings.Builder

	flush := func() {
		if line := strings.Join(strings.Fields(cur.String()), " "); line != "" {
			lines = append(lines, line)
		}
		cur.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			cur.WriteString(n.Data)
			return
		case html.CommentNode:
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style:
				return
			case atom.Br, atom.Hr:
				flush()
				return
			}
		}

		block := isBlock(n)
		if block {
			flush()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			flush()
		}
	}

	for _, n := range nodes {
		walk(n)
		flush()
	}
	return strings.Join(lines, "\n")
}

func isBlock(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Div, atom.P, atom.Li, atom.Ul, atom.Ol, atom.Table, atom.Tr, atom.Td, atom.Th,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Blockquote, atom.Pre, atom.Section, atom.Article, atom.Center, atom.Body:
		return true
	}
	return false
}
