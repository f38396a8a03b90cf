package section

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ppiankov/itemone/internal/model"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NoiseFilter drops running header/footer paragraphs: a <p> is noise only when
// its inline style declares the decorative font size AND it is centered.
type NoiseFilter struct {
	fontSize string // normalized "font-size:<value>" declaration
	align    string
}

// NewNoiseFilter creates a filter from configuration.
// An empty font size or alignment disables the filter.
func NewNoiseFilter(cfg model.NoiseConfig) *NoiseFilter {
	f := &NoiseFilter{align: strings.ToLower(strings.TrimSpace(cfg.Align))}
	if size := compactStyle(cfg.FontSize); size != "" {
		f.fontSize = "font-size:" + size
	}
	return f
}

// IsNoise reports whether n is a decorative paragraph
func (f *NoiseFilter) IsNoise(n *html.Node) bool {
	if f.fontSize == "" || f.align == "" {
		return false
	}
	if n.Type != html.ElementNode || n.DataAtom != atom.P {
		return false
	}

	style := compactStyle(attr(n, "style"))
	align := strings.ToLower(attr(n, "align"))

	return strings.Contains(style, f.fontSize) && strings.Contains(align, f.align)
}

// Apply returns deep copies of nodes with every noise paragraph removed,
// at any depth. The input nodes are left untouched.
func (f *NoiseFilter) Apply(nodes []*html.Node) []*html.Node {
	root := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	for _, n := range nodes {
		for _, cp := range goquery.NewDocumentFromNode(n).Clone().Nodes {
			root.AppendChild(cp)
		}
	}

	goquery.NewDocumentFromNode(root).
		Find("p").
		FilterFunction(func(_ int, s *goquery.Selection) bool {
			return f.IsNoise(s.Get(0))
		}).
		Remove()

	var out []*html.Node
	for c := root.FirstChild; c != nil; {
		next := c.NextSibling
		root.RemoveChild(c)
		out = append(out, c)
		c = next
	}
	return out
}

// compactStyle lowercases a style value and drops all whitespace so
// "Font-Size: 8.5pt" and "font-size:8.5pt" compare equal.
func compactStyle(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
