package extract

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ppiankov/itemone/internal/model"
	"github.com/ppiankov/itemone/internal/section"
	"golang.org/x/net/html"
)

// Adapter extracts the business section from one kind of document
type Adapter interface {
	// Name returns the adapter name
	Name() string

	// CanHandle checks if this adapter can handle the given file
	CanHandle(path string, head []byte) bool

	// Extract extracts the section from the document content
	Extract(content []byte) (model.Outcome, error)
}

// Registry picks the adapter for a document
type Registry struct {
	adapters []Adapter
	generic  Adapter
}

// NewRegistry creates a registry with the plain text adapter and the markup
// adapter as fallback for everything else
func NewRegistry(plain *PlainTextAdapter, markup *MarkupAdapter) *Registry {
	return &Registry{
		adapters: []Adapter{plain},
		generic:  markup,
	}
}

// FindAdapter finds the adapter for the given file
func (r *Registry) FindAdapter(path string, head []byte) Adapter {
	for _, adapter := range r.adapters {
		if adapter.CanHandle(path, head) {
			return adapter
		}
	}
	return r.generic
}

// markupExtensions always take the markup path, even if sniffing disagrees
var markupExtensions = map[string]bool{
	".htm":   true,
	".html":  true,
	".xhtml": true,
	".xml":   true,
}

// PlainTextAdapter handles .txt filings and files that sniff as plain text
type PlainTextAdapter struct {
	locator *section.PlainTextLocator
}

// NewPlainTextAdapter creates a plain text adapter
func NewPlainTextAdapter(locator *section.PlainTextLocator) *PlainTextAdapter {
	return &PlainTextAdapter{locator: locator}
}

// Name returns the adapter name
func (a *PlainTextAdapter) Name() string {
	return "text"
}

// CanHandle matches .txt by extension. Unknown extensions are sniffed.
func (a *PlainTextAdapter) CanHandle(path string, head []byte) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".txt" {
		return true
	}
	if markupExtensions[ext] || len(head) == 0 {
		return false
	}
	return strings.HasPrefix(http.DetectContentType(head), "text/plain")
}

// Extract runs the plain text locator
func (a *PlainTextAdapter) Extract(content []byte) (model.Outcome, error) {
	text, markup := a.locator.Extract(string(content))
	return model.Found(text, markup), nil
}

// MarkupAdapter handles HTML and XML-ish filings
type MarkupAdapter struct {
	locator *section.MarkupLocator
	noise   *section.NoiseFilter
}

// NewMarkupAdapter creates a markup adapter
func NewMarkupAdapter(locator *section.MarkupLocator, noise *section.NoiseFilter) *MarkupAdapter {
	return &MarkupAdapter{locator: locator, noise: noise}
}

// Name returns the adapter name
func (a *MarkupAdapter) Name() string {
	return "markup"
}

// CanHandle always returns true (fallback adapter)
func (a *MarkupAdapter) CanHandle(path string, head []byte) bool {
	return true
}

// Extract locates the section, drops noise paragraphs and renders the
// remaining elements as markup and as plain text
func (a *MarkupAdapter) Extract(content []byte) (model.Outcome, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return model.Outcome{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	candidates := section.Flatten(doc)
	boundary, ok := a.locator.Locate(candidates)
	if !ok {
		return model.NotFound(), nil
	}

	nodes := a.noise.Apply(candidates.Slice(boundary))

	markup, err := section.Markup(nodes)
	if err != nil {
		return model.Outcome{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	return model.Found(section.Text(nodes), markup), nil
}
