package extract

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/itemone/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const filingHTML = `<html><body>
<div><a href="#i1">Item 1. Business</a></div>
<div><a href="#i1a">Item 1A. Risk Factors</a></div>
<div><span style="font-weight:bold">ITEM 1.&#160;BUSINESS</span></div>
<p>Acme Corp. makes anvils.</p>
<p style="font-size:8.5pt" align="center">Acme | 2024 Form 10-K | 4</p>
<div><p>We sell to <b>coyotes</b> worldwide.</p></div>
<div><span style="font-weight:bold">ITEM 1A. RISK FACTORS</span></div>
<p>Anvils are heavy.</p>
</body></html>`

func newExtractor(t *testing.T, buf *bytes.Buffer) *Extractor {
	t.Helper()
	e, err := New(model.DefaultConfig().Extract, zerolog.New(buf).Level(zerolog.InfoLevel))
	require.NoError(t, err)
	return e
}

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestExtractor_Markup(t *testing.T) {
	var buf bytes.Buffer
	e := newExtractor(t, &buf)
	path := writeFile(t, t.TempDir(), "acme-10k.htm", []byte(filingHTML))

	out := e.Extract(model.Descriptor{Symbol: "ACME"}, path)

	require.Equal(t, model.StatusFound, out.Status)
	assert.NoError(t, out.Err)
	assert.Equal(t, "ITEM 1. BUSINESS\nAcme Corp. makes anvils.\nWe sell to coyotes worldwide.", out.Text)
	assert.Contains(t, out.Markup, "<b>coyotes</b>")
	assert.NotContains(t, out.Markup, "Form 10-K | 4", "noise paragraph must be removed")
	assert.NotContains(t, out.Markup, "RISK FACTORS")
	assert.NotContains(t, out.Text, "Anvils are heavy")
	assert.Empty(t, buf.String(), "success logs only at debug level")
}

func TestExtractor_PlainText(t *testing.T) {
	var buf bytes.Buffer
	e := newExtractor(t, &buf)

	text := "TABLE OF CONTENTS\n\nItem 1. Business\n\nAcme makes anvils.\n\nItem 1A. Risk Factors\nHeavy."
	path := writeFile(t, t.TempDir(), "acme.TXT", []byte(text))

	out := e.Extract(model.Descriptor{Symbol: "ACME"}, path)
	require.Equal(t, model.StatusFound, out.Status)
	assert.Equal(t, "Item 1. Business\n\nAcme makes anvils.", out.Text)
	assert.Empty(t, out.Markup)
}

func TestExtractor_NotFound(t *testing.T) {
	var buf bytes.Buffer
	e := newExtractor(t, &buf)
	path := writeFile(t, t.TempDir(), "empty.htm", []byte("<html><body><p>Nothing to see</p></body></html>"))

	out := e.Extract(model.Descriptor{Symbol: "NONE"}, path)
	assert.Equal(t, model.NotFound(), out)
	assert.Empty(t, buf.String(), "not-found is not a diagnostic")
}

func TestExtractor_MissingFile(t *testing.T) {
	var buf bytes.Buffer
	e := newExtractor(t, &buf)
	path := filepath.Join(t.TempDir(), "MISSING", "nope.htm")

	out := e.Extract(model.Descriptor{Symbol: "MISSING"}, path)

	assert.Equal(t, model.StatusFailed, out.Status)
	assert.True(t, errors.Is(out.Err, ErrUnreadable))
	assert.Empty(t, out.Text)
	assert.Empty(t, out.Markup)
	assert.Contains(t, buf.String(), "extraction failed")
	assert.Contains(t, buf.String(), `"symbol":"MISSING"`)
}

func TestExtractor_DirectoryIsUnreadable(t *testing.T) {
	var buf bytes.Buffer
	e := newExtractor(t, &buf)

	out := e.Extract(model.Descriptor{Symbol: "DIR"}, t.TempDir())
	assert.Equal(t, model.StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, ErrUnreadable)
}

type panicAdapter struct{}

func (panicAdapter) Name() string { return "panic" }

func (panicAdapter) CanHandle(string, []byte) bool { return true }

func (panicAdapter) Extract([]byte) (model.Outcome, error) { panic("boom") }

func TestExtractor_RecoversFromPanic(t *testing.T) {
	var buf bytes.Buffer
	e := newExtractor(t, &buf)
	e.registry.adapters = []Adapter{panicAdapter{}}

	path := writeFile(t, t.TempDir(), "x.htm", []byte(filingHTML))
	out := e.Extract(model.Descriptor{Symbol: "PANIC"}, path)

	assert.Equal(t, model.StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, ErrParse)
	assert.Contains(t, buf.String(), "boom")
}

func TestExtractor_SniffsUnknownExtension(t *testing.T) {
	var buf bytes.Buffer
	e := newExtractor(t, &buf)
	dir := t.TempDir()

	plain := writeFile(t, dir, "filing.dat", []byte("ITEM 1. BUSINESS\nplain body\nITEM 1A."))
	markup := writeFile(t, dir, "filing.bin", []byte(filingHTML))

	out := e.Extract(model.Descriptor{Symbol: "P"}, plain)
	require.Equal(t, model.StatusFound, out.Status)
	assert.Empty(t, out.Markup)
	assert.Equal(t, "ITEM 1. BUSINESS\nplain body", out.Text)

	out = e.Extract(model.Descriptor{Symbol: "M"}, markup)
	require.Equal(t, model.StatusFound, out.Status)
	assert.NotEmpty(t, out.Markup)
}

func TestNew_RejectsBadPhrases(t *testing.T) {
	cfg := model.DefaultConfig().Extract
	cfg.EndPhrases = nil

	_, err := New(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestReadDocument_DropsInvalidUTF8(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.txt", []byte("Item 1.\xff Business\xfe"))

	data, err := ReadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "Item 1. Business", string(data))
}

func TestRegistry_FindAdapter(t *testing.T) {
	e, err := New(model.DefaultConfig().Extract, zerolog.Nop())
	require.NoError(t, err)

	tests := []struct {
		path string
		head string
		want string
	}{
		{"a/b/doc.txt", "<html>", "text"},
		{"a/b/doc.htm", "plain words", "markup"},
		{"a/b/doc.HTML", "", "markup"},
		{"a/b/doc", "plain words only", "text"},
		{"a/b/doc", "<!DOCTYPE html><html>", "markup"},
	}

	for _, tt := range tests {
		t.Run(tt.path+"/"+tt.head, func(t *testing.T) {
			got := e.registry.FindAdapter(tt.path, []byte(tt.head))
			assert.Equal(t, tt.want, got.Name())
		})
	}
}

func TestExtractor_OutputIsNotNormalized(t *testing.T) {
	e, err := New(model.DefaultConfig().Extract, zerolog.Nop())
	require.NoError(t, err)

	src := strings.Replace(filingHTML, "Acme Corp. makes anvils.", "ACME Corp. Makes Anvils.", 1)
	path := writeFile(t, t.TempDir(), "case.htm", []byte(src))

	out := e.Extract(model.Descriptor{Symbol: "ACME"}, path)
	assert.Contains(t, out.Text, "ACME Corp. Makes Anvils.")
}
