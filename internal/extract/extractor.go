// Package extract turns one filing document into an extraction outcome.
package extract

import (
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/ppiankov/itemone/internal/model"
	"github.com/ppiankov/itemone/internal/section"
	"github.com/rs/zerolog"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

var (
	// ErrUnreadable is returned when the document cannot be opened or read
	ErrUnreadable = errors.New("document unreadable")

	// ErrParse is returned when the document cannot be parsed or rendered
	ErrParse = errors.New("parse failure")
)

// sniffLen is how many leading bytes are used for content type sniffing
const sniffLen = 512

// Extractor dispatches documents to the plain text or markup path and
// isolates per-document failures
type Extractor struct {
	registry *Registry
	log      zerolog.Logger
}

// New creates an extractor from configuration
func New(cfg model.ExtractConfig, log zerolog.Logger) (*Extractor, error) {
	start, err := section.NewPhraseSet(cfg.StartPhrases)
	if err != nil {
		return nil, fmt.Errorf("start phrases: %w", err)
	}
	end, err := section.NewPhraseSet(cfg.EndPhrases)
	if err != nil {
		return nil, fmt.Errorf("end phrases: %w", err)
	}

	registry := NewRegistry(
		NewPlainTextAdapter(section.NewPlainTextLocator(start, end)),
		NewMarkupAdapter(section.NewMarkupLocator(start, end), section.NewNoiseFilter(cfg.Noise)),
	)

	return &Extractor{registry: registry, log: log}, nil
}

// Extract processes the document at path for the given filing.
// It never returns an error: failures are logged with the document identity
// and reported as a failed outcome carrying the canonical empty pair.
func (e *Extractor) Extract(d model.Descriptor, path string) (out model.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = e.fail(d, path, fmt.Errorf("%w: panic: %v", ErrParse, r))
		}
	}()

	content, err := ReadDocument(path)
	if err != nil {
		return e.fail(d, path, err)
	}

	head := content
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	adapter := e.registry.FindAdapter(path, head)

	outcome, err := adapter.Extract(content)
	if err != nil {
		return e.fail(d, path, err)
	}

	e.log.Debug().
		Str("symbol", d.Symbol).
		Str("path", path).
		Str("adapter", adapter.Name()).
		Str("status", string(outcome.Status)).
		Int("chars", len(outcome.Text)).
		Msg("extracted")

	return outcome
}

func (e *Extractor) fail(d model.Descriptor, path string, err error) model.Outcome {
	e.log.Warn().Err(err).Str("symbol", d.Symbol).Str("path", path).Msg("extraction failed")
	return model.Failed(err)
}

// dropInvalid removes bytes that are not valid UTF-8
var dropInvalid = runes.Remove(runes.Predicate(func(r rune) bool {
	return r == utf8.RuneError
}))

// ReadDocument reads a local document, dropping invalid UTF-8 sequences
func ReadDocument(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if utf8.Valid(data) {
		return data, nil
	}

	clean, _, err := transform.Bytes(dropInvalid, data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnreadable, err)
	}
	return clean, nil
}
