package model

import (
	"net/url"
	"path"
	"strings"
)

// Descriptor identifies one filing document to process
type Descriptor struct {
	Symbol    string `json:"symbol"`     // Filer identifier
	FinalLink string `json:"final_link"` // Remote reference the local file name is derived from
}

// FileName returns the basename of the document reference.
// Query strings and fragments are ignored when the reference is a URL.
func (d Descriptor) FileName() string {
	ref := strings.TrimSpace(d.FinalLink)
	if parsed, err := url.Parse(ref); err == nil && parsed.Path != "" {
		ref = parsed.Path
	}
	base := path.Base(ref)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

// FilingRecord is one dataset row with its extraction result
type FilingRecord struct {
	Descriptor
	Content    string        `json:"content"`          // Extracted section plain text
	HTMContent string        `json:"htm_content"`      // Cleaned section markup
	Status     OutcomeStatus `json:"status,omitempty"` // How the extraction ended
}

// OutcomeStatus tags an extraction outcome
type OutcomeStatus string

const (
	StatusFound    OutcomeStatus = "found"     // Both boundaries located, content produced
	StatusNotFound OutcomeStatus = "not_found" // Document readable, section absent
	StatusFailed   OutcomeStatus = "failed"    // Document unreadable or malformed
)

// Outcome is the result of extracting one document.
// Text and Markup are both empty unless Status is StatusFound.
type Outcome struct {
	Status OutcomeStatus
	Text   string
	Markup string
	Err    error
}

// Found builds a successful outcome. An empty text collapses to not-found
// so callers never see markup without text.
func Found(text, markup string) Outcome {
	if text == "" {
		return NotFound()
	}
	return Outcome{Status: StatusFound, Text: text, Markup: markup}
}

// NotFound is the canonical empty outcome for an absent section
func NotFound() Outcome {
	return Outcome{Status: StatusNotFound}
}

// Failed is the canonical empty outcome for a document that could not be processed
func Failed(err error) Outcome {
	return Outcome{Status: StatusFailed, Err: err}
}

// Apply writes the outcome into the record
func (r *FilingRecord) Apply(o Outcome) {
	r.Content = o.Text
	r.HTMContent = o.Markup
	r.Status = o.Status
}
