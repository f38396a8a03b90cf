// Package audit reports filer folders that cannot feed the extraction step.
package audit

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ppiankov/itemone/internal/store"
)

// Report lists problem folders by symbol, sorted
type Report struct {
	Folders       int      `json:"folders" yaml:"folders"`
	Empty         []string `json:"empty" yaml:"empty"`                   // no entries at all
	WithoutMarkup []string `json:"without_markup" yaml:"without_markup"` // no file with a markup extension (includes empty folders)
}

// Run audits every filer folder in the store. extensions are matched
// case-insensitively, with or without the leading dot.
func Run(st *store.Store, extensions []string) (*Report, error) {
	if len(extensions) == 0 {
		return nil, fmt.Errorf("no markup extensions configured")
	}

	want := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		want[ext] = true
	}

	folders, err := st.Folders()
	if err != nil {
		return nil, err
	}

	report := &Report{
		Folders:       len(folders),
		Empty:         []string{},
		WithoutMarkup: []string{},
	}
	for _, f := range folders {
		if f.Entries == 0 {
			report.Empty = append(report.Empty, f.Symbol)
		}
		if !hasMarkup(f.Files, want) {
			report.WithoutMarkup = append(report.WithoutMarkup, f.Symbol)
		}
	}

	return report, nil
}

func hasMarkup(files []string, want map[string]bool) bool {
	for _, name := range files {
		if want[strings.ToLower(filepath.Ext(name))] {
			return true
		}
	}
	return false
}
