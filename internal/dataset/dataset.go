// Package dataset reads and writes the filing tables exchanged between commands.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/itemone/internal/model"
)

// Column names with a fixed meaning
const (
	ColSymbol        = "symbol"
	ColFinalLink     = "final_link"
	ColContent       = "content"
	ColHTMContent    = "htm_content"
	ColExtractStatus = "extract_status"
	ColDownloaded    = "htm_downloaded"
)

// ErrMissingColumn is returned when a required column is absent from the header
var ErrMissingColumn = errors.New("missing column")

// Table is a CSV table held in memory. Column order is preserved on write.
type Table struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

// ReadFile reads a table from a CSV file
func ReadFile(path string, required ...string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	t, err := Read(f, required...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Read reads a table from CSV. Short rows are padded, so every row has one
// cell per header column.
func Read(r io.Reader, required ...string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parse csv: no header row")
	}

	header := records[0]
	if len(header) > 0 {
		// Spreadsheet exports start with a byte order mark.
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := &Table{Header: header}
	t.reindex()

	for _, name := range required {
		if t.Column(name) == -1 {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	t.Rows = make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]string, len(header))
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Header))
	for i, name := range t.Header {
		if _, dup := t.index[name]; !dup {
			t.index[name] = i
		}
	}
}

// Len returns the number of data rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// Column returns the index of the named column, or -1
func (t *Table) Column(name string) int {
	if t.index == nil {
		t.reindex()
	}
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Get returns the named cell of row i, or "" when the column does not exist
func (t *Table) Get(i int, name string) string {
	c := t.Column(name)
	if c == -1 {
		return ""
	}
	return t.Rows[i][c]
}

// SetColumn overwrites the named column, appending it if it does not exist.
// values must have one entry per row.
func (t *Table) SetColumn(name string, values []string) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("column %s: %d values for %d rows", name, len(values), len(t.Rows))
	}

	c := t.Column(name)
	if c == -1 {
		t.Header = append(t.Header, name)
		t.reindex()
		c = len(t.Header) - 1
		for i := range t.Rows {
			t.Rows[i] = append(t.Rows[i], "")
		}
	}

	for i, v := range values {
		t.Rows[i][c] = v
	}
	return nil
}

// Descriptors returns the symbol and final link of every row, in row order
func (t *Table) Descriptors() []model.Descriptor {
	out := make([]model.Descriptor, len(t.Rows))
	for i := range t.Rows {
		out[i] = model.Descriptor{
			Symbol:    t.Get(i, ColSymbol),
			FinalLink: t.Get(i, ColFinalLink),
		}
	}
	return out
}

// Records returns one filing record per row. Other columns stay in the
// table and are written back untouched.
func (t *Table) Records() []model.FilingRecord {
	out := make([]model.FilingRecord, len(t.Rows))
	for i, row := range t.Rows {
		var rec model.FilingRecord
		for c, name := range t.Header {
			switch name {
			case ColSymbol:
				rec.Symbol = row[c]
			case ColFinalLink:
				rec.FinalLink = row[c]
			case ColContent:
				rec.Content = row[c]
			case ColHTMContent:
				rec.HTMContent = row[c]
			case ColExtractStatus:
				rec.Status = model.OutcomeStatus(row[c])
			}
		}
		out[i] = rec
	}
	return out
}

// SetRecords writes the content columns of records back into the table.
// The status column is only written when withStatus is set.
func (t *Table) SetRecords(records []model.FilingRecord, withStatus bool) error {
	content := make([]string, len(records))
	markup := make([]string, len(records))
	status := make([]string, len(records))
	for i, rec := range records {
		content[i] = rec.Content
		markup[i] = rec.HTMContent
		status[i] = string(rec.Status)
	}

	if err := t.SetColumn(ColContent, content); err != nil {
		return err
	}
	if err := t.SetColumn(ColHTMContent, markup); err != nil {
		return err
	}
	if withStatus {
		return t.SetColumn(ColExtractStatus, status)
	}
	return nil
}

// Write writes the table as CSV
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// WriteFile writes the table to path. The previous file, if any, is only
// replaced once the new one is complete.
func (t *Table) WriteFile(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := t.Write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
