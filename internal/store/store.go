// Package store maps filings to their local documents under
// base_dir/symbol/basename(final_link).
package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/itemone/internal/model"
)

// ErrInvalidDescriptor is returned when a filing cannot be mapped to a local path
var ErrInvalidDescriptor = errors.New("invalid descriptor")

// Store is the on-disk layout of downloaded filings
type Store struct {
	dir string
}

// New creates a store rooted at dir
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the base directory
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the local path of the filing's document.
// Symbols that would escape the base directory are rejected.
func (s *Store) Path(d model.Descriptor) (string, error) {
	symbol := strings.TrimSpace(d.Symbol)
	if symbol == "" || symbol == "." || symbol == ".." || strings.ContainsAny(symbol, `/\`) {
		return "", fmt.Errorf("%w: symbol %q", ErrInvalidDescriptor, d.Symbol)
	}

	name := d.FileName()
	if name == "" || name == ".." {
		return "", fmt.Errorf("%w: final_link %q", ErrInvalidDescriptor, d.FinalLink)
	}

	return filepath.Join(s.dir, symbol, name), nil
}

// Exists reports whether the filing's document is already on disk
func (s *Store) Exists(d model.Descriptor) bool {
	path, err := s.Path(d)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Save writes the document from r and returns the number of bytes written.
// The file appears under its final name only once fully written.
func (s *Store) Save(d model.Descriptor, r io.Reader) (int64, error) {
	path, err := s.Path(d)
	if err != nil {
		return 0, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("create filer dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	n, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return n, fmt.Errorf("write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("close document: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return n, fmt.Errorf("rename document: %w", err)
	}

	return n, nil
}

// Folder is one filer directory and the regular files directly inside it
type Folder struct {
	Symbol  string
	Path    string
	Files   []string
	Entries int // all entries, including subdirectories
}

// Folders lists the filer directories under the base directory, sorted by symbol
func (s *Store) Folders() ([]Folder, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read base dir: %w", err)
	}

	var folders []Folder
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		files, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("read filer dir %s: %w", entry.Name(), err)
		}

		folder := Folder{Symbol: entry.Name(), Path: path, Entries: len(files)}
		for _, f := range files {
			if f.Type().IsRegular() {
				folder.Files = append(folder.Files, f.Name())
			}
		}
		folders = append(folders, folder)
	}

	sort.Slice(folders, func(i, j int) bool {
		return folders[i].Symbol < folders[j].Symbol
	})

	return folders, nil
}
