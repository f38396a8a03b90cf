package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/itemone/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Path(t *testing.T) {
	s := New("downloads")

	tests := []struct {
		name string
		d    model.Descriptor
		want string
		err  bool
	}{
		{
			name: "url",
			d:    model.Descriptor{Symbol: "AAPL", FinalLink: "https://www.sec.gov/Archives/edgar/data/320193/aapl-20230930.htm"},
			want: filepath.Join("downloads", "AAPL", "aapl-20230930.htm"),
		},
		{
			name: "query ignored",
			d:    model.Descriptor{Symbol: "MSFT", FinalLink: "https://example.com/a/msft-10k.htm?x=1#top"},
			want: filepath.Join("downloads", "MSFT", "msft-10k.htm"),
		},
		{
			name: "bare file name",
			d:    model.Descriptor{Symbol: "IBM", FinalLink: "ibm.txt"},
			want: filepath.Join("downloads", "IBM", "ibm.txt"),
		},
		{name: "empty symbol", d: model.Descriptor{FinalLink: "https://example.com/a.htm"}, err: true},
		{name: "traversal symbol", d: model.Descriptor{Symbol: "../etc", FinalLink: "https://example.com/a.htm"}, err: true},
		{name: "dot symbol", d: model.Descriptor{Symbol: "..", FinalLink: "https://example.com/a.htm"}, err: true},
		{name: "no file name", d: model.Descriptor{Symbol: "X", FinalLink: "https://example.com/"}, err: true},
		{name: "empty link", d: model.Descriptor{Symbol: "X"}, err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Path(tt.d)
			if tt.err {
				assert.True(t, errors.Is(err, ErrInvalidDescriptor), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStore_SaveAndExists(t *testing.T) {
	s := New(t.TempDir())
	d := model.Descriptor{Symbol: "ACME", FinalLink: "https://example.com/x/acme.htm"}

	assert.False(t, s.Exists(d))

	n, err := s.Save(d, strings.NewReader("<html>acme</html>"))
	require.NoError(t, err)
	assert.Equal(t, int64(17), n)
	assert.True(t, s.Exists(d))

	path, err := s.Path(d)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<html>acme</html>", string(data))

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestStore_SaveFailureLeavesNothing(t *testing.T) {
	s := New(t.TempDir())
	d := model.Descriptor{Symbol: "ACME", FinalLink: "acme.htm"}

	_, err := s.Save(d, failingReader{})
	require.Error(t, err)
	assert.False(t, s.Exists(d))

	entries, err := os.ReadDir(filepath.Join(s.Dir(), "ACME"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_ExistsIgnoresDirectories(t *testing.T) {
	s := New(t.TempDir())
	d := model.Descriptor{Symbol: "ACME", FinalLink: "acme.htm"}
	require.NoError(t, os.MkdirAll(filepath.Join(s.Dir(), "ACME", "acme.htm"), 0755))
	assert.False(t, s.Exists(d))
}

func TestStore_Folders(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "ZETA"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "ALPHA", "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ALPHA", "a.htm"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stray.csv"), []byte("x"), 0644))

	folders, err := New(dir).Folders()
	require.NoError(t, err)
	require.Len(t, folders, 2)

	assert.Equal(t, "ALPHA", folders[0].Symbol)
	assert.Equal(t, []string{"a.htm"}, folders[0].Files)
	assert.Equal(t, 2, folders[0].Entries)
	assert.Equal(t, "ZETA", folders[1].Symbol)
	assert.Empty(t, folders[1].Files)
}

func TestStore_FoldersMissingBase(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope")).Folders()
	assert.Error(t, err)
}
