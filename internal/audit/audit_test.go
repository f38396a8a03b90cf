package audit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/itemone/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkdir(t *testing.T, parts ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(parts...), 0755))
}

func touch(t *testing.T, parts ...string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(parts...), []byte("x"), 0644))
}

func TestRun(t *testing.T) {
	base := t.TempDir()

	mkdir(t, base, "AAPL")
	touch(t, base, "AAPL", "aapl-20230930.htm")

	mkdir(t, base, "MSFT")
	touch(t, base, "MSFT", "msft-10k.HTML")

	mkdir(t, base, "EMPTY")

	mkdir(t, base, "TXT")
	touch(t, base, "TXT", "filing.txt")

	mkdir(t, base, "NESTED", "sub")

	touch(t, base, "notes.csv")

	report, err := Run(store.New(base), []string{".htm", "html"})
	require.NoError(t, err)

	assert.Equal(t, 5, report.Folders)
	assert.Equal(t, []string{"EMPTY"}, report.Empty)
	assert.Equal(t, []string{"EMPTY", "NESTED", "TXT"}, report.WithoutMarkup)
}

func TestRun_CleanTree(t *testing.T) {
	base := t.TempDir()
	mkdir(t, base, "A")
	touch(t, base, "A", "a.htm")

	report, err := Run(store.New(base), []string{".htm"})
	require.NoError(t, err)
	assert.Empty(t, report.Empty)
	assert.Empty(t, report.WithoutMarkup)
}

func TestRun_Errors(t *testing.T) {
	_, err := Run(store.New(t.TempDir()), nil)
	assert.Error(t, err)

	_, err = Run(store.New(filepath.Join(t.TempDir(), "missing")), []string{".htm"})
	assert.Error(t, err)
}
