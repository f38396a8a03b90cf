package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/itemone/internal/dataset"
	"github.com/ppiankov/itemone/internal/model"
	"github.com/ppiankov/itemone/internal/store"
)

func newViper() *viper.Viper {
	v := viper.New()
	configureViper(v)
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	c, err := loadConfig(newViper())
	require.NoError(t, err)

	def := model.DefaultConfig()
	assert.Equal(t, def.Extract.Workers, c.Extract.Workers)
	assert.Equal(t, def.Extract.StartPhrases, c.Extract.StartPhrases)
	assert.Equal(t, def.Extract.EndPhrases, c.Extract.EndPhrases)
	assert.Equal(t, 15*time.Second, c.Fetch.Timeout)
	assert.Equal(t, time.Second, c.Fetch.Pause)
	assert.Equal(t, []string{".htm", ".html"}, c.Audit.Extensions)
	assert.Equal(t, "filings.filings", c.Select.Table)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("ITEMONE_EXTRACT_WORKERS", "3")
	t.Setenv("ITEMONE_FETCH_PAUSE", "250ms")
	t.Setenv("PG_HOST", "db.internal")
	t.Setenv("PG_PASSWORD", "secret")
	t.Setenv("ITEMONE_METRICS_TEXTFILE", "/tmp/itemone.prom")

	c, err := loadConfig(newViper())
	require.NoError(t, err)

	assert.Equal(t, 3, c.Extract.Workers)
	assert.Equal(t, 250*time.Millisecond, c.Fetch.Pause)
	assert.Equal(t, "db.internal", c.Select.Host)
	assert.Equal(t, "secret", c.Select.Password)
	assert.Equal(t, "/tmp/itemone.prom", c.Metrics.Textfile)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
extract:
  base_dir: /data/edgar
  include_status: true
  end_phrases:
    - text: "item 2."
      mode: prefix
fetch:
  user_agent: "Acme Research admin@acme.com"
`), 0o644))

	v := newViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	c, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "/data/edgar", c.Extract.BaseDir)
	assert.True(t, c.Extract.IncludeStatus)
	assert.Equal(t, []model.PhraseRule{{Text: "item 2.", Mode: "prefix"}}, c.Extract.EndPhrases)
	assert.Equal(t, "Acme Research admin@acme.com", c.Fetch.UserAgent)
	assert.Equal(t, 8, c.Extract.Workers, "keys absent from the file keep their defaults")
}

func TestLoadConfig_RejectsZeroWorkers(t *testing.T) {
	t.Setenv("ITEMONE_EXTRACT_WORKERS", "0")
	_, err := loadConfig(newViper())
	assert.ErrorContains(t, err, "extract.workers")
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger(model.LogConfig{Level: "warn", Format: "json"}, false)
	assert.NoError(t, err)

	_, err = newLogger(model.LogConfig{Level: "loud"}, false)
	assert.Error(t, err)

	_, err = newLogger(model.LogConfig{Format: "xml"}, false)
	assert.Error(t, err)

	logger, err := newLogger(model.LogConfig{Level: "error"}, true)
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
}

func TestWriteConfig_MasksPassword(t *testing.T) {
	c := model.DefaultConfig()
	c.Select.Password = "hunter2"

	var buf bytes.Buffer
	require.NoError(t, writeConfig(&buf, c, true))
	assert.NotContains(t, buf.String(), "hunter2")
	assert.Contains(t, buf.String(), "********")
	assert.Equal(t, "hunter2", c.Select.Password, "the effective config is left untouched")
}

func TestInitConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".itemone", "config.yaml")
	require.NoError(t, initConfigFile(path))
	assert.Error(t, initConfigFile(path), "existing file is not overwritten")

	v := newViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	c, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig().Extract, c.Extract)
}

const acmeFiling = `<html><body>
<p><b>Item 1. Business</b></p>
<p>Acme Corp. makes anvils.</p>
<p><b>Item 1A. Risk Factors</b></p>
<p>Anvils are heavy.</p>
</body></html>`

func TestExtractDataset(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "downloads")
	_, err := store.New(base).Save(model.Descriptor{Symbol: "ACME", FinalLink: "acme.htm"}, bytes.NewReader([]byte(acmeFiling)))
	require.NoError(t, err)

	input := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(input, []byte(
		"symbol,filing_date,final_link\n"+
			"ACME,2024-02-01,https://example.com/x/acme.htm\n"+
			"GONE,2024-02-02,https://example.com/x/gone.htm\n"), 0o644))

	ec := model.DefaultConfig().Extract
	ec.Input = input
	ec.Output = filepath.Join(dir, "out.csv")
	ec.BaseDir = base
	ec.Workers = 2
	ec.IncludeStatus = true

	summary, err := extractDataset(context.Background(), ec, zerolog.Nop(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Rows)
	assert.Equal(t, 1, summary.Found)
	assert.Equal(t, 1, summary.Failed)

	out, err := dataset.ReadFile(ec.Output)
	require.NoError(t, err)
	assert.Equal(t, []string{"symbol", "filing_date", "final_link", "content", "htm_content", "extract_status"}, out.Header)
	require.Equal(t, 2, out.Len())

	assert.Equal(t, "ACME", out.Get(0, dataset.ColSymbol))
	assert.Equal(t, "2024-02-01", out.Get(0, "filing_date"))
	assert.Contains(t, out.Get(0, dataset.ColContent), "Acme Corp. makes anvils.")
	assert.NotContains(t, out.Get(0, dataset.ColContent), "Anvils are heavy")
	assert.Contains(t, out.Get(0, dataset.ColHTMContent), "Acme Corp. makes anvils.")
	assert.Equal(t, "found", out.Get(0, dataset.ColExtractStatus))

	assert.Empty(t, out.Get(1, dataset.ColContent))
	assert.Empty(t, out.Get(1, dataset.ColHTMContent))
	assert.Equal(t, "failed", out.Get(1, dataset.ColExtractStatus))
}

func TestExtractDataset_MissingInput(t *testing.T) {
	ec := model.DefaultConfig().Extract
	ec.Input = filepath.Join(t.TempDir(), "missing.csv")
	ec.Output = filepath.Join(t.TempDir(), "out.csv")

	_, err := extractDataset(context.Background(), ec, zerolog.Nop(), nil)
	require.Error(t, err)
	_, statErr := os.Stat(ec.Output)
	assert.True(t, os.IsNotExist(statErr), "no output on failure")
}

func TestFetchDataset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/docs/acme.htm" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(acmeFiling))
	}))
	defer srv.Close()

	dir := t.TempDir()
	input := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(input, []byte(
		"symbol,final_link\n"+
			"ACME,"+srv.URL+"/docs/acme.htm\n"+
			"LOCAL,acme.htm\n"), 0o644))

	fc := model.DefaultConfig().Fetch
	fc.Input = input
	fc.Output = filepath.Join(dir, "out.csv")
	fc.RespectRobots = false
	fc.PauseEvery = 0
	fc.RequestsPerSecond = 0

	st := store.New(filepath.Join(dir, "downloads"))
	done, total, err := fetchDataset(context.Background(), fc, st, zerolog.Nop(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, done)
	assert.Equal(t, 2, total)

	assert.True(t, st.Exists(model.Descriptor{Symbol: "ACME", FinalLink: srv.URL + "/docs/acme.htm"}))

	out, err := dataset.ReadFile(fc.Output)
	require.NoError(t, err)
	assert.Equal(t, []string{"symbol", "final_link", "htm_downloaded"}, out.Header)
	assert.Equal(t, "done", out.Get(0, dataset.ColDownloaded))
	assert.Equal(t, "", out.Get(1, dataset.ColDownloaded))
}
