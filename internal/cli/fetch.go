package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/itemone/internal/dataset"
	"github.com/ppiankov/itemone/internal/fetch"
	"github.com/ppiankov/itemone/internal/metrics"
	"github.com/ppiankov/itemone/internal/model"
	"github.com/ppiankov/itemone/internal/store"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download filing documents into the local store",
	Long: `Fetch downloads the document behind every final_link of the input dataset
to <base-dir>/<symbol>/<file name>, one row at a time:
- Rows without an http(s) link are skipped
- Documents already on disk are never downloaded again
- Requests are rate limited per host, with a pause every N downloads
- robots.txt is honoured unless disabled

The input is written back with an htm_downloaded column ("done" or empty).

Example:
  itemone fetch
  itemone fetch --input latest_10k_filings.csv --output latest_10k_filings_status.csv
  itemone fetch --user-agent "Acme Research admin@acme.com"`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().String("input", "", "input dataset (CSV with symbol and final_link columns)")
	fetchCmd.Flags().String("output", "", "output dataset with the htm_downloaded column")
	fetchCmd.Flags().String("user-agent", "", "HTTP User-Agent (SEC requires a contact address)")
	fetchCmd.Flags().String("http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	fetchCmd.Flags().String("https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	fetchCmd.Flags().Bool("respect-robots", true, "honour robots.txt")

	_ = viper.BindPFlag("fetch.input", fetchCmd.Flags().Lookup("input"))
	_ = viper.BindPFlag("fetch.output", fetchCmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("fetch.user_agent", fetchCmd.Flags().Lookup("user-agent"))
	_ = viper.BindPFlag("fetch.http_proxy", fetchCmd.Flags().Lookup("http-proxy"))
	_ = viper.BindPFlag("fetch.https_proxy", fetchCmd.Flags().Lookup("https-proxy"))
	_ = viper.BindPFlag("fetch.respect_robots", fetchCmd.Flags().Lookup("respect-robots"))
}

func runFetch(cmd *cobra.Command, args []string) error {
	fc := cfg.Fetch

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  itemone fetch\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input:      %s\n", fc.Input)
	fmt.Fprintf(os.Stderr, "  Store:      %s\n", cfg.Extract.BaseDir)
	fmt.Fprintf(os.Stderr, "  Rate:       %.1f req/s, pause %v every %d\n", fc.RequestsPerSecond, fc.Pause, fc.PauseEvery)
	fmt.Fprintf(os.Stderr, "  Output:     %s\n", fc.Output)
	fmt.Fprintf(os.Stderr, "\n")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	m := metrics.New(runID, "fetch", Version)
	done, total, err := fetchDataset(ctx, fc, store.New(cfg.Extract.BaseDir), log.Logger, m)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Downloaded or present: %d of %d rows\n", done, total)
	fmt.Fprintf(os.Stderr, "  Output:                %s\n", fc.Output)
	fmt.Fprintf(os.Stderr, "\n")

	return writeMetrics(m)
}

// fetchDataset downloads the documents of the input dataset and writes the
// dataset back with the download status column. An interrupted run still
// writes the statuses gathered so far.
func fetchDataset(ctx context.Context, fc model.FetchConfig, st *store.Store, logger zerolog.Logger, observer fetch.Observer) (int, int, error) {
	table, err := dataset.ReadFile(fc.Input, dataset.ColSymbol, dataset.ColFinalLink)
	if err != nil {
		return 0, 0, fmt.Errorf("read input: %w", err)
	}

	fetcher := fetch.NewFetcher(fc, st, logger)
	if observer != nil {
		fetcher.SetObserver(observer)
	}

	statuses, runErr := fetcher.Run(ctx, table.Descriptors())

	done := 0
	for _, s := range statuses {
		if s == fetch.StatusDone {
			done++
		}
	}

	if err := table.SetColumn(dataset.ColDownloaded, statuses); err != nil {
		return done, table.Len(), err
	}
	if err := table.WriteFile(fc.Output); err != nil {
		return done, table.Len(), fmt.Errorf("write output: %w", err)
	}
	if runErr != nil {
		return done, table.Len(), fmt.Errorf("fetch interrupted: %w", runErr)
	}

	return done, table.Len(), nil
}
