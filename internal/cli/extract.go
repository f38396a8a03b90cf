package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/itemone/internal/dataset"
	"github.com/ppiankov/itemone/internal/extract"
	"github.com/ppiankov/itemone/internal/metrics"
	"github.com/ppiankov/itemone/internal/model"
	"github.com/ppiankov/itemone/internal/store"
	"github.com/ppiankov/itemone/internal/worker"
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract Item 1. Business for every row of a dataset",
	Long: `Extract processes every row of the input dataset in parallel:
- Look up the document at <base-dir>/<symbol>/<file name of final_link>
- Locate the section between "Item 1. Business" and "Item 1A."
- Drop running page headers and footers
- Write the plain text to "content" and the markup to "htm_content"

Rows whose document is missing, unreadable, or has no such section get
empty content. Row order is preserved. Running itemone without a command
is the same as running extract with the configured defaults.

Example:
  itemone extract
  itemone extract --input filings.csv --output item1.csv --workers 16
  itemone extract --base-dir /data/edgar --include-status`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().String("input", "", "input dataset (CSV with symbol and final_link columns)")
	extractCmd.Flags().String("output", "", "output dataset")
	extractCmd.Flags().IntP("workers", "w", 0, "number of concurrent workers")
	extractCmd.Flags().Bool("include-status", false, "add an extract_status column (found, not_found, failed)")

	_ = viper.BindPFlag("extract.input", extractCmd.Flags().Lookup("input"))
	_ = viper.BindPFlag("extract.output", extractCmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("extract.workers", extractCmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("extract.include_status", extractCmd.Flags().Lookup("include-status"))
}

// extractSummary counts the outcomes of one extraction run
type extractSummary struct {
	Rows     int
	Found    int
	NotFound int
	Failed   int
	Elapsed  time.Duration
}

func runExtract(cmd *cobra.Command, args []string) error {
	ec := cfg.Extract

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  itemone extraction\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input:      %s\n", ec.Input)
	fmt.Fprintf(os.Stderr, "  Documents:  %s\n", ec.BaseDir)
	fmt.Fprintf(os.Stderr, "  Workers:    %d\n", ec.Workers)
	fmt.Fprintf(os.Stderr, "  Output:     %s\n", ec.Output)
	fmt.Fprintf(os.Stderr, "\n")

	m := metrics.New(runID, "extract", Version)
	summary, err := extractDataset(cmd.Context(), ec, log.Logger, m)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Extraction Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Rows:       %d\n", summary.Rows)
	fmt.Fprintf(os.Stderr, "  Found:      %d\n", summary.Found)
	fmt.Fprintf(os.Stderr, "  Not found:  %d\n", summary.NotFound)
	fmt.Fprintf(os.Stderr, "  Failed:     %d\n", summary.Failed)
	fmt.Fprintf(os.Stderr, "  Elapsed:    %v\n", summary.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  Output:     %s\n", ec.Output)
	fmt.Fprintf(os.Stderr, "\n")

	return writeMetrics(m)
}

// extractDataset runs the extraction batch over the input dataset and writes
// the output dataset. Nothing is written unless every row has been processed.
func extractDataset(ctx context.Context, ec model.ExtractConfig, logger zerolog.Logger, observer worker.Observer) (*extractSummary, error) {
	started := time.Now()

	table, err := dataset.ReadFile(ec.Input, dataset.ColSymbol, dataset.ColFinalLink)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	extractor, err := extract.New(ec, logger)
	if err != nil {
		return nil, fmt.Errorf("configure extractor: %w", err)
	}

	processor := worker.NewBatchProcessor(extractor, store.New(ec.BaseDir), ec.Workers, logger)
	if observer != nil {
		processor.SetObserver(observer)
	}

	logger.Info().Int("rows", table.Len()).Int("workers", ec.Workers).Msg("extraction started")
	outcomes := processor.Process(ctx, table.Descriptors())

	records := table.Records()
	summary := &extractSummary{Rows: len(records)}
	for i := range records {
		records[i].Apply(outcomes[i])
		switch outcomes[i].Status {
		case model.StatusFound:
			summary.Found++
		case model.StatusNotFound:
			summary.NotFound++
		default:
			summary.Failed++
		}
	}

	if err := table.SetRecords(records, ec.IncludeStatus); err != nil {
		return nil, err
	}
	if err := table.WriteFile(ec.Output); err != nil {
		return nil, fmt.Errorf("write output: %w", err)
	}

	summary.Elapsed = time.Since(started)
	logger.Info().
		Int("rows", summary.Rows).
		Int("found", summary.Found).
		Int("not_found", summary.NotFound).
		Int("failed", summary.Failed).
		Dur("elapsed", summary.Elapsed).
		Msg("extraction finished")

	return summary, nil
}

// writeMetrics exports m when a metrics textfile is configured
func writeMetrics(m *metrics.Metrics) error {
	if cfg.Metrics.Textfile == "" {
		return nil
	}
	if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		return err
	}
	log.Debug().Str("path", cfg.Metrics.Textfile).Msg("metrics written")
	return nil
}
