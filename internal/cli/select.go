package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/itemone/internal/model"
	"github.com/ppiankov/itemone/internal/selection"
)

// selectCmd represents the select command
var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Select the latest filing of each filer from Postgres",
	Long: `Select queries the filings table for the most recent filing of the given
form type per symbol, skipping filings without a document link, and writes
symbol, filing_date, form_type and final_link to a CSV file.

Connection settings come from the config file, ITEMONE_SELECT_* or the
PG_HOST, PG_PORT, PG_DATABASE, PG_USER and PG_PASSWORD variables.

Example:
  itemone select
  itemone select --form-type 10-K/A --output amended.csv`,
	Args: cobra.NoArgs,
	RunE: runSelect,
}

func init() {
	rootCmd.AddCommand(selectCmd)

	selectCmd.Flags().String("output", "", "output dataset")
	selectCmd.Flags().String("form-type", "", "form type to select")
	selectCmd.Flags().String("table", "", "filings table (schema.table)")

	_ = viper.BindPFlag("select.output", selectCmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("select.form_type", selectCmd.Flags().Lookup("form-type"))
	_ = viper.BindPFlag("select.table", selectCmd.Flags().Lookup("table"))
}

func runSelect(cmd *cobra.Command, args []string) error {
	sc := cfg.Select

	fmt.Fprintf(os.Stderr, "⚙️  Selecting latest %s per symbol from %s on %s:%d...\n", sc.FormType, sc.Table, sc.Host, sc.Port)

	n, err := selectDataset(cmd.Context(), sc)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "✓ Wrote %d filings to %s\n", n, sc.Output)
	return nil
}

// selectDataset runs the selection query and writes its result
func selectDataset(ctx context.Context, sc model.SelectConfig) (int, error) {
	sel, err := selection.Open(ctx, sc)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := sel.Close(); err != nil {
			log.Warn().Err(err).Msg("close database")
		}
	}()

	filings, err := sel.Latest(ctx)
	if err != nil {
		return 0, err
	}
	log.Info().Int("filings", len(filings)).Str("form_type", sc.FormType).Msg("selection finished")

	if err := selection.ToTable(filings).WriteFile(sc.Output); err != nil {
		return 0, fmt.Errorf("write output: %w", err)
	}
	return len(filings), nil
}
