package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/itemone/internal/audit"
	"github.com/ppiankov/itemone/internal/store"
)

var auditJSON bool

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List filer folders that are empty or hold no markup document",
	Long: `Audit walks the local document store and reports:
- folders that are empty
- folders without any file of the configured markup extensions

Example:
  itemone audit
  itemone audit --base-dir /data/edgar --json`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringSlice("extensions", nil, "markup file extensions (default .htm,.html)")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "print the report as JSON")

	_ = viper.BindPFlag("audit.extensions", auditCmd.Flags().Lookup("extensions"))
}

func runAudit(cmd *cobra.Command, args []string) error {
	report, err := audit.Run(store.New(cfg.Extract.BaseDir), cfg.Audit.Extensions)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if auditJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(out, "Folders checked: %d\n\n", report.Folders)
	fmt.Fprintf(out, "Empty folders found: %d\n", len(report.Empty))
	for _, symbol := range report.Empty {
		fmt.Fprintln(out, symbol)
	}
	fmt.Fprintf(out, "\nFolders without any markup document: %d\n", len(report.WithoutMarkup))
	for _, symbol := range report.WithoutMarkup {
		fmt.Fprintln(out, symbol)
	}
	if len(report.Empty)+len(report.WithoutMarkup) > 0 {
		fmt.Fprintf(os.Stderr, "\nRun 'itemone fetch' to download the missing documents.\n")
	}
	return nil
}
