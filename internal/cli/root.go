package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/itemone/internal/model"
)

// Version is the release version, overridden at build time
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool

	// cfg is the effective configuration, loaded before any command runs
	cfg *model.Config
	// runID tags every log line and metric of this invocation
	runID string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "itemone",
	Short: "itemone - extract Item 1. Business from annual filings",
	Long: `itemone extracts the "Item 1. Business" section from downloaded filing
documents (HTML or plain text) and writes it next to every row of a dataset.

Run without a command, it reads latest_10k_filings_status.csv, looks up each
document under downloads/<symbol>/<file>, and writes final_updated_with_item1.csv.

The surrounding steps are available as commands:
  select   pick the latest filing per filer from Postgres
  fetch    download the documents into the local store
  audit    list filer folders without a usable document`,
	Args:              cobra.NoArgs,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runExtract,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("itemone %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.itemone/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().String("base-dir", "", "root of the local document store (default: downloads)")
	rootCmd.PersistentFlags().String("metrics-file", "", "write Prometheus metrics to this textfile when done")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (console, json)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("extract.base_dir", rootCmd.PersistentFlags().Lookup("base-dir"))
	_ = viper.BindPFlag("metrics.textfile", rootCmd.PersistentFlags().Lookup("metrics-file"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
		} else {
			viper.AddConfigPath(filepath.Join(home, ".itemone"))
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	configureViper(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// configureViper registers defaults and environment bindings.
// Settings come from ITEMONE_<SECTION>_<KEY>, e.g. ITEMONE_EXTRACT_WORKERS;
// the database settings also honour the conventional PG_* variables.
func configureViper(v *viper.Viper) {
	v.SetEnvPrefix("ITEMONE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, model.DefaultConfig())

	_ = v.BindEnv("select.host", "ITEMONE_SELECT_HOST", "PG_HOST")
	_ = v.BindEnv("select.port", "ITEMONE_SELECT_PORT", "PG_PORT")
	_ = v.BindEnv("select.database", "ITEMONE_SELECT_DATABASE", "PG_DATABASE")
	_ = v.BindEnv("select.user", "ITEMONE_SELECT_USER", "PG_USER")
	_ = v.BindEnv("select.password", "ITEMONE_SELECT_PASSWORD", "PG_PASSWORD")

	// Keys left out of the defaults by omitempty.
	_ = v.BindEnv("fetch.http_proxy")
	_ = v.BindEnv("fetch.https_proxy")
	_ = v.BindEnv("metrics.textfile")
}

// setDefaults registers every field of def as a viper default, so that
// environment variables can override keys absent from the config file
func setDefaults(v *viper.Viper, def *model.Config) {
	data, err := yaml.Marshal(def)
	if err != nil {
		return
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return
	}
	var walk func(prefix string, node map[string]interface{})
	walk = func(prefix string, node map[string]interface{}) {
		for key, val := range node {
			if child, ok := val.(map[string]interface{}); ok {
				walk(prefix+key+".", child)
				continue
			}
			v.SetDefault(prefix+key, val)
		}
	}
	walk("", tree)
}

// loadConfig decodes the effective configuration
func loadConfig(v *viper.Viper) (*model.Config, error) {
	c := model.DefaultConfig()
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if c.Extract.Workers <= 0 {
		return nil, fmt.Errorf("extract.workers must be positive, got %d", c.Extract.Workers)
	}
	return c, nil
}

// newLogger builds the process logger from the log settings
func newLogger(lc model.LogConfig, debug bool) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if lc.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(lc.Level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log.level: %w", err)
		}
		level = parsed
	}
	if debug {
		level = zerolog.DebugLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339
	var logger zerolog.Logger
	switch strings.ToLower(lc.Format) {
	case "", "console":
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	case "json":
		logger = zerolog.New(os.Stderr)
	default:
		return zerolog.Nop(), fmt.Errorf("log.format: unknown format %q", lc.Format)
	}

	return logger.Level(level).With().Timestamp().Logger(), nil
}

// setup loads configuration and logging before any command runs
func setup(cmd *cobra.Command, args []string) error {
	c, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := newLogger(c.Log, viper.GetBool("verbose"))
	if err != nil {
		return err
	}

	cfg = c
	runID = uuid.NewString()
	log.Logger = logger.With().Str("run_id", runID).Logger()
	return nil
}
