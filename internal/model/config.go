package model

import "time"

// Config is the complete itemone configuration
type Config struct {
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Select  SelectConfig  `yaml:"select" mapstructure:"select"`
	Audit   AuditConfig   `yaml:"audit" mapstructure:"audit"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ExtractConfig controls the section extraction batch
type ExtractConfig struct {
	Input         string       `yaml:"input" mapstructure:"input"`                   // Input dataset (CSV)
	Output        string       `yaml:"output" mapstructure:"output"`                 // Output dataset (CSV)
	BaseDir       string       `yaml:"base_dir" mapstructure:"base_dir"`             // Root of base_dir/symbol/file
	Workers       int          `yaml:"workers" mapstructure:"workers"`               // Fixed worker pool size
	IncludeStatus bool         `yaml:"include_status" mapstructure:"include_status"` // Add extract_status column
	StartPhrases  []PhraseRule `yaml:"start_phrases" mapstructure:"start_phrases"`   // Section start predicates, in priority order
	EndPhrases    []PhraseRule `yaml:"end_phrases" mapstructure:"end_phrases"`       // Section end predicates, in priority order
	Noise         NoiseConfig  `yaml:"noise" mapstructure:"noise"`
}

// PhraseRule is one configurable header match predicate.
//
// In markup the mode applies to an element's normalized own text. In plain
// text documents the phrase is searched case-insensitively; prefix requires
// it to open a line and exact requires it to be the whole line.
type PhraseRule struct {
	Text string `yaml:"text" mapstructure:"text"`
	Mode string `yaml:"mode,omitempty" mapstructure:"mode"` // contains (default), prefix, exact
}

// NoiseConfig describes running header/footer paragraphs to drop
type NoiseConfig struct {
	FontSize string `yaml:"font_size" mapstructure:"font_size"` // e.g. 8.5pt
	Align    string `yaml:"align" mapstructure:"align"`         // e.g. center
}

// FetchConfig controls the download step
type FetchConfig struct {
	Input             string        `yaml:"input" mapstructure:"input"`
	Output            string        `yaml:"output" mapstructure:"output"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	PauseEvery        int           `yaml:"pause_every" mapstructure:"pause_every"` // Pause after this many download attempts (0 disables)
	Pause             time.Duration `yaml:"pause" mapstructure:"pause"`
	RespectRobots     bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy         string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// SelectConfig controls the one-filing-per-filer query
type SelectConfig struct {
	Output   string `yaml:"output" mapstructure:"output"`
	FormType string `yaml:"form_type" mapstructure:"form_type"`
	Table    string `yaml:"table" mapstructure:"table"`
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Database string `yaml:"database" mapstructure:"database"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password,omitempty" mapstructure:"password"`
	SSLMode  string `yaml:"sslmode" mapstructure:"sslmode"`
}

// AuditConfig controls the folder audit
type AuditConfig struct {
	Extensions []string `yaml:"extensions" mapstructure:"extensions"` // Markup extensions a filer folder should contain
}

// MetricsConfig controls metrics export
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty" mapstructure:"textfile"` // Prometheus textfile path (empty disables)
}

// LogConfig controls logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // console, json
}

// DefaultConfig returns the configuration used when nothing is overridden
func DefaultConfig() *Config {
	return &Config{
		Extract: ExtractConfig{
			Input:   "latest_10k_filings_status.csv",
			Output:  "final_updated_with_item1.csv",
			BaseDir: "downloads",
			Workers: 8,
			StartPhrases: []PhraseRule{
				{Text: "item 1. business", Mode: "contains"},
				{Text: "item 1. description of business", Mode: "contains"},
			},
			EndPhrases: []PhraseRule{
				{Text: "item 1a.", Mode: "contains"},
				{Text: "item 1a. risk factors", Mode: "contains"},
			},
			Noise: NoiseConfig{
				FontSize: "8.5pt",
				Align:    "center",
			},
		},
		Fetch: FetchConfig{
			Input:             "latest_10k_filings.csv",
			Output:            "latest_10k_filings_status.csv",
			UserAgent:         "itemone-research/1.0 (contact: research@example.com)",
			Timeout:           15 * time.Second,
			MaxBodyBytes:      200 << 20,
			RequestsPerSecond: 8,
			Burst:             1,
			PauseEvery:        10,
			Pause:             time.Second,
			RespectRobots:     true,
		},
		Select: SelectConfig{
			Output:   "latest_10k_filings.csv",
			FormType: "10-K",
			Table:    "filings.filings",
			Host:     "localhost",
			Port:     5432,
			SSLMode:  "disable",
		},
		Audit: AuditConfig{
			Extensions: []string{".htm", ".html"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
