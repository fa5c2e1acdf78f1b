package config

import (
	"path/filepath"
	"runtime"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/reviewaudit/internal/crawler"
	"github.com/nao1215/reviewaudit/internal/similarity"
)

// Default configuration values.
const (
	// DefaultThreshold is the similarity ratio a pair of review texts must
	// exceed to be reported.
	DefaultThreshold = similarity.DefaultThreshold

	// DefaultBatchSize is the number of sites audited concurrently.
	DefaultBatchSize = 4

	// DefaultCrawlDepth is how many links deep a live site is crawled.
	DefaultCrawlDepth = crawler.DefaultMaxDepth

	// DefaultMaxPages is the request budget of one live site crawl.
	DefaultMaxPages = crawler.DefaultMaxPages

	// DefaultCrawlDelay is the pause between two requests to a live site.
	DefaultCrawlDelay = crawler.DefaultDelay

	// AppName is the application name used for XDG directory paths.
	AppName = "reviewaudit"
)

// Config holds all options of one reviewaudit invocation.
// It is populated from CLI flags and the configuration file and passed
// through the application rather than kept in global state.
type Config struct {
	// Targets are the site directories and live site URLs to audit.
	Targets []string

	// CorpusFiles are previously extracted JSON corpora to audit instead
	// of site directories.
	CorpusFiles []string

	// Threshold is the similarity ratio a pair must exceed, in [0, 1].
	Threshold float64

	// Workers is the number of goroutines of the similarity scan.
	Workers int

	// BatchSize is the number of targets audited concurrently.
	BatchSize int

	// CrawlDepth limits how many links deep a URL target is crawled.
	CrawlDepth int

	// MaxPages limits the requests made for one URL target.
	MaxPages int

	// CrawlDelay is the pause between requests to a URL target.
	CrawlDelay time.Duration

	// Proxy is the SOCKS5 proxy ("host:port") used to reach URL targets.
	// Empty means direct connections.
	Proxy string

	// Headers are "Name: value" headers sent with every crawl request.
	Headers []string

	// Cookie is a raw cookie string sent with every crawl request.
	Cookie string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .reviewaudit in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// File is the loaded configuration file, nil when none was found.
	File *File

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// NoColor disables coloured terminal output.
	NoColor bool

	// DBDir is the directory holding the report database.
	// Defaults to the XDG data directory (~/.local/share/reviewaudit on Linux).
	DBDir string

	// SaveToDB stores each report in the database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Threshold:  DefaultThreshold,
		Workers:    runtime.NumCPU(),
		BatchSize:  DefaultBatchSize,
		CrawlDepth: DefaultCrawlDepth,
		MaxPages:   DefaultMaxPages,
		CrawlDelay: DefaultCrawlDelay,
		DBDir:      XDGDataDir(),
		SaveToDB:   true,
	}
}

// XDGDataDir returns the XDG data directory for reviewaudit.
// On Linux: ~/.local/share/reviewaudit
// On macOS: ~/Library/Application Support/reviewaudit
// On Windows: %LOCALAPPDATA%\reviewaudit
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for reviewaudit.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 && len(c.CorpusFiles) == 0 {
		return ErrNoTarget
	}
	if len(c.Targets) > 0 && len(c.CorpusFiles) > 0 {
		return ErrConflictingTargets
	}

	if c.Threshold < 0 || c.Threshold > 1 {
		return ErrInvalidThreshold
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.CrawlDepth < 0 {
		return ErrInvalidCrawlDepth
	}

	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}

	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}

// ApplyFile copies file settings that the user did not override with a
// flag. thresholdFlagSet reports whether --threshold was given.
func (c *Config) ApplyFile(f *File, thresholdFlagSet bool) {
	c.File = f
	if f == nil {
		return
	}
	if f.Similarity.Threshold != nil && !thresholdFlagSet {
		c.Threshold = *f.Similarity.Threshold
	}
}
