package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nao1215/reviewaudit/internal/audit"
	"github.com/nao1215/reviewaudit/internal/config"
	"github.com/nao1215/reviewaudit/internal/crawler"
	"github.com/nao1215/reviewaudit/internal/database"
	"github.com/nao1215/reviewaudit/internal/extract"
	"github.com/nao1215/reviewaudit/internal/httpclient"
	"github.com/nao1215/reviewaudit/internal/model"
	"github.com/nao1215/reviewaudit/internal/pipeline"
	"github.com/nao1215/reviewaudit/internal/report"
)

// errAuditFailed is returned when at least one target could not be audited.
var errAuditFailed = errors.New("audit failed")

// NewAuditCmd creates the audit command.
func NewAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit [site-dir|url...]",
		Short: "Audit the customer reviews of one or more sites",
		Long: `Audit extracts the review cards of a static site and checks them for:
- Customer names that appear on more than one page
- Review texts that are near-duplicates of each other
- Reviews whose services do not match the page they are shown on
- Pages whose reviews cover too few distinct services

A target is a site directory or the http(s) URL of a live site, which is
crawled for the pages of the layout. A previously extracted JSON corpus can be
audited instead.

Examples:
  # Audit a site directory
  reviewaudit audit ./public

  # Crawl and audit a live site, two links deep
  reviewaudit audit --depth 2 https://locksmith.example/

  # Audit several sites, two at a time
  reviewaudit audit --batch 2 ./site-a ./site-b ./site-c

  # Audit an extracted corpus with a stricter threshold
  reviewaudit audit --corpus reviews.json --threshold 0.9

  # Write a Markdown report
  reviewaudit audit --markdown -o report.md ./public

Configuration file (.reviewaudit) example:
  similarity:
    threshold: 0.85
  layout:
    main:
      - "index.html"
      - "contact.html"
  rules:
    diversity:
      service_area: 4`,
		Args: cobra.ArbitraryArgs,
		RunE: runAuditCmd,
	}

	// Input flags
	cmd.Flags().StringSliceP("corpus", "C", nil,
		"Audit JSON corpus files instead of site directories")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .reviewaudit in current or home directory)")

	// Audit behavior flags
	cmd.Flags().Float64P("threshold", "t", config.DefaultThreshold,
		"Similarity ratio a pair of review texts must exceed to be reported (0-1)")
	cmd.Flags().IntP("workers", "w", config.NewConfig().Workers,
		"Number of goroutines used to compare review texts")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of sites audited concurrently")

	addCrawlFlags(cmd)

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-color", false,
		"Disable coloured terminal output")

	// Storage flags
	cmd.Flags().Bool("no-db", false,
		"Do not save the report to the database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the report database")

	return cmd
}

// addCrawlFlags adds the flags that tune crawling of URL targets.
func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("depth", "d", config.DefaultCrawlDepth,
		"Maximum link depth crawled from a URL target")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of requests made per URL target")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Pause between requests to a URL target")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy (host:port) used to reach URL targets")
	cmd.Flags().StringArrayP("header", "H", nil,
		"Header sent with every crawl request, as \"Name: value\" (repeatable)")
	cmd.Flags().String("cookie", "",
		"Cookie sent with every crawl request (e.g. \"session=abc123\")")
}

// readCrawlFlags copies the crawl flags into cfg.
func readCrawlFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	if cfg.CrawlDepth, err = cmd.Flags().GetInt("depth"); err != nil {
		return err
	}
	if cfg.MaxPages, err = cmd.Flags().GetInt("max-pages"); err != nil {
		return err
	}
	if cfg.CrawlDelay, err = cmd.Flags().GetDuration("delay"); err != nil {
		return err
	}
	if cfg.Proxy, err = cmd.Flags().GetString("proxy"); err != nil {
		return err
	}
	if cfg.Headers, err = cmd.Flags().GetStringArray("header"); err != nil {
		return err
	}
	if cfg.Cookie, err = cmd.Flags().GetString("cookie"); err != nil {
		return err
	}
	return nil
}

// newHTTPClient creates the crawl client described by cfg.
func newHTTPClient(cfg *config.Config) (*http.Client, error) {
	headers := make(map[string]string, len(cfg.Headers))
	for _, raw := range cfg.Headers {
		name, value, err := httpclient.ParseHeader(raw)
		if err != nil {
			return nil, err
		}
		headers[name] = value
	}
	return httpclient.New(
		httpclient.WithProxy(cfg.Proxy),
		httpclient.WithHeaders(headers),
		httpclient.WithCookie(cfg.Cookie),
	)
}

// spiderOptions converts the crawl settings of cfg into spider options.
func spiderOptions(cfg *config.Config) []crawler.SpiderOption {
	return []crawler.SpiderOption{
		crawler.WithMaxDepth(cfg.CrawlDepth),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithDelay(cfg.CrawlDelay),
	}
}

// runAuditCmd executes the audit command.
func runAuditCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd, cfg.Verbose)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runAudit(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// buildConfig creates a Config from cobra command flags and the
// configuration file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.CorpusFiles, err = cmd.Flags().GetStringSlice("corpus")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg.Threshold, err = cmd.Flags().GetFloat64("threshold")
	if err != nil {
		return nil, err
	}

	cfg.Workers, err = cmd.Flags().GetInt("workers")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	if err := readCrawlFlags(cmd, cfg); err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.NoColor, err = cmd.Flags().GetBool("no-color")
	if err != nil {
		return nil, err
	}

	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	cfg.DBDir, err = cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	file, err := loadConfigFile(cfg.ConfigFilePath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyFile(file, cmd.Flags().Changed("threshold"))

	// Positional arguments are site directories or URLs
	cfg.Targets = args

	return cfg, nil
}

// loadConfigFile finds and loads the configuration file.
// If the user explicitly specified a path, a missing file is an error;
// otherwise the built-in defaults are used.
func loadConfigFile(explicitPath string) (*config.File, error) {
	path := config.FindConfigFile(explicitPath)
	if path == "" {
		if explicitPath != "" {
			return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicitPath)
		}
		return config.DefaultFile(), nil
	}

	file, err := config.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return file, nil
}

// buildTargets converts the configured inputs into pipeline targets.
func buildTargets(cfg *config.Config) []pipeline.Target {
	targets := make([]pipeline.Target, 0, len(cfg.Targets)+len(cfg.CorpusFiles))
	for _, arg := range cfg.Targets {
		if u, ok := siteURL(arg); ok {
			targets = append(targets, pipeline.Target{Site: u.Host, URL: arg})
			continue
		}
		targets = append(targets, pipeline.Target{Site: siteName(arg), Root: arg})
	}
	for _, path := range cfg.CorpusFiles {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		targets = append(targets, pipeline.Target{Site: name, CorpusPath: path})
	}
	return targets
}

// siteURL reports whether arg is the http(s) URL of a live site.
func siteURL(arg string) (*url.URL, bool) {
	if !strings.HasPrefix(arg, "http://") && !strings.HasPrefix(arg, "https://") {
		return nil, false
	}
	u, err := url.Parse(arg)
	if err != nil || u.Host == "" {
		return nil, false
	}
	return u, true
}

// siteName returns the directory name of a site root, resolving "." and
// trailing separators.
func siteName(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return filepath.Base(filepath.Clean(dir))
}

// newPipelineFactory returns a factory creating the site, crawl or corpus
// pipeline for each target.
func newPipelineFactory(cfg *config.Config, client *http.Client, logger *slog.Logger) func(pipeline.Target) *pipeline.Pipeline {
	file := cfg.File
	if file == nil {
		file = config.DefaultFile()
	}

	auditor := audit.New(
		audit.WithThreshold(cfg.Threshold),
		audit.WithWorkers(cfg.Workers),
		audit.WithPolicy(file.Rules),
		audit.WithLogger(logger),
	)
	pcfg := pipeline.Config{
		Layout:        file.Layout,
		Extractor:     extract.New(extract.WithConcurrency(cfg.Workers)),
		Auditor:       auditor,
		Logger:        logger,
		HTTPClient:    client,
		SpiderOptions: spiderOptions(cfg),
	}

	return func(target pipeline.Target) *pipeline.Pipeline {
		switch {
		case target.CorpusPath != "":
			return pipeline.CorpusPipeline(pcfg)
		case target.URL != "":
			return pipeline.CrawlPipeline(pcfg)
		default:
			return pipeline.SitePipeline(pcfg)
		}
	}
}

// runAudit audits every target and outputs the reports in target order.
func runAudit(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer, logger *slog.Logger) error {
	targets := buildTargets(cfg)
	if len(targets) == 0 {
		return config.ErrNoTarget
	}

	client, err := newHTTPClient(cfg)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger.Info("starting audit",
		"targets", len(targets),
		"threshold", cfg.Threshold,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	// Open database connection if saving is enabled
	var db *database.AuditDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	if len(targets) > 1 {
		fmt.Fprintf(stderr, "Auditing %d targets (concurrency: %d)...\n", len(targets), cfg.BatchSize)
	}
	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(
		newPipelineFactory(cfg, client, logger),
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)
	runs, batchErr := bp.ProcessBatch(ctx, targets)

	output, closeOutput, err := openOutput(cfg.ReportFile, stdout)
	if err != nil {
		return err
	}
	defer closeOutput() //nolint:errcheck // report file is also closed below

	writer := newReportWriter(cfg, output)

	failed := 0
	for i, run := range runs {
		if run == nil {
			failed++
			continue
		}
		if run.Err != nil || run.Report == nil {
			failed++
			fmt.Fprintf(stderr, "Audit error for %s: %v\n", targets[i].Site, run.Err)
			continue
		}

		if _, err := writer.Write(run.Report); err != nil {
			logger.Error("report failed", "site", run.Target.Site, "error", err)
			failed++
			continue
		}

		if err := saveAuditReport(ctx, db, run.Report, run.Corpus, logger); err != nil {
			logger.Error("failed to save audit report", "site", run.Target.Site, "error", err)
		}
	}

	if err := closeOutput(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	fmt.Fprintf(stderr, "Audit completed in %s\n", time.Since(startTime).Round(time.Millisecond))

	if batchErr != nil {
		return batchErr
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d targets", errAuditFailed, failed, len(targets))
	}
	return nil
}

// openOutput returns the report destination: the file at path, or
// fallback when path is empty. The returned close function is idempotent.
func openOutput(path string, fallback io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return fallback, func() error { return nil }, nil
	}

	// Create directories if they don't exist
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports quote customer names, so the file is readable by the owner only
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}

	closed := false
	return f, func() error {
		if closed {
			return nil
		}
		closed = true
		return f.Close()
	}, nil
}

// newReportWriter selects the writer for the requested format.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithFindings(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output,
			report.WithVerbose(cfg.Verbose),
			report.WithColor(useColor(cfg, output)),
		)
	}
}

// useColor reports whether the text report should be coloured: only when
// writing to a terminal and not disabled by --no-color.
func useColor(cfg *config.Config, output io.Writer) bool {
	if cfg.NoColor || cfg.ReportFile != "" {
		return false
	}
	f, ok := output.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // file descriptors fit in int
}

// saveAuditReport saves the audit report to the database if enabled.
// If db is nil, this function is a no-op.
func saveAuditReport(ctx context.Context, db *database.AuditDB, r *model.AuditReport, corpus *model.Corpus, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	id, err := db.SaveAuditReport(ctx, r, corpus)
	if err != nil {
		return fmt.Errorf("failed to save audit report: %w", err)
	}

	logger.Info("audit report saved to database", "site", r.Site, "id", id)
	return nil
}
