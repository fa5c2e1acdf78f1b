package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/nao1215/reviewaudit/internal/config"
	"github.com/nao1215/reviewaudit/internal/crawler"
	"github.com/nao1215/reviewaudit/internal/extract"
	"github.com/nao1215/reviewaudit/internal/model"
	"github.com/nao1215/reviewaudit/internal/pipeline"
	"github.com/nao1215/reviewaudit/internal/site"
)

// NewExtractCmd creates the extract command.
func NewExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <site-dir|url>",
		Short: "Extract the review corpus of a site as JSON",
		Long: `Extract discovers the pages of a site, parses their review cards and writes
the resulting corpus as JSON. The file can be audited later with
'reviewaudit audit --corpus'. An http(s) URL is crawled instead of read from
disk.

Examples:
  # Print the corpus
  reviewaudit extract ./public

  # Snapshot the corpus of a live site
  reviewaudit extract https://locksmith.example/ -o snapshot.json

  # Save the corpus to a file
  reviewaudit extract ./public -o reviews.json`,
		Args: cobra.ExactArgs(1),
		RunE: runExtractCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .reviewaudit in current or home directory)")
	cmd.Flags().StringP("output", "o", "",
		"Write corpus to specified file path (creates directories if needed)")
	cmd.Flags().IntP("workers", "w", runtime.NumCPU(),
		"Number of pages parsed concurrently")
	addCrawlFlags(cmd)

	return cmd
}

// runExtractCmd executes the extract command.
func runExtractCmd(cmd *cobra.Command, args []string) error {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	workers, err := cmd.Flags().GetInt("workers")
	if err != nil {
		return err
	}

	file, err := loadConfigFile(configPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var corpus *model.Corpus
	if _, ok := siteURL(args[0]); ok {
		corpus, err = crawlFromFlags(ctx, cmd, args[0], file.Layout)
	} else {
		corpus, err = extractCorpus(ctx, args[0], file.Layout, workers)
	}
	if err != nil {
		return err
	}

	output, closeOutput, err := openOutput(outputPath, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := writeCorpus(output, corpus); err != nil {
		_ = closeOutput() //nolint:errcheck // the write error is reported
		return err
	}
	if err := closeOutput(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Extracted %d reviews from %d pages\n", corpus.TotalReviews(), corpus.Len())
	return nil
}

// extractCorpus discovers and parses the pages of the site at root.
// A nil layout means site.DefaultLayout().
func extractCorpus(ctx context.Context, root string, layout site.Layout, workers int) (*model.Corpus, error) {
	if layout == nil {
		layout = site.DefaultLayout()
	}
	pages, err := site.Discover(root, layout)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w in %s", pipeline.ErrNoPages, root)
	}

	corpus, err := extract.New(extract.WithConcurrency(workers)).BuildCorpus(ctx, pages)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", root, err)
	}
	return corpus, nil
}

// crawlFromFlags crawls startURL with the crawl flags of cmd.
func crawlFromFlags(ctx context.Context, cmd *cobra.Command, startURL string, layout site.Layout) (*model.Corpus, error) {
	cfg := config.NewConfig()
	cfg.Targets = []string{startURL}
	if err := readCrawlFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	client, err := newHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	logger := newLogger(cmd, getVerboseFlag(cmd))
	return crawlCorpus(ctx, client, startURL, layout, logger, spiderOptions(cfg)...)
}

// crawlCorpus crawls the live site at startURL and extracts its pages.
// A nil client uses the crawler default.
func crawlCorpus(ctx context.Context, client *http.Client, startURL string, layout site.Layout,
	logger *slog.Logger, opts ...crawler.SpiderOption) (*model.Corpus, error) {
	if layout == nil {
		layout = site.DefaultLayout()
	}
	run := pipeline.NewRun(pipeline.Target{URL: startURL})
	if err := pipeline.NewCrawlStep(client, layout, nil, logger, opts...).Do(ctx, run); err != nil {
		return nil, err
	}
	return run.Corpus, nil
}

// writeCorpus writes the corpus as indented JSON followed by a newline.
func writeCorpus(w io.Writer, corpus *model.Corpus) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(corpus); err != nil {
		return fmt.Errorf("failed to encode corpus: %w", err)
	}
	return nil
}
