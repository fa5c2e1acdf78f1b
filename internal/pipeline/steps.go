package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/nao1215/reviewaudit/internal/audit"
	"github.com/nao1215/reviewaudit/internal/crawler"
	"github.com/nao1215/reviewaudit/internal/extract"
	"github.com/nao1215/reviewaudit/internal/model"
	"github.com/nao1215/reviewaudit/internal/site"
)

var (
	// ErrNoSiteRoot is returned by DiscoverStep when the target has no
	// site directory.
	ErrNoSiteRoot = errors.New("target has no site directory")

	// ErrNoCorpus is returned by AuditStep when no earlier step produced
	// a corpus.
	ErrNoCorpus = errors.New("no corpus to audit")

	// ErrNoPages is returned by ExtractStep and CrawlStep when no page
	// of the layout was found.
	ErrNoPages = errors.New("no pages discovered")

	// ErrNoURL is returned by CrawlStep when the target has no URL.
	ErrNoURL = errors.New("target has no URL")
)

// DiscoverStep lists the pages of the target site.
type DiscoverStep struct {
	layout site.Layout
	logger *slog.Logger
}

// NewDiscoverStep creates a DiscoverStep using the given layout.
func NewDiscoverStep(layout site.Layout, logger *slog.Logger) *DiscoverStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiscoverStep{layout: layout, logger: logger}
}

// Name returns the step name.
func (s *DiscoverStep) Name() string {
	return "discover"
}

// Do discovers the pages of run.Target.Root.
func (s *DiscoverStep) Do(_ context.Context, run *Run) error {
	if run.Target.Root == "" {
		return ErrNoSiteRoot
	}
	pages, err := site.Discover(run.Target.Root, s.layout)
	if err != nil {
		return err
	}
	run.Pages = pages
	s.logger.Debug("pages discovered", "site", run.Target.Site, "pages", len(pages))
	return nil
}

// ExtractStep parses the discovered pages into a corpus.
type ExtractStep struct {
	extractor *extract.Extractor
	logger    *slog.Logger
}

// NewExtractStep creates an ExtractStep.
func NewExtractStep(extractor *extract.Extractor, logger *slog.Logger) *ExtractStep {
	if extractor == nil {
		extractor = extract.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractStep{extractor: extractor, logger: logger}
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return "extract"
}

// Do extracts run.Pages into run.Corpus.
func (s *ExtractStep) Do(ctx context.Context, run *Run) error {
	if len(run.Pages) == 0 {
		return fmt.Errorf("%w in %s", ErrNoPages, run.Target.Root)
	}
	corpus, err := s.extractor.BuildCorpus(ctx, run.Pages)
	if err != nil {
		return err
	}
	run.Corpus = corpus
	s.logger.Debug("reviews extracted",
		"site", run.Target.Site,
		"pages", corpus.Len(),
		"reviews", corpus.TotalReviews(),
	)
	return nil
}

// CrawlStep fetches the pages of a live site and extracts them into a
// corpus.
type CrawlStep struct {
	client    *http.Client
	layout    site.Layout
	options   []crawler.SpiderOption
	extractor *extract.Extractor
	logger    *slog.Logger
}

// NewCrawlStep creates a CrawlStep. A nil client uses the crawler default.
func NewCrawlStep(client *http.Client, layout site.Layout, extractor *extract.Extractor,
	logger *slog.Logger, opts ...crawler.SpiderOption) *CrawlStep {
	if extractor == nil {
		extractor = extract.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CrawlStep{
		client:    client,
		layout:    layout,
		options:   opts,
		extractor: extractor,
		logger:    logger,
	}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do crawls run.Target.URL into run.Corpus.
func (s *CrawlStep) Do(ctx context.Context, run *Run) error {
	if run.Target.URL == "" {
		return ErrNoURL
	}

	// A spider per run keeps visited state apart in batch mode
	opts := append([]crawler.SpiderOption{
		crawler.WithLayout(s.layout),
		crawler.WithLogger(s.logger),
	}, s.options...)
	spider := crawler.NewSpider(s.client, opts...)

	pages, err := spider.Crawl(ctx, run.Target.URL)
	if err != nil {
		return fmt.Errorf("crawl %s: %w", run.Target.URL, err)
	}
	if len(pages) == 0 {
		return fmt.Errorf("%w at %s", ErrNoPages, run.Target.URL)
	}

	entries := make([]*model.PageEntry, 0, len(pages))
	for _, p := range pages {
		result, err := s.extractor.Extract(bytes.NewReader(p.Body))
		if err != nil {
			return fmt.Errorf("page %q: %w", p.Path, err)
		}
		entries = append(entries, &model.PageEntry{
			Path:           p.Path,
			Category:       p.Category,
			Reviews:        result.Reviews,
			AllServiceTags: result.ServiceTags,
		})
	}
	run.Corpus = model.NewCorpus(entries...)

	stats := spider.Stats()
	s.logger.Debug("site crawled",
		"site", run.Target.Site,
		"fetched", stats.PagesFetched,
		"pages", run.Corpus.Len(),
		"reviews", run.Corpus.TotalReviews(),
	)
	return nil
}

// LoadCorpusStep reads a corpus previously written by the extract command.
type LoadCorpusStep struct{}

// NewLoadCorpusStep creates a LoadCorpusStep.
func NewLoadCorpusStep() *LoadCorpusStep {
	return &LoadCorpusStep{}
}

// Name returns the step name.
func (s *LoadCorpusStep) Name() string {
	return "load-corpus"
}

// Do decodes run.Target.CorpusPath into run.Corpus.
func (s *LoadCorpusStep) Do(_ context.Context, run *Run) error {
	corpus, err := LoadCorpus(run.Target.CorpusPath)
	if err != nil {
		return err
	}
	run.Corpus = corpus
	return nil
}

// LoadCorpus reads a JSON corpus file.
func LoadCorpus(path string) (*model.Corpus, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided corpus path is intentional
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	var corpus model.Corpus
	if err := json.Unmarshal(data, &corpus); err != nil {
		return nil, fmt.Errorf("decode corpus %s: %w", path, err)
	}
	return &corpus, nil
}

// AuditStep runs the auditor over run.Corpus.
type AuditStep struct {
	auditor *audit.Auditor
}

// NewAuditStep creates an AuditStep.
func NewAuditStep(auditor *audit.Auditor) *AuditStep {
	if auditor == nil {
		auditor = audit.New()
	}
	return &AuditStep{auditor: auditor}
}

// Name returns the step name.
func (s *AuditStep) Name() string {
	return "audit"
}

// Do audits the corpus and stamps the report with the site and run time.
func (s *AuditStep) Do(ctx context.Context, run *Run) error {
	if run.Corpus == nil {
		return ErrNoCorpus
	}
	report, err := s.auditor.Run(ctx, run.Corpus)
	if err != nil {
		return err
	}
	report.Site = run.Target.Site
	report.DateAudited = run.StartedAt
	run.Report = report
	return nil
}

// Config holds what the default pipelines need.
type Config struct {
	// Layout is the page layout used for discovery.
	Layout site.Layout

	// Extractor parses pages. Nil means extract.New().
	Extractor *extract.Extractor

	// Auditor runs the checks. Nil means audit.New().
	Auditor *audit.Auditor

	// Logger is shared by the pipeline and its steps.
	Logger *slog.Logger

	// HTTPClient is used by the crawl pipeline. Nil means the crawler
	// default client.
	HTTPClient *http.Client

	// SpiderOptions tune the crawl pipeline.
	SpiderOptions []crawler.SpiderOption
}

// SitePipeline creates the discover, extract, audit pipeline for site
// directories.
func SitePipeline(cfg Config) *Pipeline {
	layout := cfg.Layout
	if layout == nil {
		layout = site.DefaultLayout()
	}
	p := New(WithLogger(cfg.Logger))
	p.AddSteps(
		NewDiscoverStep(layout, cfg.Logger),
		NewExtractStep(cfg.Extractor, cfg.Logger),
		NewAuditStep(cfg.Auditor),
	)
	return p
}

// CorpusPipeline creates the load, audit pipeline for corpus files.
func CorpusPipeline(cfg Config) *Pipeline {
	p := New(WithLogger(cfg.Logger))
	p.AddSteps(
		NewLoadCorpusStep(),
		NewAuditStep(cfg.Auditor),
	)
	return p
}

// CrawlPipeline creates the crawl, audit pipeline for live sites.
func CrawlPipeline(cfg Config) *Pipeline {
	layout := cfg.Layout
	if layout == nil {
		layout = site.DefaultLayout()
	}
	p := New(WithLogger(cfg.Logger))
	p.AddSteps(
		NewCrawlStep(cfg.HTTPClient, layout, cfg.Extractor, cfg.Logger, cfg.SpiderOptions...),
		NewAuditStep(cfg.Auditor),
	)
	return p
}
