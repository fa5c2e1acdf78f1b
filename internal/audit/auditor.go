package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/nao1215/reviewaudit/internal/model"
	"github.com/nao1215/reviewaudit/internal/rules"
	"github.com/nao1215/reviewaudit/internal/similarity"
)

var (
	// ErrNilCorpus is returned when Run is called without a corpus.
	ErrNilCorpus = errors.New("corpus is nil")

	// ErrInvalidThreshold is returned when the similarity threshold is
	// outside [0, 1].
	ErrInvalidThreshold = errors.New("similarity threshold must be between 0 and 1")
)

// Auditor runs every check over a corpus and assembles the report.
// An Auditor holds only configuration and may be reused across runs and
// goroutines.
type Auditor struct {
	threshold float64
	workers   int
	policy    *rules.Policy
	logger    *slog.Logger
}

// Option configures an Auditor.
type Option func(*Auditor)

// WithThreshold sets the similarity ratio a pair of texts must exceed.
// Default is similarity.DefaultThreshold.
func WithThreshold(threshold float64) Option {
	return func(a *Auditor) {
		a.threshold = threshold
	}
}

// WithWorkers sets the number of goroutines used for the similarity scan.
// Default is the number of CPUs.
func WithWorkers(n int) Option {
	return func(a *Auditor) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithPolicy sets the category expectation policy.
// Default is rules.Default().
func WithPolicy(p *rules.Policy) Option {
	return func(a *Auditor) {
		if p != nil {
			a.policy = p
		}
	}
}

// WithLogger sets the logger used for progress messages.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Auditor) {
		a.logger = logger
	}
}

// New creates an Auditor with the given options.
func New(opts ...Option) *Auditor {
	a := &Auditor{
		threshold: similarity.DefaultThreshold,
		workers:   runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.policy == nil {
		a.policy = rules.Default()
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// Threshold returns the configured similarity threshold.
func (a *Auditor) Threshold() float64 {
	return a.threshold
}

// Run audits the corpus and returns a new report.
//
// The corpus is validated first; a structural problem is returned as an
// error naming the page. Site and DateAudited are left for the caller to
// fill in.
func (a *Auditor) Run(ctx context.Context, c *model.Corpus) (*model.AuditReport, error) {
	if c == nil {
		return nil, ErrNilCorpus
	}
	if a.threshold < 0 || a.threshold > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidThreshold, a.threshold)
	}
	if err := a.policy.Validate(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid corpus: %w", err)
	}

	report := model.NewAuditReport(a.threshold)

	report.DuplicateIdentities = FindDuplicateIdentities(c)
	for _, d := range report.DuplicateIdentities {
		a.logger.Debug("duplicate identity", "customer", d.Name, "pages", d.Count)
	}
	a.logger.Debug("duplicate identities checked", "findings", len(report.DuplicateIdentities))

	similar, err := FindSimilarTexts(ctx, c, SimilarityOptions{
		Threshold: a.threshold,
		Workers:   a.workers,
	})
	if err != nil {
		return nil, err
	}
	report.SimilarTextPairs = similar
	a.logger.Debug("review texts compared",
		"reviews", c.TotalReviews(),
		"workers", a.workers,
		"findings", len(similar),
	)

	report.CategorizationIssues, report.SkippedPages = ValidateCategories(c, a.policy)
	for _, s := range report.SkippedPages {
		a.logger.Debug("categorization skipped", "page", s.Page, "reason", s.Reason)
	}

	report.Summary = Summarize(c, similar)

	a.logger.Info("audit complete",
		"pages", report.Summary.TotalPages,
		"reviews", report.Summary.TotalReviews,
		"duplicate_identities", len(report.DuplicateIdentities),
		"similar_pairs", len(report.SimilarTextPairs),
		"categorization_issues", len(report.CategorizationIssues),
	)

	return report, nil
}
