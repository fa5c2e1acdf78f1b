package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/reviewaudit/internal/model"
	"github.com/nao1215/reviewaudit/internal/site"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each one reading what earlier steps
// left in the Run and adding its own output.
type Step interface {
	// Do executes the pipeline step.
	// It receives the context for cancellation, and the run to modify.
	Do(ctx context.Context, run *Run) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Target identifies what one pipeline run audits: a site directory, a
// live site URL, or a previously extracted corpus file.
type Target struct {
	// Site is the name recorded in the report.
	Site string

	// Root is the site directory. Used by DiscoverStep.
	Root string

	// URL is the start page of a live site. Used by CrawlStep.
	URL string

	// CorpusPath is a JSON corpus file. Used by LoadCorpusStep.
	CorpusPath string
}

// Run carries the state of one pipeline execution from step to step.
type Run struct {
	// Target is what is being audited.
	Target Target

	// StartedAt is when the run was created; it becomes the report date.
	StartedAt time.Time

	// Pages are the discovered page files.
	Pages []site.Page

	// Corpus is the extracted or loaded corpus.
	Corpus *model.Corpus

	// Report is the audit result.
	Report *model.AuditReport

	// PerformedSteps lists the steps that ran, in order.
	PerformedSteps []string

	// Err is the error of the last failed step, if any.
	Err error
}

// NewRun creates a run for the target.
func NewRun(target Target) *Run {
	if target.Site == "" {
		for _, name := range []string{target.Root, target.URL, target.CorpusPath} {
			if name != "" {
				target.Site = name
				break
			}
		}
	}
	return &Run{
		Target:         target,
		StartedAt:      time.Now(),
		PerformedSteps: make([]string, 0),
	}
}

// Pipeline orchestrates the execution of multiple steps.
// It maintains a list of steps and executes them in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. Errors are still recorded in the run.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
// Context cancellation is checked before each step.
//
// Returns the first error encountered if continueOnError is false,
// or nil if all steps complete (errors are recorded in the run).
func (p *Pipeline) Execute(ctx context.Context, run *Run) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			run.Err = ctx.Err()
			return ctx.Err()
		default:
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"site", run.Target.Site,
		)

		if err := step.Do(ctx, run); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"site", run.Target.Site,
				"error", err,
			)

			run.Err = err
			if !p.continueOnError {
				return err
			}
		} else {
			p.logger.Debug("step completed",
				"step", step.Name(),
				"site", run.Target.Site,
			)
		}

		run.PerformedSteps = append(run.PerformedSteps, step.Name())
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
