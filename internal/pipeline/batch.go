package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchProcessor audits several targets concurrently.
// It uses errgroup to manage goroutines and respect concurrency limits.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each target, so pipeline
	// state never leaks between runs.
	pipelineFactory func(Target) *Pipeline

	// concurrency is the maximum number of concurrent runs.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent runs.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
// The factory receives the target so it can pick the site or corpus
// pipeline.
func NewBatchProcessor(pipelineFactory func(Target) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     4,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch runs one pipeline per target.
//
// The returned runs are in target order. A failing target does not stop
// the others; its error is kept in Run.Err. The error return is only set
// when the batch itself was cancelled; targets that never started then
// have a nil run.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []Target) ([]*Run, error) {
	bp.logger.Info("starting batch processing",
		"total_targets", len(targets),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Each goroutine writes only its own index.
	runs := make([]*Run, len(targets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			run := NewRun(target)
			runs[i] = run

			bp.logger.Info("auditing site",
				"site", run.Target.Site,
				"index", i+1,
				"total", len(targets),
			)

			if err := bp.pipelineFactory(target).Execute(ctx, run); err != nil {
				bp.logger.Warn("audit failed",
					"site", run.Target.Site,
					"error", err,
				)
				return nil
			}

			bp.logger.Info("audit completed", "site", run.Target.Site)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_targets", len(targets),
		"elapsed", time.Since(startTime),
	)

	return runs, err
}
