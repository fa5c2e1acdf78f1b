package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so that callers can use
// errors.Is() while still showing a human-readable message.
var (
	// ErrNoTarget is returned when neither a site nor a corpus file is
	// given.
	ErrNoTarget = errors.New("no target specified: provide a site directory, a URL or use --corpus")

	// ErrConflictingTargets is returned when sites and corpus files are
	// given together.
	ErrConflictingTargets = errors.New("conflicting targets: sites and --corpus cannot be used together")

	// ErrInvalidThreshold is returned when the similarity threshold is
	// outside [0, 1].
	ErrInvalidThreshold = errors.New("invalid similarity threshold: must be between 0 and 1")

	// ErrInvalidWorkers is returned when the number of similarity workers
	// is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidCrawlDepth is returned when the crawl depth is negative.
	ErrInvalidCrawlDepth = errors.New("invalid crawl depth: must not be negative")

	// ErrInvalidMaxPages is returned when the crawl page limit is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must not be negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
