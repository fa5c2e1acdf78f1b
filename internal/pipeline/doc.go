// Package pipeline provides a framework for executing audit steps in sequence.
//
// A site directory goes through discovery, extraction and the audit; a
// live site is crawled and audited; a corpus file is loaded and audited.
// Each stage is a Step that receives the current Run and adds its output
// to it, so stages can be combined and tested separately while sharing
// logging and cancellation.
//
// BatchProcessor runs one pipeline per target concurrently, with the
// concurrency bounded by errgroup.SetLimit.
package pipeline
