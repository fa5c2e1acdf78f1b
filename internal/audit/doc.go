// Package audit implements the review corpus integrity and categorization
// checks.
//
// The package provides three independent detectors plus a coordinator:
//   - FindDuplicateIdentities: customer names shown on several pages
//   - FindSimilarTexts: near-duplicate review texts anywhere in the corpus
//   - ValidateCategories: service tags inconsistent with the page category
//   - Auditor: runs all of them and assembles a model.AuditReport
//
// Every detector is a pure function of a read-only model.Corpus and returns
// a freshly built result; nothing is accumulated across detectors or runs.
// The package performs no file or network I/O.
//
// # Usage
//
//	auditor := audit.New(
//		audit.WithThreshold(0.8),
//		audit.WithWorkers(4),
//	)
//	report, err := auditor.Run(ctx, corpus)
package audit
