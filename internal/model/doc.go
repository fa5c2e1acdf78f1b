// Package model defines the core data structures used throughout reviewaudit.
//
// This package contains the following main types:
//   - Corpus: The read-only collection of audited pages for one run
//   - PageEntry: One audited page with its reviews and service tags
//   - ReviewRecord: One customer testimonial extracted from a page
//   - AuditReport: The aggregated result of an audit run
//   - Finding: A flattened, severity-rated view of any audit result
//
// Models live in their own package so that the extraction, audit, report
// and database packages can share them without import cycles.
//
// All types serialize to JSON; a Corpus marshals to the same shape it is
// read from (an object keyed by page path).
package model
