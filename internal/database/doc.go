// Package database provides SQLite-based storage for audit results.
//
// This package implements the AuditDB, which stores:
//   - Audit reports as JSON together with their severity summary
//   - One row per audited page with its review and finding counts
//
// The database is a single file opened through modernc.org/sqlite, so no
// CGO or external server is needed.
package database
