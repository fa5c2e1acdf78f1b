// Package report renders audit reports.
//
// This package contains writers for different output formats:
//   - SimpleWriter: human-readable text for terminal display, optionally coloured
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: Markdown with tables, alerts and a severity chart
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
