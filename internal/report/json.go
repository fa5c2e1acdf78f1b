package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/reviewaudit/internal/model"
)

// JSONWriter outputs reports in JSON format for tool integration.
// With WithFindings the report is wrapped together with its flattened,
// severity-rated findings.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// version is recorded in the wrapper when findings are included.
	version string

	// withFindings wraps the report in a JSONReport.
	withFindings bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithFindings wraps the report with the tool version, the flattened
// findings and their severity counts.
func WithFindings(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.withFindings = true
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in JSON format.
func (w *JSONWriter) Write(report *model.AuditReport) (int, error) {
	if w.withFindings {
		return w.writeJSON(NewJSONReport(report, w.version))
	}
	return w.writeJSON(report)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// JSONReport is the full report with output-only metadata.
type JSONReport struct {
	// Version is the reviewaudit version that generated this report.
	Version string `json:"version"`

	// Report is the audit report.
	Report *model.AuditReport `json:"report"`

	// Findings are the report's results flattened and rated.
	Findings []model.Finding `json:"findings"`

	// Severity counts the findings per severity.
	Severity model.SeverityCounts `json:"severity"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(report *model.AuditReport, version string) *JSONReport {
	return &JSONReport{
		Version:  version,
		Report:   report,
		Findings: report.Findings(),
		Severity: report.CountBySeverity(),
	}
}
