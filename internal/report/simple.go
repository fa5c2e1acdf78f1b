package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/nao1215/reviewaudit/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text reports for terminal display.
// Colour is off unless enabled with WithColor; the CLI enables it only
// when stdout is a terminal.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no findings are shown.
	showEmpty bool

	// verbose adds descriptions, impact and the skipped pages.
	verbose bool

	// colors maps each severity to its colour.
	colors map[model.Severity]*color.Color

	// heading colours section titles.
	heading *color.Color
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithColor enables or disables ANSI colours.
func WithColor(enabled bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		for _, c := range w.allColors() {
			if enabled {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		colors: map[model.Severity]*color.Color{
			model.SeverityCritical: color.New(color.FgRed, color.Bold),
			model.SeverityHigh:     color.New(color.FgRed),
			model.SeverityMedium:   color.New(color.FgYellow),
			model.SeverityLow:      color.New(color.FgCyan),
			model.SeverityInfo:     color.New(color.FgWhite),
		},
		heading: color.New(color.FgWhite, color.Bold),
	}

	// Colour is opt-in regardless of the global color.NoColor detection.
	for _, c := range w.allColors() {
		c.DisableColor()
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

func (w *SimpleWriter) allColors() []*color.Color {
	out := []*color.Color{w.heading}
	for _, sev := range model.Severities {
		out = append(out, w.colors[sev])
	}
	return out
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.AuditReport) (int, error) {
	var sb strings.Builder

	findings := report.Findings()

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report, findings)
	w.writeCategories(&sb, report)
	w.writeFindings(&sb, findings)
	w.writeSkipped(&sb, report)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(w.heading.Sprint(title))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with audit information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.AuditReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(w.heading.Sprint("                        REVIEW AUDIT REPORT"))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Site:           %s\n", report.Site)
	if !report.DateAudited.IsZero() {
		fmt.Fprintf(sb, "Audit Date:     %s\n", report.DateAudited.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(sb, "Pages:          %d\n", report.Summary.TotalPages)
	fmt.Fprintf(sb, "Reviews:        %d\n", report.Summary.TotalReviews)
	fmt.Fprintf(sb, "Service Tags:   %d\n", report.Summary.TotalServiceTags)
	fmt.Fprintf(sb, "Threshold:      %.0f%%\n", report.SimilarityThreshold*100)
	sb.WriteString("\n")
}

// writeSummary writes the severity summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.AuditReport, findings []model.Finding) {
	w.section(sb, "SEVERITY SUMMARY")

	counts := report.CountBySeverity()
	for _, sev := range model.Severities {
		label := fmt.Sprintf("%-9s", sev.String()+":")
		fmt.Fprintf(sb, "  %s %d\n", w.colors[sev].Sprint(label), counts.Get(sev))
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  TOTAL:    %d findings\n", len(findings))
	fmt.Fprintf(sb, "  Duplicate identities: %d\n", len(report.DuplicateIdentities))
	fmt.Fprintf(sb, "  Similar text pairs:   %d (%d near-identical)\n",
		len(report.SimilarTextPairs), report.Summary.NearIdenticalPairs)
	fmt.Fprintf(sb, "  Categorization issues: %d\n", len(report.CategorizationIssues))
	sb.WriteString("\n")
}

// writeCategories writes pages and reviews per category.
func (w *SimpleWriter) writeCategories(sb *strings.Builder, report *model.AuditReport) {
	s := report.Summary
	if len(s.PagesByCategory) == 0 && !w.showEmpty {
		return
	}

	w.section(sb, "PAGES BY CATEGORY")
	for _, category := range model.Categories {
		pages := s.PagesByCategory[category]
		if pages == 0 && !w.showEmpty {
			continue
		}
		fmt.Fprintf(sb, "  %-20s %3d pages %4d reviews\n", category.Label(), pages, s.ReviewsByCategory[category])
		if w.verbose {
			for _, tc := range s.TagDistribution[category] {
				fmt.Fprintf(sb, "      %-30s %d\n", tc.Tag, tc.Count)
			}
		}
	}
	fmt.Fprintf(sb, "\n  Average reviews per page:      %.1f\n", s.AverageReviewsPerPage)
	fmt.Fprintf(sb, "  Average service tags per page: %.1f\n\n", s.AverageServiceTagsPerPage)
}

// writeFindings writes all findings grouped by severity.
func (w *SimpleWriter) writeFindings(sb *strings.Builder, findings []model.Finding) {
	if len(findings) == 0 && !w.showEmpty {
		return
	}

	w.section(sb, "FINDINGS")

	grouped := groupBySeverity(findings)
	for _, severity := range model.Severities {
		list := grouped[severity]
		if len(list) == 0 && !w.showEmpty {
			continue
		}
		w.writeFindingsForSeverity(sb, severity, list)
	}
}

// writeFindingsForSeverity writes findings of a specific severity level.
func (w *SimpleWriter) writeFindingsForSeverity(sb *strings.Builder, severity model.Severity, findings []model.Finding) {
	header := fmt.Sprintf("[%s] %s", severityIndicator(severity), severity.String())
	sb.WriteString(w.colors[severity].Sprint(header))
	sb.WriteString("\n")

	if len(findings) == 0 {
		sb.WriteString("  No findings\n\n")
		return
	}

	for _, finding := range findings {
		fmt.Fprintf(sb, "  * %s\n", finding.Title)
		if finding.Value != "" {
			fmt.Fprintf(sb, "    Value: %s\n", finding.Value)
		}
		if finding.Location != "" {
			fmt.Fprintf(sb, "    Location: %s\n", finding.Location)
		}
		if w.verbose {
			if finding.Description != "" {
				fmt.Fprintf(sb, "    Description: %s\n", finding.Description)
			}
			if finding.Recommendation != "" {
				fmt.Fprintf(sb, "    Recommendation: %s\n", finding.Recommendation)
			}
		}
	}
	sb.WriteString("\n")
}

// writeSkipped lists pages the categorization rules did not cover.
func (w *SimpleWriter) writeSkipped(sb *strings.Builder, report *model.AuditReport) {
	if !w.verbose || len(report.SkippedPages) == 0 {
		return
	}

	w.section(sb, "SKIPPED PAGES")
	for _, p := range report.SkippedPages {
		fmt.Fprintf(sb, "  - %s: %s\n", p.Page, p.Reason)
	}
	sb.WriteString("\n")
}

// severityIndicator returns a visual indicator for the severity level.
func severityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "!!!"
	case model.SeverityHigh:
		return "!!"
	case model.SeverityMedium:
		return "!"
	case model.SeverityLow:
		return "-"
	case model.SeverityInfo:
		return "i"
	default:
		return "?"
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("Report generated by reviewaudit\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}
