package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/reviewaudit/internal/model"
)

// MarkdownWriter outputs reports in Markdown format for sharing with the
// people who maintain the site content.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.AuditReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	findings := report.Findings()
	counts := report.CountBySeverity()

	w.writeHeader(md, report)
	w.writeSummary(md, counts)
	w.writeCategories(md, report)
	w.writeFindings(md, findings)
	w.writeSkipped(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with audit information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.AuditReport) {
	md.H1("Review Audit Report")
	md.PlainText("")

	date := "-"
	if !report.DateAudited.IsZero() {
		date = report.DateAudited.Format("2006-01-02 15:04:05 MST")
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Site", "`" + report.Site + "`"},
			{"Audit Date", date},
			{"Pages", strconv.Itoa(report.Summary.TotalPages)},
			{"Reviews", strconv.Itoa(report.Summary.TotalReviews)},
			{"Service Tags", strconv.Itoa(report.Summary.TotalServiceTags)},
			{"Similarity Threshold", fmt.Sprintf("%.0f%%", report.SimilarityThreshold*100)},
		},
	})
	md.PlainText("")
}

// writeSummary writes the severity summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, counts model.SeverityCounts) {
	md.H2("Severity Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Count"},
		Rows: [][]string{
			{"🔴 Critical", strconv.Itoa(counts.Critical)},
			{"🟠 High", strconv.Itoa(counts.High)},
			{"🟡 Medium", strconv.Itoa(counts.Medium)},
			{"🔵 Low", strconv.Itoa(counts.Low)},
			{"⚪ Info", strconv.Itoa(counts.Info)},
			{"**Total**", "**" + strconv.Itoa(counts.Total()) + "**"},
		},
	})
	md.PlainText("")

	if counts.Total() > 0 {
		w.writePieChart(md, counts)
	}

	w.writeAlert(md, counts)
}

// writePieChart writes a mermaid pie chart for severity distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts model.SeverityCounts) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Finding Severity Distribution"),
		piechart.WithShowData(true),
	)

	for _, sev := range model.Severities {
		if n := counts.Get(sev); n > 0 {
			chart.LabelAndIntValue(sev.String(), uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on severity counts.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, counts model.SeverityCounts) {
	switch {
	case counts.Critical > 0:
		md.Cautionf(
			"%d review(s) are practically identical to another review and should be replaced.",
			counts.Critical,
		)
	case counts.High > 0:
		md.Warningf(
			"%d finding(s) indicate recycled testimonials.",
			counts.High,
		)
	case counts.Medium > 0:
		md.Importantf(
			"%d page(s) show reviews that do not fit their category.",
			counts.Medium,
		)
	case counts.Total() > 0:
		md.Note("Only low severity and informational findings detected.")
	default:
		md.Tip("No duplicated or miscategorized reviews detected.")
	}
	md.PlainText("")
}

// writeCategories writes the per-category counters and tag distribution.
func (w *MarkdownWriter) writeCategories(md *markdown.Markdown, report *model.AuditReport) {
	s := report.Summary

	md.H2("Pages by Category")
	md.PlainText("")

	rows := make([][]string, 0, len(model.Categories))
	for _, category := range model.Categories {
		if s.PagesByCategory[category] == 0 {
			continue
		}
		rows = append(rows, []string{
			category.Label(),
			strconv.Itoa(s.PagesByCategory[category]),
			strconv.Itoa(s.ReviewsByCategory[category]),
			topTagsCell(s.TagDistribution[category], 3),
		})
	}
	if len(rows) == 0 {
		md.PlainText("No pages audited.")
		md.PlainText("")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"Category", "Pages", "Reviews", "Top Tags"},
		Rows:   rows,
	})
	md.PlainText("")
	md.PlainTextf("Average reviews per page: %.1f, average service tags per page: %.1f",
		s.AverageReviewsPerPage, s.AverageServiceTagsPerPage)
	md.PlainText("")
}

// topTagsCell renders the first n tag counts as "Tag (3), Other (1)".
func topTagsCell(tags []model.TagCount, n int) string {
	if len(tags) == 0 {
		return "-"
	}
	if len(tags) > n {
		tags = tags[:n]
	}
	cell := ""
	for i, tc := range tags {
		if i > 0 {
			cell += ", "
		}
		cell += fmt.Sprintf("%s (%d)", tc.Tag, tc.Count)
	}
	return cell
}

// writeFindings writes all findings grouped by severity.
func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, findings []model.Finding) {
	md.H2("Findings")
	md.PlainText("")

	if len(findings) == 0 {
		md.PlainText("No findings.")
		md.PlainText("")
		return
	}

	headers := map[model.Severity]string{
		model.SeverityCritical: "### 🔴 Critical",
		model.SeverityHigh:     "### 🟠 High",
		model.SeverityMedium:   "### 🟡 Medium",
		model.SeverityLow:      "### 🔵 Low",
		model.SeverityInfo:     "### ⚪ Info",
	}

	grouped := groupBySeverity(findings)
	for _, sev := range model.Severities {
		list := grouped[sev]
		if len(list) == 0 {
			continue
		}

		md.PlainText(headers[sev])
		md.PlainText("")
		w.writeFindingsTable(md, list)
	}
}

// writeFindingsTable writes a table of findings with details.
func (w *MarkdownWriter) writeFindingsTable(md *markdown.Markdown, findings []model.Finding) {
	rows := make([][]string, len(findings))
	for i, f := range findings {
		rows[i] = []string{
			f.Title,
			truncateString(orDash(f.Value), 50),
			truncateString(orDash(f.Location), 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Title", "Value", "Location"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, f := range findings {
		if f.Description == "" {
			continue
		}
		body := f.Description
		if f.Recommendation != "" {
			body += "\n\n" + f.Recommendation
		}
		md.Details(f.Title+" ("+orDash(f.Location)+")", body)
	}
	md.PlainText("")
}

// writeSkipped lists pages the categorization rules did not cover.
func (w *MarkdownWriter) writeSkipped(md *markdown.Markdown, report *model.AuditReport) {
	if len(report.SkippedPages) == 0 {
		return
	}

	md.H2("Skipped Pages")
	md.PlainText("")

	items := make([]string, len(report.SkippedPages))
	for i, p := range report.SkippedPages {
		items[i] = "`" + p.Page + "`: " + p.Reason
	}
	md.BulletList(items...)
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by reviewaudit*")
}
