package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/reviewaudit/internal/model"
)

// createTestReport creates a report with one result of every kind.
func createTestReport() *model.AuditReport {
	report := model.NewAuditReport(0.8)
	report.Site = "example-site"
	report.DateAudited = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	report.DuplicateIdentities = append(report.DuplicateIdentities, model.DuplicateIdentityFinding{
		Name:  "John D.",
		Pages: []string{"index.html", "service-areas/locksmith-austin.html"},
		Count: 2,
	})
	report.SimilarTextPairs = append(report.SimilarTextPairs,
		model.SimilarityFinding{
			Similarity: 0.97,
			Left:       model.ReviewRef{Page: "index.html", Text: "Great fast service!"},
			Right:      model.ReviewRef{Page: "about.html", Text: "Great fast service!!"},
		},
		model.SimilarityFinding{
			Similarity: 0.85,
			Left:       model.ReviewRef{Page: "index.html", Text: "Quick and friendly"},
			Right:      model.ReviewRef{Page: "index.html", Text: "Quick and very friendly"},
		},
	)
	report.CategorizationIssues = append(report.CategorizationIssues, model.CategorizationIssue{
		Page:            "service-areas/locksmith-austin.html",
		Category:        model.CategoryServiceArea,
		Kind:            model.IssueInsufficientDiversity,
		Tags:            []string{"Car Lockout"},
		MinDistinctTags: 3,
	})
	report.SkippedPages = append(report.SkippedPages, model.SkippedPage{
		Page:   "services/storage-unit-lockout.html",
		Reason: "no keyword rule for page",
	})
	report.Summary.TotalPages = 3
	report.Summary.TotalReviews = 5
	report.Summary.PagesByCategory[model.CategoryMain] = 2
	report.Summary.ReviewsByCategory[model.CategoryMain] = 4
	report.Summary.TagDistribution[model.CategoryMain] = []model.TagCount{{Tag: "Lock Rekey", Count: 3}}
	report.Summary.NearIdenticalPairs = 1

	return report
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report header", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "REVIEW AUDIT REPORT") {
			t.Error("expected output to contain header")
		}
		if !strings.Contains(output, "example-site") {
			t.Error("expected output to contain site name")
		}
		if !strings.Contains(output, "2025-03-01") {
			t.Error("expected output to contain audit date")
		}
	})

	t.Run("writes severity summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "SEVERITY SUMMARY") {
			t.Error("expected output to contain severity summary")
		}
		if !strings.Contains(output, "TOTAL:    4 findings") {
			t.Errorf("expected 4 findings in output:\n%s", output)
		}
		if !strings.Contains(output, "(1 near-identical)") {
			t.Error("expected near-identical count")
		}
	})

	t.Run("writes findings grouped by severity", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		critical := strings.Index(output, "[!!!] CRITICAL")
		high := strings.Index(output, "[!!] HIGH")
		medium := strings.Index(output, "[!] MEDIUM")
		if critical < 0 || high < 0 || medium < 0 {
			t.Fatalf("expected all severity groups in output:\n%s", output)
		}
		if critical >= high || high >= medium {
			t.Error("expected severities from most to least severe")
		}
		if !strings.Contains(output, "Practically identical review text") {
			t.Error("expected identical text finding")
		}
		if !strings.Contains(output, "Location: index.html, service-areas/locksmith-austin.html") {
			t.Error("expected duplicate identity pages")
		}
	})

	t.Run("verbose mode includes descriptions and skipped pages", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "Description:") {
			t.Error("expected descriptions in verbose output")
		}
		if !strings.Contains(output, "SKIPPED PAGES") || !strings.Contains(output, "storage-unit-lockout") {
			t.Error("expected skipped pages in verbose output")
		}
		if !strings.Contains(output, "Lock Rekey") {
			t.Error("expected tag distribution in verbose output")
		}
	})

	t.Run("no colour codes by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "\x1b[") {
			t.Error("expected no ANSI escape codes")
		}
	})

	t.Run("colour codes when enabled", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithColor(true)).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\x1b[") {
			t.Error("expected ANSI escape codes")
		}
	})
}

// TestSimpleWriterSeverityIndicators tests severity indicators for all levels.
func TestSimpleWriterSeverityIndicators(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewSimpleWriter(&buf, WithShowEmpty(true))
	if _, err := w.Write(model.NewAuditReport(0.8)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, indicator := range []string{"[!!!]", "[!!]", "[!]", "[-]", "[i]"} {
		if !strings.Contains(output, indicator) {
			t.Errorf("expected indicator %s", indicator)
		}
	}
	if !strings.Contains(output, "No findings") {
		t.Error("expected empty severity groups")
	}
}

// TestSimpleWriterEmptyReport tests that empty sections are hidden.
func TestSimpleWriterEmptyReport(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewSimpleWriter(&buf).Write(model.NewAuditReport(0.8)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if strings.Contains(output, "FINDINGS") {
		t.Error("expected findings section to be hidden")
	}
	if strings.Contains(output, "PAGES BY CATEGORY") {
		t.Error("expected category section to be hidden")
	}
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("outputs valid JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded model.AuditReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Site != "example-site" {
			t.Errorf("expected site example-site, got %s", decoded.Site)
		}
		if len(decoded.SimilarTextPairs) != 2 {
			t.Errorf("expected 2 similar pairs, got %d", len(decoded.SimilarTextPairs))
		}
	})

	t.Run("compact output by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if lines := strings.Count(strings.TrimSpace(buf.String()), "\n"); lines != 0 {
			t.Errorf("expected single line, got %d newlines", lines)
		}
	})

	t.Run("pretty print with indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "\n  \"site\"") {
			t.Error("expected indented output")
		}
	})

	t.Run("empty results serialize as arrays", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(model.NewAuditReport(0.8)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "null") {
			t.Errorf("expected no null values, got %s", buf.String())
		}
	})

	t.Run("includes findings and version", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithFindings("1.2.3")).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded JSONReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Version != "1.2.3" {
			t.Errorf("expected version 1.2.3, got %s", decoded.Version)
		}
		if len(decoded.Findings) != 4 {
			t.Errorf("expected 4 findings, got %d", len(decoded.Findings))
		}
		expected := model.SeverityCounts{Critical: 1, High: 2, Medium: 1}
		if decoded.Severity != expected {
			t.Errorf("severity = %+v, expected %+v", decoded.Severity, expected)
		}
	})
}

// TestWithIndent tests custom indentation.
func TestWithIndent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewJSONWriter(&buf, WithIndent(">", "\t")).Write(createTestReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "\n>\t\"site\"") {
		t.Error("expected custom prefix and tab indentation")
	}
}

// TestMultiWriter tests writing to multiple outputs.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var buf1, buf2 bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(&buf1), NewJSONWriter(&buf2))

		n, err := mw.Write(createTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf1.Len()+buf2.Len() {
			t.Errorf("expected %d bytes, got %d", buf1.Len()+buf2.Len(), n)
		}
		if strings.HasPrefix(strings.TrimSpace(buf1.String()), "{") {
			t.Error("expected buf1 (simple) to not be JSON")
		}
		if !strings.HasPrefix(buf2.String(), "{") {
			t.Error("expected buf2 to contain JSON")
		}
	})

	t.Run("handles empty writers list", func(t *testing.T) {
		t.Parallel()

		n, err := NewMultiWriter().Write(createTestReport())
		if err != nil || n != 0 {
			t.Errorf("expected 0, nil; got %d, %v", n, err)
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	write := func(t *testing.T, report *model.AuditReport) string {
		t.Helper()
		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return buf.String()
	}

	t.Run("writes report header", func(t *testing.T) {
		t.Parallel()

		output := write(t, createTestReport())
		if !strings.Contains(output, "# Review Audit Report") {
			t.Error("expected H1 header")
		}
		if !strings.Contains(output, "`example-site`") {
			t.Error("expected site name")
		}
	})

	t.Run("writes severity summary and pie chart", func(t *testing.T) {
		t.Parallel()

		output := write(t, createTestReport())
		if !strings.Contains(output, "## Severity Summary") {
			t.Error("expected severity summary")
		}
		if !strings.Contains(output, "pie") {
			t.Error("expected mermaid pie chart")
		}
	})

	t.Run("includes caution alert for critical findings", func(t *testing.T) {
		t.Parallel()

		if output := write(t, createTestReport()); !strings.Contains(output, "[!CAUTION]") {
			t.Error("expected CAUTION alert")
		}
	})

	t.Run("writes findings, categories and skipped pages", func(t *testing.T) {
		t.Parallel()

		output := write(t, createTestReport())
		for _, want := range []string{
			"### 🔴 Critical",
			"### 🟠 High",
			"### 🟡 Medium",
			"Too few distinct services on page",
			"## Pages by Category",
			"Lock Rekey (3)",
			"## Skipped Pages",
			"<details>",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected %q in output", want)
			}
		}
	})

	t.Run("handles report with no findings", func(t *testing.T) {
		t.Parallel()

		output := write(t, model.NewAuditReport(0.8))
		if !strings.Contains(output, "No findings.") {
			t.Error("expected no-findings message")
		}
		if !strings.Contains(output, "[!TIP]") {
			t.Error("expected TIP alert")
		}
		if strings.Contains(output, "```mermaid") {
			t.Error("expected no pie chart")
		}
	})
}

// TestTruncateString tests string truncation.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
		{"ñandú ñandú", 8, "ñandú..."},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := truncateString(tt.input, tt.maxLen); got != tt.expected {
				t.Errorf("truncateString(%q, %d) = %q, expected %q", tt.input, tt.maxLen, got, tt.expected)
			}
		})
	}
}
