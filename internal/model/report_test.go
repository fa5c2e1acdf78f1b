package model

import (
	"encoding/json"
	"testing"
)

func sampleReport() *AuditReport {
	r := NewAuditReport(0.8)
	r.DuplicateIdentities = append(r.DuplicateIdentities, DuplicateIdentityFinding{
		Name:  "John D.",
		Pages: []string{"about.html", "index.html"},
		Count: 2,
	})
	r.SimilarTextPairs = append(r.SimilarTextPairs,
		SimilarityFinding{
			Similarity: 0.97,
			Left:       ReviewRef{Page: "a.html", Text: "Great fast service!"},
			Right:      ReviewRef{Page: "a.html", Text: "Great fast service!!"},
		},
		SimilarityFinding{
			Similarity: 0.85,
			Left:       ReviewRef{Page: "a.html", Text: "Quick and friendly"},
			Right:      ReviewRef{Page: "b.html", Text: "Quick and very friendly"},
		},
	)
	r.CategorizationIssues = append(r.CategorizationIssues, CategorizationIssue{
		Page:            "service-areas/locksmith-austin.html",
		Category:        CategoryServiceArea,
		Kind:            IssueInsufficientDiversity,
		Tags:            []string{"Car Lockout"},
		MinDistinctTags: 3,
	})
	return r
}

// TestNewAuditReport tests the AuditReport constructor.
func TestNewAuditReport(t *testing.T) {
	t.Parallel()

	r := NewAuditReport(0.8)

	t.Run("records the threshold", func(t *testing.T) {
		t.Parallel()
		if r.SimilarityThreshold != 0.8 {
			t.Errorf("got %v, expected 0.8", r.SimilarityThreshold)
		}
	})

	t.Run("empty sequences serialize as arrays", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(r)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		for _, key := range []string{"duplicate_identities", "similar_text_pairs", "categorization_issues", "skipped_pages"} {
			if _, ok := decoded[key].([]any); !ok {
				t.Errorf("%s = %v, expected empty array", key, decoded[key])
			}
		}
	})

	t.Run("has no issues", func(t *testing.T) {
		t.Parallel()
		if r.HasIssues() {
			t.Error("expected HasIssues() to be false")
		}
	})
}

// TestAuditReportFindings tests flattening of audit results.
func TestAuditReportFindings(t *testing.T) {
	t.Parallel()

	r := sampleReport()
	findings := r.Findings()

	if len(findings) != 4 {
		t.Fatalf("got %d findings, expected 4", len(findings))
	}

	testCases := []struct {
		index    int
		typ      string
		severity Severity
		location string
	}{
		{0, FindingDuplicateIdentity, SeverityHigh, "about.html, index.html"},
		{1, FindingIdenticalText, SeverityCritical, "a.html"},
		{2, FindingSimilarText, SeverityHigh, "a.html, b.html"},
		{3, FindingInsufficientDiversity, SeverityMedium, "service-areas/locksmith-austin.html"},
	}

	for _, tc := range testCases {
		f := findings[tc.index]
		if f.Type != tc.typ {
			t.Errorf("findings[%d].Type = %q, expected %q", tc.index, f.Type, tc.typ)
		}
		if f.Severity != tc.severity {
			t.Errorf("findings[%d].Severity = %v, expected %v", tc.index, f.Severity, tc.severity)
		}
		if f.SeverityText != tc.severity.String() {
			t.Errorf("findings[%d].SeverityText = %q", tc.index, f.SeverityText)
		}
		if f.Location != tc.location {
			t.Errorf("findings[%d].Location = %q, expected %q", tc.index, f.Location, tc.location)
		}
		if f.Recommendation == "" {
			t.Errorf("findings[%d] has no recommendation", tc.index)
		}
	}
}

// TestAuditReportCountBySeverity tests severity counting.
func TestAuditReportCountBySeverity(t *testing.T) {
	t.Parallel()

	counts := sampleReport().CountBySeverity()

	expected := SeverityCounts{Critical: 1, High: 2, Medium: 1}
	if counts != expected {
		t.Errorf("got %+v, expected %+v", counts, expected)
	}
	if counts.Total() != 4 {
		t.Errorf("Total() = %d, expected 4", counts.Total())
	}
	if counts.Get(SeverityHigh) != 2 {
		t.Errorf("Get(High) = %d, expected 2", counts.Get(SeverityHigh))
	}
}

// TestAuditReportJSONRoundTrip tests that a report survives serialization.
func TestAuditReportJSONRoundTrip(t *testing.T) {
	t.Parallel()

	r := sampleReport()
	r.Summary.PagesByCategory[CategoryServiceArea] = 1
	r.Summary.TagDistribution[CategoryServiceArea] = []TagCount{{Tag: "Car Lockout", Count: 1}}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded AuditReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if len(decoded.SimilarTextPairs) != 2 || decoded.SimilarTextPairs[0].Similarity != 0.97 {
		t.Errorf("similar pairs not preserved: %+v", decoded.SimilarTextPairs)
	}
	if decoded.CategorizationIssues[0].MinDistinctTags != 3 {
		t.Errorf("MinDistinctTags not preserved")
	}
	if decoded.Summary.PagesByCategory[CategoryServiceArea] != 1 {
		t.Errorf("PagesByCategory not preserved")
	}
	if got := decoded.Summary.TagDistribution[CategoryServiceArea]; len(got) != 1 || got[0].Tag != "Car Lockout" {
		t.Errorf("TagDistribution not preserved: %+v", got)
	}
}
