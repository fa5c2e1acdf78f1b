package model

import (
	"fmt"
	"strings"
	"time"
)

// IdenticalThreshold is the similarity above which two reviews are counted
// as practically identical rather than merely similar.
const IdenticalThreshold = 0.95

// AuditReport is the aggregated result of one audit run.
// It is built once by the auditor and only read afterwards; report writers
// and the database consume it as-is.
type AuditReport struct {
	// Site identifies the audited site (a directory or corpus file name).
	// Set by the caller; the auditor leaves it empty.
	Site string `json:"site"`

	// DateAudited is when the audit was performed. Set by the caller.
	DateAudited time.Time `json:"date_audited"`

	// SimilarityThreshold is the ratio a pair of texts had to exceed.
	SimilarityThreshold float64 `json:"similarity_threshold"`

	// DuplicateIdentities are customer names shown on several pages,
	// sorted by name.
	DuplicateIdentities []DuplicateIdentityFinding `json:"duplicate_identities"`

	// SimilarTextPairs are near-duplicate review pairs, sorted by
	// similarity descending.
	SimilarTextPairs []SimilarityFinding `json:"similar_text_pairs"`

	// CategorizationIssues are tag/category problems in page order.
	CategorizationIssues []CategorizationIssue `json:"categorization_issues"`

	// SkippedPages are pages the categorization rules were not applied to.
	SkippedPages []SkippedPage `json:"skipped_pages"`

	// Summary holds the corpus counters.
	Summary Summary `json:"summary"`
}

// Summary contains the counters reported alongside the findings.
type Summary struct {
	// TotalPages is the number of pages in the corpus.
	TotalPages int `json:"total_pages"`

	// TotalReviews is the number of review records across all pages.
	TotalReviews int `json:"total_reviews"`

	// TotalServiceTags is the number of service tags found on all pages,
	// counting repeats.
	TotalServiceTags int `json:"total_service_tags"`

	// AverageReviewsPerPage is 0 for an empty corpus.
	AverageReviewsPerPage float64 `json:"average_reviews_per_page"`

	// AverageServiceTagsPerPage is 0 for an empty corpus.
	AverageServiceTagsPerPage float64 `json:"average_service_tags_per_page"`

	// PagesByCategory counts pages per category.
	PagesByCategory map[Category]int `json:"pages_by_category"`

	// ReviewsByCategory counts reviews per category.
	ReviewsByCategory map[Category]int `json:"reviews_by_category"`

	// TagDistribution lists the most frequent review tags per category.
	TagDistribution map[Category][]TagCount `json:"tag_distribution"`

	// NearIdenticalPairs counts similar pairs above IdenticalThreshold.
	NearIdenticalPairs int `json:"near_identical_pairs"`
}

// TagCount is a service tag with its number of occurrences.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// SeverityCounts holds the number of findings per severity.
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
}

// Total returns the number of findings of any severity.
func (s SeverityCounts) Total() int {
	return s.Critical + s.High + s.Medium + s.Low + s.Info
}

// Get returns the count for one severity.
func (s SeverityCounts) Get(severity Severity) int {
	switch severity {
	case SeverityCritical:
		return s.Critical
	case SeverityHigh:
		return s.High
	case SeverityMedium:
		return s.Medium
	case SeverityLow:
		return s.Low
	case SeverityInfo:
		return s.Info
	default:
		return 0
	}
}

// NewAuditReport creates a report with every sequence initialized, so that
// empty results serialize as [] rather than null.
func NewAuditReport(threshold float64) *AuditReport {
	return &AuditReport{
		SimilarityThreshold:  threshold,
		DuplicateIdentities:  make([]DuplicateIdentityFinding, 0),
		SimilarTextPairs:     make([]SimilarityFinding, 0),
		CategorizationIssues: make([]CategorizationIssue, 0),
		SkippedPages:         make([]SkippedPage, 0),
		Summary: Summary{
			PagesByCategory:   make(map[Category]int),
			ReviewsByCategory: make(map[Category]int),
			TagDistribution:   make(map[Category][]TagCount),
		},
	}
}

// HasIssues reports whether the audit produced any finding.
func (r *AuditReport) HasIssues() bool {
	return len(r.DuplicateIdentities) > 0 ||
		len(r.SimilarTextPairs) > 0 ||
		len(r.CategorizationIssues) > 0
}

// Findings flattens every result of the report into severity-rated
// findings, in the order duplicate identities, similar texts,
// categorization issues.
func (r *AuditReport) Findings() []Finding {
	findings := make([]Finding, 0,
		len(r.DuplicateIdentities)+len(r.SimilarTextPairs)+len(r.CategorizationIssues))

	for _, d := range r.DuplicateIdentities {
		findings = append(findings, newFinding(
			FindingDuplicateIdentity,
			"Customer name used on multiple pages",
			fmt.Sprintf("%q appears on %d pages", d.Name, d.Count),
			d.Name,
			strings.Join(d.Pages, ", "),
		))
	}

	for _, s := range r.SimilarTextPairs {
		findingType := FindingSimilarText
		title := "Near-duplicate review text"
		if s.Similarity > IdenticalThreshold {
			findingType = FindingIdenticalText
			title = "Practically identical review text"
		}
		findings = append(findings, newFinding(
			findingType,
			title,
			fmt.Sprintf("%s: %q / %s: %q", s.Left.Page, s.Left.Text, s.Right.Page, s.Right.Text),
			fmt.Sprintf("%.1f%%", s.Similarity*100),
			pairLocation(s.Left.Page, s.Right.Page),
		))
	}

	for _, issue := range r.CategorizationIssues {
		findings = append(findings, issue.finding())
	}

	return findings
}

// CountBySeverity counts the flattened findings per severity.
func (r *AuditReport) CountBySeverity() SeverityCounts {
	var counts SeverityCounts
	for _, f := range r.Findings() {
		switch f.Severity {
		case SeverityCritical:
			counts.Critical++
		case SeverityHigh:
			counts.High++
		case SeverityMedium:
			counts.Medium++
		case SeverityLow:
			counts.Low++
		case SeverityInfo:
			counts.Info++
		}
	}
	return counts
}

// pairLocation joins two page paths, collapsing a same-page pair.
func pairLocation(left, right string) string {
	if left == right {
		return left
	}
	return left + ", " + right
}

// finding converts the issue into its flattened form.
func (c CategorizationIssue) finding() Finding {
	switch c.Kind {
	case IssueInsufficientDiversity:
		return newFinding(
			FindingInsufficientDiversity,
			"Too few distinct services on page",
			fmt.Sprintf("%d distinct tags, at least %d expected", len(c.Tags), c.MinDistinctTags),
			strings.Join(c.Tags, ", "),
			c.Page,
		)
	case IssueUnexpectedTags:
		return newFinding(
			FindingUnexpectedTags,
			"Service tags outside the page category",
			fmt.Sprintf("%d of %d tags do not belong to %s", len(c.UnexpectedTags), len(c.Tags), c.Rule),
			strings.Join(c.UnexpectedTags, ", "),
			c.Page,
		)
	case IssueMismatchedFocus:
		return newFinding(
			FindingMismatchedFocus,
			"Reviews do not match the page's service",
			fmt.Sprintf("%d of %d tags match none of: %s",
				len(c.MismatchedTags), len(c.Tags), strings.Join(c.ExpectedKeywords, ", ")),
			strings.Join(c.MismatchedTags, ", "),
			c.Page,
		)
	default:
		return newFinding(string(c.Kind), "Categorization issue", "", strings.Join(c.Tags, ", "), c.Page)
	}
}
