package model

// DuplicateIdentityFinding reports a customer name shown on several pages.
// Count always equals len(Pages) and is at least 2.
type DuplicateIdentityFinding struct {
	// Name is the customer name exactly as displayed.
	Name string `json:"name"`

	// Pages are the distinct page paths showing the name, sorted.
	Pages []string `json:"pages"`

	// Count is the number of distinct pages.
	Count int `json:"count"`
}

// ReviewRef identifies one side of a near-duplicate pair.
type ReviewRef struct {
	// Page is the page path holding the review.
	Page string `json:"page"`

	// Customer is the reviewer name, empty when unknown.
	Customer string `json:"customer,omitempty"`

	// Text is the full review text.
	Text string `json:"text"`
}

// SimilarityFinding reports two review texts whose similarity ratio
// exceeds the configured threshold. The pair is unordered; Left is the
// review that comes first in corpus iteration order.
type SimilarityFinding struct {
	// Similarity is the ratio in [0, 1].
	Similarity float64 `json:"similarity"`

	// Left is the first review of the pair.
	Left ReviewRef `json:"left"`

	// Right is the second review of the pair.
	Right ReviewRef `json:"right"`
}

// IssueKind names the categorization rule a page broke.
type IssueKind string

const (
	// IssueInsufficientDiversity means a page shows too few distinct service tags.
	IssueInsufficientDiversity IssueKind = "insufficient_diversity"

	// IssueUnexpectedTags means a service category page shows tags that do
	// not belong to its category.
	IssueUnexpectedTags IssueKind = "unexpected_tags"

	// IssueMismatchedFocus means most tags on an individual service page do
	// not match the page's service.
	IssueMismatchedFocus IssueKind = "mismatched_focus"
)

// CategorizationIssue reports a page whose service tags are inconsistent
// with its category. Only the detail fields relevant to Kind are set.
type CategorizationIssue struct {
	// Page is the offending page path.
	Page string `json:"page"`

	// Category is the page category.
	Category Category `json:"category"`

	// Kind is the broken rule.
	Kind IssueKind `json:"kind"`

	// Rule names the expectation rule that was applied, if any.
	Rule string `json:"rule,omitempty"`

	// Tags is the full set of distinct tags observed on the page, sorted.
	Tags []string `json:"tags"`

	// MinDistinctTags is the required number of distinct tags
	// (insufficient_diversity only).
	MinDistinctTags int `json:"min_distinct_tags,omitempty"`

	// UnexpectedTags are the tags outside the expected set
	// (unexpected_tags only).
	UnexpectedTags []string `json:"unexpected_tags,omitempty"`

	// ExpectedKeywords are the keywords of the page's service
	// (mismatched_focus only).
	ExpectedKeywords []string `json:"expected_keywords,omitempty"`

	// MismatchedTags are the tags matching no keyword
	// (mismatched_focus only).
	MismatchedTags []string `json:"mismatched_tags,omitempty"`
}

// SkippedPage records a page the categorization rules could not be
// applied to. Skipping never aborts the audit.
type SkippedPage struct {
	// Page is the skipped page path.
	Page string `json:"page"`

	// Reason describes why the page was skipped.
	Reason string `json:"reason"`
}

// Finding is a flattened, severity-rated view of any audit result.
// Report writers render findings grouped by severity.
type Finding struct {
	// Type is the finding type identifier.
	// This maps to findingInfoMapping in severity.go.
	Type string `json:"type"`

	// Severity is the risk level.
	Severity Severity `json:"severity"`

	// SeverityText is the human-readable severity.
	SeverityText string `json:"severity_text"`

	// Title is a short description of the finding.
	Title string `json:"title"`

	// Description provides more detail about the finding.
	Description string `json:"description,omitempty"`

	// Impact explains why the finding matters for the site's credibility.
	Impact string `json:"impact,omitempty"`

	// Recommendation provides guidance on how to address the finding.
	Recommendation string `json:"recommendation,omitempty"`

	// Value is the specific value found (name, tag list, similarity).
	Value string `json:"value,omitempty"`

	// Location is the page or pages involved.
	Location string `json:"location,omitempty"`
}

// newFinding builds a Finding with severity metadata filled in from the
// finding type.
func newFinding(findingType, title, description, value, location string) Finding {
	info := GetFindingInfo(findingType)
	return Finding{
		Type:           findingType,
		Severity:       info.Severity,
		SeverityText:   info.Severity.String(),
		Title:          title,
		Description:    description,
		Impact:         info.Impact,
		Recommendation: info.Recommendation,
		Value:          value,
		Location:       location,
	}
}
