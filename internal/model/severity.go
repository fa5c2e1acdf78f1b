package model

// Severity represents how badly a finding undermines the credibility of a
// site's testimonials.
//
// Severities are ordered integers so that findings can be compared and
// sorted; String provides the label used in reports.
type Severity int

const (
	// SeverityInfo indicates informational findings.
	SeverityInfo Severity = iota

	// SeverityLow indicates minor issues.
	SeverityLow

	// SeverityMedium indicates issues that make a page look off-topic.
	// Examples: a car lockout page whose reviews talk about rekeying houses.
	SeverityMedium

	// SeverityHigh indicates content that looks recycled.
	// Examples: the same customer praising the business on several city pages.
	SeverityHigh

	// SeverityCritical indicates content that is almost certainly copied.
	// Examples: two reviews that differ only by punctuation.
	SeverityCritical
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Severities lists every level from most to least severe.
var Severities = []Severity{
	SeverityCritical,
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
	SeverityInfo,
}

// Finding type identifiers used as keys of findingInfoMapping.
const (
	FindingDuplicateIdentity     = "duplicate_identity"
	FindingSimilarText           = "similar_text"
	FindingIdenticalText         = "identical_text"
	FindingInsufficientDiversity = "insufficient_diversity"
	FindingUnexpectedTags        = "unexpected_tags"
	FindingMismatchedFocus       = "mismatched_focus"
)

// FindingInfo contains metadata about a finding type including severity,
// impact description, and remediation recommendation.
type FindingInfo struct {
	Severity       Severity
	Impact         string
	Recommendation string
}

// findingInfoMapping maps finding types to their metadata.
// Every report format takes its severity and advice from here.
var findingInfoMapping = map[string]FindingInfo{
	FindingIdenticalText: {
		Severity:       SeverityCritical,
		Impact:         "Two reviews are practically identical. Readers and search engines treat copied testimonials as fabricated.",
		Recommendation: "Replace one of the reviews with a distinct, genuine testimonial.",
	},
	FindingDuplicateIdentity: {
		Severity:       SeverityHigh,
		Impact:         "The same customer name appears on several pages, which makes the testimonials look recycled.",
		Recommendation: "Use each customer only once across the site or vary the reviewers per page.",
	},
	FindingSimilarText: {
		Severity:       SeverityHigh,
		Impact:         "Two reviews share most of their wording and read like templated content.",
		Recommendation: "Rewrite one of the reviews or replace it with a different testimonial.",
	},
	FindingInsufficientDiversity: {
		Severity:       SeverityMedium,
		Impact:         "The page shows reviews for too few services, so it does not represent the business's range.",
		Recommendation: "Add reviews covering more service types to this page.",
	},
	FindingUnexpectedTags: {
		Severity:       SeverityMedium,
		Impact:         "The page shows reviews for services outside its category, which confuses visitors.",
		Recommendation: "Move the off-category reviews to the matching service category page.",
	},
	FindingMismatchedFocus: {
		Severity:       SeverityMedium,
		Impact:         "Most reviews on this service page are about other services.",
		Recommendation: "Show reviews that mention the page's service.",
	},
}

// GetSeverity returns the severity level for a finding type.
// Returns SeverityInfo if the finding type is not in the mapping.
func GetSeverity(findingType string) Severity {
	if info, ok := findingInfoMapping[findingType]; ok {
		return info.Severity
	}
	return SeverityInfo
}

// GetFindingInfo returns the full finding information for a finding type.
// Returns a default FindingInfo with SeverityInfo if the type is not in the mapping.
func GetFindingInfo(findingType string) FindingInfo {
	if info, ok := findingInfoMapping[findingType]; ok {
		return info
	}
	return FindingInfo{
		Severity:       SeverityInfo,
		Impact:         "Unknown finding type. Review manually.",
		Recommendation: "Investigate the finding and assess its effect on the page.",
	}
}
