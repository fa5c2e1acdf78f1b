package model

import "testing"

// TestSeverityString tests the String method of Severity.
func TestSeverityString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		severity Severity
		expected string
	}{
		{SeverityInfo, "INFO"},
		{SeverityLow, "LOW"},
		{SeverityMedium, "MEDIUM"},
		{SeverityHigh, "HIGH"},
		{SeverityCritical, "CRITICAL"},
		{Severity(999), "UNKNOWN"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if tc.severity.String() != tc.expected {
				t.Errorf("got %q, expected %q", tc.severity.String(), tc.expected)
			}
		})
	}
}

// TestGetSeverity tests the GetSeverity function.
func TestGetSeverity(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		findingType string
		expected    Severity
	}{
		{FindingIdenticalText, SeverityCritical},
		{FindingDuplicateIdentity, SeverityHigh},
		{FindingSimilarText, SeverityHigh},
		{FindingInsufficientDiversity, SeverityMedium},
		{FindingUnexpectedTags, SeverityMedium},
		{FindingMismatchedFocus, SeverityMedium},

		// Unknown finding type defaults to Info
		{"unknown_type", SeverityInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.findingType, func(t *testing.T) {
			t.Parallel()
			result := GetSeverity(tc.findingType)
			if result != tc.expected {
				t.Errorf("GetSeverity(%q) = %v, expected %v", tc.findingType, result, tc.expected)
			}
		})
	}
}

// TestSeverityOrdering tests that severity levels are ordered correctly.
func TestSeverityOrdering(t *testing.T) {
	t.Parallel()

	for i := 1; i < len(Severities); i++ {
		if Severities[i-1] <= Severities[i] {
			t.Errorf("expected %v > %v", Severities[i-1], Severities[i])
		}
	}
}

// TestGetFindingInfo tests the GetFindingInfo function.
func TestGetFindingInfo(t *testing.T) {
	t.Parallel()

	t.Run("every known finding type has impact and recommendation", func(t *testing.T) {
		t.Parallel()

		for findingType := range findingInfoMapping {
			info := GetFindingInfo(findingType)
			if info.Impact == "" {
				t.Errorf("%s: expected non-empty Impact", findingType)
			}
			if info.Recommendation == "" {
				t.Errorf("%s: expected non-empty Recommendation", findingType)
			}
		}
	})

	t.Run("returns default info for unknown finding type", func(t *testing.T) {
		t.Parallel()

		info := GetFindingInfo("completely_unknown_type")

		if info.Severity != SeverityInfo {
			t.Errorf("expected SeverityInfo for unknown type, got %v", info.Severity)
		}
		if info.Impact == "" {
			t.Error("expected non-empty default Impact")
		}
		if info.Recommendation == "" {
			t.Error("expected non-empty default Recommendation")
		}
	})
}
