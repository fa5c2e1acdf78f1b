// Package rules holds the category expectation policy applied to audited
// pages.
//
// A Policy is plain data: which service labels are legitimate on each
// service category page, which keywords describe each individual service
// page, and how many distinct services a service area or main page must
// show. It is built once (from Default or from the configuration file) and
// treated as read-only for the whole audit run.
//
// Tag matching is permissive: a tag is accepted when its case-folded form
// contains any expected label. Sibling-category words listed in a rule's
// Exclude list veto an otherwise accepted tag, so that "Commercial Lock
// Rekey" is not accepted on a residential page just because it contains
// "Lock Rekey".
package rules

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/nao1215/reviewaudit/internal/model"
)

// ErrInvalidPolicy is returned by Policy.Validate.
var ErrInvalidPolicy = errors.New("invalid policy")

// DefaultMinDistinctTags is the number of distinct services a service area
// or main page must show.
const DefaultMinDistinctTags = 3

// Policy is the declarative set of category expectation rules.
type Policy struct {
	// Diversity maps a page category to the minimum number of distinct
	// service tags its pages must show. Categories without an entry have
	// no diversity rule.
	Diversity map[model.Category]int `yaml:"diversity"`

	// GeneralLabels are accepted on every service category page.
	GeneralLabels []string `yaml:"general_labels"`

	// ServiceCategories are the rules for service category pages.
	// The first rule whose PathToken occurs in the page path applies.
	ServiceCategories []CategoryRule `yaml:"service_categories"`

	// IndividualServices are the rules for individual service pages.
	// The first rule whose PathToken occurs in the page path applies.
	IndividualServices []KeywordRule `yaml:"individual_services"`
}

// CategoryRule describes the labels legitimate on one service category page.
type CategoryRule struct {
	// Name identifies the rule in findings, e.g. "residential".
	Name string `yaml:"name"`

	// PathToken selects the pages the rule applies to.
	PathToken string `yaml:"path_token"`

	// Labels are the category-specific service labels.
	Labels []string `yaml:"labels"`

	// Exclude lists words of sibling categories. A tag containing one of
	// them as a whole word is never accepted.
	Exclude []string `yaml:"exclude"`
}

// KeywordRule describes the keywords of one individual service page.
type KeywordRule struct {
	// Name identifies the rule in findings, e.g. "car-lockout".
	Name string `yaml:"name"`

	// PathToken selects the pages the rule applies to.
	PathToken string `yaml:"path_token"`

	// Keywords are the words a matching tag contains.
	Keywords []string `yaml:"keywords"`
}

// Default returns the built-in policy for a locksmith site.
func Default() *Policy {
	return &Policy{
		Diversity: map[model.Category]int{
			model.CategoryServiceArea: DefaultMinDistinctTags,
			model.CategoryMain:        DefaultMinDistinctTags,
		},
		GeneralLabels: []string{"Emergency", "Lockout", "Key Cutting", "Lock Repair"},
		ServiceCategories: []CategoryRule{
			{
				Name:      "residential",
				PathToken: "residential",
				Labels:    []string{"Residential", "Home", "House Lockout", "Lock Rekey", "Lock Replacement", "Emergency", "Key Cutting"},
				Exclude:   []string{"commercial", "business", "office", "car", "vehicle", "auto", "automotive"},
			},
			{
				Name:      "automotive",
				PathToken: "auto",
				Labels:    []string{"Automotive", "Car", "Vehicle", "Car Lockout", "Car Key Replacement", "Key Programming", "Ignition"},
				Exclude:   []string{"residential", "home", "house", "commercial", "business", "office"},
			},
			{
				Name:      "commercial",
				PathToken: "commercial",
				Labels:    []string{"Commercial", "Business", "Office", "Business Lockout", "Access Control", "Master Key"},
				Exclude:   []string{"residential", "home", "house", "car", "vehicle", "auto", "automotive"},
			},
		},
		IndividualServices: []KeywordRule{
			{Name: "car-lockout", PathToken: "car-lockout", Keywords: []string{"car", "vehicle", "automotive", "lockout"}},
			{Name: "house-lockout", PathToken: "house-lockout", Keywords: []string{"house", "home", "residential", "lockout"}},
			{Name: "business-lockout", PathToken: "business-lockout", Keywords: []string{"business", "commercial", "office", "lockout"}},
			{Name: "lock-rekey", PathToken: "lock-rekey", Keywords: []string{"rekey", "key"}},
			{Name: "lock-replacement", PathToken: "lock-replacement", Keywords: []string{"replacement", "lock"}},
			{Name: "car-key-replacement", PathToken: "car-key-replacement", Keywords: []string{"car", "key", "replacement", "automotive"}},
		},
	}
}

// Validate checks that the policy can be applied.
func (p *Policy) Validate() error {
	for category, n := range p.Diversity {
		if n < 0 {
			return fmt.Errorf("%w: diversity for %q is negative (%d)", ErrInvalidPolicy, category, n)
		}
	}
	for i, r := range p.ServiceCategories {
		if strings.TrimSpace(r.PathToken) == "" {
			return fmt.Errorf("%w: service category rule %d (%q) has no path token", ErrInvalidPolicy, i, r.Name)
		}
	}
	for i, r := range p.IndividualServices {
		if strings.TrimSpace(r.PathToken) == "" {
			return fmt.Errorf("%w: individual service rule %d (%q) has no path token", ErrInvalidPolicy, i, r.Name)
		}
	}
	return nil
}

// MinDistinctTags returns the diversity requirement for a category.
func (p *Policy) MinDistinctTags(category model.Category) (int, bool) {
	n, ok := p.Diversity[category]
	return n, ok
}

// CategoryRuleFor returns the service category rule for a page path, or
// nil when no rule applies.
func (p *Policy) CategoryRuleFor(path string) *CategoryRule {
	for i := range p.ServiceCategories {
		if strings.Contains(path, p.ServiceCategories[i].PathToken) {
			return &p.ServiceCategories[i]
		}
	}
	return nil
}

// KeywordRuleFor returns the individual service rule for a page path, or
// nil when no rule applies.
func (p *Policy) KeywordRuleFor(path string) *KeywordRule {
	for i := range p.IndividualServices {
		if strings.Contains(path, p.IndividualServices[i].PathToken) {
			return &p.IndividualServices[i]
		}
	}
	return nil
}

// ExpectedLabels returns the rule's labels followed by the general labels.
func (p *Policy) ExpectedLabels(r *CategoryRule) []string {
	labels := make([]string, 0, len(r.Labels)+len(p.GeneralLabels))
	labels = append(labels, r.Labels...)
	return append(labels, p.GeneralLabels...)
}

// Accepts reports whether tag is legitimate on pages governed by r.
func (p *Policy) Accepts(r *CategoryRule, tag string) bool {
	folded := fold(tag)
	if !containsAny(folded, p.ExpectedLabels(r)) {
		return false
	}
	return !containsWord(folded, r.Exclude)
}

// Matches reports whether tag contains any of the rule's keywords.
func (r *KeywordRule) Matches(tag string) bool {
	return containsAny(fold(tag), r.Keywords)
}

// fold returns the case-folded form of s.
// A Caser keeps state, so a fresh one is used per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

// containsAny reports whether folded contains the folded form of any needle.
func containsAny(folded string, needles []string) bool {
	for _, n := range needles {
		if n == "" {
			continue
		}
		if strings.Contains(folded, fold(n)) {
			return true
		}
	}
	return false
}

// containsWord reports whether folded contains any of words as a whole
// word, or as a whole run of words for multi-word entries.
func containsWord(folded string, words []string) bool {
	if len(words) == 0 {
		return false
	}
	haystack := " " + strings.Join(splitWords(folded), " ") + " "
	for _, w := range words {
		parts := splitWords(fold(w))
		if len(parts) == 0 {
			continue
		}
		if strings.Contains(haystack, " "+strings.Join(parts, " ")+" ") {
			return true
		}
	}
	return false
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
