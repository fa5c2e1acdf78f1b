package audit

import (
	"fmt"
	"sort"

	"github.com/nao1215/reviewaudit/internal/model"
	"github.com/nao1215/reviewaudit/internal/rules"
)

// ValidateCategories applies the policy to every page in path order and
// returns the pages whose service tags are inconsistent with their
// category.
//
// The tag set of a page is the distinct service tags of its reviews.
// Pages the rules cannot be applied to (an unrecognized category, or a
// service page no rule addresses) yield no issue and are returned as
// skipped pages instead.
func ValidateCategories(c *model.Corpus, p *rules.Policy) ([]model.CategorizationIssue, []model.SkippedPage) {
	issues := make([]model.CategorizationIssue, 0)
	skipped := make([]model.SkippedPage, 0)

	for _, page := range c.Pages() {
		if !page.Category.Known() {
			skipped = append(skipped, model.SkippedPage{
				Page:   page.Path,
				Reason: fmt.Sprintf("unrecognized category %q", page.Category),
			})
			continue
		}

		tags := uniqueTags(page.ReviewTags())

		if required, ok := p.MinDistinctTags(page.Category); ok && len(tags) < required {
			issues = append(issues, model.CategorizationIssue{
				Page:            page.Path,
				Category:        page.Category,
				Kind:            model.IssueInsufficientDiversity,
				Tags:            tags,
				MinDistinctTags: required,
			})
		}

		switch page.Category {
		case model.CategoryServiceCategory:
			rule := p.CategoryRuleFor(page.Path)
			if rule == nil {
				skipped = append(skipped, model.SkippedPage{
					Page:   page.Path,
					Reason: "no service category rule matches the page path",
				})
				continue
			}
			if issue, ok := checkUnexpected(p, rule, page, tags); ok {
				issues = append(issues, issue)
			}

		case model.CategoryIndividualService:
			rule := p.KeywordRuleFor(page.Path)
			if rule == nil {
				skipped = append(skipped, model.SkippedPage{
					Page:   page.Path,
					Reason: "no individual service rule matches the page path",
				})
				continue
			}
			if issue, ok := checkFocus(rule, page, tags); ok {
				issues = append(issues, issue)
			}
		}
	}

	return issues, skipped
}

// checkUnexpected flags the tags a service category page should not show.
func checkUnexpected(p *rules.Policy, rule *rules.CategoryRule, page *model.PageEntry, tags []string) (model.CategorizationIssue, bool) {
	var unexpected []string
	for _, tag := range tags {
		if !p.Accepts(rule, tag) {
			unexpected = append(unexpected, tag)
		}
	}
	if len(unexpected) == 0 {
		return model.CategorizationIssue{}, false
	}
	return model.CategorizationIssue{
		Page:           page.Path,
		Category:       page.Category,
		Kind:           model.IssueUnexpectedTags,
		Rule:           rule.Name,
		Tags:           tags,
		UnexpectedTags: unexpected,
	}, true
}

// checkFocus flags an individual service page when a strict majority of
// its tags match none of the service keywords.
func checkFocus(rule *rules.KeywordRule, page *model.PageEntry, tags []string) (model.CategorizationIssue, bool) {
	if len(tags) == 0 {
		return model.CategorizationIssue{}, false
	}
	var mismatched []string
	for _, tag := range tags {
		if !rule.Matches(tag) {
			mismatched = append(mismatched, tag)
		}
	}
	if 2*len(mismatched) <= len(tags) {
		return model.CategorizationIssue{}, false
	}
	return model.CategorizationIssue{
		Page:             page.Path,
		Category:         page.Category,
		Kind:             model.IssueMismatchedFocus,
		Rule:             rule.Name,
		Tags:             tags,
		ExpectedKeywords: append([]string(nil), rule.Keywords...),
		MismatchedTags:   mismatched,
	}, true
}

// uniqueTags returns the distinct tags, sorted.
func uniqueTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
