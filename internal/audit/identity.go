package audit

import (
	"sort"

	"github.com/nao1215/reviewaudit/internal/model"
)

// FindDuplicateIdentities reports every customer name that appears on two
// or more distinct pages.
//
// Names are compared exactly (case, whitespace and punctuation included).
// A name repeated on a single page is not a finding. Pages within a finding
// and the findings themselves are sorted.
func FindDuplicateIdentities(c *model.Corpus) []model.DuplicateIdentityFinding {
	pagesByName := make(map[string][]string)
	for _, page := range c.Pages() {
		for _, r := range page.Reviews {
			if r.CustomerName == "" {
				continue
			}
			pages := pagesByName[r.CustomerName]
			// Pages are visited in order, so a repeat on this page is always last.
			if n := len(pages); n > 0 && pages[n-1] == page.Path {
				continue
			}
			pagesByName[r.CustomerName] = append(pages, page.Path)
		}
	}

	findings := make([]model.DuplicateIdentityFinding, 0)
	for name, pages := range pagesByName {
		if len(pages) < 2 {
			continue
		}
		findings = append(findings, model.DuplicateIdentityFinding{
			Name:  name,
			Pages: pages,
			Count: len(pages),
		})
	}

	sort.Slice(findings, func(i, j int) bool {
		return findings[i].Name < findings[j].Name
	})
	return findings
}
