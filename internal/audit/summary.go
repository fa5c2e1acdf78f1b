package audit

import (
	"sort"

	"github.com/nao1215/reviewaudit/internal/model"
)

// topTags is the number of tags kept per category in the tag distribution.
const topTags = 10

// Summarize computes the corpus counters of an audit report.
// Averages are 0 for an empty corpus.
func Summarize(c *model.Corpus, similar []model.SimilarityFinding) model.Summary {
	s := model.Summary{
		PagesByCategory:   make(map[model.Category]int),
		ReviewsByCategory: make(map[model.Category]int),
		TagDistribution:   make(map[model.Category][]model.TagCount),
	}

	tagCounts := make(map[model.Category]map[string]int)
	for _, page := range c.Pages() {
		s.TotalPages++
		s.TotalReviews += len(page.Reviews)
		s.TotalServiceTags += len(page.AllServiceTags)
		s.PagesByCategory[page.Category]++
		s.ReviewsByCategory[page.Category] += len(page.Reviews)

		for _, tag := range page.ReviewTags() {
			counts, ok := tagCounts[page.Category]
			if !ok {
				counts = make(map[string]int)
				tagCounts[page.Category] = counts
			}
			counts[tag]++
		}
	}

	if s.TotalPages > 0 {
		s.AverageReviewsPerPage = float64(s.TotalReviews) / float64(s.TotalPages)
		s.AverageServiceTagsPerPage = float64(s.TotalServiceTags) / float64(s.TotalPages)
	}

	for category, counts := range tagCounts {
		s.TagDistribution[category] = mostCommon(counts, topTags)
	}

	for _, f := range similar {
		if f.Similarity > model.IdenticalThreshold {
			s.NearIdenticalPairs++
		}
	}

	return s
}

// mostCommon returns the n most frequent tags, by count descending and
// then tag ascending.
func mostCommon(counts map[string]int, n int) []model.TagCount {
	out := make([]model.TagCount, 0, len(counts))
	for tag, count := range counts {
		out = append(out, model.TagCount{Tag: tag, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
