package audit

import (
	"context"
	"sort"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/reviewaudit/internal/model"
	"github.com/nao1215/reviewaudit/internal/similarity"
)

// SimilarityOptions configures FindSimilarTexts.
type SimilarityOptions struct {
	// Threshold is the ratio a pair must strictly exceed.
	Threshold float64

	// Workers is the number of goroutines sharing the pairwise scan.
	// Values below 1 mean one.
	Workers int
}

// reviewText is one entry of the flattened text sequence.
type reviewText struct {
	ref    model.ReviewRef
	length int
}

// flattenTexts lists every present review text in page order, then review
// order within the page.
func flattenTexts(c *model.Corpus) []reviewText {
	texts := make([]reviewText, 0, c.TotalReviews())
	for _, page := range c.Pages() {
		for _, r := range page.Reviews {
			if r.ReviewText == "" {
				continue
			}
			texts = append(texts, reviewText{
				ref: model.ReviewRef{
					Page:     page.Path,
					Customer: r.CustomerName,
					Text:     r.ReviewText,
				},
				length: utf8.RuneCountInString(r.ReviewText),
			})
		}
	}
	return texts
}

// FindSimilarTexts reports every unordered pair of review texts whose
// similarity ratio exceeds opts.Threshold. Pairs from the same page, and
// repeats of the same text, are included.
//
// The scan is shared between workers over disjoint row ranges of the
// flattened text sequence. Results are merged in row order and sorted by
// similarity descending, then left page, then right page, so the output
// does not depend on the number of workers.
//
// The scan stops with ctx.Err() when ctx is cancelled.
func FindSimilarTexts(ctx context.Context, c *model.Corpus, opts SimilarityOptions) ([]model.SimilarityFinding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	texts := flattenTexts(c)
	ranges := partitionRows(len(texts), opts.Workers)
	partial := make([][]model.SimilarityFinding, len(ranges))

	g, gctx := errgroup.WithContext(ctx)
	for w, rows := range ranges {
		g.Go(func() error {
			found, err := scanRows(gctx, texts, rows[0], rows[1], opts.Threshold)
			if err != nil {
				return err
			}
			partial[w] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	findings := make([]model.SimilarityFinding, 0)
	for _, found := range partial {
		findings = append(findings, found...)
	}

	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if a.Left.Page != b.Left.Page {
			return a.Left.Page < b.Left.Page
		}
		return a.Right.Page < b.Right.Page
	})
	return findings, nil
}

// scanRows compares texts[i] with every texts[j], j > i, for i in [from, to).
func scanRows(ctx context.Context, texts []reviewText, from, to int, threshold float64) ([]model.SimilarityFinding, error) {
	var found []model.SimilarityFinding
	for i := from; i < to; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		left := texts[i]
		for j := i + 1; j < len(texts); j++ {
			right := texts[j]
			if !similarity.CanExceed(left.length, right.length, threshold) {
				continue
			}
			score := similarity.Ratio(left.ref.Text, right.ref.Text)
			if !similarity.Exceeds(score, threshold) {
				continue
			}
			found = append(found, model.SimilarityFinding{
				Similarity: score,
				Left:       left.ref,
				Right:      right.ref,
			})
		}
	}
	return found, nil
}

// partitionRows splits the rows of an n-entry triangular scan into at most
// workers contiguous ranges holding roughly the same number of pairs.
// Row i holds n-1-i pairs, so early ranges are shorter.
func partitionRows(n, workers int) [][2]int {
	if workers < 1 {
		workers = 1
	}
	if n < 2 {
		return [][2]int{{0, n}}
	}

	total := n * (n - 1) / 2
	per := (total + workers - 1) / workers

	ranges := make([][2]int, 0, workers)
	start, acc := 0, 0
	for i := 0; i < n; i++ {
		acc += n - 1 - i
		if acc >= per && len(ranges) < workers-1 {
			ranges = append(ranges, [2]int{start, i + 1})
			start, acc = i+1, 0
		}
	}
	return append(ranges, [2]int{start, n})
}
